package vizier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tansa-ml/vizier-go/vizierpb"
	"github.com/tansa-ml/vizier-go/viziertest"
)

func TestSuggestTrials_PollsOperationUntilDone(t *testing.T) {
	fake := viziertest.NewFake()
	fake.OperationPolls = 3
	c := newTestClient(t, fake)
	s := mustCreateStudy(t, c, "s1")

	trials, err := s.Suggest(context.Background(), 2, nil)
	require.NoError(t, err)
	assert.Len(t, trials, 2)

	assert.Equal(t, 1, fake.Calls("SuggestTrials"))
	assert.Equal(t, 3, fake.Calls("GetOperation"))
}

func TestSuggestTrials_FewerThanRequestedIsNotAnError(t *testing.T) {
	fake := viziertest.NewFake()
	fake.SuggestionCap = 2
	c := newTestClient(t, fake)
	s := mustCreateStudy(t, c, "s1")

	trials, err := s.Suggest(context.Background(), 5, nil)
	require.NoError(t, err)
	require.Len(t, trials, 2)
	for _, trial := range trials {
		assert.Equal(t, vizierpb.TrialStateActive, trial.State)
	}
}

func TestSuggestTrials_ExhaustedReturnsEmpty(t *testing.T) {
	fake := viziertest.NewFake()
	fake.SuggestionCap = 1
	c := newTestClient(t, fake)
	s := mustCreateStudy(t, c, "s1")

	trials, err := s.Suggest(context.Background(), 1, nil)
	require.NoError(t, err)
	require.Len(t, trials, 1)
	m := Measurement{Metrics: []Metric{{ID: "loss", Value: 0.1}}}
	require.NoError(t, trials[0].Complete(context.Background(), CompleteOptions{FinalMeasurement: &m}))

	trials, err = s.Suggest(context.Background(), 1, nil)
	require.NoError(t, err, "an exhausted search space is a valid outcome")
	assert.Empty(t, trials)
}

func TestSuggestTrials_SameClientGetsPendingAssignment(t *testing.T) {
	fake := viziertest.NewFake()
	c := newTestClient(t, fake)
	s := mustCreateStudy(t, c, "s1")

	first, err := s.Suggest(context.Background(), 2, nil)
	require.NoError(t, err)
	second, err := s.Suggest(context.Background(), 2, nil)
	require.NoError(t, err)

	require.Len(t, second, 2)
	assert.Equal(t, first[0].Name, second[0].Name)
	assert.Equal(t, first[1].Name, second[1].Name)

	// No third trial was minted for the repeat ask.
	it := s.Trials(context.Background(), nil)
	var n int
	for {
		if _, err := it.Next(); err != nil {
			break
		}
		n++
	}
	assert.Equal(t, 2, n)
}

func TestSuggestTrials_DistinctClientIDsPartitionWork(t *testing.T) {
	fake := viziertest.NewFake()
	c := newTestClient(t, fake)
	s := mustCreateStudy(t, c, "s1")

	mine, err := s.Suggest(context.Background(), 1, nil)
	require.NoError(t, err)
	theirs, err := s.Suggest(context.Background(), 1, &SuggestOptions{ClientID: "worker-2"})
	require.NoError(t, err)

	require.Len(t, mine, 1)
	require.Len(t, theirs, 1)
	assert.NotEqual(t, mine[0].Name, theirs[0].Name)
	assert.Equal(t, "worker-2", theirs[0].ClientID)
}

func TestSuggestTrials_OperationError(t *testing.T) {
	fake := viziertest.NewFake()
	fake.OperationError = status.Error(codes.Internal, "policy crashed")
	c := newTestClient(t, fake)
	s := mustCreateStudy(t, c, "s1")

	_, err := s.Suggest(context.Background(), 1, nil)
	require.Error(t, err)

	var rerr *RemoteError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "SuggestTrials", rerr.Op)
	assert.Equal(t, codes.Internal, rerr.Code)
	assert.Contains(t, err.Error(), "policy crashed")
}

func TestSuggestTrials_CancelledWhilePolling(t *testing.T) {
	fake := viziertest.NewFake()
	fake.OperationPolls = 1 << 20
	c, err := NewClient(Config{
		Owner:               "acme",
		Service:             fake,
		SuggestPollInterval: time.Millisecond,
	})
	require.NoError(t, err)
	s := mustCreateStudy(t, c, "s1")

	ctx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(15*time.Millisecond, cancel)
	defer timer.Stop()
	defer cancel()

	_, err = s.Suggest(ctx, 1, nil)
	require.Error(t, err)
	assert.True(t, IsCancelled(err), "got: %v", err)
}

// doneWithoutOutcome wraps the fake to hand back an operation that
// claims to be done but carries neither response nor error.
type doneWithoutOutcome struct {
	*viziertest.Fake
}

func (s *doneWithoutOutcome) SuggestTrials(ctx context.Context, req *vizierpb.SuggestTrialsRequest) (*vizierpb.SuggestOperation, error) {
	return &vizierpb.SuggestOperation{Name: "operations/empty", Done: true}, nil
}

func TestSuggestTrials_DoneWithoutOutcomeIsAnError(t *testing.T) {
	stub := &doneWithoutOutcome{Fake: viziertest.NewFake()}
	c, err := NewClient(Config{Owner: "acme", Service: stub})
	require.NoError(t, err)

	_, err = c.SuggestTrials(context.Background(), c.StudyName("s1"), 1, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neither response nor error")
}
