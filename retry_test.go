package vizier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tansa-ml/vizier-go/viziertest"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		code codes.Code
		want ErrorClass
	}{
		{codes.Unavailable, ClassTransient},
		{codes.DeadlineExceeded, ClassTransient},
		{codes.ResourceExhausted, ClassTransient},
		{codes.Aborted, ClassTransient},
		{codes.NotFound, ClassTerminal},
		{codes.InvalidArgument, ClassTerminal},
		{codes.AlreadyExists, ClassTerminal},
		{codes.PermissionDenied, ClassTerminal},
		{codes.FailedPrecondition, ClassTerminal},
		{codes.Canceled, ClassCancelled},
		{codes.Internal, ClassUnknown},
		{codes.Unknown, ClassUnknown},
		{codes.DataLoss, ClassUnknown},
	}
	for _, tc := range tests {
		t.Run(tc.code.String(), func(t *testing.T) {
			err := status.Error(tc.code, "boom")
			assert.Equal(t, tc.want, classify(err))
		})
	}
}

func TestRetryPolicy_Defaults(t *testing.T) {
	p := RetryPolicy{}.withDefaults()

	assert.Equal(t, defaultMaxAttempts, p.MaxAttempts)
	assert.Equal(t, defaultInitialBackoff, p.InitialBackoff)
	assert.Equal(t, defaultMaxBackoff, p.MaxBackoff)
	assert.Equal(t, defaultMultiplier, p.Multiplier)
	assert.Equal(t, defaultJitter, p.Jitter)
	assert.Equal(t, defaultMaxElapsed, p.MaxElapsed)

	// Negative jitter means none at all.
	p = RetryPolicy{MaxAttempts: 2, Jitter: -1}.withDefaults()
	assert.Equal(t, 2, p.MaxAttempts)
	assert.Equal(t, 0.0, p.Jitter)
}

func TestInvoke_TransientFailuresRetriedToSuccess(t *testing.T) {
	fake := viziertest.NewFake()
	c := newTestClient(t, fake)
	study := mustCreateStudy(t, c, "s1")

	// Two transient failures, then the real answer: with three
	// attempts allowed the call succeeds on the last one.
	fake.FailNext("GetStudy",
		status.Error(codes.Unavailable, "try again"),
		status.Error(codes.Unavailable, "try again"))

	got, err := c.GetStudy(context.Background(), study.Name)
	require.NoError(t, err)
	assert.Equal(t, study.Name, got.Name)
	assert.Equal(t, 3, fake.Calls("GetStudy"))
}

func TestInvoke_RetriesExhausted(t *testing.T) {
	fake := viziertest.NewFake()
	c := newTestClient(t, fake)
	study := mustCreateStudy(t, c, "s1")

	unavailable := status.Error(codes.Unavailable, "still down")
	fake.FailNext("GetStudy", unavailable, unavailable, unavailable)

	_, err := c.GetStudy(context.Background(), study.Name)
	require.Error(t, err)

	var exh *RetriesExhaustedError
	require.ErrorAs(t, err, &exh)
	assert.Equal(t, "GetStudy", exh.Op)
	assert.Equal(t, 3, exh.Attempts)
	assert.Equal(t, 3, fake.Calls("GetStudy"))

	assert.True(t, IsRetriesExhausted(err))
	assert.True(t, IsTransient(err))
	assert.False(t, IsCancelled(err))

	var rerr *RemoteError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, codes.Unavailable, rerr.Code)
}

func TestInvoke_TerminalNotRetried(t *testing.T) {
	fake := viziertest.NewFake()
	c := newTestClient(t, fake)

	_, err := c.GetStudy(context.Background(), c.StudyName("missing"))
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, 1, fake.Calls("GetStudy"))

	var rerr *RemoteError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, ClassTerminal, rerr.Class)
}

func TestInvoke_UnknownRetriedOnce(t *testing.T) {
	fake := viziertest.NewFake()
	c := newTestClient(t, fake)
	study := mustCreateStudy(t, c, "s1")

	fake.FailNext("GetStudy", status.Error(codes.Internal, "flaky"))
	_, err := c.GetStudy(context.Background(), study.Name)
	assert.NoError(t, err, "a single unknown failure gets one retry")
	assert.Equal(t, 2, fake.Calls("GetStudy"))

	fake.FailNext("GetStudy",
		status.Error(codes.Internal, "flaky"),
		status.Error(codes.Internal, "flaky"))
	_, err = c.GetStudy(context.Background(), study.Name)
	require.Error(t, err)

	var rerr *RemoteError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, ClassUnknown, rerr.Class)
	assert.Equal(t, 4, fake.Calls("GetStudy"))
}

func TestInvoke_NonIdempotentNotRetried(t *testing.T) {
	fake := viziertest.NewFake()
	c := newTestClient(t, fake)
	study := mustCreateStudy(t, c, "s1")

	fake.FailNext("CreateTrial", status.Error(codes.Unavailable, "mid-flight"))

	_, err := c.CreateTrial(context.Background(), study.Name, []Parameter{})
	require.Error(t, err)
	assert.True(t, IsIdempotencyUnsafe(err))
	assert.True(t, IsTransient(err), "the transient cause stays visible")
	assert.Equal(t, 1, fake.Calls("CreateTrial"), "no second attempt may be issued")
}

func TestInvoke_CancelledDuringBackoff(t *testing.T) {
	fake := viziertest.NewFake()
	c, err := NewClient(Config{
		Owner:   "acme",
		Service: fake,
		Retry: RetryPolicy{
			MaxAttempts:    3,
			InitialBackoff: 300 * time.Millisecond,
			MaxElapsed:     time.Minute,
		},
	})
	require.NoError(t, err)
	study := mustCreateStudy(t, c, "s1")

	fake.FailNext("GetStudy", status.Error(codes.Unavailable, "down"))

	ctx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(20*time.Millisecond, cancel)
	defer timer.Stop()
	defer cancel()

	_, err = c.GetStudy(ctx, study.Name)
	require.Error(t, err)
	assert.True(t, IsCancelled(err), "giving up mid-backoff is cancellation, got: %v", err)
	assert.False(t, IsRetriesExhausted(err))
	assert.Equal(t, 1, fake.Calls("GetStudy"))
}

func TestInvoke_CancelledBeforeCall(t *testing.T) {
	fake := viziertest.NewFake()
	c := newTestClient(t, fake)
	study := mustCreateStudy(t, c, "s1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetStudy(ctx, study.Name)
	require.Error(t, err)
	assert.True(t, IsCancelled(err))
}

func TestInvoke_FreshRequestPerAttempt(t *testing.T) {
	fake := viziertest.NewFake()
	c := newTestClient(t, fake)
	mustCreateStudy(t, c, "s1")

	// CreateStudy is retried; every attempt must carry the request
	// anew, so the retried call still lands on the same study.
	fake.FailNext("CreateStudy", status.Error(codes.Unavailable, "blip"))
	s, err := c.CreateStudy(context.Background(), "s1", testSpec(t))
	require.NoError(t, err)
	assert.Equal(t, c.StudyName("s1"), s.Name)
	assert.Equal(t, 3, fake.Calls("CreateStudy"))
}
