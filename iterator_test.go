package vizier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tansa-ml/vizier-go/viziertest"
)

func TestTrialIterator_Paginates(t *testing.T) {
	fake := viziertest.NewFake()
	c := newTestClient(t, fake)
	s := mustCreateStudy(t, c, "s1")

	trials, err := s.Suggest(context.Background(), 5, nil)
	require.NoError(t, err)
	require.Len(t, trials, 5)

	it := s.Trials(context.Background(), &ListOptions{PageSize: 2})
	var ids []string
	for {
		trial, err := it.Next()
		if err == iterator.Done {
			break
		}
		require.NoError(t, err)
		ids = append(ids, trial.Name.Trial)
	}

	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ids)
	assert.Equal(t, 3, fake.Calls("ListTrials"))
}

func TestTrialIterator_FetchesLazily(t *testing.T) {
	fake := viziertest.NewFake()
	c := newTestClient(t, fake)
	s := mustCreateStudy(t, c, "s1")

	_, err := s.Suggest(context.Background(), 4, nil)
	require.NoError(t, err)

	it := s.Trials(context.Background(), &ListOptions{PageSize: 2})
	assert.Equal(t, 0, fake.Calls("ListTrials"), "construction must not fetch")

	_, err = it.Next()
	require.NoError(t, err)
	_, err = it.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, fake.Calls("ListTrials"), "one buffered page serves two items")

	_, err = it.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, fake.Calls("ListTrials"), "the next page is fetched on demand")
}

func TestTrialIterator_Restartable(t *testing.T) {
	c := newTestClient(t, viziertest.NewFake())
	s := mustCreateStudy(t, c, "s1")

	_, err := s.Suggest(context.Background(), 3, nil)
	require.NoError(t, err)

	for range 2 {
		it := s.Trials(context.Background(), &ListOptions{PageSize: 2})
		var n int
		for {
			if _, err := it.Next(); err == iterator.Done {
				break
			} else if err != nil {
				t.Fatalf("Next failed: %v", err)
			}
			n++
		}
		assert.Equal(t, 3, n)
	}
}

func TestTrialIterator_ErrorIsSticky(t *testing.T) {
	fake := viziertest.NewFake()
	c := newTestClient(t, fake)
	s := mustCreateStudy(t, c, "s1")

	down := status.Error(codes.Unavailable, "down")
	fake.FailNext("ListTrials", down, down, down)

	it := s.Trials(context.Background(), nil)
	_, err := it.Next()
	require.Error(t, err)
	assert.True(t, IsRetriesExhausted(err))
	calls := fake.Calls("ListTrials")

	_, err2 := it.Next()
	assert.Equal(t, err, err2, "subsequent calls repeat the same error")
	assert.Equal(t, calls, fake.Calls("ListTrials"), "a failed iterator stops fetching")
}

func TestTrialIterator_DoneStaysDone(t *testing.T) {
	c := newTestClient(t, viziertest.NewFake())
	s := mustCreateStudy(t, c, "s1")

	it := s.Trials(context.Background(), nil)
	_, err := it.Next()
	assert.Equal(t, iterator.Done, err)
	_, err = it.Next()
	assert.Equal(t, iterator.Done, err)
}
