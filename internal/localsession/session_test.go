package localsession

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/gridpi/internal/config"
	"github.com/specialistvlad/gridpi/internal/ctxlog"
	"github.com/specialistvlad/gridpi/internal/group"
	"github.com/specialistvlad/gridpi/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testContext() context.Context {
	return ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&testutil.SafeBuffer{}, nil)))
}

func newMembers(t *testing.T, workers int, timeout time.Duration) []group.Group {
	t.Helper()
	job := config.Default()
	job.Workers = workers
	job.CollectiveTimeout = timeout
	sess, err := (&Factory{}).NewSession(testContext(), job)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close(testContext()) })
	return sess.Members()
}

type reduceResult struct {
	sum float64
	ok  bool
	err error
}

// reduceAll runs Reduce on every member concurrently with value = rank+1.
func reduceAll(ctx context.Context, members []group.Group, root int) []reduceResult {
	results := make([]reduceResult, len(members))
	var wg sync.WaitGroup
	for i, m := range members {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sum, ok, err := m.Reduce(ctx, float64(m.Rank()+1), root)
			results[i] = reduceResult{sum: sum, ok: ok, err: err}
		}()
	}
	wg.Wait()
	return results
}

func TestTreePosition_FormsSpanningTree(t *testing.T) {
	t.Parallel()

	for size := 1; size <= 17; size++ {
		for root := range size {
			seen := map[int]int{}
			for rank := range size {
				parent, children := treePosition(rank, root, size)
				if rank == root {
					assert.Equal(t, -1, parent)
				} else {
					require.NotEqual(t, -1, parent)
					_, parentChildren := treePosition(parent, root, size)
					assert.Contains(t, parentChildren, rank)
				}
				for _, c := range children {
					seen[c]++
				}
			}
			assert.Len(t, seen, size-1, "every non-root rank must be a child exactly once (size=%d root=%d)", size, root)
			for _, n := range seen {
				assert.Equal(t, 1, n)
			}
		}
	}
}

func TestReduce_OnlyRootSeesSum(t *testing.T) {
	t.Parallel()

	for _, workers := range []int{1, 2, 3, 4, 7, 16} {
		for _, root := range []int{0, workers - 1, workers / 2} {
			members := newMembers(t, workers, 0)

			results := reduceAll(testContext(), members, root)

			want := float64(workers * (workers + 1) / 2)
			for rank, r := range results {
				require.NoError(t, r.err)
				if rank == root {
					assert.True(t, r.ok, "root %d must receive the sum", root)
					assert.Equal(t, want, r.sum)
				} else {
					assert.False(t, r.ok, "rank %d must observe absence", rank)
					assert.Zero(t, r.sum)
				}
			}
		}
	}
}

func TestReduce_SequentialCollectivesDoNotMix(t *testing.T) {
	t.Parallel()

	members := newMembers(t, 5, 0)

	first := reduceAll(testContext(), members, 0)
	second := reduceAll(testContext(), members, 0)

	assert.Equal(t, 15.0, first[0].sum)
	assert.Equal(t, 15.0, second[0].sum)
}

func TestReduce_InvalidRoot(t *testing.T) {
	t.Parallel()

	members := newMembers(t, 2, 0)

	_, _, err := members[0].Reduce(testContext(), 1, 2)

	require.ErrorIs(t, err, group.ErrInvalidRoot)
}

func TestReduce_AbortReleasesWaitingRanks(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	members := newMembers(t, 4, 0)
	cause := errors.New("device unavailable on rank 3")

	// --- Act ---
	done := make(chan reduceResult, 3)
	for _, m := range members[:3] {
		go func() {
			sum, ok, err := m.Reduce(testContext(), 1, 0)
			done <- reduceResult{sum, ok, err}
		}()
	}
	require.NoError(t, members[3].Abort(testContext(), cause))

	// --- Assert ---
	var rootSaw bool
	for range 3 {
		select {
		case r := <-done:
			if r.ok {
				rootSaw = true
			}
		case <-time.After(5 * time.Second):
			t.Fatal("collective did not return after abort")
		}
	}
	assert.False(t, rootSaw, "root must not report a sum when a rank aborted")

	_, _, err := members[0].Reduce(testContext(), 1, 0)
	var abortErr *group.AbortError
	require.ErrorAs(t, err, &abortErr)
	assert.Equal(t, 3, abortErr.Rank)
	assert.Contains(t, abortErr.Reason, "rank 3")
}

func TestReduce_TimeoutReportsStall(t *testing.T) {
	t.Parallel()

	members := newMembers(t, 3, 50*time.Millisecond)

	// Rank 2 never arrives.
	results := reduceAll(testContext(), members[:2], 0)

	require.ErrorIs(t, results[0].err, group.ErrStalled)
	assert.False(t, results[0].ok)
}

func TestReduce_CancelledContext(t *testing.T) {
	t.Parallel()

	members := newMembers(t, 2, 0)
	ctx, cancel := context.WithCancel(testContext())
	cancel()

	_, _, err := members[0].Reduce(ctx, 1, 0)

	require.ErrorIs(t, err, context.Canceled)
}

func TestFinalize_RejectsLaterCollectives(t *testing.T) {
	t.Parallel()

	members := newMembers(t, 1, 0)
	require.NoError(t, members[0].Finalize(testContext()))
	require.NoError(t, members[0].Finalize(testContext()))

	_, _, err := members[0].Reduce(testContext(), 1, 0)

	require.ErrorIs(t, err, group.ErrFinalized)
}
