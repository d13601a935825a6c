package inmemorystore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/specialistvlad/gridpi/internal/rankstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGetStatus(t *testing.T) {
	s := New()
	ctx := context.Background()

	// Get status of a rank that doesn't exist yet
	status, err := s.GetStatus(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, rankstore.Pending, status)

	// Set status
	err = s.SetStatus(ctx, 3, rankstore.Generating)
	require.NoError(t, err)

	// Get status again
	status, err = s.GetStatus(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, rankstore.Generating, status)
}

func TestSetAndGetError(t *testing.T) {
	s := New()
	ctx := context.Background()

	// Get error for a rank that doesn't exist yet should be nil
	retrievedErr, err := s.GetError(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, retrievedErr)

	// Set error
	expectedErr := errors.New("device went away")
	require.NoError(t, s.SetStatus(ctx, 0, rankstore.Reducing))
	require.NoError(t, s.SetError(ctx, 0, expectedErr))

	// Get error
	retrievedErr, err = s.GetError(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, expectedErr, retrievedErr)

	status, err := s.GetStatus(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, rankstore.Failed, status, "recording an error must mark the rank failed")
}

func TestSetError_RejectsNil(t *testing.T) {
	s := New()

	err := s.SetError(context.Background(), 0, nil)

	require.Error(t, err)
}

func TestSnapshot_OrderedByRank(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, rank := range []int{2, 0, 1} {
		require.NoError(t, s.SetSlice(ctx, rank, "cpu", int64(rank*10), 10))
		require.NoError(t, s.SetLocalSum(ctx, rank, float64(rank)+0.5))
		require.NoError(t, s.SetStatus(ctx, rank, rankstore.Completed))
	}

	records, err := s.Snapshot(ctx)

	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, r := range records {
		assert.Equal(t, rankstore.Record{
			Rank:     i,
			Status:   rankstore.Completed,
			Device:   "cpu",
			Start:    int64(i * 10),
			Len:      10,
			LocalSum: float64(i) + 0.5,
		}, r)
	}
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "reducing", rankstore.Reducing.String())
	assert.Equal(t, "Status(42)", rankstore.Status(42).String())

	text, err := rankstore.Failed.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "failed", string(text))
}

// TestStore_ConcurrentAccess verifies that the store can be safely accessed by
// multiple goroutines simultaneously without data races or lost writes.
func TestStore_ConcurrentAccess(t *testing.T) {
	s := New()
	ctx := context.Background()
	numGoroutines := 100
	var wg sync.WaitGroup

	// Phase 1: Concurrent Writes, one rank per goroutine, with a reader racing them.
	wg.Add(numGoroutines + 1)
	for i := range numGoroutines {
		go func() {
			defer wg.Done()
			_ = s.SetStatus(ctx, i, rankstore.Generating)
			_ = s.SetLocalSum(ctx, i, float64(i))
			_ = s.SetError(ctx, i, fmt.Errorf("error for rank %d", i))
		}()
	}
	go func() {
		defer wg.Done()
		for range 50 {
			_, _ = s.Snapshot(ctx)
		}
	}()
	wg.Wait()

	// Phase 2: Verification
	records, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, records, numGoroutines)
	for i, r := range records {
		assert.Equal(t, i, r.Rank)
		assert.Equal(t, float64(i), r.LocalSum, "mismatched local sum for rank %d", i)
		assert.Equal(t, rankstore.Failed, r.Status)
		assert.Equal(t, fmt.Sprintf("error for rank %d", i), r.Error)
	}
}
