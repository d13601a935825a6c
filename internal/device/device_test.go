package device

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLaneDevice_ParallelForVisitsEveryIndexOnce(t *testing.T) {
	t.Parallel()

	for _, lanes := range []int{1, 2, 3, 7, 64} {
		for _, n := range []int{0, 1, 5, 100, 10007} {
			dev := NewLanes("test", lanes)
			hits := make([]atomic.Int32, n)

			err := dev.ParallelFor(context.Background(), n, func(k int) {
				hits[k].Add(1)
			})

			require.NoError(t, err)
			for k := range hits {
				require.Equal(t, int32(1), hits[k].Load(), "lanes=%d n=%d k=%d", lanes, n, k)
			}
		}
	}
}

func TestLaneDevice_KernelPanicFailsSubmission(t *testing.T) {
	t.Parallel()

	dev := NewLanes("test", 4)

	err := dev.ParallelFor(context.Background(), 1000, func(k int) {
		if k == 500 {
			panic("boom")
		}
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "kernel panicked")
	assert.Contains(t, err.Error(), "boom")
}

func TestLaneDevice_ClosedDeviceRejectsWork(t *testing.T) {
	t.Parallel()

	dev := NewLanes("test", 2)
	require.NoError(t, dev.Close())
	require.NoError(t, dev.Close(), "Close must be idempotent")

	ran := false
	err := dev.ParallelFor(context.Background(), 10, func(int) { ran = true })

	require.ErrorIs(t, err, ErrClosed)
	assert.False(t, ran)
}

func TestLaneDevice_CancelledContextStopsWork(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewLanes("test", 2).ParallelFor(ctx, 100000, func(int) {})

	require.ErrorIs(t, err, context.Canceled)
}

func TestRegistry_DefaultSelectors(t *testing.T) {
	t.Parallel()

	reg := DefaultRegistry()
	assert.Equal(t, []string{"cpu", "default", "serial"}, reg.Names())

	dev, err := reg.Acquire(context.Background(), "cpu", Options{Rank: 0, Lanes: 3})
	require.NoError(t, err)
	defer dev.Close()
	assert.Equal(t, 3, dev.Lanes())

	serial, err := reg.Acquire(context.Background(), "serial", Options{Lanes: 8})
	require.NoError(t, err)
	defer serial.Close()
	assert.Equal(t, 1, serial.Lanes())
}

func TestRegistry_UnknownSelectorIsUnavailable(t *testing.T) {
	t.Parallel()

	_, err := DefaultRegistry().Acquire(context.Background(), "gpu", Options{Rank: 2})

	require.ErrorIs(t, err, ErrUnavailable)
	var devErr *UnavailableError
	require.ErrorAs(t, err, &devErr)
	assert.Equal(t, 2, devErr.Rank)
	assert.Equal(t, "gpu", devErr.Device)
	assert.Equal(t, "acquire", devErr.Op)
}

func TestRegistry_ProviderFailureIsUnavailable(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	cause := errors.New("no accelerator present")
	reg.Register("broken", func(context.Context, Options) (Device, error) { return nil, cause })

	_, err := reg.Acquire(context.Background(), "broken", Options{Rank: 1})

	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorIs(t, err, cause)
}

func TestRegistry_DuplicateRegistrationPanics(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	p := func(context.Context, Options) (Device, error) { return NewLanes("x", 1), nil }
	reg.Register("x", p)

	assert.Panics(t, func() { reg.Register("x", p) })
}

func TestUnavailable_DoesNotDoubleWrap(t *testing.T) {
	t.Parallel()

	inner := Unavailable(1, "cpu", "acquire", errors.New("x"))
	outer := Unavailable(2, "serial", "generate", inner)

	assert.Same(t, inner, outer)
}
