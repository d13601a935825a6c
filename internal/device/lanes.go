package device

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// cancelCheckStride is how many work items a lane runs between context checks.
const cancelCheckStride = 4096

// LaneDevice runs kernels on a fixed number of goroutine lanes. Each lane owns
// one contiguous chunk of the index space.
type LaneDevice struct {
	name   string
	lanes  int
	closed atomic.Bool
}

// NewLanes returns a device with the given number of lanes (at least one).
func NewLanes(name string, lanes int) *LaneDevice {
	if lanes < 1 {
		lanes = 1
	}
	return &LaneDevice{name: name, lanes: lanes}
}

func (d *LaneDevice) Name() string { return d.name }

func (d *LaneDevice) Lanes() int { return d.lanes }

// ParallelFor implements Device. A panic inside kernel fails the whole
// submission and cancels the remaining lanes.
func (d *LaneDevice) ParallelFor(ctx context.Context, n int, kernel func(k int)) error {
	if d.closed.Load() {
		return ErrClosed
	}
	if n <= 0 {
		return ctx.Err()
	}

	lanes := min(d.lanes, n)
	chunk := (n + lanes - 1) / lanes

	g, gctx := errgroup.WithContext(ctx)
	for lane := range lanes {
		lo := lane * chunk
		hi := min(lo+chunk, n)
		if lo >= hi {
			break
		}
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("kernel panicked on lane %d: %v", lane, r)
				}
			}()
			for k := lo; k < hi; k++ {
				if (k-lo)%cancelCheckStride == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				kernel(k)
			}
			return nil
		})
	}
	return g.Wait()
}

// Close implements Device.
func (d *LaneDevice) Close() error {
	d.closed.Store(true)
	return nil
}
