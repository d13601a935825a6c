// Package device provides the parallel execution capability a rank computes
// its partial sums on.
//
// # Purpose
//
// A Device plays the role an accelerator queue plays in a heterogeneous
// program: the caller acquires it once, submits data-parallel kernels to it,
// and releases it on every exit path. Kernels are submitted with ParallelFor,
// which spreads n independent work items across the device's lanes and returns
// only after every lane has finished, so results are safe to read afterwards.
//
// # Failure Model
//
// Anything that prevents a kernel from producing its full output (acquisition
// failure, a closed device, a panicking kernel, cancellation) ends up as an
// *UnavailableError: the Registry wraps acquisition failures itself, callers
// of ParallelFor wrap kernel failures with Unavailable since only they know
// the rank. Partially written output is never handed back as if it were
// complete.
package device

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable is matched by every UnavailableError via errors.Is.
var ErrUnavailable = errors.New("device unavailable")

// ErrClosed is wrapped into an UnavailableError when work is submitted to a
// released device.
var ErrClosed = errors.New("device closed")

// Device is an acquired parallel execution context.
type Device interface {
	// Name identifies the device in logs and errors.
	Name() string
	// Lanes is the number of work items the device runs concurrently.
	Lanes() int
	// ParallelFor runs kernel(k) for every k in [0, n) and blocks until all
	// lanes completed. kernel must only write state owned by index k.
	ParallelFor(ctx context.Context, n int, kernel func(k int)) error
	// Close releases the device. It is safe to call more than once.
	Close() error
}

// UnavailableError says which rank could not use which device, and for what.
type UnavailableError struct {
	Rank   int
	Device string
	Op     string
	Err    error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("device unavailable: rank %d could not %s on device %q: %v", e.Rank, e.Op, e.Device, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrUnavailable) match any UnavailableError.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

// Unavailable wraps err for rank/device/op unless it already is an
// *UnavailableError, in which case it is returned unchanged.
func Unavailable(rank int, deviceName, op string, err error) error {
	var existing *UnavailableError
	if errors.As(err, &existing) {
		return err
	}
	return &UnavailableError{Rank: rank, Device: deviceName, Op: op, Err: err}
}
