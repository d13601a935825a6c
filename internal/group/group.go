// Package group defines the communicator a rank uses to take part in the
// collective reduction of a run.
//
// A Group is one rank's view of a statically sized set of workers. It is
// obtained from a session (the process-group bootstrap) and knows its own rank
// and the group size; nothing about the group is kept in package state.
//
// # Liveness
//
// Reduce is a collective: every rank must call it exactly once per run. A rank
// that never arrives blocks the root forever unless the rank calls Abort, the
// caller's context is cancelled, or the session was configured with a
// collective timeout. Implementations never invent a value for a missing rank.
package group

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrAborted is matched by every AbortError via errors.Is.
	ErrAborted = errors.New("collective aborted")
	// ErrFinalized is returned by collectives called after Finalize.
	ErrFinalized = errors.New("group finalized")
	// ErrInvalidRoot is returned when the requested root is not a member.
	ErrInvalidRoot = errors.New("invalid root rank")
	// ErrStalled is returned when a collective timeout expires before every
	// rank contributed.
	ErrStalled = errors.New("collective stalled")
)

// Group is one rank's handle on the worker group.
type Group interface {
	// Rank is this member's index in [0, Size()).
	Rank() int
	// Size is the number of ranks in the group.
	Size() int
	// Reduce sums value across all ranks. Only the root receives the sum with
	// ok == true; every other rank receives ok == false.
	Reduce(ctx context.Context, value float64, root int) (sum float64, ok bool, err error)
	// Abort tells the rest of the group this rank will not contribute, so
	// pending and future collectives fail with an *AbortError instead of
	// waiting for it.
	Abort(ctx context.Context, cause error) error
	// Finalize leaves the group. It is safe to call more than once.
	Finalize(ctx context.Context) error
}

// AbortError identifies the rank that aborted a collective and why.
type AbortError struct {
	Rank   int
	Reason string
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("collective aborted by rank %d: %s", e.Rank, e.Reason)
}

// Is lets errors.Is(err, ErrAborted) match any AbortError.
func (e *AbortError) Is(target error) bool {
	return target == ErrAborted
}

// CheckRoot returns ErrInvalidRoot (wrapped with context) unless root is a
// valid rank of a group with the given size.
func CheckRoot(root, size int) error {
	if root < 0 || root >= size {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrInvalidRoot, root, size)
	}
	return nil
}
