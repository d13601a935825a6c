// Package rankstore defines the interface for recording the mutable progress
// of every rank hosted by this process during a run.
//
// # Why Rank Store Exists
//
// The executor drives each rank through a fixed pipeline (partition, acquire
// device, generate, reduce locally, reduce globally). The store keeps what
// each rank has done so far apart from the pipeline code itself, so that the
// status endpoint, the final report, and tests can all read it without
// reaching into goroutines that are still running.
//
// # State Transitions
//
// Ranks follow this lifecycle:
//
//	Pending → Generating → Reducing → Completed OR Failed (with error)
//
// A rank can fail from any state before Completed.
package rankstore

import (
	"context"
	"fmt"
)

// Status is the execution state of one rank.
type Status int

const (
	// Pending means the rank has not started yet.
	Pending Status = iota
	// Generating means the rank is evaluating its slice on its device.
	Generating
	// Reducing means the rank has a local sum and is inside the collective.
	Reducing
	// Completed means the rank finished its part of the collective.
	Completed
	// Failed means the rank stopped with an error.
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Generating:
		return "generating"
	case Reducing:
		return "reducing"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalText renders the status by name in JSON and logs.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Record is a point-in-time copy of one rank's progress.
type Record struct {
	Rank     int     `json:"rank"`
	Status   Status  `json:"status"`
	Device   string  `json:"device,omitempty"`
	Start    int64   `json:"start"`
	Len      int64   `json:"len"`
	LocalSum float64 `json:"local_sum"`
	Error    string  `json:"error,omitempty"`
}

// Store is the interface for the per-rank progress of a run.
//
// Implementations MUST be safe for concurrent use: every hosted rank writes
// its own entry from its own goroutine while the status endpoint reads.
type Store interface {
	// SetStatus moves a rank to a new state.
	SetStatus(ctx context.Context, rank int, status Status) error
	// GetStatus returns Pending for a rank that was never touched.
	GetStatus(ctx context.Context, rank int) (Status, error)
	// SetSlice records the range the rank evaluates and the device it runs on.
	SetSlice(ctx context.Context, rank int, device string, start, length int64) error
	// SetLocalSum records the rank's contribution to the collective.
	SetLocalSum(ctx context.Context, rank int, sum float64) error
	// SetError records why a rank failed and marks it Failed.
	SetError(ctx context.Context, rank int, rankErr error) error
	// GetError returns nil if the rank has not failed.
	GetError(ctx context.Context, rank int) (error, error)
	// Snapshot returns every known rank, ordered by rank.
	Snapshot(ctx context.Context) ([]Record, error)
}
