// Package partition splits the midpoint-rule sample range across the ranks of
// a worker group.
//
// Worker r of P owns the contiguous index range [r*(N/P), (r+1)*(N/P)). The
// per-rank length is N/P with integer division, so when N is not a multiple
// of P the trailing N%P samples belong to nobody and are dropped. This keeps
// the numeric output identical to the reference program.
package partition

import (
	"errors"
	"fmt"
)

// ErrConfiguration is matched by every ConfigError via errors.Is.
var ErrConfiguration = errors.New("configuration error")

// ConfigError reports an invalid rank/worker/sample combination. It is raised
// before any computation starts.
type ConfigError struct {
	Rank    int
	Workers int
	Samples int64
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s (rank=%d workers=%d samples=%d)", e.Reason, e.Rank, e.Workers, e.Samples)
}

// Is lets errors.Is(err, ErrConfiguration) match any ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}

// Slice is one rank's share of the sample range.
type Slice struct {
	Rank    int
	Workers int
	Samples int64
}

// Validate checks the group-level preconditions shared by every rank:
// workers > 0 and samples >= workers.
func Validate(workers int, samples int64) error {
	if workers <= 0 {
		return &ConfigError{Workers: workers, Samples: samples, Reason: "worker count must be positive"}
	}
	if samples < int64(workers) {
		return &ConfigError{Workers: workers, Samples: samples, Reason: "total samples must not be smaller than the worker count"}
	}
	return nil
}

// New returns the slice owned by rank, or a *ConfigError.
func New(rank, workers int, samples int64) (Slice, error) {
	if err := Validate(workers, samples); err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			cfgErr.Rank = rank
		}
		return Slice{}, err
	}
	if rank < 0 || rank >= workers {
		return Slice{}, &ConfigError{Rank: rank, Workers: workers, Samples: samples, Reason: "rank out of range"}
	}
	return Slice{Rank: rank, Workers: workers, Samples: samples}, nil
}

// Len is the number of samples this rank computes.
func (s Slice) Len() int {
	return int(s.Samples / int64(s.Workers))
}

// Start is the global index of the first sample owned by this rank.
func (s Slice) Start() int64 {
	return int64(s.Rank) * (s.Samples / int64(s.Workers))
}

// End is one past the global index of the last sample owned by this rank.
func (s Slice) End() int64 {
	return s.Start() + int64(s.Len())
}

// Dropped is the number of samples no rank computes.
func (s Slice) Dropped() int64 {
	return s.Samples % int64(s.Workers)
}

// Step is the width of one midpoint-rule rectangle, 1/N.
func (s Slice) Step() float64 {
	return 1.0 / float64(s.Samples)
}

// Position returns the sample abscissa for local index k:
//
//	x = rank/workers + k*dx + dx/2
//
// The rank offset is rank/workers rather than Start()*dx; the two agree when
// N is a multiple of P and the former matches the reference output otherwise.
func (s Slice) Position(k int) float64 {
	dx := s.Step()
	return float64(s.Rank)/float64(s.Workers) + float64(k)*dx + dx/2
}

func (s Slice) String() string {
	return fmt.Sprintf("rank %d/%d [%d,%d) of %d", s.Rank, s.Workers, s.Start(), s.End(), s.Samples)
}
