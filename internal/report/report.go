// Package report defines what the root rank hands to its output sinks once
// the collective has produced a global sum.
package report

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// Estimate is the outcome of one run as seen by the root rank.
type Estimate struct {
	Value   float64       `json:"value"`
	Workers int           `json:"workers"`
	Samples int64         `json:"samples"`
	Used    int64         `json:"used"`
	Dropped int64         `json:"dropped"`
	Device  string        `json:"device"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// AbsError is the distance of the estimate from math.Pi.
func (e Estimate) AbsError() float64 {
	return math.Abs(e.Value - math.Pi)
}

// Reporter publishes an estimate somewhere.
type Reporter interface {
	Name() string
	Report(ctx context.Context, est Estimate) error
}

// Multi fans an estimate out to every reporter in order. A failing reporter
// does not stop the ones after it.
type Multi []Reporter

func (m Multi) Name() string { return "multi" }

// Report implements Reporter.
func (m Multi) Report(ctx context.Context, est Estimate) error {
	var errs []error
	for _, r := range m {
		if err := r.Report(ctx, est); err != nil {
			errs = append(errs, fmt.Errorf("reporter %q: %w", r.Name(), err))
		}
	}
	return errors.Join(errs...)
}
