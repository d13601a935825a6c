// Package executor defines the interface for running the ranks of a job.
package executor

import (
	"context"

	"github.com/specialistvlad/gridpi/internal/report"
)

// Executor drives every rank hosted by this process through one run: slice,
// device, partial sums, local reduction, and the collective. It returns the
// estimate when this process hosts the root rank and nil otherwise.
type Executor interface {
	Execute(ctx context.Context) (*report.Estimate, error)
}
