// Package print is the console reporter: it writes the root rank's estimate
// as one human-readable line.
package print

import (
	"context"
	"fmt"
	"io"

	"github.com/specialistvlad/gridpi/internal/ctxlog"
	"github.com/specialistvlad/gridpi/internal/report"
)

// Reporter implements report.Reporter for a terminal or log file.
type Reporter struct {
	W io.Writer
	// Verbose adds a second line with the run's shape and error.
	Verbose bool
}

// New returns a console reporter writing to w.
func New(w io.Writer, verbose bool) *Reporter {
	return &Reporter{W: w, Verbose: verbose}
}

func (r *Reporter) Name() string { return "console" }

// Report implements report.Reporter.
func (r *Reporter) Report(ctx context.Context, est report.Estimate) error {
	ctxlog.FromContext(ctx).Debug("Printing estimate", "value", est.Value)

	if _, err := fmt.Fprintf(r.W, "PI = %.6g in %.6f seconds\n", est.Value, est.Elapsed.Seconds()); err != nil {
		return fmt.Errorf("failed to write estimate: %w", err)
	}
	if !r.Verbose {
		return nil
	}
	_, err := fmt.Fprintf(r.W, "      workers = %d, samples = %d (used %d, dropped %d), device = %q, |error| = %.3e\n",
		est.Workers, est.Samples, est.Used, est.Dropped, est.Device, est.AbsError())
	if err != nil {
		return fmt.Errorf("failed to write estimate details: %w", err)
	}
	return nil
}
