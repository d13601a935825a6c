// Package reduce turns partial result arrays into sums: first within a rank
// (local), then across the group (global).
//
// Floating-point addition is not associative, so sums taken in different
// orders agree only within rounding. Each function here fixes its order, which
// makes a given configuration reproducible bit for bit.
package reduce

import (
	"context"

	"github.com/specialistvlad/gridpi/internal/device"
	"github.com/specialistvlad/gridpi/internal/group"
)

// Local sums values left to right.
func Local(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

// LocalOn sums values on dev: each lane sums one contiguous chunk and the lane
// partials are then added in lane order. The result only depends on the
// values and dev.Lanes().
func LocalOn(ctx context.Context, dev device.Device, rank int, values []float64) (float64, error) {
	if dev == nil {
		return Local(values), nil
	}
	lanes := min(dev.Lanes(), len(values))
	if lanes <= 1 {
		return Local(values), nil
	}

	chunk := (len(values) + lanes - 1) / lanes
	partials := make([]float64, lanes)
	err := dev.ParallelFor(ctx, lanes, func(lane int) {
		lo := min(lane*chunk, len(values))
		hi := min(lo+chunk, len(values))
		partials[lane] = Local(values[lo:hi])
	})
	if err != nil {
		return 0, device.Unavailable(rank, dev.Name(), "reduce", err)
	}
	return Local(partials), nil
}

// Global runs the collective sum of local across g. The returned ok is true
// only on root; other ranks get (0, false, nil) on success.
func Global(ctx context.Context, g group.Group, local float64, root int) (float64, bool, error) {
	if err := group.CheckRoot(root, g.Size()); err != nil {
		return 0, false, err
	}
	return g.Reduce(ctx, local, root)
}
