// Package integrate computes a rank's partial midpoint-rule sums of
//
//	pi = ∫₀¹ 4/(1+x²) dx
//
// on an acquired device.
package integrate

import (
	"context"
	"errors"

	"github.com/specialistvlad/gridpi/internal/device"
	"github.com/specialistvlad/gridpi/internal/partition"
)

// Integrand is the function whose integral over [0,1] is pi.
func Integrand(x float64) float64 {
	return 4.0 / (1.0 + x*x)
}

// Generate fills one value per sample owned by s: value[k] = f(x_k)*dx.
//
// Every element is written by exactly one lane and the slice is returned only
// after all lanes have finished. A nil device or a failed submission yields a
// *device.UnavailableError and no data.
func Generate(ctx context.Context, dev device.Device, s partition.Slice) ([]float64, error) {
	if dev == nil {
		return nil, device.Unavailable(s.Rank, "", "generate", errors.New("no device acquired"))
	}
	if _, err := partition.New(s.Rank, s.Workers, s.Samples); err != nil {
		return nil, err
	}

	dx := s.Step()
	values := make([]float64, s.Len())
	err := dev.ParallelFor(ctx, len(values), func(k int) {
		values[k] = Integrand(s.Position(k)) * dx
	})
	if err != nil {
		return nil, device.Unavailable(s.Rank, dev.Name(), "generate", err)
	}
	return values, nil
}
