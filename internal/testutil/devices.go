package testutil

import (
	"context"
	"sync/atomic"

	"github.com/specialistvlad/gridpi/internal/device"
)

// FailingDevice accepts acquisition but fails every submitted kernel with Err.
type FailingDevice struct {
	Err    error
	closed atomic.Int32
}

func (d *FailingDevice) Name() string { return "failing" }

func (d *FailingDevice) Lanes() int { return 1 }

func (d *FailingDevice) ParallelFor(context.Context, int, func(int)) error { return d.Err }

func (d *FailingDevice) Close() error {
	d.closed.Add(1)
	return nil
}

// Closed reports how many times Close was called.
func (d *FailingDevice) Closed() int { return int(d.closed.Load()) }

// TrackingDevice wraps a device and counts releases, so tests can assert the
// device is closed on every exit path.
type TrackingDevice struct {
	device.Device
	closed atomic.Int32
}

func (d *TrackingDevice) Close() error {
	d.closed.Add(1)
	return d.Device.Close()
}

// Closed reports how many times Close was called.
func (d *TrackingDevice) Closed() int { return int(d.closed.Load()) }

// RegistryWith returns the default registry plus a provider per entry in
// providers, for injecting broken or instrumented devices by selector name.
func RegistryWith(providers map[string]device.Provider) *device.Registry {
	reg := device.DefaultRegistry()
	for name, p := range providers {
		reg.Register(name, p)
	}
	return reg
}

// UnavailableProvider is a provider whose acquisition always fails with err.
func UnavailableProvider(err error) device.Provider {
	return func(context.Context, device.Options) (device.Device, error) {
		return nil, err
	}
}

// FailingProviderForRank hands out working lane devices to every rank except
// rank, which gets a device whose kernels fail with err.
func FailingProviderForRank(rank int, err error) device.Provider {
	return func(_ context.Context, opts device.Options) (device.Device, error) {
		if opts.Rank == rank {
			return &FailingDevice{Err: err}, nil
		}
		return device.NewLanes("test", 2), nil
	}
}
