package device

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"
)

// Options describe the device a rank asks for.
type Options struct {
	// Rank is the requesting rank, used for error context.
	Rank int
	// Lanes caps the device's concurrency. Zero means one lane per logical CPU.
	Lanes int
}

// Provider creates a device for the given options.
type Provider func(ctx context.Context, opts Options) (Device, error)

// Registry maps device selector names (as used in job files) to providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// DefaultRegistry returns a registry with the built-in selectors:
//   - "cpu": one lane per requested lane, or per logical CPU when unset
//   - "default": alias of "cpu"
//   - "serial": a single lane, useful for debugging and reproducible timing
func DefaultRegistry() *Registry {
	r := NewRegistry()
	cpu := func(_ context.Context, opts Options) (Device, error) {
		lanes := opts.Lanes
		if lanes <= 0 {
			lanes = runtime.NumCPU()
		}
		return NewLanes(fmt.Sprintf("cpu(%d lanes)", lanes), lanes), nil
	}
	r.Register("cpu", cpu)
	r.Register("default", cpu)
	r.Register("serial", func(_ context.Context, _ Options) (Device, error) {
		return NewLanes("serial", 1), nil
	})
	return r
}

// Register adds a provider under name. Registering a name twice is a
// programming error and panics.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[name]; exists {
		panic(fmt.Sprintf("device provider with name '%s' already registered", name))
	}
	slog.Debug("Registering device provider.", "name", name)
	r.providers[name] = p
}

// Names returns the registered selector names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Acquire creates the device selected by name. Every failure, including an
// unknown selector, is returned as an *UnavailableError.
func (r *Registry) Acquire(ctx context.Context, name string, opts Options) (Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, Unavailable(opts.Rank, name, "acquire", err)
	}

	r.mu.RLock()
	p, ok := r.providers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, Unavailable(opts.Rank, name, "acquire", fmt.Errorf("no provider registered (known: %v)", r.Names()))
	}

	dev, err := p(ctx, opts)
	if err != nil {
		return nil, Unavailable(opts.Rank, name, "acquire", err)
	}
	if dev == nil {
		return nil, Unavailable(opts.Rank, name, "acquire", fmt.Errorf("provider returned no device"))
	}
	return dev, nil
}
