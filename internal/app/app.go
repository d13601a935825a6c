package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/specialistvlad/gridpi/internal/config"
	"github.com/specialistvlad/gridpi/internal/ctxlog"
	"github.com/specialistvlad/gridpi/internal/device"
	"github.com/specialistvlad/gridpi/internal/inmemorystore"
	"github.com/specialistvlad/gridpi/internal/rankstore"
	"github.com/specialistvlad/gridpi/internal/report"
	"github.com/specialistvlad/gridpi/internal/session"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	ctx    context.Context
	config *Config

	job      *config.Job
	devices  *device.Registry
	sessions map[config.Transport]session.Factory
	store    rankstore.Store
	reporter report.Reporter

	httpServer *http.Server
	estimate   *report.Estimate
}

// Option customizes an App at construction. Tests use it to inject devices
// and transports.
type Option func(*App)

// WithDeviceRegistry replaces the built-in device selectors.
func WithDeviceRegistry(reg *device.Registry) Option {
	return func(a *App) { a.devices = reg }
}

// WithSessionFactory replaces the session factory used for transport.
func WithSessionFactory(transport config.Transport, f session.Factory) Option {
	return func(a *App) { a.sessions[transport] = f }
}

// WithReporter replaces the reporters built from the job's report blocks.
func WithReporter(r report.Reporter) Option {
	return func(a *App) { a.reporter = r }
}

// NewApp is the constructor for the main application. It loads the job,
// applies overrides and validates the result before anything is bootstrapped,
// so every configuration problem surfaces here.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, opts ...Option) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	job := config.Default()
	if appConfig.JobPath != "" {
		loaded, err := loader.Load(ctx, appConfig.JobPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load job: %w", err)
		}
		job = loaded
		logger.Debug("Job loaded and translated into unified model.", "job", job.Name)
	}
	appConfig.Overrides.Apply(job)

	if err := job.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("Job validation passed.", "workers", job.Workers, "samples", job.Samples, "transport", job.Transport)

	a := &App{
		outW:     outW,
		logger:   logger,
		ctx:      ctx,
		config:   appConfig,
		job:      job,
		devices:  device.DefaultRegistry(),
		sessions: coreSessions(),
		store:    inmemorystore.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.reporter == nil {
		a.reporter = buildReporters(outW, job.Reports)
	}
	return a, nil
}

// Job returns the validated job the app will run. This is primarily for testing.
func (a *App) Job() *config.Job {
	return a.job
}

// Estimate returns the root's estimate after Run, or nil when this process
// does not host the root or the run failed.
func (a *App) Estimate() *report.Estimate {
	return a.estimate
}

// Store returns the per-rank state of the run. This is primarily for testing.
func (a *App) Store() rankstore.Store {
	return a.store
}
