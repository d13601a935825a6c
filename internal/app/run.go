package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/gridpi/internal/ctxlog"
	"github.com/specialistvlad/gridpi/internal/localexecutor"
)

// Run executes the main application logic: bootstrap the worker group, run
// the hosted ranks, report, and tear the group down again.
func (a *App) Run(ctx context.Context) (err error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.")

	a.healthCheckServer()
	defer func() {
		err = errors.Join(err, a.closeHealthCheckServer())
	}()

	factory, ok := a.sessions[a.job.Transport]
	if !ok {
		return fmt.Errorf("no session factory for transport %q", a.job.Transport)
	}

	a.logger.Info("🚀 Starting run...", "job", a.job.Name, "workers", a.job.Workers, "samples", a.job.Samples, "transport", a.job.Transport)
	sess, err := factory.NewSession(ctx, a.job)
	if err != nil {
		return fmt.Errorf("failed to bootstrap worker group: %w", err)
	}
	defer func() {
		if closeErr := sess.Close(ctx); closeErr != nil {
			a.logger.Warn("Worker group teardown reported an error.", "error", closeErr)
		}
	}()

	exec := localexecutor.New(a.job, sess, a.devices, a.store, a.reporter)
	est, err := exec.Execute(ctx)
	a.estimate = est
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}

	if !a.job.IsRoot() {
		a.logger.Info("📬 Contribution delivered; the root rank reports the estimate.", "root", a.job.Root)
	}
	a.logger.Info("🏁 Run finished.")
	a.logger.Debug("App.Run method finished.")
	return nil
}
