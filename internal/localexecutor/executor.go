// Package localexecutor provides a concrete, in-process implementation of the
// executor.Executor interface. It runs every rank the session hosts in its own
// goroutine; with the websocket transport that is a single rank.
package localexecutor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/specialistvlad/gridpi/internal/config"
	"github.com/specialistvlad/gridpi/internal/ctxlog"
	"github.com/specialistvlad/gridpi/internal/device"
	"github.com/specialistvlad/gridpi/internal/executor"
	"github.com/specialistvlad/gridpi/internal/group"
	"github.com/specialistvlad/gridpi/internal/integrate"
	"github.com/specialistvlad/gridpi/internal/partition"
	"github.com/specialistvlad/gridpi/internal/rankstore"
	"github.com/specialistvlad/gridpi/internal/reduce"
	"github.com/specialistvlad/gridpi/internal/report"
	"github.com/specialistvlad/gridpi/internal/session"
	"github.com/specialistvlad/gridpi/internal/task"
)

// Executor implements the executor.Executor interface for local execution.
type Executor struct {
	job      *config.Job
	session  session.Session
	devices  *device.Registry
	store    rankstore.Store
	reporter report.Reporter
}

// New creates a new local executor. A nil reporter skips reporting.
func New(
	job *config.Job,
	sess session.Session,
	devices *device.Registry,
	store rankstore.Store,
	reporter report.Reporter,
) executor.Executor {
	return &Executor{
		job:      job,
		session:  sess,
		devices:  devices,
		store:    store,
		reporter: reporter,
	}
}

// rankResult is what a rank hands back to Execute.
type rankResult struct {
	sum     float64
	ok      bool
	elapsed time.Duration
	device  string
}

// Execute implements executor.Executor. Ranks are not cancelled when a sibling
// fails: a failing rank aborts the group instead, so every rank leaves the
// collective with the abort rather than a cancellation.
func (e *Executor) Execute(ctx context.Context) (*report.Estimate, error) {
	logger := ctxlog.FromContext(ctx)
	members := e.session.Members()
	if len(members) == 0 {
		return nil, errors.New("session hosts no ranks")
	}
	logger.Debug("Executor starting ranks.", "hosted_ranks", len(members), "workers", e.job.Workers)

	start := time.Now()
	var (
		mu   sync.Mutex
		root *rankResult
		wg   sync.WaitGroup
	)
	errs := make([]error, len(members))
	for i, m := range members {
		t := task.New(e.job, m)
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.runRank(ctx, t, start)
			if err != nil {
				errs[i] = err
				return
			}
			if res.ok {
				mu.Lock()
				root = &res
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if err := primaryError(errs); err != nil {
		return nil, err
	}
	if root == nil {
		logger.Debug("No hosted rank is the root; nothing to report.")
		return nil, nil
	}

	est := e.estimate(root)
	logger.Info("🏁 Estimate ready", "pi", est.Value, "abs_error", est.AbsError(), "elapsed", est.Elapsed)
	if e.reporter != nil {
		if err := e.reporter.Report(ctx, *est); err != nil {
			return est, fmt.Errorf("failed to report estimate: %w", err)
		}
	}
	return est, nil
}

func (e *Executor) estimate(root *rankResult) *report.Estimate {
	s, _ := partition.New(e.job.Root, e.job.Workers, e.job.Samples)
	used := int64(s.Len()) * int64(e.job.Workers)
	return &report.Estimate{
		Value:   root.sum,
		Workers: e.job.Workers,
		Samples: e.job.Samples,
		Used:    used,
		Dropped: s.Dropped(),
		Device:  root.device,
		Elapsed: root.elapsed,
	}
}

// runRank is one rank's pipeline. Any failure before the collective aborts the
// group so no rank waits on a contribution that will not arrive.
func (e *Executor) runRank(ctx context.Context, t *task.Task, start time.Time) (rankResult, error) {
	rank := t.Rank()
	ctx, logger := ctxlog.With(ctx, "rank", rank)

	fail := func(err error) (rankResult, error) {
		if storeErr := e.store.SetError(ctx, rank, err); storeErr != nil {
			logger.Warn("Could not record rank failure.", "error", storeErr)
		}
		if !errors.Is(err, group.ErrAborted) {
			if abortErr := t.Member.Abort(ctx, err); abortErr != nil {
				logger.Warn("Could not tell the group about the failure.", "error", abortErr)
			}
		}
		logger.Error("Rank failed", "error", err)
		return rankResult{}, err
	}
	record := func(state string, err error) {
		if err != nil {
			logger.Warn("Could not record rank state.", "state", state, "error", err)
		}
	}

	slice, err := partition.New(rank, t.Workers(), t.Samples)
	if err != nil {
		return fail(err)
	}

	dev, err := e.devices.Acquire(ctx, t.Device, device.Options{Rank: rank, Lanes: t.Lanes})
	if err != nil {
		return fail(err)
	}
	defer func() {
		if err := dev.Close(); err != nil {
			logger.Warn("Device release failed.", "device", dev.Name(), "error", err)
		}
	}()

	host, _ := os.Hostname()
	logger.Info("🚀 Rank started", "host", host, "device", dev.Name(), "lanes", dev.Lanes(), "slice", slice.String(), "root", t.IsRoot())
	record("slice", e.store.SetSlice(ctx, rank, dev.Name(), slice.Start(), int64(slice.Len())))
	record(rankstore.Generating.String(), e.store.SetStatus(ctx, rank, rankstore.Generating))

	values, err := integrate.Generate(ctx, dev, slice)
	if err != nil {
		return fail(err)
	}
	local, err := reduce.LocalOn(ctx, dev, rank, values)
	if err != nil {
		return fail(err)
	}
	logger.Debug("Local sum ready.", "local_sum", local, "len", len(values))
	record("local_sum", e.store.SetLocalSum(ctx, rank, local))
	record(rankstore.Reducing.String(), e.store.SetStatus(ctx, rank, rankstore.Reducing))

	sum, ok, err := reduce.Global(ctx, t.Member, local, t.Root)
	if err != nil {
		return fail(fmt.Errorf("rank %d collective failed: %w", rank, err))
	}
	if ok != t.IsRoot() {
		return fail(fmt.Errorf("rank %d collective failed: group disagrees on the root (want rank %d, received sum %t)", rank, t.Root, ok))
	}
	record(rankstore.Completed.String(), e.store.SetStatus(ctx, rank, rankstore.Completed))

	return rankResult{sum: sum, ok: ok, elapsed: time.Since(start), device: dev.Name()}, nil
}

// primaryError picks the error that explains the run: a rank's own failure
// beats the aborts it caused in the others.
func primaryError(errs []error) error {
	var first error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if !errors.Is(err, group.ErrAborted) {
			return err
		}
		if first == nil {
			first = err
		}
	}
	return first
}
