// Package localsession provides a concrete implementation of the
// session.Session and session.Factory interfaces for local, in-process
// execution: every rank of the group is hosted by this process.
package localsession

import (
	"context"
	"errors"

	"github.com/specialistvlad/gridpi/internal/config"
	"github.com/specialistvlad/gridpi/internal/ctxlog"
	"github.com/specialistvlad/gridpi/internal/group"
	"github.com/specialistvlad/gridpi/internal/session"
)

// Factory implements session.Factory for local runs.
type Factory struct{}

// NewSession bootstraps an in-process group of job.Workers ranks.
func (f *Factory) NewSession(ctx context.Context, job *config.Job) (session.Session, error) {
	logger := ctxlog.FromContext(ctx)
	if job.Workers <= 0 {
		return nil, errors.New("localsession: worker count must be positive")
	}

	w := newWorld(job.Workers, job.CollectiveTimeout)
	members := make([]group.Group, job.Workers)
	for rank := range job.Workers {
		members[rank] = &member{world: w, rank: rank}
	}
	logger.Debug("Local worker group bootstrapped.", "workers", job.Workers, "collective_timeout", job.CollectiveTimeout)

	return &Session{members: members}, nil
}

// Session implements session.Session for local runs.
type Session struct {
	members []group.Group
}

// Members returns every rank of the group.
func (s *Session) Members() []group.Group {
	return s.members
}

// Close finalizes every member.
func (s *Session) Close(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	var errs []error
	for _, m := range s.members {
		errs = append(errs, m.Finalize(ctx))
	}
	logger.Debug("Local worker group finalized.", "workers", len(s.members))
	return errors.Join(errs...)
}
