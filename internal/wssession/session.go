// Package wssession provides a session.Factory for multi-process runs: each
// process hosts exactly one rank, and the ranks meet over WebSocket.
//
// The root rank listens on the job's listen address and serves the collective
// on CollectivePath. Every other rank dials the job's coordinator URL, says
// hello with its rank and the group size, and later sends its contribution.
// The root sums contributions in rank order and acknowledges each peer, so a
// peer's Reduce returns only once its value has been counted.
//
// A rank that fails before the collective sends an abort frame; the root
// forwards it to every other rank, and all of them return *group.AbortError
// instead of waiting on a value that will never come. A peer whose connection
// drops before contributing is treated the same way.
package wssession

import (
	"context"
	"fmt"
	"net"

	"github.com/specialistvlad/gridpi/internal/config"
	"github.com/specialistvlad/gridpi/internal/ctxlog"
	"github.com/specialistvlad/gridpi/internal/group"
	"github.com/specialistvlad/gridpi/internal/session"
)

// Factory implements session.Factory for the websocket transport.
type Factory struct{}

// NewSession bootstraps this process's rank: the root starts listening, every
// other rank connects to the root.
func (f *Factory) NewSession(ctx context.Context, job *config.Job) (session.Session, error) {
	logger := ctxlog.FromContext(ctx).With("rank", job.Rank)

	if job.Rank == job.Root {
		ln, err := net.Listen("tcp", job.Listen)
		if err != nil {
			return nil, fmt.Errorf("root rank %d could not listen on %s: %w", job.Rank, job.Listen, err)
		}
		r := newRoot(logger, job.Rank, job.Workers, job.CollectiveTimeout, ln)
		go r.serve()
		return &Session{member: r, addr: ln.Addr().String()}, nil
	}

	p, err := dialRoot(ctx, logger, job.Coordinator, job.Rank, job.Workers, job.Root, job.CollectiveTimeout, job.ConnectTimeout)
	if err != nil {
		return nil, err
	}
	return &Session{member: p}, nil
}

// Session implements session.Session for one rank of a multi-process run.
type Session struct {
	member group.Group
	addr   string
}

// Members returns this process's single rank.
func (s *Session) Members() []group.Group {
	return []group.Group{s.member}
}

// Addr is the address the root listens on, or "" for other ranks.
func (s *Session) Addr() string {
	return s.addr
}

// Close finalizes the hosted rank.
func (s *Session) Close(ctx context.Context) error {
	ctxlog.FromContext(ctx).Debug("Closing websocket session.", "rank", s.member.Rank())
	return s.member.Finalize(ctx)
}
