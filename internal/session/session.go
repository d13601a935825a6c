// Package session defines the core interfaces for bootstrapping and tearing
// down the worker group of a run. It abstracts away the details of in-process
// vs. multi-process execution.
package session

import (
	"context"

	"github.com/specialistvlad/gridpi/internal/config"
	"github.com/specialistvlad/gridpi/internal/group"
)

// Factory creates a Session for a job. Creating the session is the group
// bootstrap: once it returns, every member knows its rank and the group size.
type Factory interface {
	NewSession(ctx context.Context, job *config.Job) (Session, error)
}

// Session represents a single run's worker group and manages its lifecycle.
type Session interface {
	// Members returns the group members hosted by this process, in rank order.
	Members() []group.Group
	// Close finalizes every hosted member and releases any resources held by
	// the session. It accepts a context to allow for graceful cleanup.
	Close(ctx context.Context) error
}
