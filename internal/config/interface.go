package config

import (
	"context"
	"errors"
)

// ErrInvalidJob is wrapped by loaders for any job source they cannot read,
// parse or evaluate.
var ErrInvalidJob = errors.New("invalid job file")

// Loader is the interface for a format-specific job loader.
type Loader interface {
	// Load reads the job found at path (a file, or a directory searched for
	// one) and returns it merged over Default().
	Load(ctx context.Context, path string) (*Job, error)
}
