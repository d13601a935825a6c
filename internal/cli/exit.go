package cli

import (
	"errors"

	"github.com/specialistvlad/gridpi/internal/config"
	"github.com/specialistvlad/gridpi/internal/device"
	"github.com/specialistvlad/gridpi/internal/group"
	"github.com/specialistvlad/gridpi/internal/partition"
)

// Process exit codes.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitUsage         = 2
	ExitConfiguration = 3
	ExitDevice        = 4
	ExitCollective    = 5
)

// ExitCode maps an error returned by the application to the process exit
// code. A device failure wins over the collective abort it caused.
func ExitCode(err error) int {
	var exitErr *ExitError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &exitErr):
		return exitErr.Code
	case errors.Is(err, partition.ErrConfiguration), errors.Is(err, config.ErrInvalidJob):
		return ExitConfiguration
	case errors.Is(err, device.ErrUnavailable):
		return ExitDevice
	case errors.Is(err, group.ErrAborted), errors.Is(err, group.ErrStalled):
		return ExitCollective
	default:
		return ExitFailure
	}
}
