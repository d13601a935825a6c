package config

import (
	"fmt"
	"time"

	"github.com/specialistvlad/gridpi/internal/partition"
)

// Transport selects how the ranks of a job find each other.
type Transport string

const (
	// TransportLocal runs every rank as a goroutine of this process.
	TransportLocal Transport = "local"
	// TransportWebSocket runs one rank per process; the root hosts the
	// collective endpoint and the other ranks dial it.
	TransportWebSocket Transport = "websocket"
)

// Report kinds understood by the application.
const (
	ReportConsole  = "console"
	ReportSocketIO = "socketio"
	ReportHTTP     = "http"
)

// Defaults for a job that does not set them.
const (
	DefaultSamples        int64 = 1_000_000
	DefaultWorkers              = 4
	DefaultDevice               = "default"
	DefaultConnectTimeout       = 30 * time.Second
	DefaultReportTimeout        = 10 * time.Second
	DefaultSocketIOEvent        = "pi_estimate"
	DefaultHTTPMethod           = "POST"
)

// Job is the unified, format-agnostic representation of one run.
type Job struct {
	Name string

	Samples int64
	Workers int
	// Lanes caps the parallel lanes of each rank's device; 0 means one per CPU.
	Lanes  int
	Root   int
	Device string

	Transport Transport
	// Rank is this process's rank. Only meaningful for TransportWebSocket.
	Rank int
	// Listen is the address the root binds for TransportWebSocket.
	Listen string
	// Coordinator is the WebSocket URL non-root ranks dial.
	Coordinator string

	// CollectiveTimeout bounds the wait inside the collective; 0 waits forever.
	CollectiveTimeout time.Duration
	// ConnectTimeout bounds how long non-root ranks retry dialing the root.
	ConnectTimeout time.Duration

	Reports []*Report
}

// Report is one configured sink for the root's estimate.
type Report struct {
	Kind string
	// Verbose adds run details to the console line.
	Verbose  bool
	SocketIO *SocketIOReport
	HTTP     *HTTPReport
}

// SocketIOReport configures publishing the estimate as a socket.io event.
type SocketIOReport struct {
	URL                string
	Namespace          string
	Event              string
	AckEvent           string
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// HTTPReport configures sending the estimate as a JSON request body, for
// webhooks or pre-signed object storage upload URLs.
type HTTPReport struct {
	URL     string
	Method  string
	Timeout time.Duration
}

// Default returns a job with every default applied.
func Default() *Job {
	return &Job{
		Name:           "pi",
		Samples:        DefaultSamples,
		Workers:        DefaultWorkers,
		Device:         DefaultDevice,
		Transport:      TransportLocal,
		ConnectTimeout: DefaultConnectTimeout,
	}
}

// IsRoot reports whether this process hosts the root rank. With the local
// transport every rank lives here, including the root.
func (j *Job) IsRoot() bool {
	return j.Transport == TransportLocal || j.Rank == j.Root
}

// Validate checks the job before anything is bootstrapped. Every failure is a
// *partition.ConfigError.
func (j *Job) Validate() error {
	if err := partition.Validate(j.Workers, j.Samples); err != nil {
		return err
	}

	fail := func(format string, args ...any) error {
		return &partition.ConfigError{Rank: j.Rank, Workers: j.Workers, Samples: j.Samples, Reason: fmt.Sprintf(format, args...)}
	}

	if j.Root < 0 || j.Root >= j.Workers {
		return fail("root %d is not a rank of a %d-worker group", j.Root, j.Workers)
	}
	if j.Lanes < 0 {
		return fail("lanes must not be negative, got %d", j.Lanes)
	}
	if j.Device == "" {
		return fail("device selector must not be empty")
	}
	if j.CollectiveTimeout < 0 || j.ConnectTimeout < 0 {
		return fail("timeouts must not be negative")
	}

	switch j.Transport {
	case TransportLocal:
	case TransportWebSocket:
		if j.Rank < 0 || j.Rank >= j.Workers {
			return fail("rank %d is not a rank of a %d-worker group", j.Rank, j.Workers)
		}
		if j.Rank == j.Root && j.Listen == "" {
			return fail("the root rank needs a listen address for the websocket transport")
		}
		if j.Rank != j.Root && j.Coordinator == "" {
			return fail("non-root ranks need a coordinator URL for the websocket transport")
		}
	default:
		return fail("unknown transport %q (want %q or %q)", j.Transport, TransportLocal, TransportWebSocket)
	}

	for i, r := range j.Reports {
		switch r.Kind {
		case ReportConsole:
		case ReportSocketIO:
			if r.SocketIO == nil || r.SocketIO.URL == "" {
				return fail("report #%d (socketio) needs a url", i)
			}
			if r.SocketIO.Event == "" {
				return fail("report #%d (socketio) needs an event name", i)
			}
		case ReportHTTP:
			if r.HTTP == nil || r.HTTP.URL == "" {
				return fail("report #%d (http) needs a url", i)
			}
			switch r.HTTP.Method {
			case "POST", "PUT":
			default:
				return fail("report #%d (http) method must be POST or PUT, got %q", i, r.HTTP.Method)
			}
		default:
			return fail("report #%d has unknown kind %q", i, r.Kind)
		}
	}
	return nil
}
