// Package socketio publishes the root rank's estimate as a socket.io event,
// optionally waiting for the receiver to acknowledge it with an event of its
// own.
package socketio

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/gridpi/internal/config"
	"github.com/specialistvlad/gridpi/internal/ctxlog"
	"github.com/specialistvlad/gridpi/internal/report"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Reporter implements report.Reporter over socket.io.
type Reporter struct {
	cfg config.SocketIOReport
}

// New returns a publisher for cfg. Missing event and timeout fall back to the
// configuration defaults.
func New(cfg config.SocketIOReport) *Reporter {
	if cfg.Event == "" {
		cfg.Event = config.DefaultSocketIOEvent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.DefaultReportTimeout
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "/"
	}
	return &Reporter{cfg: cfg}
}

func (r *Reporter) Name() string { return "socketio" }

// opResult is a private struct to safely pass results through the done channel.
type opResult struct {
	err error
}

// Payload is the body of the emitted event.
func Payload(est report.Estimate) map[string]any {
	return map[string]any{
		"pi":         est.Value,
		"abs_error":  est.AbsError(),
		"workers":    est.Workers,
		"samples":    est.Samples,
		"used":       est.Used,
		"dropped":    est.Dropped,
		"device":     est.Device,
		"elapsed_ms": est.Elapsed.Milliseconds(),
	}
}

// Report implements report.Reporter. Without an AckEvent it returns as soon as
// the event was emitted on a connected socket.
func (r *Reporter) Report(ctx context.Context, est report.Estimate) error {
	logger := ctxlog.FromContext(ctx).With("reporter", "socketio", "url", r.cfg.URL, "event", r.cfg.Event)
	logger.Debug("Publishing estimate")
	defer logger.Debug("Publishing finished")

	var isConnected atomic.Bool

	done := make(chan opResult, 2)
	opCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	parsedURL, err := url.Parse(r.cfg.URL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return fmt.Errorf("failed to parse URL: %q needs a scheme and a host", r.cfg.URL)
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	opts.SetReconnection(false)

	if r.cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(r.cfg.Namespace, opts)
	defer func() {
		logger.Debug("Disconnecting socket client")
		io.Disconnect()
	}()

	payload := Payload(est)

	// --- Event Listeners ---
	io.On(types.EventName("connect"), func(...any) {
		isConnected.Store(true)
		logger.Info("📤 Publishing estimate", "namespace", r.cfg.Namespace, "sid", io.Id(), "pi", est.Value)
		if err := io.Emit(r.cfg.Event, payload); err != nil {
			done <- opResult{err: fmt.Errorf("failed to emit %q: %w", r.cfg.Event, err)}
			return
		}
		if r.cfg.AckEvent == "" {
			done <- opResult{}
		}
	})

	io.On(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		done <- opResult{err: fmt.Errorf("failed to connect to %s: %w", r.cfg.URL, err)}
	})

	if r.cfg.AckEvent != "" {
		io.On(types.EventName(r.cfg.AckEvent), func(...any) {
			logger.Debug("Receiver acknowledged estimate", "ack_event", r.cfg.AckEvent)
			done <- opResult{}
		})
	}

	// --- Execution Block ---
	io.Connect()

	select {
	case <-opCtx.Done():
		if isConnected.Load() {
			return fmt.Errorf("timed out after %s waiting for event %q", r.cfg.Timeout, r.cfg.AckEvent)
		}
		return fmt.Errorf("timed out after %s while waiting for initial connection", r.cfg.Timeout)
	case res := <-done:
		return res.err
	}
}

// Timeout is the effective deadline for one publish.
func (r *Reporter) Timeout() time.Duration {
	return r.cfg.Timeout
}
