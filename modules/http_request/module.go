// Package http_request sends the root rank's estimate as a JSON request body.
// POST suits webhooks; PUT suits pre-signed object storage upload URLs.
package http_request

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/specialistvlad/gridpi/internal/config"
	"github.com/specialistvlad/gridpi/internal/ctxlog"
	"github.com/specialistvlad/gridpi/internal/report"
)

// Body is the JSON document sent for an estimate.
type Body struct {
	Pi        float64 `json:"pi"`
	AbsError  float64 `json:"abs_error"`
	Workers   int     `json:"workers"`
	Samples   int64   `json:"samples"`
	Used      int64   `json:"used"`
	Dropped   int64   `json:"dropped"`
	Device    string  `json:"device"`
	ElapsedMS int64   `json:"elapsed_ms"`
}

// NewBody flattens est into its wire form.
func NewBody(est report.Estimate) Body {
	return Body{
		Pi:        est.Value,
		AbsError:  est.AbsError(),
		Workers:   est.Workers,
		Samples:   est.Samples,
		Used:      est.Used,
		Dropped:   est.Dropped,
		Device:    est.Device,
		ElapsedMS: est.Elapsed.Milliseconds(),
	}
}

// Reporter implements report.Reporter over plain HTTP.
type Reporter struct {
	cfg    config.HTTPReport
	client *http.Client
}

// New returns a reporter for cfg with its own client, so connections are
// reused across reports.
func New(cfg config.HTTPReport) *Reporter {
	if cfg.Method == "" {
		cfg.Method = config.DefaultHTTPMethod
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.DefaultReportTimeout
	}
	return &Reporter{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

func (r *Reporter) Name() string { return "http" }

// Report sends est and fails on any non-2xx response.
func (r *Reporter) Report(ctx context.Context, est report.Estimate) error {
	logger := ctxlog.FromContext(ctx).With("reporter", "http", "method", r.cfg.Method, "url", r.cfg.URL)

	payload, err := json.Marshal(NewBody(est))
	if err != nil {
		return fmt.Errorf("failed to encode estimate: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, r.cfg.Method, r.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = int64(len(payload))

	logger.Debug("Sending estimate.", "bytes", len(payload))
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s returned %s: %s", r.cfg.Method, r.cfg.URL, resp.Status, bytes.TrimSpace(body))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	logger.Info("📨 Estimate delivered", "status", resp.Status)
	return nil
}
