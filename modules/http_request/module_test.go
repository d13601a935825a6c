package http_request

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/specialistvlad/gridpi/internal/config"
	"github.com/specialistvlad/gridpi/internal/ctxlog"
	"github.com/specialistvlad/gridpi/internal/report"
	"github.com/specialistvlad/gridpi/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() context.Context {
	return ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&testutil.SafeBuffer{}, nil)))
}

func TestNew_AppliesDefaults(t *testing.T) {
	t.Parallel()

	r := New(config.HTTPReport{URL: "http://example.invalid"})

	assert.Equal(t, "POST", r.cfg.Method)
	assert.Equal(t, config.DefaultReportTimeout, r.client.Timeout)
	assert.Equal(t, "http", r.Name())
}

func TestReport_SendsEstimateAsJSON(t *testing.T) {
	t.Parallel()

	for _, method := range []string{http.MethodPost, http.MethodPut} {
		t.Run(method, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			received := make(chan Body, 1)
			var gotMethod, gotType string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				gotMethod, gotType = req.Method, req.Header.Get("Content-Type")
				var b Body
				if err := json.NewDecoder(req.Body).Decode(&b); err != nil {
					http.Error(w, err.Error(), http.StatusBadRequest)
					return
				}
				received <- b
				w.WriteHeader(http.StatusNoContent)
			}))
			t.Cleanup(srv.Close)
			est := report.Estimate{Value: math.Pi, Workers: 4, Samples: 8, Used: 8, Device: "cpu", Elapsed: 1500 * time.Millisecond}

			// --- Act ---
			err := New(config.HTTPReport{URL: srv.URL, Method: method}).Report(testContext(), est)

			// --- Assert ---
			require.NoError(t, err)
			b := <-received
			assert.Equal(t, method, gotMethod)
			assert.Equal(t, "application/json", gotType)
			assert.Equal(t, math.Pi, b.Pi)
			assert.Equal(t, 4, b.Workers)
			assert.Equal(t, int64(1500), b.ElapsedMS)
		})
	}
}

func TestReport_FailsOnErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "signature expired", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	err := New(config.HTTPReport{URL: srv.URL, Method: http.MethodPut}).Report(testContext(), report.Estimate{Value: 3})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "signature expired")
}

func TestReport_Unreachable(t *testing.T) {
	t.Parallel()

	err := New(config.HTTPReport{URL: "http://127.0.0.1:1/hook", Timeout: time.Second}).Report(testContext(), report.Estimate{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to execute request")
}
