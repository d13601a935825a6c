package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestOverrides_ApplyOnlySetFields(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	job := Default()
	job.Device = "serial"
	o := &Overrides{
		Workers:           ptr(7),
		Samples:           ptr(int64(700)),
		Transport:         ptr("websocket"),
		CollectiveTimeout: ptr(time.Minute),
	}

	// --- Act ---
	o.Apply(job)

	// --- Assert ---
	assert.Equal(t, 7, job.Workers)
	assert.Equal(t, int64(700), job.Samples)
	assert.Equal(t, TransportWebSocket, job.Transport)
	assert.Equal(t, time.Minute, job.CollectiveTimeout)
	assert.Equal(t, "serial", job.Device, "unset overrides must keep the job's value")
	assert.Equal(t, DefaultConnectTimeout, job.ConnectTimeout)
}

func TestOverrides_NilIsNoop(t *testing.T) {
	t.Parallel()

	job := Default()
	var o *Overrides

	o.Apply(job)

	assert.Equal(t, Default(), job)
}

func TestOverrides_SocketIOURL(t *testing.T) {
	t.Parallel()

	t.Run("adds a report", func(t *testing.T) {
		t.Parallel()
		job := Default()

		(&Overrides{SocketIOURL: ptr("http://dash:3000")}).Apply(job)

		require.Len(t, job.Reports, 1)
		assert.Equal(t, ReportSocketIO, job.Reports[0].Kind)
		assert.Equal(t, "http://dash:3000", job.Reports[0].SocketIO.URL)
		assert.Equal(t, DefaultSocketIOEvent, job.Reports[0].SocketIO.Event)
		require.NoError(t, job.Validate())
	})

	t.Run("replaces the url of an existing report", func(t *testing.T) {
		t.Parallel()
		job := Default()
		job.Reports = []*Report{{Kind: ReportConsole}, {Kind: ReportSocketIO, SocketIO: &SocketIOReport{URL: "http://old", Event: "custom"}}}

		(&Overrides{SocketIOURL: ptr("http://new")}).Apply(job)

		require.Len(t, job.Reports, 2)
		assert.Equal(t, "http://new", job.Reports[1].SocketIO.URL)
		assert.Equal(t, "custom", job.Reports[1].SocketIO.Event)
	})
}

func TestOverrides_HTTPURL(t *testing.T) {
	t.Parallel()

	job := Default()
	job.Reports = []*Report{{Kind: ReportSocketIO, SocketIO: &SocketIOReport{URL: "http://dash", Event: "e"}}}

	(&Overrides{HTTPURL: ptr("http://hook")}).Apply(job)

	require.Len(t, job.Reports, 2)
	assert.Equal(t, "http://dash", job.Reports[0].SocketIO.URL)
	assert.Equal(t, ReportHTTP, job.Reports[1].Kind)
	assert.Equal(t, "http://hook", job.Reports[1].HTTP.URL)
	assert.Equal(t, DefaultHTTPMethod, job.Reports[1].HTTP.Method)
	require.NoError(t, job.Validate())
}
