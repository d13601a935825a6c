package config

import (
	"testing"

	"github.com/specialistvlad/gridpi/internal/partition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	t.Parallel()

	job := Default()

	require.NoError(t, job.Validate())
	assert.True(t, job.IsRoot())
	assert.Equal(t, TransportLocal, job.Transport)
}

func TestValidate_RejectsBadJobs(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(j *Job)
		reason string
	}{
		{"zero workers", func(j *Job) { j.Workers = 0 }, "worker count must be positive"},
		{"too few samples", func(j *Job) { j.Samples = 3 }, "total samples must not be smaller"},
		{"root out of range", func(j *Job) { j.Root = 4 }, "root 4"},
		{"negative lanes", func(j *Job) { j.Lanes = -1 }, "lanes"},
		{"empty device", func(j *Job) { j.Device = "" }, "device selector"},
		{"unknown transport", func(j *Job) { j.Transport = "carrier-pigeon" }, "unknown transport"},
		{"ws root without listen", func(j *Job) { j.Transport = TransportWebSocket }, "listen address"},
		{"ws peer without coordinator", func(j *Job) {
			j.Transport = TransportWebSocket
			j.Rank = 2
		}, "coordinator URL"},
		{"ws rank out of range", func(j *Job) {
			j.Transport = TransportWebSocket
			j.Rank = 9
		}, "rank 9"},
		{"socketio without url", func(j *Job) {
			j.Reports = []*Report{{Kind: ReportSocketIO, SocketIO: &SocketIOReport{Event: "e"}}}
		}, "needs a url"},
		{"http without url", func(j *Job) {
			j.Reports = []*Report{{Kind: ReportHTTP, HTTP: &HTTPReport{Method: "POST"}}}
		}, "(http) needs a url"},
		{"http with GET", func(j *Job) {
			j.Reports = []*Report{{Kind: ReportHTTP, HTTP: &HTTPReport{URL: "http://x", Method: "GET"}}}
		}, "POST or PUT"},
		{"unknown report", func(j *Job) { j.Reports = []*Report{{Kind: "fax"}} }, "unknown kind"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			job := Default()
			tc.mutate(job)

			err := job.Validate()

			require.ErrorIs(t, err, partition.ErrConfiguration)
			assert.Contains(t, err.Error(), tc.reason)
		})
	}
}

func TestIsRoot_WebSocket(t *testing.T) {
	t.Parallel()

	job := Default()
	job.Transport = TransportWebSocket
	job.Root = 1
	job.Rank = 1
	assert.True(t, job.IsRoot())

	job.Rank = 0
	assert.False(t, job.IsRoot())
}
