package integration_tests

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/specialistvlad/gridpi/internal/app"
	"github.com/specialistvlad/gridpi/internal/hcl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJob(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// Test for: job files can size the group from the host and the environment
func TestHclFeatures_ExpressionsDriveTheRun(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	writeJob(t, dir, "jobs/pi.hcl", `
job "host-sized" {
  workers = min(cpus, 4)
  samples = 250000 * 4
  device  = env.PI_DEVICE
  lanes   = max(1, env.PI_LANES)

  report "console" {
    verbose = true
  }
}
`)
	loader := hcl.NewLoaderWithEnv([]string{"PI_DEVICE=serial", "PI_LANES=2"})

	// --- Act ---
	a, logs, err := app.SetupAppTest(t, &app.Config{JobPath: dir}, loader)
	require.NoError(t, err)
	runErr := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, runErr)
	job := a.Job()
	assert.Equal(t, "host-sized", job.Name)
	assert.Equal(t, min(runtime.NumCPU(), 4), job.Workers)
	assert.Equal(t, "serial", job.Device)
	assert.Equal(t, 2, job.Lanes)
	assert.Less(t, math.Abs(a.Estimate().Value-math.Pi), 1e-3)
	assert.Contains(t, logs.String(), `device = "serial"`)
}
