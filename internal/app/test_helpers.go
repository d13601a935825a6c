package app

import (
	"os"
	"testing"

	"github.com/specialistvlad/gridpi/internal/config"
	"github.com/specialistvlad/gridpi/internal/testutil"
)

// SetupAppTest creates a new app instance for system testing. Logs go to the
// returned buffer and are dumped on cleanup when GRIDPI_TEST_LOGS=true.
func SetupAppTest(t *testing.T, appConfig *Config, loader config.Loader, opts ...Option) (*App, *testutil.SafeBuffer, error) {
	t.Helper()

	logBuffer := &testutil.SafeBuffer{}
	appConfig.LogLevel = "debug"
	testApp, err := NewApp(logBuffer, appConfig, loader, opts...)

	t.Cleanup(func() {
		if os.Getenv("GRIDPI_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer, err
}
