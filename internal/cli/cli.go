package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/specialistvlad/gridpi/internal/app"
	"github.com/specialistvlad/gridpi/internal/config"
)

// EnvPrefix is prepended to a flag's upper-cased name to find its
// environment variable.
const EnvPrefix = "GRIDPI_"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// Parse processes command-line arguments against the process environment.
// It returns a populated Config, a boolean indicating if the program should
// exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	return ParseWithEnv(args, output, os.LookupEnv)
}

// EnvName is the environment variable consulted for a flag.
func EnvName(flagName string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

// ParseWithEnv is Parse with an explicit environment lookup.
func ParseWithEnv(args []string, output io.Writer, lookup LookupFunc) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("gridpi", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
gridpi - Estimates pi with the midpoint rule across a group of workers.

Usage:
  gridpi [options] [JOB_PATH]

Arguments:
  JOB_PATH
    Path to a single .hcl file or a directory containing one job block.
    Without it the built-in defaults are used.

Options:
`)
		flagSet.PrintDefaults()
		fmt.Fprintf(output, "\nEvery option may also be set as %s<NAME>, e.g. %s.\n", EnvPrefix, EnvName("workers"))
	}

	jobFlag := flagSet.String("job", "", "Path to the job file or directory.")
	jFlag := flagSet.String("j", "", "Path to the job file or directory (shorthand).")
	samplesFlag := flagSet.Int64("samples", config.DefaultSamples, "Total number of midpoint samples.")
	workersFlag := flagSet.Int("workers", config.DefaultWorkers, "Number of workers (ranks) in the group.")
	lanesFlag := flagSet.Int("lanes", 0, "Parallel lanes per worker device. 0 uses one per CPU.")
	rootFlag := flagSet.Int("root", 0, "Rank that receives the global sum.")
	rankFlag := flagSet.Int("rank", 0, "This process's rank (websocket transport only).")
	deviceFlag := flagSet.String("device", config.DefaultDevice, "Device selector: 'default', 'cpu' or 'serial'.")
	transportFlag := flagSet.String("transport", string(config.TransportLocal), "Worker transport: 'local' or 'websocket'.")
	listenFlag := flagSet.String("listen", "", "Address the root rank listens on (websocket transport).")
	coordinatorFlag := flagSet.String("coordinator", "", "WebSocket URL of the root rank, e.g. ws://host:7070/collective.")
	collectiveTimeoutFlag := flagSet.Duration("collective-timeout", 0, "Give up on the collective after this long. 0 waits forever.")
	connectTimeoutFlag := flagSet.Duration("connect-timeout", config.DefaultConnectTimeout, "How long non-root ranks retry reaching the root.")
	socketIOFlag := flagSet.String("report-socketio", "", "Also publish the estimate to this socket.io server URL.")
	httpFlag := flagSet.String("report-http", "", "Also POST the estimate as JSON to this URL.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	envFileFlag := flagSet.String("env-file", "", "Read GRIDPI_* defaults from this dotenv file.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	explicit := map[string]bool{}
	flagSet.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	if err := applyEnv(flagSet, explicit, lookup, *envFileFlag); err != nil {
		return nil, false, err
	}

	path := ""
	if *jobFlag != "" {
		path = *jobFlag
	} else if *jFlag != "" {
		path = *jFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Job path determined.", "path", path)

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	var o config.Overrides
	if explicit["samples"] {
		o.Samples = samplesFlag
	}
	if explicit["workers"] {
		o.Workers = workersFlag
	}
	if explicit["lanes"] {
		o.Lanes = lanesFlag
	}
	if explicit["root"] {
		o.Root = rootFlag
	}
	if explicit["rank"] {
		o.Rank = rankFlag
	}
	if explicit["device"] {
		o.Device = deviceFlag
	}
	if explicit["transport"] {
		o.Transport = transportFlag
	}
	if explicit["listen"] {
		o.Listen = listenFlag
	}
	if explicit["coordinator"] {
		o.Coordinator = coordinatorFlag
	}
	if explicit["collective-timeout"] {
		o.CollectiveTimeout = collectiveTimeoutFlag
	}
	if explicit["connect-timeout"] {
		o.ConnectTimeout = connectTimeoutFlag
	}
	if explicit["report-socketio"] {
		o.SocketIOURL = socketIOFlag
	}
	if explicit["report-http"] {
		o.HTTPURL = httpFlag
	}

	cfg, err := app.NewConfig(app.Config{
		JobPath:         path,
		Overrides:       o,
		HealthcheckPort: *healthPortFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", cfg)
	return cfg, false, nil
}

// applyEnv fills every flag not given on the command line from the
// environment, then from the env file, and marks it explicit.
func applyEnv(flagSet *flag.FlagSet, explicit map[string]bool, lookup LookupFunc, envFile string) error {
	var fileVars map[string]string
	if envFile != "" {
		vars, err := godotenv.Read(envFile)
		if err != nil {
			return &ExitError{Code: 2, Message: fmt.Sprintf("failed to read env file %s: %v", envFile, err)}
		}
		fileVars = vars
	}

	var setErr error
	flagSet.VisitAll(func(f *flag.Flag) {
		if setErr != nil || explicit[f.Name] || f.Name == "env-file" {
			return
		}
		key := EnvName(f.Name)
		value, ok := lookup(key)
		if !ok {
			value, ok = fileVars[key]
		}
		if !ok {
			return
		}
		if err := flagSet.Set(f.Name, value); err != nil {
			setErr = &ExitError{Code: 2, Message: fmt.Sprintf("invalid value %q for %s: %v", value, key, err)}
			return
		}
		explicit[f.Name] = true
	})
	return setErr
}
