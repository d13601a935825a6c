// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. It
// translates CLI flags into the application's internal configuration.
//
// Every flag can also be set through a GRIDPI_* environment variable named
// after it (-collective-timeout becomes GRIDPI_COLLECTIVE_TIMEOUT). Variables
// from the -env-file are consulted after the real environment. A flag set in
// either place counts as explicit and overrides the job file.
package cli
