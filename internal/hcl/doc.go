// Package hcl provides the concrete HCL implementation of config.Loader.
// It is responsible for file discovery, parsing, expression evaluation, and
// translating the decoded blocks into a config.Job.
//
// A job file holds exactly one job block:
//
//	job "pi" {
//	  samples   = 1000000
//	  workers   = min(cpus, 8)
//	  device    = env.GRIDPI_DEVICE
//	  transport = "local"
//
//	  report "console" { verbose = true }
//	  report "socketio" {
//	    url   = "http://localhost:3000"
//	    event = "pi_estimate"
//	  }
//	  report "http" {
//	    url    = "https://hooks.example/pi"
//	    method = "POST"
//	  }
//	}
//
// Expressions may use the variables cpus (logical CPU count) and env (the
// process environment) and the functions min and max.
package hcl
