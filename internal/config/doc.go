// Package config defines the format-agnostic job model for a run, along with
// the Loader interface for reading it from a source.
//
// The `config.Job` is the single source of truth for the `app`, session and
// executor packages. Concrete loaders, such as the HCL one, are provided in
// separate packages.
package config
