// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the rankstore.Store interface.
//
// # Concurrency Model
//
// Each rank's entry lives under its own key in a sync.Map and carries its own
// mutex. Ranks never write each other's entries, so writers only contend with
// readers of the same rank (the status endpoint), never with other ranks.
//
// A store is created fresh for every run and discarded with it.
package inmemorystore
