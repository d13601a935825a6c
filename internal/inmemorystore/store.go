package inmemorystore

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/specialistvlad/gridpi/internal/rankstore"
)

// entry is one rank's mutable state.
type entry struct {
	mu     sync.Mutex
	record rankstore.Record
	err    error
}

// Store is an in-memory implementation of rankstore.Store.
type Store struct {
	ranks sync.Map // Key: rank int, Value: *entry
}

// New creates a new, empty in-memory rank store.
func New() rankstore.Store {
	return &Store{}
}

func (s *Store) entry(rank int) *entry {
	e, _ := s.ranks.LoadOrStore(rank, &entry{record: rankstore.Record{Rank: rank}})
	return e.(*entry)
}

func (s *Store) update(rank int, f func(e *entry)) {
	e := s.entry(rank)
	e.mu.Lock()
	defer e.mu.Unlock()
	f(e)
}

// SetStatus updates the execution status of a rank.
func (s *Store) SetStatus(_ context.Context, rank int, status rankstore.Status) error {
	s.update(rank, func(e *entry) { e.record.Status = status })
	return nil
}

// GetStatus retrieves the execution status of a rank.
// If a status has not been set, it returns Pending.
func (s *Store) GetStatus(_ context.Context, rank int) (rankstore.Status, error) {
	v, ok := s.ranks.Load(rank)
	if !ok {
		return rankstore.Pending, nil
	}
	e := v.(*entry)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record.Status, nil
}

// SetSlice records the rank's range and device.
func (s *Store) SetSlice(_ context.Context, rank int, device string, start, length int64) error {
	s.update(rank, func(e *entry) {
		e.record.Device = device
		e.record.Start = start
		e.record.Len = length
	})
	return nil
}

// SetLocalSum records the rank's local sum.
func (s *Store) SetLocalSum(_ context.Context, rank int, sum float64) error {
	s.update(rank, func(e *entry) { e.record.LocalSum = sum })
	return nil
}

// SetError records the failure of a rank and marks it Failed.
func (s *Store) SetError(_ context.Context, rank int, rankErr error) error {
	if rankErr == nil {
		return errors.New("inmemorystore: SetError called with a nil error")
	}
	s.update(rank, func(e *entry) {
		e.err = rankErr
		e.record.Error = rankErr.Error()
		e.record.Status = rankstore.Failed
	})
	return nil
}

// GetError retrieves the recorded error of a failed rank.
func (s *Store) GetError(_ context.Context, rank int) (error, error) {
	v, ok := s.ranks.Load(rank)
	if !ok {
		return nil, nil // If not found, there is no error.
	}
	e := v.(*entry)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err, nil
}

// Snapshot copies every rank's record, ordered by rank.
func (s *Store) Snapshot(_ context.Context) ([]rankstore.Record, error) {
	var records []rankstore.Record
	s.ranks.Range(func(_, v any) bool {
		e := v.(*entry)
		e.mu.Lock()
		records = append(records, e.record)
		e.mu.Unlock()
		return true
	})
	sort.Slice(records, func(i, j int) bool { return records[i].Rank < records[j].Rank })
	return records, nil
}
