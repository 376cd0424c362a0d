// Package trunktest provides a scriptable in-memory Store double for
// exercising trunk behavior that real backends make awkward to provoke,
// such as per-record write failures inside a flush.
package trunktest

import (
	"context"
	"sort"
	"sync"

	"github.com/ajitpratap0/acorn/pkg/trunk"
)

// Store is an in-memory trunk.Store whose failures are scripted per id.
// The zero value is not usable; create one with NewStore.
type Store struct {
	mu     sync.Mutex
	data   map[string][]byte
	binary bool
	closed bool

	// FailPuts maps ids to the error their next Put returns.
	FailPuts map[string]error
	// FailGets maps ids to the error their next Get returns.
	FailGets map[string]error
	// CloseErr is returned by Close.
	CloseErr error

	puts int
}

// NewStore creates an empty double. binary controls what Binary reports,
// which selects the raw or text-safe value path in the trunk core.
func NewStore(binary bool) *Store {
	return &Store{
		data:     make(map[string][]byte),
		binary:   binary,
		FailPuts: make(map[string]error),
		FailGets: make(map[string]error),
	}
}

// Put implements trunk.Store.
func (s *Store) Put(ctx context.Context, id string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.puts++
	if err, ok := s.FailPuts[id]; ok {
		return err
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	s.data[id] = cp
	return nil
}

// Get implements trunk.Store.
func (s *Store) Get(ctx context.Context, id string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.FailGets[id]; ok {
		return nil, false, err
	}
	v, ok := s.data[id]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, true, nil
}

// Delete implements trunk.Store.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List implements trunk.Store. Entries are returned in id order so tests
// can assert on them deterministically.
func (s *Store) List(ctx context.Context) ([]trunk.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	entries := make([]trunk.Entry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, trunk.Entry{ID: id, Value: s.data[id]})
	}
	return entries, nil
}

// Binary implements trunk.Store.
func (s *Store) Binary() bool { return s.binary }

// Close implements trunk.Store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.CloseErr
}

// Seed places a raw value directly into the store, bypassing the write
// path. Tests use it to plant legacy or corrupted at-rest values.
func (s *Store) Seed(id string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = value
}

// Raw returns the stored bytes for id without any decoding.
func (s *Store) Raw(id string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[id]
	return v, ok
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// Puts returns how many Put calls the store has seen, including failed
// ones.
func (s *Store) Puts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

// Closed reports whether Close has been called.
func (s *Store) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
