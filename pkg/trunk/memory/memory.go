// Package memory provides the in-memory trunk backend. It is the fastest
// backend and the only built-in one that keeps per-id version history,
// at the cost of durability: nothing survives process exit.
package memory

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/acorn/pkg/config"
	"github.com/ajitpratap0/acorn/pkg/errors"
	"github.com/ajitpratap0/acorn/pkg/nut"
	"github.com/ajitpratap0/acorn/pkg/trunk"
)

// BackendType identifies this backend in configuration and capabilities.
const BackendType = "memory"

// store holds current values plus every prior version per id. Values are
// post-pipeline bytes; the history therefore replays through the same
// read path as current values.
type store struct {
	mu      sync.RWMutex
	data    map[string][]byte
	history map[string][][]byte
}

func newStore() *store {
	return &store{
		data:    make(map[string][]byte),
		history: make(map[string][][]byte),
	}
}

func (s *store) Put(ctx context.Context, id string, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = cp
	s.history[id] = append(s.history[id], cp)
	return nil
}

func (s *store) Get(ctx context.Context, id string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[id]
	return v, ok, nil
}

func (s *store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	delete(s.history, id)
	return nil
}

func (s *store) List(ctx context.Context) ([]trunk.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

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

func (s *store) versions(id string) [][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history[id]
}

func (s *store) Binary() bool { return true }

func (s *store) Close() error { return nil }

// Trunk is the in-memory trunk. It extends the shared core with version
// history.
type Trunk[T any] struct {
	*trunk.Base[T]
	s *store
}

// New creates an in-memory trunk from cfg. The Storage section is ignored;
// there is no location to configure.
func New[T any](cfg *config.BaseConfig, log *zap.Logger) (*Trunk[T], error) {
	s := newStore()

	base, err := trunk.NewBase[T](cfg, s, trunk.Capabilities{
		SupportsHistory: true,
		BackendType:     BackendType,
	}, log)
	if err != nil {
		return nil, err
	}

	return &Trunk[T]{Base: base, s: s}, nil
}

// History returns every stored version of id, oldest first. Versions are
// decoded through the same pipeline as current reads, so history recorded
// under one stage set stays readable as long as that stage set is active.
func (t *Trunk[T]) History(ctx context.Context, id string) ([]nut.Nut[T], error) {
	versions := t.s.versions(id)
	if len(versions) == 0 {
		return nil, errors.Newf(errors.ErrorTypeNotFound, "no history for record %s", id)
	}

	nuts := make([]nut.Nut[T], 0, len(versions))
	for _, v := range versions {
		n, err := t.DecodeStored(id, v)
		if err != nil {
			return nil, err
		}
		nuts = append(nuts, n)
	}
	return nuts, nil
}
