// Package file provides the file-per-record trunk backend. Each record is
// one file in a flat directory; writes go through a temp-file rename so a
// crash mid-write never leaves a torn record behind.
package file

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/acorn/pkg/config"
	"github.com/ajitpratap0/acorn/pkg/errors"
	"github.com/ajitpratap0/acorn/pkg/trunk"
)

// BackendType identifies this backend in configuration and capabilities.
const BackendType = "file"

const fileExt = ".nut"

// store maps record ids to files under dir. Ids are base64 url-encoded in
// filenames so any id is a safe path segment. Values are stored as text;
// the trunk core hands this store text-safe bytes.
type store struct {
	dir string
}

func newStore(dir string) (*store, error) {
	if dir == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "file backend requires storage.path")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "creating storage directory")
	}
	return &store{dir: dir}, nil
}

func (s *store) path(id string) string {
	name := base64.URLEncoding.EncodeToString([]byte(id)) + fileExt
	return filepath.Join(s.dir, name)
}

func (s *store) Put(ctx context.Context, id string, value []byte) error {
	// Write-then-rename keeps the previous version intact until the new
	// one is fully on disk.
	tmp, err := os.CreateTemp(s.dir, "put-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path(id)); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (s *store) Get(ctx context.Context, id string) ([]byte, bool, error) {
	value, err := os.ReadFile(s.path(id))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *store) Delete(ctx context.Context, id string) error {
	err := os.Remove(s.path(id))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *store) List(ctx context.Context) ([]trunk.Entry, error) {
	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var entries []trunk.Entry
	for _, de := range dirents {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		raw, err := base64.URLEncoding.DecodeString(strings.TrimSuffix(name, fileExt))
		if err != nil {
			// Not one of ours; leave foreign files alone.
			continue
		}
		id := string(raw)

		value, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return nil, err
		}
		entries = append(entries, trunk.Entry{ID: id, Value: value})
	}
	return entries, nil
}

func (s *store) Binary() bool { return false }

func (s *store) Close() error { return nil }

// Trunk is the file-backed trunk.
type Trunk[T any] struct {
	*trunk.Base[T]
}

// New creates a file trunk rooted at cfg.Storage.Path, creating the
// directory if needed.
func New[T any](cfg *config.BaseConfig, log *zap.Logger) (*Trunk[T], error) {
	s, err := newStore(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}

	base, err := trunk.NewBase[T](cfg, s, trunk.Capabilities{
		Durable:     true,
		BackendType: BackendType,
	}, log)
	if err != nil {
		return nil, err
	}

	return &Trunk[T]{Base: base}, nil
}
