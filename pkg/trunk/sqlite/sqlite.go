// Package sqlite provides the SQLite trunk backend. Records live in a
// single table keyed by id; batches are upserted inside one transaction,
// which makes it the cheapest durable backend for write-heavy workloads.
package sqlite

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/ajitpratap0/acorn/pkg/config"
	"github.com/ajitpratap0/acorn/pkg/errors"
	"github.com/ajitpratap0/acorn/pkg/trunk"
)

// BackendType identifies this backend in configuration and capabilities.
const BackendType = "sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS nuts (
	id         TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);`

const upsert = `
INSERT INTO nuts (id, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at;`

// store keeps records in the nuts table. The value column is TEXT, so the
// trunk core hands this store text-safe bytes.
type store struct {
	db *sql.DB
}

func newStore(dsn string) (*store, error) {
	if dsn == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "sqlite backend requires storage.dsn")
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "opening sqlite database")
	}
	// SQLite serializes writers internally; extra connections only add
	// SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "creating nuts table")
	}
	return &store{db: db}, nil
}

func (s *store) Put(ctx context.Context, id string, value []byte) error {
	_, err := s.db.ExecContext(ctx, upsert, id, string(value), time.Now().UTC())
	return err
}

func (s *store) Get(ctx context.Context, id string) ([]byte, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM nuts WHERE id = ?`, id).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(value), true, nil
}

func (s *store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM nuts WHERE id = ?`, id)
	return err
}

func (s *store) List(ctx context.Context) ([]trunk.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, value FROM nuts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []trunk.Entry
	for rows.Next() {
		var id, value string
		if err := rows.Scan(&id, &value); err != nil {
			return nil, err
		}
		entries = append(entries, trunk.Entry{ID: id, Value: []byte(value)})
	}
	return entries, rows.Err()
}

// PutBatch upserts the whole batch inside one transaction. A failed
// statement fails only its own record; if the commit itself fails, every
// record in the batch is reported failed.
func (s *store) PutBatch(ctx context.Context, entries []trunk.Entry) []error {
	errs := make([]error, len(entries))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		for i := range errs {
			errs[i] = err
		}
		return errs
	}

	stmt, err := tx.PrepareContext(ctx, upsert)
	if err != nil {
		tx.Rollback()
		for i := range errs {
			errs[i] = err
		}
		return errs
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.ID, string(e.Value), now); err != nil {
			errs[i] = err
		}
	}

	if err := tx.Commit(); err != nil {
		for i := range errs {
			if errs[i] == nil {
				errs[i] = err
			}
		}
	}
	return errs
}

func (s *store) Binary() bool { return false }

func (s *store) Close() error { return s.db.Close() }

// Trunk is the SQLite-backed trunk.
type Trunk[T any] struct {
	*trunk.Base[T]
}

// New creates a SQLite trunk from cfg.Storage.DSN (any DSN accepted by
// mattn/go-sqlite3, e.g. "file:notes.db" or ":memory:").
func New[T any](cfg *config.BaseConfig, log *zap.Logger) (*Trunk[T], error) {
	s, err := newStore(cfg.Storage.DSN)
	if err != nil {
		return nil, err
	}

	base, err := trunk.NewBase[T](cfg, s, trunk.Capabilities{
		Durable:             true,
		SupportsNativeIndex: true,
		BackendType:         BackendType,
	}, log)
	if err != nil {
		s.Close()
		return nil, err
	}

	return &Trunk[T]{Base: base}, nil
}
