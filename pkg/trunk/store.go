package trunk

import "context"

// Entry is one stored key/value pair.
type Entry struct {
	ID    string
	Value []byte
}

// Store is the narrow port a backend implements; Base builds the full
// trunk contract on top of it. Values are post-pipeline bytes: stores
// with a native text field type receive text-safe encoded values, stores
// reporting Binary receive pipeline output directly.
type Store interface {
	// Put upserts one value by id
	Put(ctx context.Context, id string, value []byte) error

	// Get reads one value; not-found is reported through the boolean
	Get(ctx context.Context, id string) ([]byte, bool, error)

	// Delete removes one value; deleting a missing id is not an error
	Delete(ctx context.Context, id string) error

	// List returns every stored entry
	List(ctx context.Context) ([]Entry, error)

	// Binary reports whether the store's native field type holds raw
	// bytes; text stores get base64-encoded values instead
	Binary() bool

	// Close releases backend resources
	Close() error
}

// BulkStore is implemented by stores that can upsert a whole batch in one
// backend call. The returned slice is parallel to entries; a nil element
// means that entry persisted.
type BulkStore interface {
	Store

	PutBatch(ctx context.Context, entries []Entry) []error
}
