// Package trunk defines the uniform persistence contract implemented by
// every storage backend, the capability-negotiation model, and the shared
// Base that wires a backend's durable read/write primitives to the
// transformation pipeline and the write-batching subsystem.
//
// # Contract
//
// A trunk stores nuts by id: Stash writes, Crack reads, Toss deletes.
// Optional contract members (history, change diffing) fail with a
// not-supported error on backends that do not implement them; the
// Capabilities descriptor announces up front which members a given trunk
// honors, so collaborators negotiate features instead of discovering
// them by trial.
//
// # Composition
//
// Every backend threads data through the same path:
//
//	Stash -> codec encode -> pipeline (ascending) -> batch queue -> store
//	Crack -> store -> text decode -> pipeline (descending) -> codec decode
//
// Backends implement only the narrow Store port; Base implements the
// contract once on top of it.
package trunk

import (
	"context"

	"github.com/ajitpratap0/acorn/pkg/nut"
	"github.com/ajitpratap0/acorn/pkg/stage"
)

// Capabilities describes which optional contract members a trunk honors.
// It is created once at construction and read-only thereafter.
type Capabilities struct {
	// SupportsHistory is true when History returns per-id versions
	SupportsHistory bool `json:"supports_history"`

	// SupportsChangeExport is true when ExportChanges diffs changes
	// rather than exporting full state
	SupportsChangeExport bool `json:"supports_change_export"`

	// Durable is true when flushed data survives process restart
	Durable bool `json:"durable"`

	// SupportsAsync is true when writes are buffered through the
	// batching subsystem rather than persisted synchronously
	SupportsAsync bool `json:"supports_async"`

	// SupportsNativeIndex is true when the backend indexes ids natively
	SupportsNativeIndex bool `json:"supports_native_index"`

	// BackendType names the backend ("memory", "file", "sqlite", ...)
	BackendType string `json:"backend_type"`
}

// Trunk is the uniform persistence contract consumed by the collection,
// sync and query layers.
type Trunk[T any] interface {
	// Stash queues a record for persistence. With batching enabled the
	// record is at risk of loss until the next successful flush; call
	// Flush for a durability barrier.
	Stash(ctx context.Context, n nut.Nut[T]) error

	// Crack reads a record. Not-found is reported through the boolean,
	// not an error.
	Crack(ctx context.Context, id string) (nut.Nut[T], bool, error)

	// Toss deletes a record. Deletion bypasses the pipeline; there is
	// nothing to transform.
	Toss(ctx context.Context, id string) error

	// CrackAll reads every record, each entry independently pipelined.
	CrackAll(ctx context.Context) ([]nut.Nut[T], error)

	// History returns all stored versions of a record, oldest first.
	// Backends without versioned storage fail with a not-supported
	// error; this is intentionally not a universal guarantee.
	History(ctx context.Context, id string) ([]nut.Nut[T], error)

	// ExportChanges hands records to the sync layer. Trunks that
	// cannot diff changes export their full current state.
	ExportChanges(ctx context.Context) ([]nut.Nut[T], error)

	// ImportChanges applies records received from the sync layer,
	// writing synchronously.
	ImportChanges(ctx context.Context, nuts []nut.Nut[T]) error

	// Capabilities returns the static capability descriptor.
	Capabilities() Capabilities

	// AddStage, RemoveStage and Stages delegate to the pipeline.
	AddStage(s stage.Stage)
	RemoveStage(name string) bool
	Stages() []stage.Stage

	// Flush synchronously persists all buffered writes.
	Flush(ctx context.Context) error

	// Close drains the write buffer with one final flush and releases
	// backend resources. A disposal-time flush failure is surfaced,
	// never swallowed.
	Close(ctx context.Context) error
}
