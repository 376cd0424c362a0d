// Package nut defines the unit of storage shared by every trunk backend.
//
// A Nut carries an opaque payload together with the bookkeeping fields the
// storage core needs: a unique id, a timestamp, a caller-managed monotonic
// version, and an optional expiry. Once a nut has been serialized for
// pipeline processing the core treats it as an opaque byte sequence; no
// transformation stage may assume knowledge of the payload type.
package nut

import "time"

// Nut is a single stored record. Nuts are superseded, never mutated: each
// Stash of the same id replaces the previous value wholesale. Version is
// owned by the caller and expected to increase monotonically per id; the
// core never chains versions itself (history is a backend capability, not
// a core guarantee).
type Nut[T any] struct {
	// ID is the unique key within a logical collection
	ID string `json:"id" cbor:"1,keyasint"`

	// Payload is opaque to the storage core after serialization
	Payload T `json:"payload" cbor:"2,keyasint"`

	// Timestamp records when the nut was produced; Stash stamps it
	// when left zero
	Timestamp time.Time `json:"timestamp" cbor:"3,keyasint"`

	// Version is a caller-managed monotonic counter per id
	Version int64 `json:"version" cbor:"4,keyasint"`

	// ExpiresAt optionally marks the nut as dead after this instant.
	// Expiry enforcement belongs to the collection cache layer; the
	// core only carries the field and lets the policy stage reject
	// nuts that are already expired on write.
	ExpiresAt *time.Time `json:"expires_at,omitempty" cbor:"5,keyasint,omitempty"`
}

// New creates a nut with the current time and version 1.
func New[T any](id string, payload T) Nut[T] {
	return Nut[T]{
		ID:        id,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		Version:   1,
	}
}

// WithExpiry returns a copy of the nut expiring at the given instant.
func (n Nut[T]) WithExpiry(at time.Time) Nut[T] {
	n.ExpiresAt = &at
	return n
}

// Expired reports whether the nut's expiry, if set, has passed.
func (n Nut[T]) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && now.After(*n.ExpiresAt)
}
