// Package codec provides record serialization for trunk backends along with
// the reversible text-safe encoding used by backends whose native field type
// is text rather than binary.
//
// Two codecs are available: JSON (goccy/go-json) for debuggable at-rest data
// and CBOR (fxamacker/cbor) for compact binary storage. Both produce bytes
// the transformation pipeline treats as opaque.
package codec

import (
	"github.com/fxamacker/cbor/v2"
	json "github.com/goccy/go-json"

	"github.com/ajitpratap0/acorn/pkg/errors"
	"github.com/ajitpratap0/acorn/pkg/nut"
)

// Codec serializes nuts to the byte sequences fed into the pipeline.
type Codec[T any] interface {
	// Name identifies the codec ("json", "cbor")
	Name() string

	// Encode serializes a nut
	Encode(n nut.Nut[T]) ([]byte, error)

	// Decode deserializes a nut from bytes Encode produced
	Decode(data []byte) (nut.Nut[T], error)
}

// JSON returns the goccy/go-json backed codec.
func JSON[T any]() Codec[T] {
	return jsonCodec[T]{}
}

// CBOR returns the fxamacker/cbor backed codec.
func CBOR[T any]() Codec[T] {
	return cborCodec[T]{}
}

// ByName returns the codec registered under name, defaulting to JSON for
// an empty name.
func ByName[T any](name string) (Codec[T], error) {
	switch name {
	case "", "json":
		return JSON[T](), nil
	case "cbor":
		return CBOR[T](), nil
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unknown codec %q", name)
	}
}

type jsonCodec[T any] struct{}

func (jsonCodec[T]) Name() string { return "json" }

func (jsonCodec[T]) Encode(n nut.Nut[T]) ([]byte, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "json encode failed")
	}
	return data, nil
}

func (jsonCodec[T]) Decode(data []byte) (nut.Nut[T], error) {
	var n nut.Nut[T]
	if err := json.Unmarshal(data, &n); err != nil {
		return n, errors.Wrap(err, errors.ErrorTypeData, "json decode failed")
	}
	return n, nil
}

type cborCodec[T any] struct{}

func (cborCodec[T]) Name() string { return "cbor" }

func (cborCodec[T]) Encode(n nut.Nut[T]) ([]byte, error) {
	data, err := cbor.Marshal(n)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "cbor encode failed")
	}
	return data, nil
}

func (cborCodec[T]) Decode(data []byte) (nut.Nut[T], error) {
	var n nut.Nut[T]
	if err := cbor.Unmarshal(data, &n); err != nil {
		return n, errors.Wrap(err, errors.ErrorTypeData, "cbor decode failed")
	}
	return n, nil
}
