// Package acorn provides an embedded, pluggable-backend persistence core:
// a uniform storage contract (the trunk), a composable byte-transformation
// pipeline layered onto any backend, and a shared write-batching subsystem
// that amortizes I/O latency.
//
// # Architecture
//
// Acorn is organized leaf-to-root:
//
// 1. Transformation stages: single reversible byte-to-byte operations
// (compression, encryption, checksumming, policy enforcement). See pkg/stage.
//
// 2. Pipeline: an ordered, mutable chain of stages applied ascending on
// write and descending on read. See pkg/pipeline.
//
// 3. Batching: a generic write buffer that flushes on a count threshold or
// a timer and serializes physical I/O. See pkg/batch.
//
// 4. Trunks: concrete backends (memory, file-per-record, SQLite) wired to
// the pipeline and the batcher through a shared base. See pkg/trunk.
//
// # Quick Start
//
//	import (
//	    "context"
//	    "github.com/ajitpratap0/acorn/pkg/config"
//	    "github.com/ajitpratap0/acorn/pkg/nut"
//	    "github.com/ajitpratap0/acorn/pkg/stage"
//	    "github.com/ajitpratap0/acorn/pkg/trunk/memory"
//	)
//
//	cfg := config.NewBaseConfig("notes", "memory")
//	tr, _ := memory.New[string](cfg, nil)
//	defer tr.Close(context.Background())
//
//	comp, _ := stage.NewCompression(stage.CompressionOptions{})
//	tr.AddStage(comp)
//
//	tr.Stash(context.Background(), nut.New("greeting", "hello"))
//	n, ok, _ := tr.Crack(context.Background(), "greeting")
//
// # Key Packages
//
//	pkg/trunk       - Storage contract, capability model, shared base
//	pkg/pipeline    - Ordered byte-transformation chain
//	pkg/stage       - Built-in transformation stages
//	pkg/batch       - Write batching and flush scheduling
//	pkg/compression - Compression algorithms behind the compression stage
//	pkg/codec       - Record serialization and at-rest text encoding
//	pkg/config      - Unified configuration management
//	pkg/errors      - Structured error handling
//	pkg/logger      - Structured logging
//	pkg/metrics     - Prometheus metrics collection
//
// # Durability
//
// Data accepted by Stash is at risk until the next successful flush; this is
// a deliberate latency/durability trade-off. Call Flush for a synchronous
// barrier, or Close to drain the buffer on shutdown.
package acorn
