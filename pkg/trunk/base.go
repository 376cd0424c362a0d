package trunk

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/acorn/pkg/batch"
	"github.com/ajitpratap0/acorn/pkg/codec"
	"github.com/ajitpratap0/acorn/pkg/compression"
	"github.com/ajitpratap0/acorn/pkg/config"
	"github.com/ajitpratap0/acorn/pkg/errors"
	"github.com/ajitpratap0/acorn/pkg/logger"
	"github.com/ajitpratap0/acorn/pkg/metrics"
	"github.com/ajitpratap0/acorn/pkg/nut"
	"github.com/ajitpratap0/acorn/pkg/pipeline"
	"github.com/ajitpratap0/acorn/pkg/stage"
)

// Base implements the trunk contract once for all backends. A backend
// constructs a Base around its Store and embeds it; it only overrides the
// contract members its capabilities extend (e.g. History on versioned
// stores).
type Base[T any] struct {
	name  string
	caps  Capabilities
	cfg   *config.BaseConfig
	store Store
	codec codec.Codec[T]
	pipe  *pipeline.Pipeline
	queue *batch.Queue[T]
	log   *zap.Logger

	closeMu sync.Mutex
	closed  bool
}

// NewBase validates the configuration, assembles the pipeline from the
// configured built-in stages, and starts the write queue when batching is
// enabled. The caps descriptor is fixed for the life of the trunk.
func NewBase[T any](cfg *config.BaseConfig, store Store, caps Capabilities, log *zap.Logger) (*Base[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Get()
	}
	log = log.With(zap.String("trunk", cfg.Name), zap.String("backend", caps.BackendType))

	c, err := codec.ByName[T](cfg.Storage.Codec)
	if err != nil {
		return nil, err
	}

	b := &Base[T]{
		name:  cfg.Name,
		caps:  caps,
		cfg:   cfg,
		store: store,
		codec: c,
		pipe:  pipeline.New(log),
		log:   log,
	}

	if err := b.configureStages(); err != nil {
		return nil, err
	}

	if cfg.Batching.Enabled {
		b.caps.SupportsAsync = true
		b.queue = batch.NewQueue[T](batch.Options{
			Backend:   caps.BackendType,
			Threshold: cfg.Batching.FlushThreshold,
			Interval:  cfg.Batching.FlushInterval,
			Logger:    log,
		}, batch.SinkFunc[T](b.writeBatch))
	}

	log.Info("trunk opened",
		zap.Bool("batching", cfg.Batching.Enabled),
		zap.String("codec", c.Name()),
		zap.Int("stages", len(b.pipe.Stages())))

	return b, nil
}

// configureStages adds the built-in stages selected by configuration.
// Callers can add or remove stages afterwards through the contract.
func (b *Base[T]) configureStages() error {
	cfg := b.cfg

	if cfg.Policy.Enabled {
		b.pipe.AddStage(stage.NewPolicy(stage.PolicyOptions{
			MaxPayloadBytes: cfg.Policy.MaxPayloadBytes,
			RejectEmpty:     true,
		}))
	}
	if cfg.Observability.EnableMetrics {
		b.pipe.AddStage(stage.NewTracking(stage.TrackingOptions{}))
	}
	if cfg.Compression.Enabled {
		s, err := stage.NewCompression(stage.CompressionOptions{
			Algorithm: compression.Algorithm(cfg.Compression.Algorithm),
			Level:     compression.Level(cfg.Compression.Level),
		})
		if err != nil {
			return err
		}
		b.pipe.AddStage(s)
	}
	if cfg.Encryption.Enabled {
		key, err := stage.ParseKey(cfg.Encryption.Key)
		if err != nil {
			return err
		}
		s, err := stage.NewEncryption(stage.EncryptionOptions{
			Cipher: stage.Cipher(cfg.Encryption.Cipher),
			Key:    key,
		})
		if err != nil {
			return err
		}
		b.pipe.AddStage(s)
	}
	if cfg.Checksum.Enabled {
		b.pipe.AddStage(stage.NewChecksum(stage.ChecksumOptions{}))
	}

	return nil
}

// Stash queues a record for persistence (or writes synchronously when
// batching is disabled). The record's timestamp is stamped when zero; the
// version is caller-managed and passed through untouched.
func (b *Base[T]) Stash(ctx context.Context, n nut.Nut[T]) error {
	if err := b.ensureOpen(); err != nil {
		return err
	}
	if n.ID == "" {
		return errors.New(errors.ErrorTypeData, "record id is required")
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now().UTC()
	}
	if b.cfg.Policy.Enabled && b.cfg.Policy.RejectExpired && n.Expired(time.Now()) {
		return errors.Newf(errors.ErrorTypeTransformation, "record %s is already expired", n.ID)
	}

	metrics.RecordsStashed.WithLabelValues(b.caps.BackendType).Inc()

	if b.queue != nil {
		return b.queue.Put(n.ID, n)
	}
	return b.writeOne(ctx, batch.Pending[T]{ID: n.ID, Nut: n})
}

// Crack reads a record through the descending pipeline. Not-found is
// reported through the boolean, never as an error.
func (b *Base[T]) Crack(ctx context.Context, id string) (nut.Nut[T], bool, error) {
	var zero nut.Nut[T]
	if err := b.ensureOpen(); err != nil {
		return zero, false, err
	}

	stored, ok, err := b.store.Get(ctx, id)
	if err != nil {
		return zero, false, errors.Wrap(err, errors.ErrorTypeConnection, "backend read failed")
	}
	if !ok {
		return zero, false, nil
	}

	n, err := b.DecodeStored(id, stored)
	if err != nil {
		return zero, false, err
	}

	metrics.RecordsCracked.WithLabelValues(b.caps.BackendType).Inc()
	return n, true, nil
}

// Toss deletes a record, bypassing the pipeline.
func (b *Base[T]) Toss(ctx context.Context, id string) error {
	if err := b.ensureOpen(); err != nil {
		return err
	}
	if err := b.store.Delete(ctx, id); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "backend delete failed")
	}
	metrics.RecordsTossed.WithLabelValues(b.caps.BackendType).Inc()
	return nil
}

// CrackAll reads every record, each entry independently pipelined.
func (b *Base[T]) CrackAll(ctx context.Context) ([]nut.Nut[T], error) {
	if err := b.ensureOpen(); err != nil {
		return nil, err
	}

	entries, err := b.store.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "backend list failed")
	}

	nuts := make([]nut.Nut[T], 0, len(entries))
	for _, e := range entries {
		n, err := b.DecodeStored(e.ID, e.Value)
		if err != nil {
			return nil, err
		}
		nuts = append(nuts, n)
	}
	return nuts, nil
}

// History fails unless the backend overrides it with versioned storage.
func (b *Base[T]) History(ctx context.Context, id string) ([]nut.Nut[T], error) {
	return nil, errors.Newf(errors.ErrorTypeNotSupported,
		"backend %s does not support history", b.caps.BackendType)
}

// ExportChanges flushes pending writes and exports the full current
// state; trunks that cannot diff changes always export everything.
func (b *Base[T]) ExportChanges(ctx context.Context) ([]nut.Nut[T], error) {
	if err := b.Flush(ctx); err != nil {
		return nil, err
	}
	return b.CrackAll(ctx)
}

// ImportChanges applies records from the sync layer synchronously,
// bypassing the write buffer so the import is durable on return. A
// failed record does not stop the remainder of the import.
func (b *Base[T]) ImportChanges(ctx context.Context, nuts []nut.Nut[T]) error {
	if err := b.ensureOpen(); err != nil {
		return err
	}

	var failed int
	for _, n := range nuts {
		if err := b.writeOne(ctx, batch.Pending[T]{ID: n.ID, Nut: n}); err != nil {
			failed++
			b.log.Error("import write failed", zap.String("document_id", n.ID), zap.Error(err))
		}
	}
	if failed > 0 {
		return errors.Newf(errors.ErrorTypeFlush, "%d of %d imported records failed", failed, len(nuts))
	}
	return nil
}

// Capabilities returns the static capability descriptor.
func (b *Base[T]) Capabilities() Capabilities {
	return b.caps
}

// AddStage delegates to the pipeline.
func (b *Base[T]) AddStage(s stage.Stage) {
	b.pipe.AddStage(s)
}

// RemoveStage delegates to the pipeline.
func (b *Base[T]) RemoveStage(name string) bool {
	return b.pipe.RemoveStage(name)
}

// Stages delegates to the pipeline.
func (b *Base[T]) Stages() []stage.Stage {
	return b.pipe.Stages()
}

// Flush synchronously persists all buffered writes.
func (b *Base[T]) Flush(ctx context.Context) error {
	if b.queue == nil {
		return nil
	}
	return b.queue.Flush(ctx)
}

// Close drains the write buffer and releases the backend. A disposal
// flush failure is surfaced after resources are released; leaking the
// backend handle would be worse than returning late.
func (b *Base[T]) Close(ctx context.Context) error {
	b.closeMu.Lock()
	defer b.closeMu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var disposalErr error
	if b.queue != nil {
		disposalErr = b.queue.Close(ctx)
	}

	if err := b.store.Close(); err != nil {
		b.log.Error("backend close failed", zap.Error(err))
		if disposalErr == nil {
			disposalErr = errors.Wrap(err, errors.ErrorTypeConnection, "backend close failed")
		}
	}

	b.log.Info("trunk closed")
	return disposalErr
}

// Name returns the trunk instance name.
func (b *Base[T]) Name() string {
	return b.name
}

// Logger returns the trunk's logger for embedding backends.
func (b *Base[T]) Logger() *zap.Logger {
	return b.log
}

// writeBatch is the queue's sink: each record runs through the ascending
// pipeline independently, then the batch goes to the store: one call when
// the store supports bulk upsert, per record otherwise. A
// poisoned record never sinks its batch-mates.
func (b *Base[T]) writeBatch(ctx context.Context, pending []batch.Pending[T]) []batch.RecordError {
	var failures []batch.RecordError

	if bulk, ok := b.store.(BulkStore); ok {
		entries := make([]Entry, 0, len(pending))
		ids := make([]string, 0, len(pending))
		for _, p := range pending {
			value, err := b.encodeForStore(p.Nut)
			if err != nil {
				failures = append(failures, batch.RecordError{ID: p.ID, Err: err})
				continue
			}
			entries = append(entries, Entry{ID: p.ID, Value: value})
			ids = append(ids, p.ID)
		}

		for i, err := range bulk.PutBatch(ctx, entries) {
			if err != nil {
				failures = append(failures, batch.RecordError{ID: ids[i], Err: err})
			}
		}
		return failures
	}

	for _, p := range pending {
		if err := b.writeOne(ctx, p); err != nil {
			failures = append(failures, batch.RecordError{ID: p.ID, Err: err})
		}
	}
	return failures
}

// writeOne encodes and persists a single record synchronously.
func (b *Base[T]) writeOne(ctx context.Context, p batch.Pending[T]) error {
	value, err := b.encodeForStore(p.Nut)
	if err != nil {
		return err
	}
	if err := b.store.Put(ctx, p.ID, value); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFlush, "backend write failed")
	}
	return nil
}

// encodeForStore serializes a record and runs it through the ascending
// pipeline. For text stores the result is text-safe encoded unless it is
// untransformed printable JSON, which is stored as-is. That keeps the
// at-rest format of stage-free trunks readable and matches the legacy
// fallback on the read path.
func (b *Base[T]) encodeForStore(n nut.Nut[T]) ([]byte, error) {
	data, err := b.codec.Encode(n)
	if err != nil {
		return nil, err
	}

	out, sc, err := b.pipe.ApplyWrite(data, n.ID)
	if err != nil {
		return nil, err
	}

	if !b.store.Binary() {
		if len(sc.Applied) > 0 || b.codec.Name() != "json" {
			out = []byte(codec.EncodeText(out))
		}
	}
	return out, nil
}

// DecodeStored reverses encodeForStore for one stored value. Text stores
// take the dual read path: a failed text-safe decode means the value is
// pre-pipeline legacy data and is decoded directly, skipping the
// pipeline.
func (b *Base[T]) DecodeStored(id string, stored []byte) (nut.Nut[T], error) {
	var zero nut.Nut[T]

	data := stored
	if !b.store.Binary() {
		decoded, legacy := codec.DecodeText(string(stored))
		if legacy {
			return b.codec.Decode(decoded)
		}
		data = decoded
	}

	out, _, err := b.pipe.ApplyRead(data, id)
	if err != nil {
		return zero, err
	}
	return b.codec.Decode(out)
}

func (b *Base[T]) ensureOpen() error {
	b.closeMu.Lock()
	defer b.closeMu.Unlock()
	if b.closed {
		return errors.New(errors.ErrorTypeConnection, "trunk is closed")
	}
	return nil
}
