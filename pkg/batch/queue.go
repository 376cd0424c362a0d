// Package batch provides the write-batching subsystem shared by every
// trunk backend. It decouples the logical write rate from the physical
// I/O rate: writes accumulate in a buffer and are flushed when a count
// threshold is reached, when a timer fires, on an explicit Flush, or on
// Close.
//
// # Durability window
//
// A write accepted by Put is at risk of loss until the next successful
// flush. This is a deliberate latency/durability trade-off; callers
// needing a durability barrier call Flush, which returns only after the
// buffered writes it observed have been handed to the sink.
//
// # Ordering
//
// Writes to different ids have no ordering guarantee relative to each
// other. Writes to the same id are buffered in call order; duplicates
// within one flush batch are compacted last-write-wins before reaching
// the sink. Across batches, whichever flush commits last wins.
package batch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/acorn/pkg/errors"
	"github.com/ajitpratap0/acorn/pkg/metrics"
	"github.com/ajitpratap0/acorn/pkg/nut"
)

// Pending is one buffered write.
type Pending[T any] struct {
	ID  string
	Nut nut.Nut[T]
}

// RecordError ties a persistence failure to the record that caused it.
type RecordError struct {
	ID  string
	Err error
}

// Sink persists a compacted batch durably. Implementations report
// per-record failures in the returned slice; a failed record must not
// prevent its batch-mates from being attempted.
type Sink[T any] interface {
	WriteBatch(ctx context.Context, batch []Pending[T]) []RecordError
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc[T any] func(ctx context.Context, batch []Pending[T]) []RecordError

// WriteBatch implements Sink.
func (f SinkFunc[T]) WriteBatch(ctx context.Context, batch []Pending[T]) []RecordError {
	return f(ctx, batch)
}

// Options configures a Queue.
type Options struct {
	// Backend labels metrics and log lines with the backend type
	Backend string
	// Threshold triggers an immediate flush when the buffer reaches
	// this many pending writes
	Threshold int
	// Interval triggers periodic background flushes; zero disables
	// the timer
	Interval time.Duration
	// Logger receives flush diagnostics; defaults to a no-op logger
	Logger *zap.Logger
}

// Queue buffers pending writes and schedules flushes. It is safe for
// concurrent use; buffer mutation happens under a short-lived lock that
// is never held across I/O.
type Queue[T any] struct {
	opts Options
	sink Sink[T]

	mu     sync.Mutex
	buf    []Pending[T]
	closed bool

	// flushMu is the single-flight guard: at most one flush runs at a
	// time. A concurrent Flush waits rather than becoming a no-op, so
	// an explicit flush call always implies durability on return.
	flushMu sync.Mutex

	wg   sync.WaitGroup
	done chan struct{}
}

// NewQueue creates a queue and starts its background flush timer.
func NewQueue[T any](opts Options, sink Sink[T]) *Queue[T] {
	if opts.Threshold <= 0 {
		opts.Threshold = 100
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	q := &Queue[T]{
		opts: opts,
		sink: sink,
		done: make(chan struct{}),
	}

	if opts.Interval > 0 {
		q.wg.Add(1)
		go q.timerLoop()
	}

	return q
}

// Put appends a write to the buffer and returns without waiting for
// durable persistence. Reaching the threshold triggers a flush on a
// separate goroutine; Put itself never blocks on I/O.
func (q *Queue[T]) Put(id string, n nut.Nut[T]) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return errors.New(errors.ErrorTypeInternal, "write queue is closed")
	}
	q.buf = append(q.buf, Pending[T]{ID: id, Nut: n})
	depth := len(q.buf)
	trigger := depth >= q.opts.Threshold
	if trigger {
		// Registered under the lock so Close cannot begin waiting
		// between the closed check and the goroutine launch.
		q.wg.Add(1)
	}
	q.mu.Unlock()

	metrics.BufferedWrites.WithLabelValues(q.opts.Backend).Set(float64(depth))

	if trigger {
		go func() {
			defer q.wg.Done()
			if err := q.flush(context.Background(), "threshold"); err != nil {
				q.opts.Logger.Error("threshold flush failed", zap.Error(err))
			}
		}()
	}

	return nil
}

// Depth returns the current number of buffered writes.
func (q *Queue[T]) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// Flush synchronously persists all currently buffered writes. Per-record
// sink failures do not abort batch-mates; they are logged and folded into
// the returned error.
func (q *Queue[T]) Flush(ctx context.Context) error {
	return q.flush(ctx, "manual")
}

func (q *Queue[T]) flush(ctx context.Context, trigger string) error {
	// Swap the buffer under the lock and release immediately: writers
	// are never blocked on I/O.
	q.mu.Lock()
	batch := q.buf
	q.buf = nil
	q.mu.Unlock()

	metrics.BufferedWrites.WithLabelValues(q.opts.Backend).Set(0)

	if len(batch) == 0 {
		return nil
	}

	q.flushMu.Lock()
	defer q.flushMu.Unlock()

	batch = compact(batch)

	timer := metrics.NewTimer()
	failures := q.sink.WriteBatch(ctx, batch)
	metrics.FlushDuration.WithLabelValues(q.opts.Backend).Observe(timer.Stop().Seconds())
	metrics.Flushes.WithLabelValues(q.opts.Backend, trigger).Inc()

	for _, f := range failures {
		metrics.FlushFailures.WithLabelValues(q.opts.Backend).Inc()
		q.opts.Logger.Error("record flush failed",
			zap.String("trigger", trigger),
			zap.String("document_id", f.ID),
			zap.Error(f.Err))
	}

	if len(failures) > 0 {
		return errors.Newf(errors.ErrorTypeFlush,
			"%d of %d records failed to persist", len(failures), len(batch))
	}
	return nil
}

// compact resolves duplicate ids last-write-wins, preserving the buffer
// order of each surviving entry.
func compact[T any](batch []Pending[T]) []Pending[T] {
	last := make(map[string]int, len(batch))
	for i, p := range batch {
		last[p.ID] = i
	}
	if len(last) == len(batch) {
		return batch
	}

	out := batch[:0]
	for i, p := range batch {
		if last[p.ID] == i {
			out = append(out, p)
		}
	}
	return out
}

func (q *Queue[T]) timerLoop() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Timer failures are logged, never thrown into an
			// unrelated call stack.
			if err := q.flush(context.Background(), "timer"); err != nil {
				q.opts.Logger.Error("timer flush failed", zap.Error(err))
			}
		case <-q.done:
			return
		}
	}
}

// Close stops the timer, performs one final synchronous flush, and
// returns any disposal-time failure. The failure is logged and returned
// because this is the last chance to report data at risk; the
// queue still shuts down regardless.
func (q *Queue[T]) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	close(q.done)
	q.wg.Wait()

	if err := q.flush(ctx, "disposal"); err != nil {
		wrapped := errors.Wrap(err, errors.ErrorTypeDisposal, "final flush failed during shutdown")
		q.opts.Logger.Error("disposal flush failed", zap.Error(wrapped))
		return wrapped
	}
	return nil
}
