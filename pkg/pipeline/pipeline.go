// Package pipeline holds an ordered set of transformation stages and
// applies them directionally: ascending by sequence on write, descending
// on read. Every trunk backend threads record bytes through a pipeline
// before they reach durable storage.
//
// Mutation and execution never block each other: Apply* snapshots the
// stage list under the lock and releases it before any stage runs.
// Reconfiguring the pipeline mid-flight does not retroactively affect
// in-progress calls; configuration is eventually consistent, effects are
// not atomic.
package pipeline

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/acorn/pkg/errors"
	"github.com/ajitpratap0/acorn/pkg/metrics"
	"github.com/ajitpratap0/acorn/pkg/stage"
)

// Pipeline is an ordered, mutable chain of transformation stages.
// The zero value is not usable; construct with New.
type Pipeline struct {
	mu     sync.Mutex
	stages []stage.Stage // always held ascending by sequence
	logger *zap.Logger
}

// New creates an empty pipeline. An empty pipeline is the identity in
// both directions; callers never need to special-case "no pipeline".
func New(logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{logger: logger}
}

// AddStage inserts a stage and re-sorts the list ascending by sequence.
// Duplicate names are permitted; callers needing idempotent configuration
// should check Stages first.
func (p *Pipeline) AddStage(s stage.Stage) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stages = append(p.stages, s)
	sort.SliceStable(p.stages, func(i, j int) bool {
		return p.stages[i].Sequence() < p.stages[j].Sequence()
	})
}

// RemoveStage removes the first stage with the given name and reports
// whether anything was removed.
func (p *Pipeline) RemoveStage(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, s := range p.stages {
		if s.Name() == name {
			p.stages = append(p.stages[:i], p.stages[i+1:]...)
			return true
		}
	}
	return false
}

// Stages returns a read-only snapshot, ascending by sequence.
func (p *Pipeline) Stages() []stage.Stage {
	return p.snapshot()
}

func (p *Pipeline) snapshot() []stage.Stage {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]stage.Stage, len(p.stages))
	copy(out, p.stages)
	return out
}

// ApplyWrite runs the stages ascending, feeding each stage's output to the
// next. The returned context carries the applied-signature audit trail.
func (p *Pipeline) ApplyWrite(data []byte, documentID string) ([]byte, *stage.Context, error) {
	sc := stage.NewContext(documentID, stage.Write)
	out, err := p.run(p.snapshot(), data, sc)
	return out, sc, err
}

// ApplyRead runs the stages in the reverse of the ascending list,
// inverting ApplyWrite.
func (p *Pipeline) ApplyRead(data []byte, documentID string) ([]byte, *stage.Context, error) {
	stages := p.snapshot()
	for i, j := 0, len(stages)-1; i < j; i, j = i+1, j-1 {
		stages[i], stages[j] = stages[j], stages[i]
	}

	sc := stage.NewContext(documentID, stage.Read)
	out, err := p.run(stages, data, sc)
	return out, sc, err
}

func (p *Pipeline) run(stages []stage.Stage, data []byte, sc *stage.Context) ([]byte, error) {
	for _, s := range stages {
		out, err := p.invoke(s, data, sc)
		if err == nil {
			data = out
			continue
		}

		if s.Class() == stage.Observational {
			// Observational failures never block a read or write;
			// the input passes through unchanged.
			p.logger.Warn("observational stage failed",
				zap.String("stage", s.Name()),
				zap.String("operation", string(sc.Operation)),
				zap.String("document_id", sc.DocumentID),
				zap.Error(err))
			continue
		}

		metrics.StageFailures.WithLabelValues(s.Signature(), string(sc.Operation)).Inc()
		return nil, errors.Wrap(err, errors.ErrorTypeTransformation,
			"stage "+s.Name()+" failed on "+string(sc.Operation))
	}
	return data, nil
}

// invoke dispatches one stage call, converting panics into errors so a
// misbehaving stage cannot take down a flush goroutine.
func (p *Pipeline) invoke(s stage.Stage, data []byte, sc *stage.Context) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf(errors.ErrorTypeInternal, "stage %s panicked: %v", s.Name(), r)
		}
	}()

	if sc.Operation == stage.Write {
		return s.OnWrite(data, sc)
	}
	return s.OnRead(data, sc)
}
