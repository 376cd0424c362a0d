package stage

import (
	"github.com/ajitpratap0/acorn/pkg/metrics"
)

// TrackingOptions configures the observational tracking stage.
type TrackingOptions struct {
	// Sequence overrides the default position (SequenceTracking)
	Sequence int
}

// tracking counts bytes flowing through the pipeline. It performs no byte
// transformation, so it sits in the pre-processing band where it observes
// record sizes before compression. As an observational stage its failures
// never block a read or write.
type tracking struct {
	seq int
}

// NewTracking creates the tracking stage.
func NewTracking(opts TrackingOptions) Stage {
	seq := opts.Sequence
	if seq == 0 {
		seq = SequenceTracking
	}
	return &tracking{seq: seq}
}

func (t *tracking) Name() string  { return "tracking" }
func (t *tracking) Sequence() int { return t.seq }
func (t *tracking) Class() Class  { return Observational }

func (t *tracking) Signature() string { return "tracking" }

func (t *tracking) OnWrite(data []byte, sc *Context) ([]byte, error) {
	metrics.StageBytes.WithLabelValues(t.Signature(), string(Write)).Add(float64(len(data)))
	sc.RecordSignature(t.Signature())
	return data, nil
}

func (t *tracking) OnRead(data []byte, sc *Context) ([]byte, error) {
	metrics.StageBytes.WithLabelValues(t.Signature(), string(Read)).Add(float64(len(data)))
	return data, nil
}
