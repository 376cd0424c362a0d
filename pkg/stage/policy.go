package stage

import (
	"github.com/ajitpratap0/acorn/pkg/errors"
)

// PolicyOptions configures the validation stage.
type PolicyOptions struct {
	// MaxPayloadBytes rejects serialized records larger than this;
	// zero means unlimited
	MaxPayloadBytes int

	// RejectEmpty refuses zero-length payloads on write
	RejectEmpty bool

	// Sequence overrides the default position (SequencePolicy)
	Sequence int
}

// policy enforces size and emptiness limits on serialized records before
// any other stage touches them. It is integrity-critical: a violation
// aborts the stash.
type policy struct {
	opts PolicyOptions
	seq  int
}

// NewPolicy creates the validation stage.
func NewPolicy(opts PolicyOptions) Stage {
	seq := opts.Sequence
	if seq == 0 {
		seq = SequencePolicy
	}
	return &policy{opts: opts, seq: seq}
}

func (p *policy) Name() string  { return "policy" }
func (p *policy) Sequence() int { return p.seq }
func (p *policy) Class() Class  { return Integrity }

func (p *policy) Signature() string { return "policy" }

func (p *policy) OnWrite(data []byte, sc *Context) ([]byte, error) {
	if p.opts.RejectEmpty && len(data) == 0 {
		return nil, errors.New(errors.ErrorTypeTransformation, "empty payload rejected by policy")
	}
	if p.opts.MaxPayloadBytes > 0 && len(data) > p.opts.MaxPayloadBytes {
		return nil, errors.Newf(errors.ErrorTypeTransformation,
			"payload of %d bytes exceeds policy limit of %d", len(data), p.opts.MaxPayloadBytes)
	}
	sc.RecordSignature(p.Signature())
	return data, nil
}

// OnRead is the identity: policy constrains what may be written, never
// what may be read back.
func (p *policy) OnRead(data []byte, sc *Context) ([]byte, error) {
	return data, nil
}
