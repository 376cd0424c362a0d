package stage

import (
	"github.com/ajitpratap0/acorn/pkg/compression"
)

// CompressionOptions configures the compression stage.
type CompressionOptions struct {
	// Algorithm defaults to snappy
	Algorithm compression.Algorithm

	// Level defaults to compression.Default
	Level compression.Level

	// Sequence overrides the default position (SequenceCompression)
	Sequence int
}

type compressionStage struct {
	compressor compression.Compressor
	seq        int
}

// NewCompression creates the compression stage backed by pkg/compression.
func NewCompression(opts CompressionOptions) (Stage, error) {
	if opts.Algorithm == "" {
		opts.Algorithm = compression.Snappy
	}
	if opts.Level == 0 {
		opts.Level = compression.Default
	}

	c, err := compression.New(opts.Algorithm, opts.Level)
	if err != nil {
		return nil, err
	}

	seq := opts.Sequence
	if seq == 0 {
		seq = SequenceCompression
	}
	return &compressionStage{compressor: c, seq: seq}, nil
}

func (c *compressionStage) Name() string  { return "compression" }
func (c *compressionStage) Sequence() int { return c.seq }
func (c *compressionStage) Class() Class  { return Integrity }

func (c *compressionStage) Signature() string {
	return string(c.compressor.Algorithm())
}

func (c *compressionStage) OnWrite(data []byte, sc *Context) ([]byte, error) {
	out, err := c.compressor.Compress(data)
	if err != nil {
		return nil, err
	}
	sc.RecordSignature(c.Signature())
	return out, nil
}

func (c *compressionStage) OnRead(data []byte, sc *Context) ([]byte, error) {
	return c.compressor.Decompress(data)
}
