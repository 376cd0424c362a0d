package stage

import (
	"bytes"

	"github.com/zeebo/blake3"

	"github.com/ajitpratap0/acorn/pkg/errors"
)

const checksumSize = 32

// ChecksumOptions configures the checksum stage.
type ChecksumOptions struct {
	// Sequence overrides the default position (SequenceChecksum)
	Sequence int
}

// checksum frames a BLAKE3 digest ahead of the payload on write and
// verifies and strips it on read. A mismatch means the stored bytes were
// corrupted between flush and crack and aborts the read.
type checksum struct {
	seq int
}

// NewChecksum creates the checksum stage.
func NewChecksum(opts ChecksumOptions) Stage {
	seq := opts.Sequence
	if seq == 0 {
		seq = SequenceChecksum
	}
	return &checksum{seq: seq}
}

func (c *checksum) Name() string  { return "checksum" }
func (c *checksum) Sequence() int { return c.seq }
func (c *checksum) Class() Class  { return Integrity }

func (c *checksum) Signature() string { return "blake3" }

func (c *checksum) OnWrite(data []byte, sc *Context) ([]byte, error) {
	sum := blake3.Sum256(data)

	out := make([]byte, 0, checksumSize+len(data))
	out = append(out, sum[:]...)
	out = append(out, data...)

	sc.RecordSignature(c.Signature())
	return out, nil
}

func (c *checksum) OnRead(data []byte, sc *Context) ([]byte, error) {
	if len(data) < checksumSize {
		return nil, errors.New(errors.ErrorTypeTransformation, "stored value shorter than checksum frame")
	}

	want, payload := data[:checksumSize], data[checksumSize:]
	got := blake3.Sum256(payload)
	if !bytes.Equal(want, got[:]) {
		return nil, errors.New(errors.ErrorTypeTransformation, "checksum mismatch")
	}
	return payload, nil
}
