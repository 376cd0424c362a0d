// Package stage defines the transformation stage contract and the built-in
// stages layered onto trunk backends by the pipeline: policy enforcement,
// compression, encryption, checksumming, and observational tracking.
//
// A stage is a single reversible byte-to-byte operation. Stages are
// stateless with respect to storage; any state they carry is accumulated
// metrics only. OnRead must exactly invert OnWrite for any bytes the stage
// originally produced.
//
// # Failure classes
//
// Stages declare one of two failure classes, and the pipeline treats them
// differently:
//
//   - Integrity: a failure on write aborts the whole stash, a failure on
//     read aborts the crack. Compression, encryption and checksumming are
//     integrity-critical; half-decoded data must never be returned.
//   - Observational: failures are caught and logged by the pipeline and
//     the input passes through unchanged. An observational stage must
//     never block a read or write.
//
// # Sequence bands
//
// Sequence numbers order stages within a pipeline. The built-ins follow
// this convention (a convention, not an enforced invariant):
//
//	  1-49  validation/policy
//	 50-99  pre-processing
//	100-199 compression
//	200-299 encryption
//	300-399 checksumming
//	400-499 signing
package stage

// Operation identifies the direction of a pipeline invocation.
type Operation string

const (
	// Write is the stash-side direction
	Write Operation = "write"
	// Read is the crack-side direction
	Read Operation = "read"
)

// Class is a stage's failure-policy class.
type Class int

const (
	// Integrity stages abort the operation on failure
	Integrity Class = iota
	// Observational stages never block a read or write
	Observational
)

// Default sequence positions used by the built-in stages.
const (
	SequencePolicy      = 10
	SequenceTracking    = 50
	SequenceCompression = 100
	SequenceEncryption  = 200
	SequenceChecksum    = 300
)

// Context threads through a single pipeline invocation.
type Context struct {
	// DocumentID is the id of the record in flight, when known
	DocumentID string

	// Operation is the direction of this invocation
	Operation Operation

	// Applied collects the signature of each stage that ran, in run
	// order. On write this equals ascending sequence order; it is the
	// only externally inspectable audit trail of which stages ran.
	// Stages consume it for diagnostics only, never for control flow.
	Applied []string

	// Metadata is stage-to-stage scratch space, fresh per invocation
	Metadata map[string]interface{}
}

// NewContext creates a context for one pipeline invocation.
func NewContext(documentID string, op Operation) *Context {
	return &Context{
		DocumentID: documentID,
		Operation:  op,
		Metadata:   make(map[string]interface{}),
	}
}

// RecordSignature appends a stage signature to the audit trail. Stages
// call this from OnWrite on success.
func (c *Context) RecordSignature(signature string) {
	c.Applied = append(c.Applied, signature)
}

// Stage is a single reversible byte-level transformation.
type Stage interface {
	// Name is the stable identifier used for lookup and removal;
	// unique per pipeline by caller convention
	Name() string

	// Sequence orders the stage within the pipeline; fixed at
	// construction and used for ordering only, not identity
	Sequence() int

	// Signature is a stable descriptor of the algorithm and its
	// parameters (e.g. "gzip", "chacha20poly1305"), independent of
	// any single invocation; used for audit logs, not correctness
	Signature() string

	// Class declares the stage's failure-policy class
	Class() Class

	// OnWrite transforms forward and records the signature on success
	OnWrite(data []byte, sc *Context) ([]byte, error)

	// OnRead exactly inverts OnWrite
	OnRead(data []byte, sc *Context) ([]byte, error)
}
