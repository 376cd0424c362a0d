package stage

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/acorn/pkg/compression"
	"github.com/ajitpratap0/acorn/pkg/errors"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestCompressionStageRoundTrip(t *testing.T) {
	s, err := NewCompression(CompressionOptions{Algorithm: compression.Zstd})
	require.NoError(t, err)

	data := bytes.Repeat([]byte("acorn "), 200)
	wctx := NewContext("doc-1", Write)

	compressed, err := s.OnWrite(data, wctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"zstd"}, wctx.Applied)

	rctx := NewContext("doc-1", Read)
	restored, err := s.OnRead(compressed, rctx)
	require.NoError(t, err)
	assert.Equal(t, data, restored)
}

func TestEncryptionStageRoundTrip(t *testing.T) {
	for _, c := range []Cipher{CipherChaCha20Poly1305, CipherAES256GCM} {
		t.Run(string(c), func(t *testing.T) {
			s, err := NewEncryption(EncryptionOptions{Cipher: c, Key: testKey(t)})
			require.NoError(t, err)

			data := []byte("secret payload")
			wctx := NewContext("doc-1", Write)
			sealed, err := s.OnWrite(data, wctx)
			require.NoError(t, err)
			assert.NotEqual(t, data, sealed)
			assert.Equal(t, []string{string(c)}, wctx.Applied)

			restored, err := s.OnRead(sealed, NewContext("doc-1", Read))
			require.NoError(t, err)
			assert.Equal(t, data, restored)
		})
	}
}

func TestEncryptionStageBindsDocumentID(t *testing.T) {
	s, err := NewEncryption(EncryptionOptions{Key: testKey(t)})
	require.NoError(t, err)

	sealed, err := s.OnWrite([]byte("payload"), NewContext("doc-1", Write))
	require.NoError(t, err)

	_, err = s.OnRead(sealed, NewContext("doc-2", Read))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTransformation))
}

func TestEncryptionStageRejectsBadKey(t *testing.T) {
	_, err := NewEncryption(EncryptionOptions{Key: []byte("short")})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestChecksumStageDetectsCorruption(t *testing.T) {
	s := NewChecksum(ChecksumOptions{})

	framed, err := s.OnWrite([]byte("payload"), NewContext("doc-1", Write))
	require.NoError(t, err)

	restored, err := s.OnRead(framed, NewContext("doc-1", Read))
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), restored)

	framed[len(framed)-1] ^= 0xff
	_, err = s.OnRead(framed, NewContext("doc-1", Read))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTransformation))
}

func TestChecksumStageShortInput(t *testing.T) {
	s := NewChecksum(ChecksumOptions{})
	_, err := s.OnRead([]byte("tiny"), NewContext("doc-1", Read))
	require.Error(t, err)
}

func TestPolicyStage(t *testing.T) {
	s := NewPolicy(PolicyOptions{MaxPayloadBytes: 8, RejectEmpty: true})

	_, err := s.OnWrite(nil, NewContext("doc-1", Write))
	assert.Error(t, err, "empty payload must be rejected")

	_, err = s.OnWrite(bytes.Repeat([]byte("x"), 9), NewContext("doc-1", Write))
	assert.Error(t, err, "oversized payload must be rejected")

	out, err := s.OnWrite([]byte("ok"), NewContext("doc-1", Write))
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), out)

	// Read side is the identity regardless of limits
	out, err = s.OnRead(bytes.Repeat([]byte("x"), 100), NewContext("doc-1", Read))
	require.NoError(t, err)
	assert.Len(t, out, 100)
}

func TestTrackingStagePassesThrough(t *testing.T) {
	s := NewTracking(TrackingOptions{})

	data := []byte("observed")
	out, err := s.OnWrite(data, NewContext("doc-1", Write))
	require.NoError(t, err)
	assert.Equal(t, data, out)

	out, err = s.OnRead(data, NewContext("doc-1", Read))
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestDefaultSequences(t *testing.T) {
	comp, err := NewCompression(CompressionOptions{})
	require.NoError(t, err)
	enc, err := NewEncryption(EncryptionOptions{Key: testKey(t)})
	require.NoError(t, err)

	// Built-ins follow the documented bands: policy before compression
	// before encryption before checksum.
	assert.Less(t, NewPolicy(PolicyOptions{}).Sequence(), comp.Sequence())
	assert.Less(t, comp.Sequence(), enc.Sequence())
	assert.Less(t, enc.Sequence(), NewChecksum(ChecksumOptions{}).Sequence())
}

func TestParseKey(t *testing.T) {
	_, err := ParseKey("not base64!!")
	assert.Error(t, err)
}
