package stage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/ajitpratap0/acorn/pkg/errors"
)

// Cipher selects the AEAD construction used by the encryption stage.
type Cipher string

const (
	// CipherChaCha20Poly1305 is the default cipher
	CipherChaCha20Poly1305 Cipher = "chacha20poly1305"
	// CipherAES256GCM selects AES-256-GCM
	CipherAES256GCM Cipher = "aes256gcm"
)

// EncryptionOptions configures the encryption stage.
type EncryptionOptions struct {
	// Cipher defaults to CipherChaCha20Poly1305
	Cipher Cipher

	// Key is the 32-byte symmetric key
	Key []byte

	// Sequence overrides the default position (SequenceEncryption)
	Sequence int
}

// encryption seals record bytes with an AEAD, prefixing a fresh random
// nonce to each ciphertext. The document id is bound as associated data so
// a ciphertext stored under one id cannot be replayed under another.
type encryption struct {
	aead   cipher.AEAD
	cipher Cipher
	seq    int
}

// NewEncryption creates the encryption stage. The key must be exactly 32
// bytes for both supported ciphers.
func NewEncryption(opts EncryptionOptions) (Stage, error) {
	if opts.Cipher == "" {
		opts.Cipher = CipherChaCha20Poly1305
	}
	if len(opts.Key) != 32 {
		return nil, errors.Newf(errors.ErrorTypeConfig,
			"encryption key must be 32 bytes, got %d", len(opts.Key))
	}

	var aead cipher.AEAD
	var err error
	switch opts.Cipher {
	case CipherChaCha20Poly1305:
		aead, err = chacha20poly1305.New(opts.Key)
	case CipherAES256GCM:
		var block cipher.Block
		block, err = aes.NewCipher(opts.Key)
		if err == nil {
			aead, err = cipher.NewGCM(block)
		}
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unknown cipher %q", opts.Cipher)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to construct AEAD")
	}

	seq := opts.Sequence
	if seq == 0 {
		seq = SequenceEncryption
	}
	return &encryption{aead: aead, cipher: opts.Cipher, seq: seq}, nil
}

// ParseKey decodes a base64 key from configuration.
func ParseKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "encryption key is not valid base64")
	}
	return key, nil
}

func (e *encryption) Name() string  { return "encryption" }
func (e *encryption) Sequence() int { return e.seq }
func (e *encryption) Class() Class  { return Integrity }

func (e *encryption) Signature() string { return string(e.cipher) }

func (e *encryption) OnWrite(data []byte, sc *Context) ([]byte, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to generate nonce")
	}

	sealed := e.aead.Seal(nonce, nonce, data, []byte(sc.DocumentID))
	sc.RecordSignature(e.Signature())
	return sealed, nil
}

func (e *encryption) OnRead(data []byte, sc *Context) ([]byte, error) {
	if len(data) < e.aead.NonceSize() {
		return nil, errors.New(errors.ErrorTypeTransformation, "ciphertext shorter than nonce")
	}
	nonce, sealed := data[:e.aead.NonceSize()], data[e.aead.NonceSize():]

	plain, err := e.aead.Open(nil, nonce, sealed, []byte(sc.DocumentID))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeTransformation, "decryption failed")
	}
	return plain, nil
}
