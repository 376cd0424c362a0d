package codec

import "encoding/base64"

// EncodeText renders pipeline output safe for text-typed backend fields.
// Backends with native binary fields store pipeline output directly and
// never call this.
func EncodeText(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeText reverses EncodeText with a backward-compatibility fallback:
// values that fail the base64 decode are treated as raw pre-pipeline legacy
// bytes, written before any text encoding (or any stage) was configured.
// The second return reports whether the legacy path was taken.
func DecodeText(stored string) ([]byte, bool) {
	data, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return []byte(stored), true
	}
	return data, false
}
