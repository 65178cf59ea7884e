package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// shortLen is the number of hex characters kept by Short. The truncated
// digest is used only for equality comparison, never for security.
const shortLen = 16

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Short returns a truncated hex-encoded SHA-256 digest of data.
func Short(data []byte) string {
	return Sum(data)[:shortLen]
}
