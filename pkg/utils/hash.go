package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SumSHA256 returns the SHA-256 checksum of the provided data.
func SumSHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// Fingerprint returns a stable hex digest of parts. Each part is trimmed and
// separated by a NUL so that ("ab","c") and ("a","bc") differ.
func Fingerprint(parts ...string) string {
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte(0)
		}
		b.WriteString(strings.TrimSpace(p))
	}
	sum := SumSHA256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
