package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Checksum returns the hex SHA-256 digest of plaintext.
func Checksum(plaintext []byte) string {
	sum := sha256.Sum256(plaintext)
	return hex.EncodeToString(sum[:])
}

// VerifyChecksum reports whether plaintext hashes to the expected hex digest.
func VerifyChecksum(plaintext []byte, expected string) bool {
	return subtle.ConstantTimeCompare([]byte(Checksum(plaintext)), []byte(expected)) == 1
}
