package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashSecret returns the hex SHA-256 of a bearer secret (refresh token, invitation token).
// Only the hash is stored.
func HashSecret(secret string) string {
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:])
}

// SecretMatches compares provided against storedHash in constant time.
func SecretMatches(provided, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashSecret(provided)), []byte(storedHash)) == 1
}
