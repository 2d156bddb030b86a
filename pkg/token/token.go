// Package token provides the hashing and random-identifier primitives shared
// by issuance and validation.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
)

// Hash computes the SHA-256 digest of a token string, hex encoded for
// storage. This is the record lookup key: the same input always yields
// byte-identical output, and the raw token never touches the database.
func Hash(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// NewRandomID returns a cryptographically secure random identifier with the
// given entropy in bytes, Base64 RawURL encoded for safe URL transmission.
func NewRandomID(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// ConstantTimeEquals compares two strings in constant time. Use for any
// secret comparison so length and prefix matches leak no timing signal.
func ConstantTimeEquals(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// VerifyHash checks a raw token against a stored digest using a
// constant-time comparison.
func VerifyHash(token, expectedHash string) bool {
	return ConstantTimeEquals(Hash(token), expectedHash)
}
