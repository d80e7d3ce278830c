// Package security provides the password hashing and token primitives used
// by the store service for DevUser/PlayerUser accounts (spec §3), by the
// developer service for gameId suffixes and by the lobby for match tokens.
//
// Replaces the teacher's client-protocol RSA/blowfish stack (dropped: no
// component in this spec encrypts the wire transport) with the
// golang.org/x/crypto/pbkdf2 subpackage, carrying the same module dependency
// forward into a new concern.
package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// Iterations and salt length match original_source's db_server.py exactly
// (PBKDF2_ITER = 120_000, SALT_LEN = 16), satisfying spec §3's "PBKDF2-HMAC-
// SHA256, >=100k iterations" invariant.
const (
	Iterations = 120_000
	SaltLen    = 16
	keyLen     = 32
)

// NewSalt returns a fresh random salt suitable for HashPassword.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("security: generate salt: %w", err)
	}
	return salt, nil
}

// HashPassword derives a PBKDF2-HMAC-SHA256 key for password under salt.
func HashPassword(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, Iterations, keyLen, sha256.New)
}

// VerifyPassword reports whether password matches the stored hash under
// salt, using a constant-time comparison.
func VerifyPassword(password string, salt, wantHash []byte) bool {
	got := HashPassword(password, salt)
	return subtle.ConstantTimeCompare(got, wantHash) == 1
}

// NewToken returns a random 128-bit hex-encoded token, used for match
// tokens; uploadId and downloadId are generated from uuids instead.
func NewToken() (string, error) {
	return NewTokenN(16)
}

// NewTokenN returns a random n-byte hex-encoded token, used where a
// shorter disambiguation suffix is wanted (e.g. gameId collision probing).
func NewTokenN(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("security: generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
