// internal/auth/challenge.go
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/blake2b"
)

// ErrEmptySalt indicates a challenge digest was requested without a salt.
var ErrEmptySalt = errors.New("challenge salt must not be empty")

// saltLength is the number of random bytes behind each login salt.
const saltLength = 16

// generateRandomBytes returns n random bytes or an error.
func generateRandomBytes(n uint32) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// NewSalt returns a fresh hex encoded salt for a single login attempt.
func NewSalt() (string, error) {
	b, err := generateRandomBytes(saltLength)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ChallengeDigest computes the answer a client must send back after receiving
// a salt: blake2b-256 keyed with the salt over the stored password hash,
// hex encoded.
func ChallengeDigest(storedHash, salt string) (string, error) {
	if salt == "" {
		return "", ErrEmptySalt
	}
	key := []byte(salt)
	if len(key) > blake2b.Size {
		key = key[:blake2b.Size]
	}
	h, err := blake2b.New256(key)
	if err != nil {
		return "", err
	}
	h.Write([]byte(storedHash))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyChallenge reports whether answer matches the digest of storedHash
// under salt. Comparison is constant time.
func VerifyChallenge(storedHash, salt, answer string) bool {
	want, err := ChallengeDigest(storedHash, salt)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(answer)) == 1
}
