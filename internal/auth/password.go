package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters, OWASP 2025 recommendation.
const (
	argonTime    = 3         // iterations
	argonMemory  = 64 * 1024 // 64 MiB
	argonThreads = 1         // parallelism
	argonKeyLen  = 32        // output hash length
	argonSaltLen = 16        // salt length
)

// HashCredential hashes a plaintext password with a fresh random salt
// using Argon2id. The salt and hash are returned hex-encoded, matching
// the directory's credential_salt and credential_hash columns.
func HashCredential(password string) (saltHex, hashHex string, err error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return hex.EncodeToString(salt), hex.EncodeToString(hash), nil
}

// VerifyCredential re-derives the Argon2id hash from the password and
// stored salt and compares it constant-time against the stored hash.
//
// It fails closed: malformed stored values verify as false rather than
// erroring, so a corrupt record behaves like a wrong password. The
// plaintext and hashes are never logged or returned.
func VerifyCredential(password, saltHex, hashHex string) bool {
	salt, err := hex.DecodeString(saltHex)
	if err != nil || len(salt) == 0 {
		return false
	}

	hash, err := hex.DecodeString(hashHex)
	if err != nil || len(hash) == 0 {
		return false
	}

	candidate := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, uint32(len(hash))) //nolint:gosec // G115: hash length always fits uint32

	return subtle.ConstantTimeCompare(hash, candidate) == 1
}
