// Package passwordhash hashes player passwords with salted PBKDF2-SHA256.
//
// A hash is stored as pbkdf2-sha256$<iterations>$<base64 salt>$<base64 key>.
package passwordhash

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"
)

const (
	algorithm = "pbkdf2-sha256"

	// Iterations is the PBKDF2 work factor of new hashes
	Iterations = 10000
	saltSize   = 24
	keySize    = 24
)

var encoding = base64.RawStdEncoding

// Hash returns the encoded salted hash of password
func Hash(password string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.Wrap(err, "read salt")
	}
	key := pbkdf2.Key([]byte(password), salt, Iterations, keySize, sha256.New)
	return strings.Join([]string{
		algorithm,
		strconv.Itoa(Iterations),
		encoding.EncodeToString(salt),
		encoding.EncodeToString(key),
	}, "$"), nil
}

// Verify reports whether password matches the encoded hash. Malformed hashes never match.
func Verify(password string, hash string) bool {
	parts := strings.Split(hash, "$")
	if len(parts) != 4 || parts[0] != algorithm {
		return false
	}
	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return false
	}
	salt, err := encoding.DecodeString(parts[2])
	if err != nil {
		return false
	}
	expected, err := encoding.DecodeString(parts[3])
	if err != nil || len(expected) == 0 {
		return false
	}

	key := pbkdf2.Key([]byte(password), salt, iterations, len(expected), sha256.New)
	return subtle.ConstantTimeCompare(key, expected) == 1
}
