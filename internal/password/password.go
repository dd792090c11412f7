package password

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const defaultIterations = 600_000

// Hasher produces deterministic one-way password digests. The same plaintext
// always maps to the same digest for a given pepper, so Verify is a pure
// function of its two inputs; the pepper never leaves configuration.
type Hasher struct {
	pepper     []byte
	iterations int
}

// NewHasher builds a Hasher keyed by the configured pepper. A non-positive
// iteration count falls back to the default.
func NewHasher(pepper string, iterations int) *Hasher {
	if iterations <= 0 {
		iterations = defaultIterations
	}
	return &Hasher{pepper: []byte(pepper), iterations: iterations}
}

// Hash derives a digest from the plaintext. The iteration count is embedded
// in the digest so stored values keep verifying after the cost is raised.
func (h *Hasher) Hash(plaintext string) string {
	sum := pbkdf2.Key([]byte(plaintext), h.pepper, h.iterations, sha256.Size, sha256.New)
	return fmt.Sprintf("pbkdf2-sha256$%d$%s", h.iterations, hex.EncodeToString(sum))
}

// Verify recomputes the digest for plaintext and compares it against the
// stored one. Malformed digests report false, never an error.
func (h *Hasher) Verify(plaintext, digest string) bool {
	parts := strings.Split(digest, "$")
	if len(parts) != 3 || parts[0] != "pbkdf2-sha256" {
		return false
	}
	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return false
	}
	expected, err := hex.DecodeString(parts[2])
	if err != nil || len(expected) != sha256.Size {
		return false
	}
	actual := pbkdf2.Key([]byte(plaintext), h.pepper, iterations, sha256.Size, sha256.New)
	return subtle.ConstantTimeCompare(actual, expected) == 1
}
