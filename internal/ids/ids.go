package ids

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/oklog/ulid/v2"
)

// AnswerAlphabet is uppercase only, since answers compare case-insensitively.
// It excludes glyphs that are easy to confuse on a noisy image
// (0/O, 1/I, 5/S, 2/Z, 8/B).
const AnswerAlphabet = "ACDEFGHJKLMNPQRTUVWXY34679"

const (
	secretAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-_"
	secretSize     = 32
)

// New returns a lexicographically sortable identifier suitable for storage keys.
func New() string {
	return ulid.Make().String()
}

// Secret returns an unguessable URL-safe token drawn from crypto/rand.
func Secret() (string, error) {
	return gonanoid.Generate(secretAlphabet, secretSize)
}

// Answer returns a human-readable challenge answer of the given length.
func Answer(length int) (string, error) {
	if length <= 0 {
		length = 6
	}
	return gonanoid.Generate(AnswerAlphabet, length)
}
