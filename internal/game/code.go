package game

import "math/rand"

// CodeAlphabet omits characters that are easy to confuse (0/O, 1/I).
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const CodeLength = 6

// NewSessionCode returns a display-only code players can read to each other.
func NewSessionCode(rng *rand.Rand) string {
	b := make([]byte, CodeLength)
	for i := range b {
		b[i] = CodeAlphabet[rng.Intn(len(CodeAlphabet))]
	}
	return string(b)
}
