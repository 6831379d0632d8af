package game

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	codeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	// CodeLength is the number of characters in a join code.
	CodeLength = 6

	maxCodeAttempts = 32
)

// NewCode draws CodeLength independent, uniformly distributed characters
// from [a-z0-9].
func NewCode() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	var b strings.Builder
	b.Grow(CodeLength)
	for i := 0; i < CodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeCode folds user input into the canonical code form.
func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
