package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// TokenLength is the exact length of every stash token.
const TokenLength = 64

const alnum = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewToken returns a 64 character alphanumeric token.
//
// The first half is a time-based UUID with the dashes removed, which keeps
// tokens generated by concurrent processes distinct. The second half is drawn
// from crypto/rand so a token cannot be guessed from its neighbours.
func NewToken() (string, error) {
	id, err := uuid.NewUUID()
	if err != nil {
		return "", fmt.Errorf("failed to generate token prefix: %w", err)
	}
	unique := strings.ReplaceAll(id.String(), "-", "")

	secure, err := randomAlnum(TokenLength - len(unique))
	if err != nil {
		return "", fmt.Errorf("failed to generate token suffix: %w", err)
	}

	return unique + secure, nil
}

// ValidTokenFormat reports whether s has the exact shape of a token. It never
// touches the filesystem and must run before a token is used in a path.
func ValidTokenFormat(s string) bool {
	if len(s) != TokenLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}

func randomAlnum(n int) (string, error) {
	max := big.NewInt(int64(len(alnum)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(alnum[idx.Int64()])
	}
	return b.String(), nil
}
