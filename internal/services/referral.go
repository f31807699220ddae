package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	codePrefixLen   = 4
	codeSuffixLen   = 4
	codeMaxAttempts = 10

	fallbackCodePrefix = "SPIN"

	base36Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// CodeChecker is the uniqueness collaborator behind code generation.
type CodeChecker interface {
	ReferralCodeExists(ctx context.Context, code string) (bool, error)
}

// ReferralCodeGenerator derives short unique referral codes from display
// names. It only allocates; the caller persists the result.
type ReferralCodeGenerator struct {
	checker CodeChecker
}

func NewReferralCodeGenerator(checker CodeChecker) *ReferralCodeGenerator {
	return &ReferralCodeGenerator{checker: checker}
}

// Generate returns a code of the form <prefix><suffix>: up to 4 uppercase
// letters taken from the name plus 4 random base-36 characters. After 10
// collisions it falls back to a timestamp-derived code that is not re-checked
// for uniqueness; the create-only registry write still rejects a collision.
func (g *ReferralCodeGenerator) Generate(ctx context.Context, name string) (string, error) {
	prefix := sanitizePrefix(name)

	for attempt := 0; attempt < codeMaxAttempts; attempt++ {
		suffix, err := randomBase36(codeSuffixLen)
		if err != nil {
			return "", err
		}

		code := prefix + suffix
		exists, err := g.checker.ReferralCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check referral code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}

	millis := time.Now().UnixMilli()
	return fallbackCodePrefix + strings.ToUpper(strconv.FormatInt(millis, 36)), nil
}

// sanitizePrefix keeps the first 4 alphabetic characters of name, uppercased.
func sanitizePrefix(name string) string {
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
			if b.Len() == codePrefixLen {
				break
			}
		}
	}
	return strings.ToUpper(b.String())
}

func randomBase36(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate code suffix: %v", err)
	}

	out := make([]byte, n)
	for i, b := range buf {
		out[i] = base36Alphabet[int(b)%len(base36Alphabet)]
	}
	return string(out), nil
}
