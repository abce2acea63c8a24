// Package verification issues and consumes the short numeric codes that
// prove ownership of an email address.
//
// At most one code is active per user: issuing a code deletes every earlier
// code for that user. Consuming a code deletes the matching row in the same
// statement that finds it, so a code is accepted at most once even under
// concurrent submissions, and an expired code is discarded when submitted.
package verification

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultCodeLength = 8
	DefaultCodeTTL    = 15 * time.Minute
)

// Code is an issued verification code.
type Code struct {
	UserID    uuid.UUID
	Email     string
	Code      string
	ExpiresAt time.Time
}

// Expired reports whether the code is no longer valid at now.
func (c *Code) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

var ten = big.NewInt(10)

// GenerateCode returns length random decimal digits.
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid code length %d", length)
	}

	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
