package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"
)

// ResetTokenSize is the amount of random bytes in a reset token (256 bits)
const ResetTokenSize = 32

type ResetToken struct {
	Value     string
	ExpiresAt time.Time
}

// MakeResetToken returns a new random hex encoded token valid for ttl
// starting at now
func MakeResetToken(now time.Time, ttl time.Duration) (*ResetToken, error) {
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}

	b := make([]byte, ResetTokenSize)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}

	return &ResetToken{
		Value:     hex.EncodeToString(b),
		ExpiresAt: now.Add(ttl),
	}, nil
}
