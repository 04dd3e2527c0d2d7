package security

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeResetToken(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tok, err := MakeResetToken(now, time.Hour)
	require.NoError(t, err)

	raw, err := hex.DecodeString(tok.Value)
	require.NoError(t, err)
	assert.Len(t, raw, ResetTokenSize)
	assert.Equal(t, now.Add(time.Hour), tok.ExpiresAt)

	other, err := MakeResetToken(now, time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, tok.Value, other.Value)
}

func TestMakeResetTokenRejectsZeroTTL(t *testing.T) {
	_, err := MakeResetToken(time.Now(), 0)
	assert.Error(t, err)
}
