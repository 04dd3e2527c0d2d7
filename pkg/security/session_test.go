package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionIssueAndParse(t *testing.T) {
	s := NewSessionSigner("super-secret", time.Hour)

	tok, err := s.Issue(Identity{ID: "u1", Name: "Ada", Email: "ada@example.com", Coins: 3})
	require.NoError(t, err)

	claims, err := s.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, Identity{ID: "u1", Name: "Ada", Email: "ada@example.com", Coins: 3}, claims.Identity())
}

func TestSessionExpired(t *testing.T) {
	s := NewSessionSigner("secret", time.Minute)
	issued := time.Now()
	s.Now = func() time.Time { return issued }

	tok, err := s.Issue(Identity{ID: "u1"})
	require.NoError(t, err)

	s.Now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = s.Parse(tok)
	assert.ErrorIs(t, err, ErrSessionInvalid)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestSessionWrongSecret(t *testing.T) {
	tok, err := NewSessionSigner("right", time.Hour).Issue(Identity{ID: "u1"})
	require.NoError(t, err)

	_, err = NewSessionSigner("wrong", time.Hour).Parse(tok)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestSessionRejectsOtherAlgorithms(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewSessionSigner("secret", time.Hour).Parse(tok)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestSessionRequiresSubject(t *testing.T) {
	_, err := NewSessionSigner("secret", time.Hour).Issue(Identity{})
	assert.Error(t, err)
}

func TestSessionMalformed(t *testing.T) {
	_, err := NewSessionSigner("secret", time.Hour).Parse("not.a.jwt")
	assert.ErrorIs(t, err, ErrSessionInvalid)
}
