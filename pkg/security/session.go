package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrSessionInvalid = errors.New("session token invalid")

// Identity is what a session token says about its holder
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Coins int    `json:"coins"`
}

// SessionClaims are embedded in every auth token. Coins is a snapshot taken
// when the token was issued and must never be used to decide anything
type SessionClaims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Coins int    `json:"coins"`
	jwt.RegisteredClaims
}

func (s *SessionClaims) Identity() Identity {
	return Identity{
		ID:    s.Subject,
		Name:  s.Name,
		Email: s.Email,
		Coins: s.Coins,
	}
}

// SessionSigner mints and verifies stateless HS256 session tokens
type SessionSigner struct {
	secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

func NewSessionSigner(secret string, ttl time.Duration) *SessionSigner {
	return &SessionSigner{
		secret: []byte(secret),
		TTL:    ttl,
		Now:    time.Now,
	}
}

func (s *SessionSigner) Issue(id Identity) (string, error) {
	if id.ID == "" {
		return "", errors.New("no user ID provided")
	}

	now := s.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		Name:  id.Name,
		Email: id.Email,
		Coins: id.Coins,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL)),
		},
	})

	return t.SignedString(s.secret)
}

// Parse verifies the signature, algorithm and expiry of a token
func (s *SessionSigner) Parse(tokenStr string) (*SessionClaims, error) {
	claims := &SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w, %w", ErrSessionInvalid, err)
	}

	if !token.Valid || claims.Subject == "" {
		return nil, ErrSessionInvalid
	}

	return claims, nil
}
