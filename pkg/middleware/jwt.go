package middleware

import (
	"bitwise74/sketch-api/pkg/security"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const SessionCookie = "auth_token"

// Sessions moves session tokens between the signer and the auth_token cookie
type Sessions struct {
	Signer *security.SessionSigner
	// Marks cookies as Secure, set when serving over TLS
	Secure bool
}

// NewSessionMiddleware decodes the session token of the request, if any.
// A missing or bad token leaves the caller anonymous, it never fails the request
func NewSessionMiddleware(s *Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := sessionToken(c)
		if tok == "" {
			c.Next()
			return
		}

		claims, err := s.Signer.Parse(tok)
		if err != nil {
			zap.L().Debug("Ignoring invalid session token", zap.Error(err), zap.String("requestID", c.GetString("requestID")))
			c.Next()
			return
		}

		c.Set("userID", claims.Subject)
		c.Set("session", claims)
		c.Next()
	}
}

// RequireSession must run after NewSessionMiddleware and rejects anonymous callers
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := SessionFrom(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Unauthorized",
				"requestID": c.GetString("requestID"),
			})
			return
		}

		c.Next()
	}
}

// SessionFrom returns the claims stored by NewSessionMiddleware
func SessionFrom(c *gin.Context) (*security.SessionClaims, bool) {
	v, ok := c.Get("session")
	if !ok {
		return nil, false
	}

	claims, ok := v.(*security.SessionClaims)
	return claims, ok
}

// Issue signs a new token for ident and stores it in the session cookie
func (s *Sessions) Issue(c *gin.Context, ident security.Identity) error {
	tok, err := s.Signer.Issue(ident)
	if err != nil {
		return err
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, tok, int(s.Signer.TTL.Seconds()), "/", "", s.Secure, true)

	return nil
}

// Refresh re-issues the cookie of a signed in caller with a new balance.
// The balance in the token is only shown to the user, never trusted
func (s *Sessions) Refresh(c *gin.Context, coins int) {
	claims, ok := SessionFrom(c)
	if !ok {
		return
	}

	ident := claims.Identity()
	ident.Coins = coins

	if err := s.Issue(c, ident); err != nil {
		zap.L().Error("Failed to refresh session", zap.Error(err), zap.String("requestID", c.GetString("requestID")))
	}
}

func (s *Sessions) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", s.Secure, true)
}

// The cookie wins over the Authorization header
func sessionToken(c *gin.Context) string {
	if tok, err := c.Cookie(SessionCookie); err == nil && tok != "" {
		return tok
	}

	h := c.GetHeader("Authorization")
	if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(tok)
	}

	return ""
}
