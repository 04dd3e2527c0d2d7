package internal

import (
	"bitwise74/sketch-api/internal/service"
	"bitwise74/sketch-api/pkg/middleware"
	"bitwise74/sketch-api/pkg/security"
	"context"
	"io"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Archiver keeps a copy of accepted uploads
type Archiver interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) error
}

type Deps struct {
	DB        *gorm.DB
	Argon     *security.ArgonHash
	Accounts  *service.Accounts
	Auth      *service.Authenticator
	Sessions  *middleware.Sessions
	Reset     *service.ResetFlow
	Designs   *service.Designs
	Generator *service.Generator
	JobQueue  *service.JobQueue
	Archive   Archiver // nil when storage is disabled

	InitialCoins     int
	UploadMaxSize    int64
	AllowedTypes     []string
	HideUnknownEmail bool
}

// LedgerFor picks the ledger of the caller. Signed in users are billed
// from the database, everybody else from the guest cookie
func (d *Deps) LedgerFor(c *gin.Context) service.Ledger {
	if userID := c.GetString("userID"); userID != "" {
		return &service.AccountLedger{DB: d.DB, UserID: userID}
	}

	return d.GuestLedger(c)
}

func (d *Deps) GuestLedger(c *gin.Context) *service.GuestLedger {
	return service.NewGuestLedger(middleware.NewCookieQuota(c, d.Sessions.Secure), d.InitialCoins)
}
