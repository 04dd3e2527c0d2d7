package auth

import (
	"bitwise74/sketch-api/app/respond"
	"bitwise74/sketch-api/internal"
	"bitwise74/sketch-api/internal/service"
	"bitwise74/sketch-api/pkg/middleware"
	"bitwise74/sketch-api/pkg/security"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Session returns who the caller is. The balance always comes from the store
// and the cookie is re-issued with it
func Session(c *gin.Context, d *internal.Deps) {
	claims, ok := middleware.SessionFrom(c)
	if ok {
		u, err := d.Accounts.ByID(c.Request.Context(), claims.Subject)
		switch {
		case err == nil:
			ident := security.Identity{ID: u.ID, Name: u.Name, Email: u.Email, Coins: u.Coins}

			d.Sessions.Refresh(c, u.Coins)
			c.JSON(http.StatusOK, gin.H{
				"user": ident,
			})
			return
		case errors.Is(err, service.ErrUserNotFound):
			// Account is gone, the token is worthless
			d.Sessions.Clear(c)
		default:
			respond.Fail(c, err, "Failed to look up session user")
			return
		}
	}

	coins, err := d.GuestLedger(c).Balance(c.Request.Context())
	if err != nil {
		respond.Fail(c, err, "Failed to read guest coins")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":       nil,
		"guestCoins": coins,
	})
}
