package coins

import (
	"bitwise74/sketch-api/app/respond"
	"bitwise74/sketch-api/internal"
	"bitwise74/sketch-api/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Deduct takes one coin from a signed in user
func Deduct(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	l := &service.AccountLedger{DB: d.DB, UserID: userID}

	n, err := l.Consume(c.Request.Context())
	if err != nil {
		respond.Fail(c, err, "Failed to deduct coin")
		return
	}

	d.Sessions.Refresh(c, n)

	c.JSON(http.StatusOK, gin.H{
		"coins": n,
	})
}
