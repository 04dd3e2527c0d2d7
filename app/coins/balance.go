// Package coins exposes the caller's balance
package coins

import (
	"bitwise74/sketch-api/app/respond"
	"bitwise74/sketch-api/internal"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Balance works for guests and signed in users alike
func Balance(c *gin.Context, d *internal.Deps) {
	n, err := d.LedgerFor(c).Balance(c.Request.Context())
	if err != nil {
		respond.Fail(c, err, "Failed to read balance")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"coins": n,
		"guest": c.GetString("userID") == "",
	})
}
