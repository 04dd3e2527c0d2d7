// Package root holds endpoints that don't belong to a resource
package root

import (
	"bitwise74/sketch-api/internal"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Heartbeat answers 200 and reports the queued generation jobs in a header
func Heartbeat(c *gin.Context, d *internal.Deps) {
	if d.JobQueue != nil {
		c.Header("X-Pending-Jobs", strconv.Itoa(int(d.JobQueue.Pending())))
	}

	c.Status(http.StatusOK)
}
