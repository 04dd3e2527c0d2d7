// Package design serves the generation history of a user
package design

import (
	"bitwise74/sketch-api/app/respond"
	"bitwise74/sketch-api/internal"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

func FetchBulk(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Page must be a number",
			"requestID": requestID,
		})
		return
	}

	if page < 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Page can't be negative",
			"requestID": requestID,
		})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Limit must be a number",
			"requestID": requestID,
		})
		return
	}

	if limit <= 0 || limit > 100 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Limit must be between 1 and 100",
			"requestID": requestID,
		})
		return
	}

	var oldest bool

	switch strings.ToLower(c.DefaultQuery("sort", "newest")) {
	case "newest":
	case "oldest":
		oldest = true
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid sorting option",
			"requestID": requestID,
		})
		return
	}

	entries, err := d.Designs.List(c.Request.Context(), userID, page, limit, oldest)
	if err != nil {
		respond.Fail(c, err, "Failed to look up user designs")
		return
	}

	c.JSON(http.StatusOK, entries)
}
