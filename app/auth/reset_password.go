package auth

import (
	"bitwise74/sketch-api/app/respond"
	"bitwise74/sketch-api/internal"
	"net/http"

	"github.com/gin-gonic/gin"
)

type resetBody struct {
	Token    string `json:"token" form:"token"`
	Password string `json:"password" form:"password"`
}

func ResetPassword(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data resetBody
	if err := c.ShouldBind(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	if err := d.Reset.Complete(c.Request.Context(), data.Token, data.Password); err != nil {
		respond.Fail(c, err, "Failed to reset password")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Password reset successful",
	})
}
