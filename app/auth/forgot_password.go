package auth

import (
	"bitwise74/sketch-api/app/respond"
	"bitwise74/sketch-api/internal"
	"bitwise74/sketch-api/internal/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type forgotBody struct {
	Email string `json:"email" form:"email"`
}

func ForgotPassword(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data forgotBody
	if err := c.ShouldBind(&data); err != nil || data.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Email is required",
			"requestID": requestID,
		})
		return
	}

	err := d.Reset.Request(c.Request.Context(), data.Email)
	if errors.Is(err, service.ErrUserNotFound) && d.HideUnknownEmail {
		zap.L().Debug("Reset requested for unknown email", zap.String("requestID", requestID))
		err = nil
	}

	if err != nil {
		respond.Fail(c, err, "Failed to issue password reset")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Password reset link sent!",
	})
}
