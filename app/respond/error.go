// Package respond turns service errors into JSON error responses
package respond

import (
	"bitwise74/sketch-api/internal/service"
	"bitwise74/sketch-api/pkg/middleware"
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RetryAfter is sent with every 503, in seconds
const RetryAfter = 5

// Fail writes the error body for err. Internal failures are logged with
// msg and never shown to the caller
func Fail(c *gin.Context, err error, msg string) {
	requestID := c.GetString("requestID")

	status, text := classify(err)

	switch {
	case status >= 500:
		zap.L().Error(msg, zap.Error(err), zap.String("requestID", requestID))
	default:
		zap.L().Debug(msg, zap.Error(err), zap.String("requestID", requestID))
	}

	if status == http.StatusServiceUnavailable {
		c.Header("Retry-After", strconv.Itoa(RetryAfter))
	}

	c.JSON(status, gin.H{
		"error":     text,
		"requestID": requestID,
	})
}

// Message writes an error body with a fixed status and text
func Message(c *gin.Context, status int, text string) {
	c.JSON(status, gin.H{
		"error":     text,
		"requestID": c.GetString("requestID"),
	})
}

func classify(err error) (int, string) {
	var v *service.ValidationError

	switch {
	case errors.As(err, &v):
		return http.StatusBadRequest, v.Msg
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, service.ErrDuplicateEmail):
		return http.StatusBadRequest, "This email is already registered. Please login or use a different email"
	case errors.Is(err, service.ErrInsufficientQuota):
		return http.StatusBadRequest, "No coins left."
	case errors.Is(err, service.ErrInvalidOrExpiredToken):
		return http.StatusBadRequest, "Invalid or expired token"
	case errors.Is(err, service.ErrResetCooldown):
		return http.StatusTooManyRequests, "A reset link was sent recently, please check your inbox"
	case errors.Is(err, service.ErrUpstreamTimeout),
		errors.Is(err, service.ErrQueueFull),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "Service is busy, please try again later"
	case middleware.IsBodyTooLarge(err):
		return http.StatusRequestEntityTooLarge, "Request body size exceeds limit"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
