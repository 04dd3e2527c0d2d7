// Package auth contains the account endpoints
package auth

import (
	"bitwise74/sketch-api/app/respond"
	"bitwise74/sketch-api/internal"
	"bitwise74/sketch-api/internal/service"
	"bitwise74/sketch-api/pkg/middleware"
	"bitwise74/sketch-api/pkg/validators"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type signupBody struct {
	Name            string `json:"name" form:"name"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword"`
	// Guest balance to carry over, capped by the guest cookie
	Coins *int `json:"coins" form:"coins"`
}

func Signup(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data signupBody
	if err := c.ShouldBind(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})

		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	for _, err := range []error{
		validators.NameValidator(data.Name),
		validators.EmailValidator(data.Email),
		validators.PasswordValidator(data.Password),
		validators.ConfirmPassword(data.Password, data.ConfirmPassword),
	} {
		if err != nil {
			zap.L().Debug("Invalid sign up", zap.Error(err), zap.String("requestID", requestID))

			c.JSON(http.StatusBadRequest, gin.H{
				"error":     err.Error(),
				"requestID": requestID,
			})
			return
		}
	}

	quota := middleware.NewCookieQuota(c, d.Sessions.Secure)
	ctx := c.Request.Context()

	guestCoins, err := service.NewGuestLedger(quota, d.InitialCoins).Balance(ctx)
	if err != nil {
		respond.Fail(c, err, "Failed to read guest coins")
		return
	}

	// A client supplied balance can only lower what the guest cookie holds
	coins := guestCoins
	if data.Coins != nil {
		coins = max(0, min(*data.Coins, guestCoins))
	}

	hash, err := d.Argon.GenerateFromPassword(data.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to hash password", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	u, err := d.Accounts.Create(ctx, service.NewAccount{
		Name:         data.Name,
		Email:        data.Email,
		PasswordHash: hash,
		Coins:        coins,
	})
	if err != nil {
		respond.Fail(c, err, "Failed to create user")
		return
	}

	// The guest quota stays spent, signing up again must not refill it
	if err := quota.Set(ctx, guestCoins); err != nil {
		respond.Fail(c, err, "Failed to store guest coins")
		return
	}

	zap.L().Debug("New user registered", zap.String("userID", u.ID), zap.Int("coins", coins), zap.String("requestID", requestID))

	c.JSON(http.StatusOK, gin.H{
		"message": "User registered successfully",
	})
}
