package service

import (
	"bitwise74/sketch-api/internal/model"
	"bitwise74/sketch-api/pkg/security"
	"bitwise74/sketch-api/pkg/validators"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ResetFlow issues password reset links and exchanges them for a new password.
// A token is usable once and only strictly before its expiry
type ResetFlow struct {
	Accounts *Accounts
	Argon    *security.ArgonHash
	Mailer   Mailer

	TTL      time.Duration
	Cooldown time.Duration
	// Frontend origin the reset link points to
	PublicURL string

	Now func() time.Time
}

// Request stores a fresh token on the account owning email, replacing any
// older one, and mails a link containing it
func (f *ResetFlow) Request(ctx context.Context, email string) error {
	if email == "" {
		return invalid("email is required")
	}

	u, err := f.Accounts.ByEmail(ctx, email)
	if err != nil {
		return err
	}

	now := f.Now()

	prev, err := f.throttle(ctx, u.ID, now)
	if err != nil {
		return err
	}

	tok, err := security.MakeResetToken(now, f.TTL)
	if err != nil {
		return fmt.Errorf("failed to generate reset token, %w", err)
	}

	err = f.Accounts.Update(ctx, u.ID, map[string]any{
		"reset_token":            tok.Value,
		"reset_token_expires_at": tok.ExpiresAt.UnixMilli(),
	})
	if err != nil {
		return err
	}

	if err := f.Mailer.SendPasswordReset(ctx, u.Email, f.link(tok.Value)); err != nil {
		// Nothing reached the user, so the cooldown must not block a retry
		if rerr := f.release(context.WithoutCancel(ctx), u.ID, prev); rerr != nil {
			zap.L().Error("Failed to release reset cooldown", zap.Error(rerr), zap.String("userID", u.ID))
		}

		return fmt.Errorf("failed to send reset mail, %w", err)
	}

	return nil
}

// Complete replaces the password of the account holding token. The lookup and
// the clearing of the token happen in one conditional update
func (f *ResetFlow) Complete(ctx context.Context, token, password string) error {
	if token == "" || password == "" {
		return invalid("token and password are required")
	}

	if err := validators.PasswordValidator(password); err != nil {
		return invalid(err.Error())
	}

	hash, err := f.Argon.GenerateFromPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password, %w", err)
	}

	r := f.Accounts.DB.WithContext(ctx).
		Model(&model.User{}).
		Where("reset_token = ? AND reset_token_expires_at > ?", token, f.Now().UnixMilli()).
		Updates(map[string]any{
			"password_hash":          hash,
			"reset_token":            nil,
			"reset_token_expires_at": nil,
		})
	if r.Error != nil {
		return fmt.Errorf("failed to reset password, %w", r.Error)
	}

	if r.RowsAffected == 0 {
		return ErrInvalidOrExpiredToken
	}

	return nil
}

// ClearExpired unsets every token that can't be used anymore
func (f *ResetFlow) ClearExpired(ctx context.Context) (int64, error) {
	r := f.Accounts.DB.WithContext(ctx).
		Model(&model.User{}).
		Where("reset_token_expires_at <= ?", f.Now().UnixMilli()).
		Updates(map[string]any{
			"reset_token":            nil,
			"reset_token_expires_at": nil,
		})

	return r.RowsAffected, r.Error
}

// Cleanup periodically clears expired tokens until ctx is done
func (f *ResetFlow) Cleanup(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)

	zap.L().Debug("Reset token cleanup attached", zap.Duration("tick_every", every))

	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := f.ClearExpired(ctx)
				if err != nil {
					zap.L().Error("Failed to clear expired reset tokens", zap.Error(err))
					continue
				}

				if n > 0 {
					zap.L().Debug("Cleared expired reset tokens", zap.Int64("count", n))
				}
			}
		}
	}()
}

// throttle reserves the cooldown slot of userID. It returns the row as it was
// before, nil when this is the first request of the account
func (f *ResetFlow) throttle(ctx context.Context, userID string, now time.Time) (*model.ResetRequest, error) {
	var prev *model.ResetRequest

	err := f.Accounts.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req model.ResetRequest

		err := tx.Where("user_id = ?", userID).First(&req).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&model.ResetRequest{
				UserID:      userID,
				LastRequest: now.UnixMilli(),
				Requests:    1,
			}).Error
		}

		if err != nil {
			return fmt.Errorf("failed to load reset requests, %w", err)
		}

		if now.Sub(time.UnixMilli(req.LastRequest)) < f.Cooldown {
			return ErrResetCooldown
		}

		prev = &req

		return tx.Model(&model.ResetRequest{}).
			Where("user_id = ?", userID).
			Updates(map[string]any{
				"last_request": now.UnixMilli(),
				"requests":     gorm.Expr("requests + ?", 1),
			}).
			Error
	})
	if err != nil {
		return nil, err
	}

	return prev, nil
}

// release puts the cooldown row back the way throttle found it
func (f *ResetFlow) release(ctx context.Context, userID string, prev *model.ResetRequest) error {
	tx := f.Accounts.DB.WithContext(ctx)

	if prev == nil {
		return tx.Where("user_id = ?", userID).Delete(&model.ResetRequest{}).Error
	}

	return tx.Model(&model.ResetRequest{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"last_request": prev.LastRequest,
			"requests":     prev.Requests,
		}).
		Error
}

func (f *ResetFlow) link(token string) string {
	return strings.TrimRight(f.PublicURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
}
