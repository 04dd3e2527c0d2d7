package service

import (
	"bitwise74/sketch-api/internal/model"
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"
)

// Ledger meters the coins of one caller. Consume and Refund return the
// balance after the change
type Ledger interface {
	Balance(ctx context.Context) (int, error)
	Consume(ctx context.Context) (int, error)
	Refund(ctx context.Context) (int, error)
}

// QuotaStorage is a single integer owned by somebody else, like a cookie
// held by the client. ok is false when nothing was stored yet
type QuotaStorage interface {
	Get(ctx context.Context) (n int, ok bool, err error)
	Set(ctx context.Context, n int) error
}

// AccountLedger keeps the balance of a signed in user in the database.
// The store is always the authority, session tokens are never consulted
type AccountLedger struct {
	DB     *gorm.DB
	UserID string
}

func (l *AccountLedger) Balance(ctx context.Context) (int, error) {
	var coins int
	if err := readCoins(l.DB.WithContext(ctx), l.UserID, &coins); err != nil {
		return 0, err
	}

	return coins, nil
}

// Consume takes one coin with a single conditional update so that two
// concurrent requests can never both spend the last coin
func (l *AccountLedger) Consume(ctx context.Context) (int, error) {
	var coins int

	err := l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := tx.Model(&model.User{}).
			Where("id = ? AND coins > 0", l.UserID).
			UpdateColumn("coins", gorm.Expr("coins - ?", 1))
		if r.Error != nil {
			return fmt.Errorf("failed to deduct coin, %w", r.Error)
		}

		if r.RowsAffected == 0 {
			var exists int64
			if err := tx.Model(&model.User{}).Where("id = ?", l.UserID).Count(&exists).Error; err != nil {
				return fmt.Errorf("failed to check if user exists, %w", err)
			}

			if exists == 0 {
				return ErrUserNotFound
			}

			return ErrInsufficientQuota
		}

		return readCoins(tx, l.UserID, &coins)
	})
	if err != nil {
		return 0, err
	}

	return coins, nil
}

func (l *AccountLedger) Refund(ctx context.Context) (int, error) {
	var coins int

	err := l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := tx.Model(&model.User{}).
			Where("id = ?", l.UserID).
			UpdateColumn("coins", gorm.Expr("coins + ?", 1))
		if r.Error != nil {
			return fmt.Errorf("failed to refund coin, %w", r.Error)
		}

		if r.RowsAffected == 0 {
			return ErrUserNotFound
		}

		return readCoins(tx, l.UserID, &coins)
	})
	if err != nil {
		return 0, err
	}

	return coins, nil
}

// GuestLedger meters an anonymous caller whose balance lives on the client.
// Initial is used when the client has no balance yet and caps whatever the
// client sends back
type GuestLedger struct {
	Store   QuotaStorage
	Initial int

	mu sync.Mutex
}

func NewGuestLedger(s QuotaStorage, initial int) *GuestLedger {
	return &GuestLedger{Store: s, Initial: initial}
}

func (l *GuestLedger) Balance(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.read(ctx)
}

func (l *GuestLedger) Consume(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n, err := l.read(ctx)
	if err != nil {
		return 0, err
	}

	if n <= 0 {
		return 0, ErrInsufficientQuota
	}

	if err := l.Store.Set(ctx, n-1); err != nil {
		return 0, fmt.Errorf("failed to store guest coins, %w", err)
	}

	return n - 1, nil
}

func (l *GuestLedger) Refund(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n, err := l.read(ctx)
	if err != nil {
		return 0, err
	}

	n = min(n+1, l.Initial)
	if err := l.Store.Set(ctx, n); err != nil {
		return 0, fmt.Errorf("failed to store guest coins, %w", err)
	}

	return n, nil
}

func (l *GuestLedger) read(ctx context.Context) (int, error) {
	n, ok, err := l.Store.Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read guest coins, %w", err)
	}

	if !ok {
		return l.Initial, nil
	}

	return max(0, min(n, l.Initial)), nil
}

func readCoins(tx *gorm.DB, userID string, dst *int) error {
	var coins []int

	err := tx.Model(&model.User{}).
		Where("id = ?", userID).
		Limit(1).
		Pluck("coins", &coins).
		Error
	if err != nil {
		return fmt.Errorf("failed to read balance, %w", err)
	}

	if len(coins) == 0 {
		return ErrUserNotFound
	}

	*dst = coins[0]
	return nil
}
