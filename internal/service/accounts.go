package service

import (
	"bitwise74/sketch-api/internal/model"
	"context"
	"errors"
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const idCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

type NewAccount struct {
	Name         string
	Email        string
	PasswordHash string
	Coins        int
}

// Accounts is the persisted user store
type Accounts struct {
	DB *gorm.DB
}

func NewAccounts(db *gorm.DB) *Accounts {
	return &Accounts{DB: db}
}

// Create inserts a new user. The email must not be registered yet
func (a *Accounts) Create(ctx context.Context, n NewAccount) (*model.User, error) {
	if strings.TrimSpace(n.Name) == "" {
		return nil, invalid("name can't be empty")
	}

	if n.Email == "" {
		return nil, invalid("email can't be empty")
	}

	if n.Coins < 0 {
		return nil, invalid("coins can't be negative")
	}

	var found int64

	err := a.DB.WithContext(ctx).
		Model(&model.User{}).
		Where("email = ?", n.Email).
		Count(&found).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to check if user is registered, %w", err)
	}

	if found > 0 {
		return nil, ErrDuplicateEmail
	}

	id, err := gonanoid.Generate(idCharset, 16)
	if err != nil {
		return nil, fmt.Errorf("failed to generate user ID, %w", err)
	}

	u := &model.User{
		ID:    id,
		Name:  n.Name,
		Email: n.Email,
		Coins: n.Coins,
	}

	if n.PasswordHash != "" {
		u.PasswordHash = &n.PasswordHash
	}

	if err := a.DB.WithContext(ctx).Omit(clause.Associations).Create(u).Error; err != nil {
		// Someone registered the same email between the check and the insert
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateEmail
		}

		return nil, fmt.Errorf("failed to create user, %w", err)
	}

	return u, nil
}

func (a *Accounts) ByEmail(ctx context.Context, email string) (*model.User, error) {
	return a.first(ctx, "email = ?", email)
}

func (a *Accounts) ByID(ctx context.Context, id string) (*model.User, error) {
	return a.first(ctx, "id = ?", id)
}

func (a *Accounts) first(ctx context.Context, query string, arg any) (*model.User, error) {
	var u model.User

	err := a.DB.WithContext(ctx).Where(query, arg).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, fmt.Errorf("failed to look up user, %w", err)
	}

	return &u, nil
}

// Save persists the whole record
func (a *Accounts) Save(ctx context.Context, u *model.User) error {
	if u.Coins < 0 {
		return invalid("coins can't be negative")
	}

	if err := a.DB.WithContext(ctx).Omit(clause.Associations).Save(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}

		return fmt.Errorf("failed to save user, %w", err)
	}

	return nil
}

// Update writes only the given columns of one user
func (a *Accounts) Update(ctx context.Context, id string, fields map[string]any) error {
	r := a.DB.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Updates(fields)
	if r.Error != nil {
		return fmt.Errorf("failed to update user, %w", r.Error)
	}

	if r.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}
