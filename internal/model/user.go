// Package model defines database models
package model

type User struct {
	ID    string `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"not null" json:"name"`
	Email string `gorm:"unique;not null" json:"email"`
	// Nil for accounts that never finished setting up a local password
	PasswordHash *string `json:"-"`
	Coins        int     `gorm:"not null;check:coins >= 0" json:"coins"` // Always set explicitly, 0 is a valid balance

	// Both are set together and cleared together. Unix milliseconds
	ResetToken          *string `gorm:"index" json:"-"`
	ResetTokenExpiresAt *int64  `json:"-"`

	CreatedAt int64 `gorm:"autoCreateTime" json:"created_at"`

	Designs      []Design     `gorm:"foreignKey:UserID" json:"-"`
	ResetRequest ResetRequest `gorm:"foreignKey:UserID" json:"-"`
}
