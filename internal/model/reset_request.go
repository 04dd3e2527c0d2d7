package model

// ResetRequest throttles password reset mails per account
type ResetRequest struct {
	UserID      string `gorm:"primaryKey"`
	LastRequest int64  // Unix milliseconds
	Requests    int
}
