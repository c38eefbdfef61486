package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account and its place in the referral graph
type User struct {
	ID                   uuid.UUID  `json:"id" db:"id"`
	Username             string     `json:"username" db:"username"`
	Email                string     `json:"email" db:"email"`
	PasswordHash         string     `json:"-" db:"password_hash"` // Hidden from JSON responses
	ReferralCode         string     `json:"referralCode" db:"referral_code"`
	ReferredBy           *uuid.UUID `json:"referredBy,omitempty" db:"referred_by"`
	ResetPasswordToken   *string    `json:"-" db:"reset_password_token"`
	ResetPasswordExpires *time.Time `json:"-" db:"reset_password_expires"`
	CreatedAt            time.Time  `json:"createdAt" db:"created_at"`
}

// HasPendingReset reports whether a reset token is stored and not yet expired at now.
func (u *User) HasPendingReset(now time.Time) bool {
	return u.ResetPasswordToken != nil && u.ResetPasswordExpires != nil && now.Before(*u.ResetPasswordExpires)
}

// Referral is the public projection of a referred user
type Referral struct {
	Username  string    `json:"username" db:"username"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
