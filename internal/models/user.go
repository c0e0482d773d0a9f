package models

import (
	"time"
)

// Role values for User.Role.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an identity keyed by email or phone. Exactly one of the two is set
// at creation; uniqueness is sparse, so rows with a nil email (or phone) do
// not collide. OTP holds a bcrypt hash of the pending code, never the code
// itself, and is cleared together with OTPExpiry on successful verification.
type User struct {
	BaseModel
	Email      *string    `gorm:"uniqueIndex" json:"email,omitempty"`
	Phone      *string    `gorm:"uniqueIndex" json:"phone,omitempty"`
	Image      string     `json:"image"`
	OTP        *string    `json:"-"`
	OTPExpiry  *time.Time `json:"-"`
	IsVerified bool       `json:"isVerified"`
	Role       string     `gorm:"default:user" json:"role"`
}

// Identity returns the email or phone the user is keyed by.
func (u *User) Identity() string {
	if u.Email != nil {
		return *u.Email
	}
	if u.Phone != nil {
		return *u.Phone
	}
	return ""
}
