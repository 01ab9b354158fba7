package models

import "time"

// OTPValidity is how long an issued passcode stays usable.
const OTPValidity = 5 * time.Minute

type OTP struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Email     string    `json:"email" gorm:"size:191;index;not null"`
	Code      string    `json:"code" gorm:"size:6;not null"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null"`
}

func (o *OTP) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
