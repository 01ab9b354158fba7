package models

import "time"

const (
	RoleCustomer = "customer"
	RoleChef     = "chef"
	RoleAdmin    = "admin"
)

type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"size:191;uniqueIndex;not null"`
	Email        string    `json:"email" gorm:"size:191;uniqueIndex;not null"`
	Phone        *string   `json:"phone" gorm:"size:32;uniqueIndex"` // NULL when the customer gave none
	PasswordHash string    `json:"-"`                                // empty for customers: no usable password
	Role         string    `json:"role" gorm:"size:16;not null;default:customer"`
	IsStaff      bool      `json:"is_staff"`
	IsSuperuser  bool      `json:"is_superuser"`
	IsActive     bool      `json:"is_active" gorm:"default:true"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PhoneValue returns the phone number or "" when none is stored.
func (u *User) PhoneValue() string {
	if u.Phone == nil {
		return ""
	}
	return *u.Phone
}
