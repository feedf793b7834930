package models

import (
	"time"
)

// Role is the sole authorization axis of the directory
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Toggled returns the opposite role
func (r Role) Toggled() Role {
	if r == RoleAdmin {
		return RoleUser
	}
	return RoleAdmin
}

// User represents an identity in the directory
type User struct {
	ID             string    `gorm:"primaryKey;size:64" json:"id"`
	Email          string    `gorm:"uniqueIndex;not null;size:255" json:"email"`
	AccessCodeHash string    `gorm:"not null;size:100" json:"-"`
	Role           Role      `gorm:"not null;size:16" json:"role"`
	DisplayName    string    `gorm:"size:255" json:"display_name"`
	Avatar         string    `gorm:"size:500" json:"avatar,omitempty"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for User
func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user currently holds the admin role
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
