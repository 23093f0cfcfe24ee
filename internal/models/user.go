// Package models contains data structures for the application's domain models.
package models

import (
	"strings"
	"time"
)

// User is a registered account.
type User struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Username   string     `gorm:"size:150;uniqueIndex;not null" json:"username"`
	FirstName  string     `gorm:"size:150;not null;default:''" json:"first_name"`
	LastName   string     `gorm:"size:150;not null;default:''" json:"last_name"`
	Email      string     `gorm:"size:254;not null;default:''" json:"email"`
	Password   string     `gorm:"size:128;not null" json:"-"`
	IsStaff    bool       `gorm:"not null;default:false" json:"is_staff"`
	DateJoined time.Time  `gorm:"autoCreateTime" json:"date_joined"`
	LastLogin  *time.Time `json:"last_login,omitempty"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// FullName joins first and last name, falling back to the username.
func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}
