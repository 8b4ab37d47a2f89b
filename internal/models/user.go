// Package models contains data structures for the application's domain models.
package models

import (
	"fmt"
	"time"
)

// User represents a bulletin board account.
//
// IsActive gates authentication while IsActivated records that the owner
// confirmed their email address. Self-registered users start with both
// false and the activation link flips them together.
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email        string     `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Password     string     `gorm:"not null" json:"-"`
	FirstName    string     `gorm:"size:150" json:"first_name"`
	LastName     string     `gorm:"size:150" json:"last_name"`
	IsActive     bool       `gorm:"not null" json:"is_active"`
	IsActivated  bool       `gorm:"not null;index" json:"is_activated"`
	SendMessages bool       `gorm:"not null" json:"send_messages"`
	IsStaff      bool       `gorm:"not null" json:"is_staff"`
	IsSuperuser  bool       `gorm:"not null" json:"is_superuser"`
	DateJoined   time.Time  `gorm:"not null" json:"date_joined"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	Ads          []Ad       `gorm:"foreignKey:AuthorID" json:"-"`
}

// NewRegisteredUser returns a user in the pending-activation state.
func NewRegisteredUser(username, email, firstName, lastName, passwordHash string, sendMessages bool) *User {
	return &User{
		Username:     username,
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		Password:     passwordHash,
		IsActive:     false,
		IsActivated:  false,
		SendMessages: sendMessages,
		DateJoined:   time.Now().UTC(),
	}
}

// NewManagedUser returns a user created by an administrator. Such accounts
// skip the email confirmation step.
func NewManagedUser(username, email, passwordHash string) *User {
	return &User{
		Username:     username,
		Email:        email,
		Password:     passwordHash,
		IsActive:     true,
		IsActivated:  true,
		SendMessages: true,
		DateJoined:   time.Now().UTC(),
	}
}

// FullName joins first and last name the way the board prints it in letters.
func (u *User) FullName() string {
	return fmt.Sprintf("%s  %s", u.FirstName, u.LastName)
}

// Activate moves a pending user to the active state. It reports whether
// anything changed, so a second call is a no-op.
func (u *User) Activate() bool {
	if u.IsActivated {
		return false
	}
	u.IsActive = true
	u.IsActivated = true
	return true
}
