package entity

import (
	"time"
)

// User is the aggregate root for the identity domain.
// PasswordHash holds a bcrypt hash and never leaves the application layer.
type User struct {
	ID            string
	Username      string
	Email         string
	PasswordHash  string
	FirstName     string
	LastName      string
	PhoneNumber   string
	Bio           string
	Location      string
	AvatarURL     string
	IsActive      bool
	EmailVerified bool
	IsAdmin       bool
	RoleID        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FullName joins first and last name, falling back to the username.
func (u *User) FullName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Username
	}
	return name
}
