package entity

import "time"

// Permission bits stored in Role.Permissions.
const (
	PermRead     = 1 << 0
	PermWrite    = 1 << 1
	PermModerate = 1 << 2
	PermAdmin    = 1 << 3
)

// Role is a named permission bucket. Exactly one role is the default for new users.
type Role struct {
	ID          string
	Name        string
	Permissions int
	IsDefault   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (r *Role) Has(perm int) bool { return r.Permissions&perm == perm }
