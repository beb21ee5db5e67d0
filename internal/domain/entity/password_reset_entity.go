package entity

import "time"

// PasswordReset is a single-use grant for one issued reset token.
// Only the SHA-256 of the token is stored.
type PasswordReset struct {
	ID        string
	UserID    string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	Used      bool
}
