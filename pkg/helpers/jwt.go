package helpers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Purpose scopes a link token to the one flow it was minted for.
type Purpose string

const (
	PurposeEmailVerify   Purpose = "email_verify"
	PurposeResetPassword Purpose = "reset_password"
)

// ErrInvalidToken is the only error Verify returns.
var ErrInvalidToken = errors.New("invalid or expired token")

// JWTManager signs session bearers and purpose-scoped link tokens with HS256.
// The two kinds use different secrets.
type JWTManager struct {
	AccessSecret  []byte
	SigningSecret []byte

	now func() time.Time
}

func NewJWTManager(accessSecret, signingSecret string) *JWTManager {
	return &JWTManager{
		AccessSecret:  []byte(accessSecret),
		SigningSecret: []byte(signingSecret),
		now:           time.Now,
	}
}

// WithClock swaps the time source; used by tests.
func (m *JWTManager) WithClock(now func() time.Time) *JWTManager {
	m.now = now
	return m
}

// SessionClaims is carried by the bearer returned at login.
type SessionClaims struct {
	UserID    string `json:"uid"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// PurposeClaims is carried by verification and reset links. Subject holds the user id.
type PurposeClaims struct {
	Purpose Purpose `json:"purpose"`
	jwt.RegisteredClaims
}

// GenerateAccessToken signs a bearer for sessionID that expires together with the session.
func (m *JWTManager) GenerateAccessToken(userID, sessionID string, exp time.Time) (string, error) {
	claims := &SessionClaims{
		UserID:    userID,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(m.now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.AccessSecret)
}

func (m *JWTManager) ParseAccessToken(tokenStr string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := m.parse(tokenStr, claims, m.AccessSecret); err != nil {
		return nil, err
	}
	if claims.UserID == "" || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Issue mints a URL-safe token binding userID to purpose until now+ttl.
// Every token carries a fresh jti so two issues never collide.
func (m *JWTManager) Issue(purpose Purpose, userID string, ttl time.Duration) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(ttl)
	claims := &PurposeClaims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.SigningSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, exp, nil
}

// Verify returns the subject of a token minted for purpose. Bad signature,
// wrong purpose, expiry and malformed input all yield ErrInvalidToken.
func (m *JWTManager) Verify(purpose Purpose, tokenStr string) (string, error) {
	claims := &PurposeClaims{}
	if err := m.parse(tokenStr, claims, m.SigningSecret); err != nil {
		return "", ErrInvalidToken
	}
	if claims.Purpose != purpose || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func (m *JWTManager) parse(tokenStr string, claims jwt.Claims, secret []byte) error {
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !tkn.Valid {
		return ErrInvalidToken
	}
	return nil
}
