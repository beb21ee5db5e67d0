package helpers

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestJWT() (*JWTManager, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	return NewJWTManager("access-secret", "signing-secret").WithClock(clock.Now), clock
}

func TestJWTManager_IssueVerifyRoundTrip(t *testing.T) {
	m, _ := newTestJWT()
	for _, p := range []Purpose{PurposeEmailVerify, PurposeResetPassword} {
		tok, exp, err := m.Issue(p, "user-1", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 1, 2, 4, 4, 5, 0, time.UTC), exp)
		assert.NotContains(t, tok, "+")
		assert.NotContains(t, tok, "/")
		assert.NotContains(t, tok, "=")

		uid, err := m.Verify(p, tok)
		require.NoError(t, err)
		assert.Equal(t, "user-1", uid)
	}
}

func TestJWTManager_ExpiredTokenIsInvalid(t *testing.T) {
	m, clock := newTestJWT()
	tok, _, err := m.Issue(PurposeResetPassword, "user-1", 10*time.Minute)
	require.NoError(t, err)

	clock.Advance(10*time.Minute - time.Second)
	_, err = m.Verify(PurposeResetPassword, tok)
	require.NoError(t, err)

	clock.Advance(time.Second)
	_, err = m.Verify(PurposeResetPassword, tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_PurposeIsolation(t *testing.T) {
	m, _ := newTestJWT()
	tok, _, err := m.Issue(PurposeEmailVerify, "user-1", time.Hour)
	require.NoError(t, err)

	_, err = m.Verify(PurposeResetPassword, tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_FailuresCollapseToOneError(t *testing.T) {
	m, _ := newTestJWT()
	tok, _, err := m.Issue(PurposeEmailVerify, "user-1", time.Hour)
	require.NoError(t, err)

	other := NewJWTManager("access-secret", "another-secret")
	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	cases := map[string]func() error{
		"wrong secret": func() error { _, err := other.Verify(PurposeEmailVerify, tok); return err },
		"tampered":     func() error { _, err := m.Verify(PurposeEmailVerify, tampered); return err },
		"garbage":      func() error { _, err := m.Verify(PurposeEmailVerify, "not.a.token"); return err },
		"empty":        func() error { _, err := m.Verify(PurposeEmailVerify, ""); return err },
	}
	for name, run := range cases {
		t.Run(name, func(t *testing.T) {
			err := run()
			assert.Equal(t, ErrInvalidToken, err)
		})
	}
}

func TestJWTManager_TokensAreUnique(t *testing.T) {
	m, _ := newTestJWT()
	a, _, err := m.Issue(PurposeResetPassword, "user-1", time.Minute)
	require.NoError(t, err)
	b, _, err := m.Issue(PurposeResetPassword, "user-1", time.Minute)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestJWTManager_AccessTokenIsNotALinkToken(t *testing.T) {
	m, clock := newTestJWT()
	bearer, err := m.GenerateAccessToken("user-1", "sess-1", clock.Now().Add(time.Hour))
	require.NoError(t, err)

	claims, err := m.ParseAccessToken(bearer)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "sess-1", claims.SessionID)

	_, err = m.Verify(PurposeEmailVerify, bearer)
	assert.ErrorIs(t, err, ErrInvalidToken)

	link, _, err := m.Issue(PurposeEmailVerify, "user-1", time.Hour)
	require.NoError(t, err)
	_, err = m.ParseAccessToken(link)
	assert.Error(t, err)
}
