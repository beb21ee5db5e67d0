package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPasswordPolicy_Validate(t *testing.T) {
	policy := DefaultPasswordPolicy()

	tests := []struct {
		name   string
		secret string
		ok     bool
		reason string
	}{
		{name: "strong", secret: "Str0ng!pass", ok: true},
		{name: "too short", secret: "S0!a", reason: "Password must be at least 8 characters long"},
		{name: "empty", secret: "", reason: "Password must be at least 8 characters long"},
		{name: "no uppercase", secret: "str0ng!pass", reason: "Password must contain at least one uppercase letter"},
		{name: "no lowercase", secret: "STR0NG!PASS", reason: "Password must contain at least one lowercase letter"},
		{name: "no digit", secret: "Strong!pass", reason: "Password must contain at least one number"},
		{name: "no symbol", secret: "Str0ngpass", reason: "Password must contain at least one special character"},
		{name: "too long", secret: "Aa1!" + strings.Repeat("x", 69), reason: "Password must be at most 72 bytes long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := policy.Validate(tt.secret)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestPasswordPolicy_FirstFailureWins(t *testing.T) {
	// lowercase only: uppercase is reported even though digit and symbol are missing too
	ok, reason := DefaultPasswordPolicy().Validate("abcdefghij")
	assert.False(t, ok)
	assert.Equal(t, "Password must contain at least one uppercase letter", reason)

	// short and weak: length is checked first
	ok, reason = DefaultPasswordPolicy().Validate("abc")
	assert.False(t, ok)
	assert.Contains(t, reason, "at least 8 characters")
}

func TestPasswordPolicy_ShortPasswordsAlwaysFailOnLength(t *testing.T) {
	policy := PasswordPolicy{MinLength: 12}
	for n := 0; n < 12; n++ {
		ok, reason := policy.Validate(strings.Repeat("A", n))
		assert.False(t, ok, "length %d", n)
		assert.Equal(t, "Password must be at least 12 characters long", reason)
	}
}

func TestPasswordPolicy_TogglesAreIndependent(t *testing.T) {
	policy := PasswordPolicy{MinLength: 4, RequireDigit: true}
	ok, _ := policy.Validate("abcd1")
	assert.True(t, ok)

	ok, reason := policy.Validate("abcde")
	assert.False(t, ok)
	assert.Equal(t, "Password must contain at least one number", reason)
}

func TestPasswordPolicy_NonASCIILettersDoNotCountAsClasses(t *testing.T) {
	policy := PasswordPolicy{MinLength: 1, RequireUpper: true}
	ok, _ := policy.Validate("ÉÀÜ")
	assert.False(t, ok)
}
