package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// PasswordSymbols is the set of characters that satisfy the symbol rule.
const PasswordSymbols = `!@#$%^&*(),.?":{}|<>`

// PasswordPolicy holds the strength rules applied to every new secret.
// MaxLength is measured in bytes since bcrypt only reads the first 72.
type PasswordPolicy struct {
	MinLength     int
	MaxLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
}

func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:     8,
		MaxLength:     72,
		RequireUpper:  true,
		RequireLower:  true,
		RequireDigit:  true,
		RequireSymbol: true,
	}
}

// Validate checks secret against the policy and returns the reason for the
// first rule it breaks. Rules run in a fixed order: length, uppercase,
// lowercase, digit, symbol.
func (p PasswordPolicy) Validate(secret string) (bool, string) {
	if utf8.RuneCountInString(secret) < p.MinLength {
		return false, fmt.Sprintf("Password must be at least %d characters long", p.MinLength)
	}
	if p.MaxLength > 0 && len(secret) > p.MaxLength {
		return false, fmt.Sprintf("Password must be at most %d bytes long", p.MaxLength)
	}

	var upper, lower, digit, symbol bool
	for _, r := range secret {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(PasswordSymbols, r):
			symbol = true
		}
	}

	if p.RequireUpper && !upper {
		return false, "Password must contain at least one uppercase letter"
	}
	if p.RequireLower && !lower {
		return false, "Password must contain at least one lowercase letter"
	}
	if p.RequireDigit && !digit {
		return false, "Password must contain at least one number"
	}
	if p.RequireSymbol && !symbol {
		return false, "Password must contain at least one special character"
	}
	return true, ""
}
