package helpers

import (
	"golang.org/x/crypto/bcrypt"
)

// CredentialStore hashes and checks user secrets with bcrypt.
// The plaintext never leaves SetSecret / VerifySecret.
type CredentialStore struct {
	cost  int
	dummy []byte
}

func NewCredentialStore(cost int) *CredentialStore {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	// same cost as real hashes so a miss takes as long as a mismatch
	dummy, _ := bcrypt.GenerateFromPassword([]byte("spherex-dummy-secret"), cost)
	return &CredentialStore{cost: cost, dummy: dummy}
}

// SetSecret returns a salted one-way hash of plain.
func (s *CredentialStore) SetSecret(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), s.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifySecret reports whether plain matches hash. A malformed hash is a mismatch.
func (s *CredentialStore) VerifySecret(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// VerifyDummy burns one comparison for logins against unknown accounts.
func (s *CredentialStore) VerifyDummy(plain string) {
	_ = bcrypt.CompareHashAndPassword(s.dummy, []byte(plain))
}
