package auth

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// PasswordChecker verifies the shared admin password. A bcrypt hash is used
// when configured; otherwise the plain password is compared in constant time.
type PasswordChecker struct {
	hash  []byte
	plain []byte
}

// NewPasswordChecker returns nil when neither a hash nor a password is set.
func NewPasswordChecker(plain, hash string) (*PasswordChecker, error) {
	if hash == "" && plain == "" {
		return nil, nil
	}
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, errors.New("ADMIN_PASSWORD_HASH is not a bcrypt hash")
		}
		return &PasswordChecker{hash: []byte(hash)}, nil
	}
	return &PasswordChecker{plain: []byte(plain)}, nil
}

// Check reports whether candidate is the admin password
func (p *PasswordChecker) Check(candidate string) bool {
	if p == nil || candidate == "" {
		return false
	}
	if p.hash != nil {
		return bcrypt.CompareHashAndPassword(p.hash, []byte(candidate)) == nil
	}
	return subtle.ConstantTimeCompare(p.plain, []byte(candidate)) == 1
}
