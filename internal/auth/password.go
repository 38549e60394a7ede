package auth

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt ignores everything past 72 bytes; longer input is refused
// instead of being truncated silently.
const maxPasswordBytes = 72

var (
	ErrEmptyPassword   = errors.New("password is empty")
	ErrPasswordTooLong = errors.New("password is longer than 72 bytes")
	ErrInvalidCost     = errors.New("bcrypt cost out of range")
)

// HashPassword returns the value to put in AUTH_PASSWORD_HASH.
func HashPassword(password string, cost int) (string, error) {
	switch {
	case password == "":
		return "", ErrEmptyPassword
	case len(password) > maxPasswordBytes:
		return "", ErrPasswordTooLong
	case cost < bcrypt.MinCost || cost > bcrypt.MaxCost:
		return "", fmt.Errorf("%w: %d (want %d..%d)", ErrInvalidCost, cost, bcrypt.MinCost, bcrypt.MaxCost)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// PasswordMatches reports whether password hashes to hash. An empty or
// malformed hash matches nothing.
func PasswordMatches(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NewSecret returns 32 random bytes for signing CSRF tokens.
func NewSecret() ([]byte, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	return secret, nil
}
