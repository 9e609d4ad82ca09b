package utils

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher stores and checks user passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(stored, plain string) bool
}

// NewPasswordHasher returns the hasher for a configured mode: "plain"
// keeps passwords as given and compares them exactly, "bcrypt" hashes
// them with the given cost.
func NewPasswordHasher(mode string, cost int) (PasswordHasher, error) {
	switch mode {
	case "", "plain":
		return PlainHasher{}, nil
	case "bcrypt":
		return BcryptHasher{Cost: cost}, nil
	}
	return nil, fmt.Errorf("unknown password hasher %q", mode)
}

// PlainHasher stores the password unchanged.
type PlainHasher struct{}

func (PlainHasher) Hash(plain string) (string, error) { return plain, nil }

func (PlainHasher) Verify(stored, plain string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(plain)) == 1
}

// BcryptHasher stores a bcrypt hash.
type BcryptHasher struct {
	Cost int
}

// Hash returns bcrypt hash using the configured cost.
func (h BcryptHasher) Hash(plain string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify safely compares bcrypt hash and plain password.
func (BcryptHasher) Verify(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
