// Package password hashes and verifies user credentials with bcrypt.
package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const DefaultCost = 12

// ErrPasswordTooLong is returned for passwords bcrypt would silently cut.
var ErrPasswordTooLong = errors.New("password is longer than 72 bytes")

const maxLength = 72

type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

type BcryptHasher struct {
	cost int
}

var _ Hasher = (*BcryptHasher)(nil)

// New returns a hasher with the given cost. Costs outside bcrypt's range
// fall back to DefaultCost.
func New(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	if len(password) > maxLength {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether password matches hash. A malformed hash never
// matches, nor does a password Hash would have rejected.
func (h *BcryptHasher) Verify(password, hash string) bool {
	if len(password) > maxLength {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Cost returns the cost a stored hash was produced with.
func Cost(hash string) (int, error) {
	return bcrypt.Cost([]byte(hash))
}
