package credential

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptySecret is returned when hashing an empty PIN or biometric code.
var ErrEmptySecret = errors.New("credential: empty secret")

// Hasher hashes card secrets (PIN, biometric code) and checks candidates against stored hashes.
type Hasher interface {
	Hash(secret string) (string, error)
	Verify(hash, secret string) (bool, error)
}

// BcryptHasher implements Hasher using bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a bcrypt-backed hasher; cost 0 selects bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash converts a plain secret into a bcrypt hash.
func (h *BcryptHasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether secret matches hash. A mismatch is not an error; a malformed hash is.
func (h *BcryptHasher) Verify(hash, secret string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}
