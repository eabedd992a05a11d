package identity

import (
	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultBcryptCost is used when no cost is configured.
	DefaultBcryptCost = 12

	// MinPasswordLength is the shortest password accepted at sign-up.
	MinPasswordLength = 6

	// maxPasswordLength is bcrypt's input limit in bytes.
	maxPasswordLength = 72
)

// PasswordHasher hashes and verifies passwords with bcrypt.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher returns a hasher with the given cost, falling back to
// DefaultBcryptCost when cost is out of bcrypt's range.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash generates a bcrypt hash of the given password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Verify checks if the provided password matches the hash.
func (h *PasswordHasher) Verify(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
