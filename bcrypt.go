package grants

import (
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword will generate a salted password hash using the build's
// default cost factor.
func HashPassword(password string) (string, error) {
	return HashPasswordCost(password, passwordHashCost())
}

// HashPasswordCost hashes with an explicit cost factor. A zero or negative
// cost falls back to the build default.
func HashPasswordCost(password string, cost int) (string, error) {
	if password == "" {
		return "", ErrPasswordRequired
	}

	if cost <= 0 {
		cost = passwordHashCost()
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext password matches
// the hashed password. A mismatch returns ErrMismatchedHashAndPassword; a
// hash that is not a bcrypt digest returns ErrPasswordHashInvalid.
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return ErrPasswordHashInvalid
	}
	return nil
}

// RandomPasswordHash is a temporary password
func RandomPasswordHash() string {
	pwd := uuid.New()

	h, err := HashPassword(pwd.String())
	if err != nil {
		return RandomPasswordHash()
	}

	return h
}
