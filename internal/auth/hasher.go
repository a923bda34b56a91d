package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher hashes passwords for storage
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) (bool, error)
}

// NewPasswordHasher returns the hasher named by kind ("bcrypt" or "argon2id")
func NewPasswordHasher(kind string, bcryptCost int) (PasswordHasher, error) {
	switch strings.ToLower(kind) {
	case "", "bcrypt":
		if bcryptCost == 0 {
			bcryptCost = bcrypt.DefaultCost
		}
		if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
			return nil, fmt.Errorf("bcrypt cost %d out of range", bcryptCost)
		}
		return BcryptHasher{Cost: bcryptCost}, nil
	case "argon2id":
		return Argon2idHasher{Params: argon2id.DefaultParams}, nil
	default:
		return nil, fmt.Errorf("unknown password hasher %q", kind)
	}
}

// BcryptHasher writes bcrypt hashes
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.Cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(b), nil
}

func (h BcryptHasher) Verify(plain, hash string) (bool, error) {
	return verifyPassword(plain, hash)
}

// Argon2idHasher writes argon2id hashes
type Argon2idHasher struct {
	Params *argon2id.Params
}

func (h Argon2idHasher) Hash(plain string) (string, error) {
	hash, err := argon2id.CreateHash(plain, h.Params)
	if err != nil {
		return "", fmt.Errorf("argon2id hash: %w", err)
	}
	return hash, nil
}

func (h Argon2idHasher) Verify(plain, hash string) (bool, error) {
	return verifyPassword(plain, hash)
}

// verifyPassword picks the algorithm from the stored hash, so switching the
// configured hasher keeps existing accounts working.
func verifyPassword(plain, hash string) (bool, error) {
	if strings.HasPrefix(hash, "$argon2id$") {
		ok, err := argon2id.ComparePasswordAndHash(plain, hash)
		if err != nil {
			return false, fmt.Errorf("argon2id compare: %w", err)
		}
		return ok, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("bcrypt compare: %w", err)
	}
}
