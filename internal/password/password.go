package password

import (
	"crypto/rand"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/penmark-app/penmark-backend/internal/apperr"
)

const saltBytes = 16

// Hasher derives and verifies credential digests. The digest and salt are
// stored as two separate columns on the credentials account row.
type Hasher struct {
	cost int
}

func NewHasher() *Hasher {
	return &Hasher{cost: bcrypt.DefaultCost}
}

// Hash returns a bcrypt digest of secret mixed with a fresh random salt,
// plus the salt itself. Both must be persisted.
func (h *Hasher) Hash(secret string) (digest string, salt string, err error) {
	raw := make([]byte, saltBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", apperr.Wrap(apperr.KindInternal, "salt generation failed", err)
	}
	salt = hex.EncodeToString(raw)

	hashed, err := bcrypt.GenerateFromPassword([]byte(secret+salt), h.cost)
	if err != nil {
		return "", "", apperr.Wrap(apperr.KindInternal, "password hashing failed", err)
	}
	return string(hashed), salt, nil
}

// Verify reports whether secret matches the stored digest and salt. A
// mismatch is not an error; only an unexpected bcrypt failure is.
func (h *Hasher) Verify(secret, digest, salt string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(secret+salt))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, apperr.Wrap(apperr.KindInternal, "password verification failed", err)
}
