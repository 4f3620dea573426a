package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"github.com/penmark-app/penmark-backend/internal/apperr"
)

const fingerprintBytes = 50

// Fingerprinter binds refresh tokens to a client-held random secret. Only the
// keyed hash of the raw value is embedded in the refresh claims; the raw value
// travels to the client on a separate channel.
type Fingerprinter struct {
	secret []byte
}

func NewFingerprinter(secret string) (*Fingerprinter, error) {
	if len(secret) < 16 {
		return nil, apperr.New(apperr.KindInternal, "fingerprint secret must be at least 16 bytes")
	}
	return &Fingerprinter{secret: []byte(secret)}, nil
}

// Generate returns a fresh raw fingerprint and its HMAC-SHA-256 hash, both
// hex-encoded.
func (f *Fingerprinter) Generate() (raw string, hash string, err error) {
	buf := make([]byte, fingerprintBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", apperr.Wrap(apperr.KindInternal, "fingerprint generation failed", err)
	}
	raw = hex.EncodeToString(buf)
	return raw, f.hash(raw), nil
}

// Verify reports whether raw hashes to expected. A mismatch is an
// authentication failure for the caller, not an error.
func (f *Fingerprinter) Verify(raw, expected string) bool {
	return hmac.Equal([]byte(f.hash(raw)), []byte(expected))
}

func (f *Fingerprinter) hash(raw string) string {
	mac := hmac.New(sha256.New, f.secret)
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}
