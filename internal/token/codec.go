package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/penmark-app/penmark-backend/internal/apperr"
)

// AccessPayload is the user snapshot embedded in short-lived access tokens.
type AccessPayload struct {
	UserID   uuid.UUID `json:"user_id"`
	Email    string    `json:"email"`
	Username string    `json:"username"`
	Image    string    `json:"image"`
	Role     string    `json:"role"`
}

// RefreshPayload binds a long-lived refresh token to a fingerprint hash.
type RefreshPayload struct {
	UserID          uuid.UUID `json:"user_id"`
	FingerprintHash string    `json:"fingerprint_hash"`
}

// Claims is the signed payload of either token kind.
type Claims[T any] struct {
	jwt.RegisteredClaims
	Data T `json:"data"`
}

// Codec signs and verifies one kind of token. The two kinds use distinct
// signing methods and claim shapes, so a validator for one rejects the other.
type Codec[T any] struct {
	secret []byte
	issuer string
	method jwt.SigningMethod
	ttl    time.Duration
}

// NewAccessCodec builds the HS256 codec for access tokens.
func NewAccessCodec(secret, issuer string, ttl time.Duration) *Codec[AccessPayload] {
	return &Codec[AccessPayload]{
		secret: []byte(secret),
		issuer: issuer,
		method: jwt.SigningMethodHS256,
		ttl:    ttl,
	}
}

// NewRefreshCodec builds the HS512 codec for refresh tokens.
func NewRefreshCodec(secret, issuer string, ttl time.Duration) *Codec[RefreshPayload] {
	return &Codec[RefreshPayload]{
		secret: []byte(secret),
		issuer: issuer,
		method: jwt.SigningMethodHS512,
		ttl:    ttl,
	}
}

// Generate signs a token for subject carrying payload.
func (c *Codec[T]) Generate(subject uuid.UUID, payload T) (string, error) {
	now := time.Now()
	claims := Claims[T]{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   subject.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		Data: payload,
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "token signing failed", err)
	}
	return signed, nil
}

// Validate parses and verifies tokenString, rejecting bad signatures, wrong
// algorithms, issuer mismatches and expired tokens.
func (c *Codec[T]) Validate(tokenString string) (*Claims[T], error) {
	claims := &Claims[T]{}
	tok, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthenticated, "invalid or expired token", err)
	}
	if !tok.Valid {
		return nil, apperr.Unauthenticated("invalid or expired token")
	}
	return claims, nil
}

// TTL exposes the configured lifetime, used to set cookie max-age.
func (c *Codec[T]) TTL() time.Duration { return c.ttl }
