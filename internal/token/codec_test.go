package token

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penmark-app/penmark-backend/internal/apperr"
)

const (
	testSecret = "unit-test-signing-secret"
	testIssuer = "penmark.test"
)

func TestAccessCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	codec := NewAccessCodec(testSecret, testIssuer, time.Minute)
	userID := uuid.New()
	payload := AccessPayload{
		UserID:   userID,
		Email:    "alice@x.com",
		Username: "alice",
		Image:    "https://cdn.penmark.app/u/alice.png",
		Role:     "user",
	}

	signed, err := codec.Generate(userID, payload)
	require.NoError(t, err)

	claims, err := codec.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, payload, claims.Data)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, testIssuer, claims.Issuer)
}

func TestRefreshCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	codec := NewRefreshCodec(testSecret, testIssuer, time.Hour)
	userID := uuid.New()
	payload := RefreshPayload{UserID: userID, FingerprintHash: "abc123"}

	signed, err := codec.Generate(userID, payload)
	require.NoError(t, err)

	claims, err := codec.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, payload, claims.Data)
}

func TestValidate_Expired(t *testing.T) {
	t.Parallel()

	codec := NewAccessCodec(testSecret, testIssuer, -time.Second)
	userID := uuid.New()
	signed, err := codec.Generate(userID, AccessPayload{UserID: userID})
	require.NoError(t, err)

	_, err = codec.Validate(signed)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}

func TestValidate_TamperedSignature(t *testing.T) {
	t.Parallel()

	codec := NewAccessCodec(testSecret, testIssuer, time.Minute)
	userID := uuid.New()
	signed, err := codec.Generate(userID, AccessPayload{UserID: userID, Username: "alice"})
	require.NoError(t, err)

	// Flip one character in the middle of the signature segment.
	pos := len(signed) - 2
	replacement := byte('A')
	if signed[pos] == replacement {
		replacement = 'B'
	}
	tampered := signed[:pos] + string(replacement) + signed[pos+1:]

	_, err = codec.Validate(tampered)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}

func TestValidate_RejectsOtherTokenKind(t *testing.T) {
	t.Parallel()

	access := NewAccessCodec(testSecret, testIssuer, time.Minute)
	refresh := NewRefreshCodec(testSecret, testIssuer, time.Hour)
	userID := uuid.New()

	accessToken, err := access.Generate(userID, AccessPayload{UserID: userID})
	require.NoError(t, err)
	refreshToken, err := refresh.Generate(userID, RefreshPayload{UserID: userID, FingerprintHash: "fp"})
	require.NoError(t, err)

	_, err = access.Validate(refreshToken)
	assert.Error(t, err, "access codec must reject HS512 refresh tokens")

	_, err = refresh.Validate(accessToken)
	assert.Error(t, err, "refresh codec must reject HS256 access tokens")
}

func TestValidate_IssuerMismatch(t *testing.T) {
	t.Parallel()

	signer := NewAccessCodec(testSecret, "other.host", time.Minute)
	verifier := NewAccessCodec(testSecret, testIssuer, time.Minute)
	userID := uuid.New()

	signed, err := signer.Generate(userID, AccessPayload{UserID: userID})
	require.NoError(t, err)

	_, err = verifier.Validate(signed)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}

func TestValidate_Malformed(t *testing.T) {
	t.Parallel()

	codec := NewAccessCodec(testSecret, testIssuer, time.Minute)
	_, err := codec.Validate("not.a.jwt")
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
	assert.False(t, strings.Contains(apperr.PublicMessage(err), "jwt"), "public message must not leak parser details")
}
