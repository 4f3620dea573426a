package services

import (
	"github.com/penmark-app/penmark-backend/internal/apperr"
	"github.com/penmark-app/penmark-backend/internal/config"
	"github.com/penmark-app/penmark-backend/internal/dto"
	"github.com/penmark-app/penmark-backend/internal/models"
	"github.com/penmark-app/penmark-backend/internal/token"
)

// TokenIssuer mints the access/refresh/fingerprint triple. Both auth flows
// and the refresh flow share one issuer.
type TokenIssuer struct {
	access       *token.Codec[token.AccessPayload]
	refresh      *token.Codec[token.RefreshPayload]
	fingerprints *token.Fingerprinter
}

func NewTokenIssuer(cfg *config.Config) (*TokenIssuer, error) {
	if cfg.JWTSecret == "" {
		return nil, apperr.New(apperr.KindInternal, "jwt secret is not configured")
	}
	fp, err := token.NewFingerprinter(cfg.FingerprintSecret)
	if err != nil {
		return nil, err
	}
	return &TokenIssuer{
		access:       token.NewAccessCodec(cfg.JWTSecret, cfg.Issuer, cfg.AccessTokenTTL),
		refresh:      token.NewRefreshCodec(cfg.JWTSecret, cfg.Issuer, cfg.RefreshTokenTTL),
		fingerprints: fp,
	}, nil
}

// Issue mints a full credential triple for user.
func (i *TokenIssuer) Issue(user *models.User) (*dto.TokenResponse, error) {
	raw, hash, err := i.fingerprints.Generate()
	if err != nil {
		return nil, err
	}

	access, err := i.access.Generate(user.ID, snapshot(user))
	if err != nil {
		return nil, err
	}

	refresh, err := i.refresh.Generate(user.ID, token.RefreshPayload{
		UserID:          user.ID,
		FingerprintHash: hash,
	})
	if err != nil {
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		Fingerprint:  raw,
	}, nil
}

// AccessToken mints a standalone access token, used by the refresh flow.
func (i *TokenIssuer) AccessToken(user *models.User) (string, error) {
	return i.access.Generate(user.ID, snapshot(user))
}

// ParseAccess validates an inbound access token.
func (i *TokenIssuer) ParseAccess(tokenString string) (*token.Claims[token.AccessPayload], error) {
	return i.access.Validate(tokenString)
}

// ParseRefresh validates an inbound refresh token.
func (i *TokenIssuer) ParseRefresh(tokenString string) (*token.Claims[token.RefreshPayload], error) {
	return i.refresh.Validate(tokenString)
}

// VerifyFingerprint checks a raw client fingerprint against the hash carried
// in refresh claims.
func (i *TokenIssuer) VerifyFingerprint(raw, expectedHash string) bool {
	return i.fingerprints.Verify(raw, expectedHash)
}

// AccessTTL and RefreshTTL feed cookie max-age in the browser binding.
func (i *TokenIssuer) AccessTTL() int  { return int(i.access.TTL().Seconds()) }
func (i *TokenIssuer) RefreshTTL() int { return int(i.refresh.TTL().Seconds()) }

func snapshot(user *models.User) token.AccessPayload {
	return token.AccessPayload{
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
		Image:    user.Image,
		Role:     user.Role,
	}
}
