package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/penmark-app/penmark-backend/internal/apperr"
	"github.com/penmark-app/penmark-backend/internal/database"
	"github.com/penmark-app/penmark-backend/internal/dto"
	"github.com/penmark-app/penmark-backend/internal/models"
	oauthpkg "github.com/penmark-app/penmark-backend/internal/oauth"
)

// OAuthService implements the federation flow: authorization redirect,
// callback validation, code exchange, profile normalization, account
// resolution and token issuance.
type OAuthService struct {
	db        *gorm.DB
	providers *oauthpkg.Registry
	issuer    *TokenIssuer
}

func NewOAuthService(db *gorm.DB, providers *oauthpkg.Registry, issuer *TokenIssuer) *OAuthService {
	return &OAuthService{db: db, providers: providers, issuer: issuer}
}

// AuthorizationRedirect carries the provider URL plus the two values the
// caller must stash client-side for the callback.
type AuthorizationRedirect struct {
	URL      string
	State    string
	Verifier string
}

// Authorize starts a login attempt: fresh CSRF state, fresh PKCE verifier,
// provider authorization URL.
func (s *OAuthService) Authorize(providerName string) (*AuthorizationRedirect, error) {
	provider, err := s.providers.Get(providerName)
	if err != nil {
		return nil, err
	}

	state, err := oauthpkg.GenerateState()
	if err != nil {
		return nil, err
	}
	verifier := oauthpkg.GenerateVerifier()

	return &AuthorizationRedirect{
		URL:      provider.AuthCodeURL(state, verifier),
		State:    state,
		Verifier: verifier,
	}, nil
}

// Callback completes a login attempt. The state comparison happens before
// any network call to the provider. The storage transaction opens only after
// the exchange and profile fetch have finished.
func (s *OAuthService) Callback(ctx context.Context, providerName, code, state, storedState, verifier string) (*dto.TokenResponse, error) {
	if storedState == "" || state == "" || state != storedState {
		return nil, apperr.Validation("oauth state mismatch")
	}
	if code == "" || verifier == "" {
		return nil, apperr.Validation("missing oauth code or verifier")
	}

	provider, err := s.providers.Get(providerName)
	if err != nil {
		return nil, err
	}

	providerToken, err := provider.Exchange(ctx, code, verifier)
	if err != nil {
		return nil, err
	}

	profile, err := provider.FetchProfile(ctx, providerToken)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account models.Account
		err := tx.Where("provider = ? AND provider_account_id = ?", provider.Name(), profile.ProviderAccountID).
			First(&account).Error
		if err == nil {
			if err := tx.First(&user, "id = ?", account.UserID).Error; err != nil {
				return database.MapError(err)
			}
			return s.applyProviderToken(tx, &account, providerToken, profile)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return database.MapError(err)
		}

		// First login for this provider identity: create the user and
		// link the account atomically.
		username, err := uniqueUsername(tx, usernameFromProfile(profile))
		if err != nil {
			return err
		}
		now := time.Now()
		user = models.User{
			ID:            uuid.New(),
			Username:      username,
			Email:         profile.Email,
			EmailVerified: &now,
			Image:         profile.Image,
			Role:          "user",
		}
		if err := tx.Create(&user).Error; err != nil {
			if database.IsEmailConflict(err) {
				// Never silently link to a pre-existing user on an
				// email collision; the provider's email claim is not
				// trusted for takeover of an existing account.
				return apperr.Conflict("another account already exists with this email address")
			}
			return database.MapError(err)
		}

		account = models.Account{
			ID:                uuid.New(),
			UserID:            user.ID,
			Provider:          provider.Name(),
			ProviderAccountID: profile.ProviderAccountID,
		}
		if err := setProviderFields(&account, providerToken, profile); err != nil {
			return err
		}
		if err := tx.Create(&account).Error; err != nil {
			return database.MapError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.issuer.Issue(&user)
}

// applyProviderToken refreshes the stored provider tokens on re-login.
func (s *OAuthService) applyProviderToken(tx *gorm.DB, account *models.Account, tok *oauth2.Token, profile *oauthpkg.Profile) error {
	if err := setProviderFields(account, tok, profile); err != nil {
		return err
	}
	if err := tx.Save(account).Error; err != nil {
		return database.MapError(err)
	}
	return nil
}

func setProviderFields(account *models.Account, tok *oauth2.Token, profile *oauthpkg.Profile) error {
	account.AccessToken = &tok.AccessToken
	if tok.RefreshToken != "" {
		account.RefreshToken = &tok.RefreshToken
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry
		account.ExpiresAt = &expiry
	}
	if tok.TokenType != "" {
		tokenType := tok.TokenType
		account.TokenType = &tokenType
	}
	if scope, ok := tok.Extra("scope").(string); ok && scope != "" {
		account.Scope = &scope
	}

	raw, err := json.Marshal(profile)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "profile snapshot encoding failed", err)
	}
	account.Profile = datatypes.JSON(raw)
	return nil
}

const usernameSuffixLimit = 50

// uniqueUsername returns base, or the first "base-N" not yet taken. The
// check runs unscoped: soft-deleted users still occupy the unique index.
func uniqueUsername(tx *gorm.DB, base string) (string, error) {
	candidate := base
	for i := 2; i <= usernameSuffixLimit; i++ {
		var n int64
		err := tx.Unscoped().Model(&models.User{}).Where("username = ?", candidate).Count(&n).Error
		if err != nil {
			return "", database.MapError(err)
		}
		if n == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return fmt.Sprintf("%s-%s", base, uuid.New().String()[:8]), nil
}

func usernameFromProfile(profile *oauthpkg.Profile) string {
	name := strings.ToLower(strings.TrimSpace(profile.Name))
	name = strings.ReplaceAll(name, " ", "-")
	if name == "" || name == profile.Email {
		if at := strings.Index(profile.Email, "@"); at > 0 {
			return profile.Email[:at]
		}
	}
	return name
}
