package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/penmark-app/penmark-backend/internal/apperr"
	"github.com/penmark-app/penmark-backend/internal/database"
	"github.com/penmark-app/penmark-backend/internal/dto"
	"github.com/penmark-app/penmark-backend/internal/models"
	"github.com/penmark-app/penmark-backend/internal/password"
)

// AuthService implements the first-party credential and refresh flows.
type AuthService struct {
	db     *gorm.DB
	hasher *password.Hasher
	issuer *TokenIssuer
}

func NewAuthService(db *gorm.DB, hasher *password.Hasher, issuer *TokenIssuer) *AuthService {
	return &AuthService{db: db, hasher: hasher, issuer: issuer}
}

// Signup creates a user plus its credentials account in one transaction and
// mints the credential triple. Uniqueness is enforced by the storage layer,
// not by a pre-check.
func (s *AuthService) Signup(ctx context.Context, username, email, pass string) (*dto.TokenResponse, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" {
		return nil, apperr.Validation("username and email are required")
	}
	if len(pass) < 8 {
		return nil, apperr.Validation("password must be at least 8 characters")
	}

	// Hash before the transaction opens so no connection is held across
	// the CPU-bound work.
	digest, salt, err := s.hasher.Hash(pass)
	if err != nil {
		return nil, err
	}

	user := models.User{
		ID:       uuid.New(),
		Username: username,
		Email:    email,
		Role:     "user",
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return database.MapError(err)
		}
		account := models.Account{
			ID:                uuid.New(),
			UserID:            user.ID,
			Provider:          models.ProviderCredentials,
			ProviderAccountID: user.ID.String(),
			PasswordHash:      &digest,
			PasswordSalt:      &salt,
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

// Signin verifies first-party credentials and mints the credential triple.
// The read transaction is closed before password verification begins.
func (s *AuthService) Signin(ctx context.Context, email, pass string) (*dto.TokenResponse, error) {
	email = strings.TrimSpace(email)
	if email == "" || pass == "" {
		return nil, apperr.Validation("email and password are required")
	}

	var user models.User
	var account models.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ?", email).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("no account exists with this email address")
			}
			return database.MapError(err)
		}
		err := tx.Where("user_id = ? AND provider = ?", user.ID, models.ProviderCredentials).
			First(&account).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// The user exists but signed up through a third-party
				// provider.
				return apperr.Unauthenticated("another account already exists with this email address")
			}
			return database.MapError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if account.PasswordHash == nil || account.PasswordSalt == nil {
		return nil, apperr.Unauthenticated("another account already exists with this email address")
	}

	ok, err := s.hasher.Verify(pass, *account.PasswordHash, *account.PasswordSalt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Unauthenticated("invalid credentials")
	}

	return s.issuer.Issue(&user)
}

// Refresh exchanges a valid refresh token plus its raw fingerprint for a new
// access token. The refresh token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, fingerprint string) (*dto.AccessTokenResponse, error) {
	if refreshToken == "" || fingerprint == "" {
		return nil, apperr.Validation("refresh token and fingerprint are required")
	}

	claims, err := s.issuer.ParseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	if !s.issuer.VerifyFingerprint(fingerprint, claims.Data.FingerprintHash) {
		return nil, apperr.Unauthenticated("invalid or expired token")
	}

	user, err := s.UserByID(ctx, claims.Data.UserID)
	if err != nil {
		return nil, err
	}

	access, err := s.issuer.AccessToken(user)
	if err != nil {
		return nil, err
	}
	return &dto.AccessTokenResponse{AccessToken: access}, nil
}

// UserByID resolves a live (non-deleted) user, used by the refresh flow and
// the request authenticator for the authoritative re-check.
func (s *AuthService) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, database.MapError(err)
	}
	return &user, nil
}
