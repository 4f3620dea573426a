package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/penmark-app/penmark-backend/internal/apperr"
	"github.com/penmark-app/penmark-backend/internal/dto"
	"github.com/penmark-app/penmark-backend/internal/models"
	"github.com/penmark-app/penmark-backend/internal/services"
)

// Cookie names shared by the browser binding and the authenticator.
const (
	CookieAccessToken   = "penmark_access"
	CookieRefreshToken  = "penmark_refresh"
	CookieFingerprint   = "penmark_fingerprint"
	CookieOAuthState    = "oauth_state"
	CookieOAuthVerifier = "oauth_verifier"
)

const localsUserKey = "currentUser"

// SaltCookieValue formats a token for cookie transport.
func SaltCookieValue(salt, token string) string {
	return salt + "." + token
}

// StripCookieSalt undoes SaltCookieValue. The bool is false when the prefix
// is absent.
func StripCookieSalt(salt, value string) (string, bool) {
	return strings.CutPrefix(value, salt+".")
}

// Authenticated validates the inbound access token and re-fetches its user
// from storage, so tokens of deleted users stop working before expiry.
func Authenticated(cookieSalt string, issuer *services.TokenIssuer, auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := extractAccessToken(c, cookieSalt)
		if err != nil {
			return reject(c, err)
		}

		claims, err := issuer.ParseAccess(raw)
		if err != nil {
			return reject(c, err)
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			return reject(c, apperr.Unauthenticated("invalid or expired token"))
		}

		user, err := auth.UserByID(c.UserContext(), userID)
		if err != nil {
			return reject(c, err)
		}

		c.Locals(localsUserKey, user)
		return c.Next()
	}
}

// CurrentUser returns the identity attached by Authenticated.
func CurrentUser(c *fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals(localsUserKey).(*models.User)
	return user, ok
}

// RequireAdmin gates a route on the admin role. It must run after
// Authenticated.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok {
			return reject(c, apperr.Unauthenticated("authentication required"))
		}
		if user.Role != "admin" {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: "Admin access required",
			})
		}
		return c.Next()
	}
}

func extractAccessToken(c *fiber.Ctx, cookieSalt string) (string, error) {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return "", apperr.Validation("malformed authorization header")
		}
		return token, nil
	}

	cookie := c.Cookies(CookieAccessToken)
	if cookie == "" {
		return "", apperr.Unauthenticated("authentication required")
	}
	token, ok := StripCookieSalt(cookieSalt, cookie)
	if !ok || token == "" {
		return "", apperr.Validation("malformed access token cookie")
	}
	return token, nil
}

func reject(c *fiber.Ctx, err error) error {
	return c.Status(apperr.HTTPStatus(err)).JSON(dto.ErrorResponse{
		Error: true, Message: apperr.PublicMessage(err),
	})
}
