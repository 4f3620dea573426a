package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/penmark-app/penmark-backend/internal/apperr"
	"github.com/penmark-app/penmark-backend/internal/dto"
	"github.com/penmark-app/penmark-backend/internal/middleware"
	"github.com/penmark-app/penmark-backend/internal/services"
)

// AuthHandler exposes the credential and refresh flows as the JSON API
// binding.
type AuthHandler struct {
	auth       *services.AuthService
	issuer     *services.TokenIssuer
	cookieSalt string
}

func NewAuthHandler(auth *services.AuthService, issuer *services.TokenIssuer, cookieSalt string) *AuthHandler {
	return &AuthHandler{auth: auth, issuer: issuer, cookieSalt: cookieSalt}
}

func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.auth.Signup(c.UserContext(), req.Username, req.Email, req.Password)
	if err != nil {
		return respondError(c, "signup", err)
	}

	setSessionCookies(c, h.cookieSalt, h.issuer, resp)
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *AuthHandler) Signin(c *fiber.Ctx) error {
	var req dto.SigninRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.auth.Signin(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, "signin", err)
	}

	setSessionCookies(c, h.cookieSalt, h.issuer, resp)
	return c.JSON(resp)
}

// Refresh accepts the refresh token and fingerprint either in the JSON body
// (API clients) or in their respective cookies (browser clients).
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return badRequest(c, "Invalid request body")
	}

	if req.RefreshToken == "" {
		if cookie := c.Cookies(middleware.CookieRefreshToken); cookie != "" {
			token, ok := middleware.StripCookieSalt(h.cookieSalt, cookie)
			if !ok {
				return badRequest(c, "Malformed refresh token cookie")
			}
			req.RefreshToken = token
		}
	}
	if req.Fingerprint == "" {
		req.Fingerprint = c.Cookies(middleware.CookieFingerprint)
	}

	resp, err := h.auth.Refresh(c.UserContext(), req.RefreshToken, req.Fingerprint)
	if err != nil {
		return respondError(c, "refresh", err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.CookieAccessToken,
		Value:    middleware.SaltCookieValue(h.cookieSalt, resp.AccessToken),
		MaxAge:   h.issuer.AccessTTL(),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(resp)
}

// VerifyEmail is part of the API surface but not implemented yet.
func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotImplemented).JSON(dto.ErrorResponse{
		Error: true, Message: "Email verification is not implemented",
	})
}

// Me returns the authenticated user's snapshot.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}
	return c.JSON(dto.UserResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Image:    user.Image,
		Role:     user.Role,
	})
}

// setSessionCookies mirrors the token triple into the browser binding's
// cookies. The fingerprint travels in its own cookie, separate from the
// refresh token.
func setSessionCookies(c *fiber.Ctx, salt string, issuer *services.TokenIssuer, resp *dto.TokenResponse) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.CookieAccessToken,
		Value:    middleware.SaltCookieValue(salt, resp.AccessToken),
		MaxAge:   issuer.AccessTTL(),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	c.Cookie(&fiber.Cookie{
		Name:     middleware.CookieRefreshToken,
		Value:    middleware.SaltCookieValue(salt, resp.RefreshToken),
		MaxAge:   issuer.RefreshTTL(),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	c.Cookie(&fiber.Cookie{
		Name:     middleware.CookieFingerprint,
		Value:    resp.Fingerprint,
		MaxAge:   issuer.RefreshTTL(),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Message: message,
	})
}

func respondError(c *fiber.Ctx, action string, err error) error {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal || kind == apperr.KindUnavailable {
		slog.Error("auth flow failed", "action", action, "path", c.Path(), "error", err.Error())
	}
	return c.Status(apperr.HTTPStatus(err)).JSON(dto.ErrorResponse{
		Error: true, Message: apperr.PublicMessage(err),
	})
}
