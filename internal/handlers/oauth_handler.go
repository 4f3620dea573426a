package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/penmark-app/penmark-backend/internal/middleware"
	"github.com/penmark-app/penmark-backend/internal/services"
)

// oauthTransientCookieMaxAge bounds how long a login attempt's CSRF state
// and PKCE verifier stay valid.
const oauthTransientCookieMaxAge = 600

// OAuthHandler exposes the federation flow as browser-facing GET routes.
type OAuthHandler struct {
	oauth      *services.OAuthService
	issuer     *services.TokenIssuer
	cookieSalt string
}

func NewOAuthHandler(oauth *services.OAuthService, issuer *services.TokenIssuer, cookieSalt string) *OAuthHandler {
	return &OAuthHandler{oauth: oauth, issuer: issuer, cookieSalt: cookieSalt}
}

// Signup starts a provider login: stash state and verifier in cookies scoped
// to the callback path, then redirect to the provider.
func (h *OAuthHandler) Signup(c *fiber.Ctx) error {
	provider := c.Params("provider")
	redirect, err := h.oauth.Authorize(provider)
	if err != nil {
		return respondError(c, "oauth_authorize", err)
	}

	callbackPath := "/auth/" + provider + "/callback"
	c.Cookie(&fiber.Cookie{
		Name:     middleware.CookieOAuthState,
		Value:    redirect.State,
		Path:     callbackPath,
		MaxAge:   oauthTransientCookieMaxAge,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	c.Cookie(&fiber.Cookie{
		Name:     middleware.CookieOAuthVerifier,
		Value:    redirect.Verifier,
		Path:     callbackPath,
		MaxAge:   oauthTransientCookieMaxAge,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.Redirect(redirect.URL, fiber.StatusFound)
}

// Callback completes a provider login and establishes the session cookies.
func (h *OAuthHandler) Callback(c *fiber.Ctx) error {
	provider := c.Params("provider")
	storedState := c.Cookies(middleware.CookieOAuthState)
	verifier := c.Cookies(middleware.CookieOAuthVerifier)

	resp, err := h.oauth.Callback(c.UserContext(), provider,
		c.Query("code"), c.Query("state"), storedState, verifier)

	// One attempt per state/verifier pair, success or not.
	h.clearTransientCookies(c, provider)

	if err != nil {
		return respondError(c, "oauth_callback", err)
	}

	setSessionCookies(c, h.cookieSalt, h.issuer, resp)
	return c.JSON(resp)
}

func (h *OAuthHandler) clearTransientCookies(c *fiber.Ctx, provider string) {
	callbackPath := "/auth/" + provider + "/callback"
	for _, name := range []string{middleware.CookieOAuthState, middleware.CookieOAuthVerifier} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Path:     callbackPath,
			MaxAge:   -1,
			Expires:  time.Now().Add(-time.Hour),
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}
}
