package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/penmark-app/penmark-backend/internal/handlers"
)

func Setup(
	app *fiber.App,
	authHandler *handlers.AuthHandler,
	oauthHandler *handlers.OAuthHandler,
	healthHandler *handlers.HealthHandler,
	authenticated fiber.Handler,
) {
	api := app.Group("/api")

	api.Get("/health", healthHandler.Check)

	// Auth — public JSON binding
	auth := api.Group("/auth")
	auth.Post("/signup", authHandler.Signup)
	auth.Post("/signin", authHandler.Signin)
	auth.Post("/refresh", authHandler.Refresh)
	auth.Post("/verify-email", authHandler.VerifyEmail)

	// Protected routes - apply middleware to individual routes so it
	// never affects the public ones
	api.Get("/auth/me", authenticated, authHandler.Me)

	// Browser-facing federation binding, one GET pair per provider
	app.Get("/auth/:provider/signup", oauthHandler.Signup)
	app.Get("/auth/:provider/callback", oauthHandler.Callback)
}
