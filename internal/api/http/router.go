package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/diet-tracker/internal/api/http/handlers"
	"github.com/spec-kit/diet-tracker/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	APIPrefix      string
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        http.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	api := app.Group(cfg.APIPrefix)
	api.Post("/login", cfg.Users.Login)
	api.Get("/logout", cfg.Users.Logout)
	api.Get("/refresh-token", cfg.Users.RefreshToken)
	api.Post("/register", cfg.Users.Register)
	api.Post("/resend-activation", cfg.Users.ResendActivation)
	api.Post("/account-activate", cfg.Users.Activate)
	api.Post("/forgot-password", cfg.Users.ForgotPassword)
	api.Post("/reset-password", cfg.Users.ResetPassword)

	api.Get("/get-user", cfg.AuthMiddleware.Handle, cfg.Users.GetUser)
	api.Put("/update-profile", cfg.AuthMiddleware.Handle, cfg.Users.UpdateProfile)
}
