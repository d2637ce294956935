// Package router wires routes to handlers and fixes the middleware order:
// rate governor first (floods are throttled before any token is decoded),
// then the session gate, then role and tenant checks, then the handler.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-order-platform/internal/auth"
	"github.com/iliyamo/restaurant-order-platform/internal/config"
	"github.com/iliyamo/restaurant-order-platform/internal/handler"
	"github.com/iliyamo/restaurant-order-platform/internal/middleware"
	"github.com/iliyamo/restaurant-order-platform/internal/model"
)

// Deps carries everything route registration needs. All fields are required.
type Deps struct {
	Cfg         config.Config
	Limits      config.RateLimitConfig
	Governor    *auth.Governor
	Codec       *auth.Codec
	Ledger      *auth.RevocationLedger
	Users       middleware.PrincipalLoader
	Auth        *handler.AuthHandler
	Restaurants *handler.RestaurantHandler
	Staff       *handler.StaffHandler
	Tables      *handler.TableHandler
}

// Register mounts every route on the provided Echo instance.
func Register(e *echo.Echo, d Deps) {
	rate := func(scope string, rl config.RateLimit) echo.MiddlewareFunc {
		return middleware.RateLimit(d.Governor, scope, rl, d.Cfg.StoreTimeout)
	}
	gate := middleware.SessionAuth(d.Codec, d.Ledger, d.Cfg.StoreTimeout)

	// Global ceiling on all traffic regardless of identity.
	e.Use(rate("global", d.Limits.Global))

	e.GET("/healthz", handler.Health)

	// Unauthenticated auth flows. The sensitive ones get their own tight
	// quotas on top of the global ceiling.
	g := e.Group("/v1/auth")
	g.POST("/register", d.Auth.Register, rate("register", d.Limits.Register))
	g.POST("/login", d.Auth.Login, rate("login", d.Limits.Login))
	g.POST("/verify-email/link", d.Auth.VerifyEmailLink)
	g.POST("/verify-email", d.Auth.VerifyEmail)
	g.POST("/password-reset/request", d.Auth.RequestPasswordReset, rate("reset", d.Limits.Reset))
	g.POST("/password-reset/confirm", d.Auth.ConfirmPasswordReset)
	g.POST("/logout", d.Auth.Logout, gate)

	// Any authenticated principal.
	authed := e.Group("/v1", gate)
	authed.GET("/me", d.Auth.Me)

	// Tenant onboarding: platform operators only.
	e.POST("/v1/restaurants", d.Restaurants.Onboard,
		gate, middleware.RequireRole(model.RoleDeveloper), rate("onboard", d.Limits.Onboard))
	e.GET("/v1/restaurants", d.Restaurants.List,
		gate, middleware.RequireRole(model.RoleDeveloper))

	// Tenant-scoped management: the restaurant in the path must be the
	// caller's own unless the caller is a DEVELOPER.
	tenant := e.Group("/v1/restaurants/:id",
		gate,
		middleware.RequireRole(model.RoleAdmin, model.RoleDeveloper),
		middleware.RequireTenant(d.Users, d.Cfg.StoreTimeout),
	)
	tenant.POST("/staff", d.Staff.Create, rate("staff", d.Limits.Staff))
	tenant.GET("/staff", d.Staff.List)
	tenant.DELETE("/staff/:staff_id", d.Staff.Delete)
	tenant.POST("/tables", d.Tables.Create)
	tenant.GET("/tables", d.Tables.List)
	tenant.DELETE("/tables/:table_id", d.Tables.Delete)
}
