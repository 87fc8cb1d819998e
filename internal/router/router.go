// Package router registers the HTTP routes of the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/drop-waitlist/internal/handler"
	"github.com/iliyamo/drop-waitlist/internal/middleware"
	"github.com/iliyamo/drop-waitlist/internal/model"
)

// RegisterRoutes registers the unauthenticated health check.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers /v1/auth and the authenticated profile routes.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout, middleware.JWTAuth(jwtSecret))

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleUser, model.RoleAdmin))
	auth.GET("/me", a.Me)
}

// DropMiddleware carries the optional Redis-backed middleware for the
// drop routes.  Nil entries are skipped.
type DropMiddleware struct {
	Cache     echo.MiddlewareFunc
	RateLimit echo.MiddlewareFunc
}

// RegisterDrops registers browse routes (public, cached) and the
// waitlist and claim routes (authenticated, rate limited).  Admins may
// read status but not join, leave or claim.
func RegisterDrops(e *echo.Echo, h *handler.DropHandler, jwtSecret string, mw DropMiddleware) {
	browse := e.Group("/v1/drops")
	if mw.Cache != nil {
		browse.Use(mw.Cache)
	}
	browse.GET("", h.ListActive)
	browse.GET("/:id", h.Get)

	member := e.Group("/v1/drops/:id", middleware.JWTAuth(jwtSecret))
	if mw.RateLimit != nil {
		member.Use(mw.RateLimit)
	}
	member.GET("/waitlist-status", h.Status, middleware.RequireRole(model.RoleUser, model.RoleAdmin))

	users := middleware.DenyRole(model.RoleAdmin)
	member.POST("/join", h.Join, users)
	member.POST("/leave", h.Leave, users)
	member.POST("/claim", h.Claim, users)
}
