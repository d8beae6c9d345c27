package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-assignment/internal/handler"
	"github.com/iliyamo/event-seat-assignment/internal/middleware"
)

// RegisterRoutes registers the probes.  db may be nil, in which case only
// the liveness probe is exposed.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health)
	if db != nil {
		e.GET("/readyz", handler.Ready(db))
	}
}

// RegisterAuth registers staff session routes.  Login, refresh and logout
// need no access token; /v1/me accepts any staff role.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN", "STAFF"),
	)
	auth.GET("/me", a.Me)
}

// RegisterPublic registers the unauthenticated registrant endpoints.  cache
// fronts the reads that change only on admin writes; pass nil to disable it.
func RegisterPublic(e *echo.Echo, r *handler.RegistrantHandler, s *handler.SettingsHandler, cache echo.MiddlewareFunc) {
	var cached []echo.MiddlewareFunc
	if cache != nil {
		cached = append(cached, cache)
	}

	g := e.Group("/v1")
	g.POST("/registrants", r.Register)
	g.GET("/registrants/count", r.Count)
	g.GET("/registrants/phone/:phone", r.Lookup)
	g.PUT("/registrants/phone/:phone/companion", r.SetCompanion)
	g.GET("/seats/:phone", r.Seat)

	g.GET("/settings/registration", s.GetRegistration, cached...)
	g.GET("/seat-config", s.GetSeatConfig, cached...)
}
