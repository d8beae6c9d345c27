package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-assignment/internal/handler"
	"github.com/iliyamo/event-seat-assignment/internal/middleware"
)

// AdminHandlers groups the handlers mounted under /v1/admin.
type AdminHandlers struct {
	Auth        *handler.AuthHandler
	Registrants *handler.AdminRegistrantHandler
	Seats       *handler.AdminSeatHandler
	Settings    *handler.SettingsHandler
}

// RegisterAdmin registers ADMIN-scoped endpoints under /v1/admin.
func RegisterAdmin(e *echo.Echo, h AdminHandlers, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)

	// ---- Staff ----
	g.GET("/users", h.Auth.ListUsers)
	g.POST("/users", h.Auth.CreateUser)
	g.PATCH("/users/:id", h.Auth.SetUserActive)

	// ---- Registrants ----
	g.GET("/registrants", h.Registrants.List)
	g.GET("/registrants/:id", h.Registrants.Get)
	g.PATCH("/registrants/:id/payment", h.Registrants.SetPaid)
	g.DELETE("/registrants/:id", h.Registrants.Delete)
	g.POST("/registrants/:id/restore", h.Registrants.Restore)
	g.PUT("/registrants/:id/seat", h.Seats.AssignSeat)
	g.DELETE("/registrants/:id/seat", h.Seats.ClearSeat)

	// ---- Seat runs ----
	g.POST("/seats/random", h.Seats.AssignRandom)
	g.POST("/seats/priority", h.Seats.AssignPriority)
	g.POST("/seats/reset", h.Seats.ResetSeats)
	g.POST("/seats/reset-with-payment", h.Seats.ResetSeatsAndPayment)
	g.GET("/seats/map", h.Seats.SeatMap)

	// ---- Settings ----
	g.PUT("/settings/registration", h.Settings.SetRegistration)
	g.POST("/seat-config", h.Settings.SaveSeatConfig)
	g.GET("/seat-config/history", h.Settings.SeatConfigHistory)
}
