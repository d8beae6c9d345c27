package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-assignment/internal/handler"
	"github.com/iliyamo/event-seat-assignment/internal/middleware"
)

// RegisterCheckin registers the door endpoints under /v1/admin/checkin.
// ADMIN and STAFF may both scan.  limit, when non-nil, throttles the scan
// endpoint only.
func RegisterCheckin(e *echo.Echo, h *handler.CheckinHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1/admin/checkin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN", "STAFF"),
	)

	var scan []echo.MiddlewareFunc
	if limit != nil {
		scan = append(scan, limit)
	}

	g.GET("/stats", h.Stats)
	g.GET("/lists", h.ListLists)
	g.POST("/lists", h.CreateList)
	g.GET("/lists/:id", h.GetList)
	g.PUT("/lists/:id", h.UpdateList)
	g.DELETE("/lists/:id", h.DeleteList)
	g.POST("/lists/:id/checkin", h.CheckIn, scan...)
	g.GET("/lists/:id/stats", h.ListStats)
	g.GET("/lists/:id/records", h.Records)
	g.DELETE("/lists/:id/records/:recordId", h.CancelRecord)
}
