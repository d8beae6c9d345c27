package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-assignment/internal/handler"
	"github.com/iliyamo/event-seat-assignment/internal/middleware"
)

// RegisterMailbox registers the inquiry and story forms and their ADMIN
// views.  limit, when non-nil, throttles the two public submit endpoints.
func RegisterMailbox(e *echo.Echo, h *handler.MailboxHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	var submit []echo.MiddlewareFunc
	if limit != nil {
		submit = append(submit, limit)
	}

	pub := e.Group("/v1")
	pub.POST("/inquiries", h.CreateInquiry, submit...)
	pub.GET("/inquiries/phone/:phone", h.InquiriesByPhone)
	pub.POST("/stories", h.CreateStory, submit...)

	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)
	g.GET("/inquiries", h.ListInquiries)
	g.PUT("/inquiries/:id/answer", h.AnswerInquiry)
	g.DELETE("/inquiries/:id", h.DeleteInquiry)

	g.GET("/stories", h.ListStories)
	g.GET("/stories/stats", h.StoryStats)
	g.PUT("/stories/:id/read", h.MarkStoryRead)
	g.DELETE("/stories/:id", h.DeleteStory)
}
