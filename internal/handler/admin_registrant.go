package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-assignment/internal/repository"
)

// AdminRegistrantHandler lists registrants and edits payment and deletion
// state.
type AdminRegistrantHandler struct {
	Registrants RegistrantStore
	Purge       CachePurger
}

func NewAdminRegistrantHandler(r RegistrantStore, purge CachePurger) *AdminRegistrantHandler {
	return &AdminRegistrantHandler{Registrants: r, Purge: purge}
}

type paidReq struct {
	IsPaid *bool `json:"is_paid"`
}

// List handles GET /v1/admin/registrants?q=&paid=&seated=&include_deleted=.
func (h *AdminRegistrantHandler) List(c echo.Context) error {
	f := repository.ListFilter{
		Query:  strings.TrimSpace(c.QueryParam("q")),
		Paid:   queryBool(c, "paid"),
		Seated: queryBool(c, "seated"),
	}
	if b := queryBool(c, "include_deleted"); b != nil {
		f.IncludeDeleted = *b
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Registrants.List(ctx, f)
	if err != nil {
		return storeError(c, err, "list failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "total": len(items)})
}

// Get handles GET /v1/admin/registrants/:id.
func (h *AdminRegistrantHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	reg, err := h.Registrants.GetByID(ctx, id)
	if err != nil {
		return storeError(c, err, "load failed")
	}
	return c.JSON(http.StatusOK, reg)
}

// SetPaid handles PATCH /v1/admin/registrants/:id/payment.
func (h *AdminRegistrantHandler) SetPaid(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req paidReq
	if err := c.Bind(&req); err != nil || req.IsPaid == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "is_paid (bool) required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Registrants.SetPaid(ctx, id, *req.IsPaid); err != nil {
		return storeError(c, err, "update payment failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "is_paid": *req.IsPaid})
}

// Delete handles DELETE /v1/admin/registrants/:id.  The row is kept and
// its seats are released.
func (h *AdminRegistrantHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Registrants.SoftDelete(ctx, id); err != nil {
		return storeError(c, err, "delete failed")
	}
	h.Purge.purge(ctx)
	return c.NoContent(http.StatusNoContent)
}

// Restore handles POST /v1/admin/registrants/:id/restore.
func (h *AdminRegistrantHandler) Restore(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Registrants.Restore(ctx, id); err != nil {
		return storeError(c, err, "restore failed")
	}
	h.Purge.purge(ctx)
	return c.JSON(http.StatusOK, echo.Map{"success": true, "id": id})
}
