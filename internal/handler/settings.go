package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-assignment/internal/repository"
	"github.com/iliyamo/event-seat-assignment/internal/seating"
)

// SettingsHandler serves the registration switch and the seat group
// configuration.
type SettingsHandler struct {
	Settings SettingStore
	Catalog  seating.Catalog
	Purge    CachePurger
}

func NewSettingsHandler(s SettingStore, cat seating.Catalog, purge CachePurger) *SettingsHandler {
	return &SettingsHandler{Settings: s, Catalog: cat, Purge: purge}
}

type registrationReq struct {
	Open *bool `json:"open"`
}

type seatGroupsReq struct {
	Groups []string `json:"groups"`
}

// GetRegistration handles GET /v1/settings/registration.
func (h *SettingsHandler) GetRegistration(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	open, err := h.Settings.RegistrationOpen(ctx)
	if err != nil {
		return storeError(c, err, "load settings failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"open": open})
}

// SetRegistration handles PUT /v1/admin/settings/registration.
func (h *SettingsHandler) SetRegistration(c echo.Context) error {
	var req registrationReq
	if err := c.Bind(&req); err != nil || req.Open == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "open (bool) required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Settings.SetRegistrationOpen(ctx, *req.Open); err != nil {
		return storeError(c, err, "save settings failed")
	}
	h.Purge.purge(ctx)
	return c.JSON(http.StatusOK, echo.Map{"open": *req.Open})
}

// seatConfigView lists the active groups and their capacities.
type seatConfigView struct {
	ID              uint64         `json:"id,omitempty"`
	Groups          []string       `json:"groups"`
	Capacities      map[string]int `json:"capacities"`
	DefaultCapacity int            `json:"default_capacity"`
	TotalSeats      int            `json:"total_seats"`
	CreatedAt       *time.Time     `json:"created_at,omitempty"`
}

func (h *SettingsHandler) view(groups []string) seatConfigView {
	v := seatConfigView{
		Groups:          groups,
		Capacities:      make(map[string]int, len(groups)),
		DefaultCapacity: h.Catalog.DefaultCapacity,
	}
	for _, g := range groups {
		n := h.Catalog.CapacityOf(g)
		v.Capacities[g] = n
		v.TotalSeats += n
	}
	return v
}

// GetSeatConfig handles GET /v1/seat-config.  Without a saved
// configuration the response has no groups.
func (h *SettingsHandler) GetSeatConfig(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cfg, err := h.Settings.ActiveSeatGroups(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusOK, h.view([]string{}))
	}
	if err != nil {
		return storeError(c, err, "load seat config failed")
	}
	v := h.view(cfg.Groups)
	v.ID = cfg.ID
	v.CreatedAt = &cfg.CreatedAt
	return c.JSON(http.StatusOK, v)
}

// SaveSeatConfig handles POST /v1/admin/seat-config.
func (h *SettingsHandler) SaveSeatConfig(c echo.Context) error {
	var req seatGroupsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	groups, err := cleanGroups(req.Groups)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if len(groups) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "groups required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Settings.SaveSeatGroups(ctx, groups, actor(c))
	if err != nil {
		return storeError(c, err, "save seat config failed")
	}
	h.Purge.purge(ctx)
	v := h.view(groups)
	v.ID = id
	return c.JSON(http.StatusCreated, v)
}

// SeatConfigHistory handles GET /v1/admin/seat-config/history.
func (h *SettingsHandler) SeatConfigHistory(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Settings.SeatGroupHistory(ctx, queryInt(c, "limit", 10, 1, 100))
	if err != nil {
		return storeError(c, err, "load history failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// cleanGroups trims, upper-cases and de-duplicates group ids.  A hyphen
// would break label parsing, so it is rejected.
func cleanGroups(in []string) ([]string, error) {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, g := range in {
		g = strings.ToUpper(strings.TrimSpace(g))
		if g == "" {
			continue
		}
		if strings.ContainsAny(g, "- ") {
			return nil, fmt.Errorf("invalid seat group %q", g)
		}
		if !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	return out, nil
}
