package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-assignment/internal/repository"
	"github.com/iliyamo/event-seat-assignment/internal/seating"
	"github.com/iliyamo/event-seat-assignment/internal/service"
)

// Error codes returned alongside "insufficient seats".
const (
	CodeInsufficientSeats = "INSUFFICIENT_SEATS"
	CodePairingExhausted  = "PAIRING_EXHAUSTED"
)

// AdminSeatHandler runs assignment and maintains individual seats.
type AdminSeatHandler struct {
	Assigner Assigner
	Seats    SeatStore
	Settings SettingStore
}

func NewAdminSeatHandler(a Assigner, s SeatStore, st SettingStore) *AdminSeatHandler {
	return &AdminSeatHandler{Assigner: a, Seats: s, Settings: st}
}

// assignReq is the body of both run endpoints.  rowsPerGroup and
// seatsPerRow come from the old row-based layout; they are accepted and
// ignored.
type assignReq struct {
	Groups       []string `json:"groups"`
	RowsPerGroup *int     `json:"rowsPerGroup,omitempty"`
	SeatsPerRow  *int     `json:"seatsPerRow,omitempty"`
	Seed         *uint64  `json:"seed,omitempty"`
	DryRun       bool     `json:"dry_run"`
}

type confirmReq struct {
	Confirm string `json:"confirm"`
}

type manualSeatReq struct {
	Seat string `json:"seat"`
	Slot int    `json:"slot"`
}

// AssignRandom handles POST /v1/admin/seats/random.
func (h *AdminSeatHandler) AssignRandom(c echo.Context) error {
	return h.assign(c, seating.PolicyRandom)
}

// AssignPriority handles POST /v1/admin/seats/priority.
func (h *AdminSeatHandler) AssignPriority(c echo.Context) error {
	return h.assign(c, seating.PolicyPriority)
}

func (h *AdminSeatHandler) assign(c echo.Context, policy seating.Policy) error {
	var req assignReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	groups, err := cleanGroups(req.Groups)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if len(groups) == 0 {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		cfg, err := h.Settings.ActiveSeatGroups(ctx)
		cancel()
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return storeError(c, err, "load seat config failed")
		}
		if cfg != nil {
			groups = cfg.Groups
		}
	}
	if len(groups) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "groups required"})
	}

	res, err := h.Assigner.Assign(c.Request().Context(), service.AssignRequest{
		Groups: groups,
		Policy: policy,
		Seed:   req.Seed,
		DryRun: req.DryRun,
	})
	if err != nil {
		return assignError(c, err)
	}

	msg := strconv.Itoa(res.AssignedCount) + " seats assigned (" + string(policy) + ")"
	if res.DryRun {
		msg = "dry run: " + msg
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":        true,
		"message":        msg,
		"assigned_count": res.AssignedCount,
		"registrants":    res.Registrants,
		"run_id":         res.RunID,
		"seed":           res.Seed,
		"dry_run":        res.DryRun,
		"groups":         res.Groups,
		"assignments":    res.Assignments,
		"unplaced":       res.Unplaced,
	})
}

func assignError(c echo.Context, err error) error {
	var (
		capErr  *seating.CapacityError
		pairErr *seating.PairingError
	)
	switch {
	case errors.As(err, &capErr):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":  "insufficient seats",
			"code":   CodeInsufficientSeats,
			"free":   capErr.Free,
			"needed": capErr.Needed,
		})
	case errors.As(err, &pairErr):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":         "insufficient seats",
			"code":          CodePairingExhausted,
			"registrant_id": pairErr.RequestID,
		})
	case errors.Is(err, service.ErrAssignmentInProgress):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, seating.ErrNoGroups):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "groups required"})
	case errors.Is(err, seating.ErrInvalidTicketCount):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusGatewayTimeout, echo.Map{"error": "assignment timed out"})
	}
	return storeError(c, err, "seat assignment failed")
}

// ResetSeats handles POST /v1/admin/seats/reset.
func (h *AdminSeatHandler) ResetSeats(c echo.Context) error {
	return h.reset(c, h.Seats.ResetAllSeats)
}

// ResetSeatsAndPayment handles POST /v1/admin/seats/reset-with-payment.
func (h *AdminSeatHandler) ResetSeatsAndPayment(c echo.Context) error {
	return h.reset(c, h.Seats.ResetSeatsAndPayment)
}

func (h *AdminSeatHandler) reset(c echo.Context, fn func(context.Context, string) (int64, error)) error {
	var req confirmReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	n, err := fn(ctx, req.Confirm)
	if err != nil {
		return storeError(c, err, "reset failed")
	}
	c.Logger().Infof("seats reset by %s: %d registrants cleared", actor(c), n)
	return c.JSON(http.StatusOK, echo.Map{"success": true, "cleared": n})
}

// AssignSeat handles PUT /v1/admin/registrants/:id/seat.
func (h *AdminSeatHandler) AssignSeat(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req manualSeatReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Slot == 0 {
		req.Slot = repository.SlotPrimary
	}
	seat, err := seating.ParseLabel(strings.ToUpper(strings.TrimSpace(req.Seat)))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if !h.Assigner.Catalog().Contains(seat) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat " + seat.Label() + " is not in the catalog"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Seats.AssignManual(ctx, id, req.Slot, seat); err != nil {
		return storeError(c, err, "assign seat failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "seat": seat.Label(), "slot": req.Slot})
}

// ClearSeat handles DELETE /v1/admin/registrants/:id/seat?slot=1|2.  No
// slot clears both.
func (h *AdminSeatHandler) ClearSeat(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	slot := 0
	if s := c.QueryParam("slot"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot"})
		}
		slot = n
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Seats.ClearSeats(ctx, id, slot); err != nil {
		return storeError(c, err, "clear seat failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// groupUsage is one row of the seat map.
type groupUsage struct {
	Group    string `json:"group"`
	Capacity int    `json:"capacity"`
	Taken    int    `json:"taken"`
	Free     int    `json:"free"`
}

// SeatMap handles GET /v1/admin/seats/map?groups=A,B.  Without groups it
// uses the active seat configuration.
func (h *AdminSeatHandler) SeatMap(c echo.Context) error {
	groups, err := cleanGroups(strings.Split(c.QueryParam("groups"), ","))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if len(groups) == 0 {
		cfg, err := h.Settings.ActiveSeatGroups(ctx)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return storeError(c, err, "load seat config failed")
		}
		if cfg != nil {
			groups = cfg.Groups
		}
	}
	claimed, err := h.Seats.ClaimedLabels(ctx)
	if err != nil {
		return storeError(c, err, "load seats failed")
	}

	cat := h.Assigner.Catalog()
	out := make([]groupUsage, 0, len(groups))
	for _, g := range groups {
		u := groupUsage{Group: g, Capacity: cat.CapacityOf(g)}
		for _, s := range cat.Generate([]string{g}) {
			if claimed.Has(s.Label()) {
				u.Taken++
			}
		}
		u.Free = u.Capacity - u.Taken
		out = append(out, u)
	}
	return c.JSON(http.StatusOK, echo.Map{"groups": out})
}
