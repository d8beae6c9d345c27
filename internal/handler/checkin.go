package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-assignment/internal/model"
	"github.com/iliyamo/event-seat-assignment/internal/queue"
	"github.com/iliyamo/event-seat-assignment/internal/repository"
)

// CheckinHandler serves the day-of entrance endpoints for staff.
type CheckinHandler struct {
	Checkins    CheckinStore
	Registrants RegistrantStore
	Publisher   CheckinPublisher
}

func NewCheckinHandler(cs CheckinStore, r RegistrantStore, pub CheckinPublisher) *CheckinHandler {
	return &CheckinHandler{Checkins: cs, Registrants: r, Publisher: pub}
}

type checkinListReq struct {
	Name              string   `json:"name"`
	Description       *string  `json:"description"`
	AllowedSeatGroups []string `json:"allowed_seat_groups"`
	IsActive          *bool    `json:"is_active"`
}

// checkinReq carries either the scanned QR payload or a typed-in id.
type checkinReq struct {
	QRData        string  `json:"qrData"`
	ParticipantID *uint64 `json:"participantId"`
}

type qrPayload struct {
	ID uint64 `json:"id"`
}

type participantView struct {
	ID          uint64  `json:"id"`
	UserName    string  `json:"user_name"`
	Phone       string  `json:"phone"`
	TicketCount int     `json:"ticket_count"`
	IsPaid      bool    `json:"is_paid"`
	SeatGroup   *string `json:"seat_group,omitempty"`
	SeatLabel   *string `json:"seat_label,omitempty"`
	SeatLabel2  *string `json:"seat_label_2,omitempty"`
}

func participantOf(r *model.Registrant) participantView {
	return participantView{
		ID:          r.ID,
		UserName:    r.UserName,
		Phone:       r.Phone,
		TicketCount: r.TicketCount,
		IsPaid:      r.IsPaid,
		SeatGroup:   r.SeatGroup,
		SeatLabel:   r.SeatLabel,
		SeatLabel2:  r.SeatLabel2,
	}
}

func (req checkinListReq) list() (*model.CheckinList, error) {
	groups, err := cleanGroups(req.AllowedSeatGroups)
	if err != nil {
		return nil, err
	}
	l := &model.CheckinList{
		Name:              strings.TrimSpace(req.Name),
		AllowedSeatGroups: groups,
		IsActive:          req.IsActive == nil || *req.IsActive,
	}
	if req.Description != nil {
		if d := strings.TrimSpace(*req.Description); d != "" {
			l.Description = &d
		}
	}
	return l, nil
}

// ListLists handles GET /v1/admin/checkin/lists?active=true.
func (h *CheckinHandler) ListLists(c echo.Context) error {
	activeOnly := false
	if b := queryBool(c, "active"); b != nil {
		activeOnly = *b
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	lists, err := h.Checkins.ListLists(ctx, activeOnly)
	if err != nil {
		return storeError(c, err, "load lists failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": lists})
}

// GetList handles GET /v1/admin/checkin/lists/:id.
func (h *CheckinHandler) GetList(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	l, err := h.Checkins.GetList(ctx, id)
	if err != nil {
		return storeError(c, err, "load list failed")
	}
	return c.JSON(http.StatusOK, l)
}

// CreateList handles POST /v1/admin/checkin/lists.
func (h *CheckinHandler) CreateList(c echo.Context) error {
	var req checkinListReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	l, err := req.list()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if l.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Checkins.CreateList(ctx, l); err != nil {
		return storeError(c, err, "create list failed")
	}
	return c.JSON(http.StatusCreated, l)
}

// UpdateList handles PUT /v1/admin/checkin/lists/:id.
func (h *CheckinHandler) UpdateList(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req checkinListReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	l, err := req.list()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if l.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	l.ID = id

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Checkins.UpdateList(ctx, l); err != nil {
		return storeError(c, err, "update list failed")
	}
	return c.JSON(http.StatusOK, l)
}

// DeleteList handles DELETE /v1/admin/checkin/lists/:id.  Lists that
// already have records cannot be deleted.
func (h *CheckinHandler) DeleteList(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Checkins.DeleteList(ctx, id); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "list already has check-in records"})
		}
		return storeError(c, err, "delete list failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// participant reads the registrant id from the QR payload, falling
// back to participantId.
func (req checkinReq) participant() (uint64, bool) {
	if qr := strings.TrimSpace(req.QRData); qr != "" {
		var p qrPayload
		if err := json.Unmarshal([]byte(qr), &p); err == nil && p.ID > 0 {
			return p.ID, true
		}
		return 0, false
	}
	if req.ParticipantID != nil && *req.ParticipantID > 0 {
		return *req.ParticipantID, true
	}
	return 0, false
}

// CheckIn handles POST /v1/admin/checkin/lists/:id/checkin.
func (h *CheckinHandler) CheckIn(c echo.Context) error {
	listID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req checkinReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	regID, ok := req.participant()
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "qrData or participantId required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Checkins.GetList(ctx, listID)
	if err != nil {
		return storeError(c, err, "load list failed")
	}
	if !list.IsActive {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "check-in list is not active"})
	}

	reg, err := h.Registrants.GetByID(ctx, regID)
	if err != nil {
		return storeError(c, err, "load registrant failed")
	}
	if reg.DeletedAt != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	if !reg.IsPaid {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":       "payment not confirmed",
			"participant": participantOf(reg),
		})
	}
	group := ""
	if reg.SeatGroup != nil {
		group = *reg.SeatGroup
	}
	if !list.Admits(group) {
		return c.JSON(http.StatusForbidden, echo.Map{
			"error":         "seat group not admitted on this list",
			"seatGroup":     group,
			"allowedGroups": list.AllowedSeatGroups,
			"participant":   participantOf(reg),
		})
	}

	by := actor(c)
	created, at, err := h.Checkins.Record(ctx, reg.ID, list.ID, by)
	if err != nil {
		return storeError(c, err, "check-in failed")
	}
	if created {
		h.publish(reg, list, by, at)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":          true,
		"alreadyCheckedIn": !created,
		"checkedInAt":      at,
		"participant":      participantOf(reg),
	})
}

func (h *CheckinHandler) publish(reg *model.Registrant, list *model.CheckinList, by string, at time.Time) {
	if h.Publisher == nil {
		return
	}
	ev := queue.CheckinRecordedEvent{
		RegistrantID:  reg.ID,
		CheckinListID: list.ID,
		ListName:      list.Name,
		CheckedInBy:   by,
		CheckedInAt:   at.UTC().Format(time.RFC3339),
	}
	if reg.SeatLabel != nil {
		ev.SeatLabel = *reg.SeatLabel
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Publisher.PublishCheckinRecorded(ctx, ev); err != nil {
		log.Printf("checkin: publish registrant=%d list=%d: %v", reg.ID, list.ID, err)
	}
}

// Stats handles GET /v1/admin/checkin/stats.
func (h *CheckinHandler) Stats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Checkins.Stats(ctx)
	if err != nil {
		return storeError(c, err, "load stats failed")
	}
	return c.JSON(http.StatusOK, s)
}

// ListStats handles GET /v1/admin/checkin/lists/:id/stats.
func (h *CheckinHandler) ListStats(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	l, err := h.Checkins.GetList(ctx, id)
	if err != nil {
		return storeError(c, err, "load list failed")
	}
	s, err := h.Checkins.ListStats(ctx, *l)
	if err != nil {
		return storeError(c, err, "load stats failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"list": l, "stats": s})
}

// Records handles GET /v1/admin/checkin/lists/:id/records?page=&page_size=.
func (h *CheckinHandler) Records(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	page := queryInt(c, "page", 1, 1, 1<<20)
	size := queryInt(c, "page_size", 50, 1, 200)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, total, err := h.Checkins.Records(ctx, id, size, (page-1)*size)
	if err != nil {
		return storeError(c, err, "load records failed")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":     items,
		"total":     total,
		"page":      page,
		"page_size": size,
	})
}

// CancelRecord handles DELETE /v1/admin/checkin/lists/:id/records/:recordId.
func (h *CheckinHandler) CancelRecord(c echo.Context) error {
	listID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	recordID, ok := pathID(c, "recordId")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid record id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Checkins.CancelRecord(ctx, listID, recordID); err != nil {
		return storeError(c, err, "cancel failed")
	}
	return c.NoContent(http.StatusNoContent)
}
