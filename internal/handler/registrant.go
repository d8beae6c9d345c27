package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-assignment/internal/config"
	"github.com/iliyamo/event-seat-assignment/internal/model"
	"github.com/iliyamo/event-seat-assignment/internal/repository"
	"github.com/iliyamo/event-seat-assignment/internal/utils"
)

// RegistrantHandler serves the public registration endpoints.
type RegistrantHandler struct {
	Cfg         config.Config
	Registrants RegistrantStore
	Settings    SettingStore
	Now         func() time.Time
}

func NewRegistrantHandler(cfg config.Config, r RegistrantStore, s SettingStore) *RegistrantHandler {
	return &RegistrantHandler{Cfg: cfg, Registrants: r, Settings: s, Now: time.Now}
}

type companionReq struct {
	Name      string `json:"companion_name"`
	Phone     string `json:"companion_phone"`
	BirthDate string `json:"companion_birth_date"`
}

// registrantView is what a registrant may see about their own entry.
type registrantView struct {
	ID                 uint64  `json:"id"`
	UserName           string  `json:"user_name"`
	Phone              string  `json:"phone"`
	TicketCount        int     `json:"ticket_count"`
	IsPaid             bool    `json:"is_paid"`
	CompanionName      *string `json:"companion_name,omitempty"`
	CompanionCompleted bool    `json:"companion_completed"`
	AsCompanion        bool    `json:"as_companion"`
}

func viewOf(r *model.Registrant, asCompanion bool) registrantView {
	return registrantView{
		ID:                 r.ID,
		UserName:           r.UserName,
		Phone:              r.Phone,
		TicketCount:        r.TicketCount,
		IsPaid:             r.IsPaid,
		CompanionName:      r.CompanionName,
		CompanionCompleted: r.CompanionCompleted,
		AsCompanion:        asCompanion,
	}
}

// Register handles POST /v1/registrants.
func (h *RegistrantHandler) Register(c echo.Context) error {
	var in model.RegistrationInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	open, err := h.Settings.RegistrationOpen(ctx)
	if err != nil {
		return storeError(c, err, "load settings failed")
	}
	if err := in.Validate(open); err != nil {
		if errors.Is(err, model.ErrRegistrationClosed) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	reg := in.Registrant()
	id, err := h.Registrants.Create(ctx, reg)
	if err != nil {
		return storeError(c, err, "registration failed")
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "id": id})
}

// Count handles GET /v1/registrants/count.
func (h *RegistrantHandler) Count(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	apps, tickets, err := h.Registrants.Count(ctx)
	if err != nil {
		return storeError(c, err, "count failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"applications": apps, "tickets": tickets})
}

// Lookup handles GET /v1/registrants/phone/:phone.
func (h *RegistrantHandler) Lookup(c echo.Context) error {
	phone, err := utils.NormalizePhone(c.Param("phone"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	reg, asCompanion, err := h.Registrants.FindByPhone(ctx, phone)
	if err != nil {
		return storeError(c, err, "lookup failed")
	}
	return c.JSON(http.StatusOK, viewOf(reg, asCompanion))
}

// SetCompanion handles PUT /v1/registrants/phone/:phone/companion.
func (h *RegistrantHandler) SetCompanion(c echo.Context) error {
	phone, err := utils.NormalizePhone(c.Param("phone"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var req companionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	comp, err := req.validate()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Registrants.SetCompanion(ctx, phone, comp); err != nil {
		return storeError(c, err, "save companion failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (r companionReq) validate() (repository.Companion, error) {
	name, err := utils.ValidateName(r.Name)
	if err != nil {
		return repository.Companion{}, err
	}
	phone, err := utils.NormalizePhone(r.Phone)
	if err != nil {
		return repository.Companion{}, err
	}
	comp := repository.Companion{Name: name, Phone: phone}
	if bd := strings.TrimSpace(r.BirthDate); bd != "" {
		if err := utils.ValidateBirthDate(bd); err != nil {
			return repository.Companion{}, err
		}
		comp.BirthDate = &bd
	}
	return comp, nil
}

// Seat handles GET /v1/seats/:phone.  Seats stay hidden until the event
// day starts in the event time zone.  A companion phone returns the
// companion seat.
func (h *RegistrantHandler) Seat(c echo.Context) error {
	if day, ok := h.Cfg.EventDay(); ok && h.Now().In(day.Location()).Before(day) {
		return c.JSON(http.StatusForbidden, echo.Map{
			"error":      "seat lookup opens on the event day",
			"event_date": h.Cfg.EventDate,
		})
	}
	phone, err := utils.NormalizePhone(c.Param("phone"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	reg, asCompanion, err := h.Registrants.FindByPhone(ctx, phone)
	if err != nil {
		return storeError(c, err, "lookup failed")
	}
	label, group, number := reg.SeatLabel, reg.SeatGroup, reg.SeatNumber
	if asCompanion {
		label, group, number = reg.SeatLabel2, reg.SeatGroup2, reg.SeatNumber2
	}
	if label == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not assigned yet"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"seat":         *label,
		"seat_group":   group,
		"seat_number":  number,
		"as_companion": asCompanion,
	})
}
