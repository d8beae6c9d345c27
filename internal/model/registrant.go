package model

import (
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/event-seat-assignment/internal/seating"
	"github.com/iliyamo/event-seat-assignment/internal/utils"
)

// Registrant mirrors a row of the `registrants` table.  Nullable columns are
// pointers so handlers can tell "unset" from empty.
type Registrant struct {
	ID          uint64  `json:"id"`
	UserName    string  `json:"user_name"`
	Phone       string  `json:"phone"`
	BirthDate   *string `json:"birth_date,omitempty"` // YYMMDD
	TicketCount int     `json:"ticket_count"`

	CompanionName      *string `json:"companion_name,omitempty"`
	CompanionPhone     *string `json:"companion_phone,omitempty"`
	CompanionBirthDate *string `json:"companion_birth_date,omitempty"`
	CompanionCompleted bool    `json:"companion_completed"`

	IsPaid bool `json:"is_paid"`

	SeatGroup   *string `json:"seat_group,omitempty"`
	SeatNumber  *int    `json:"seat_number,omitempty"`
	SeatLabel   *string `json:"seat_label,omitempty"`
	SeatGroup2  *string `json:"seat_group_2,omitempty"`
	SeatNumber2 *int    `json:"seat_number_2,omitempty"`
	SeatLabel2  *string `json:"seat_label_2,omitempty"`

	IsCheckedIn bool       `json:"is_checked_in"`
	CreatedAt   time.Time  `json:"created_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// Holding returns the seat state the occupancy tracker needs.
func (r Registrant) Holding() seating.Holding {
	return seating.Holding{RegistrantID: r.ID, Primary: deref(r.SeatLabel), Companion: deref(r.SeatLabel2)}
}

// Request returns the registrant as an allocator request.  The birth date
// doubles as the priority key.
func (r Registrant) Request() seating.Request {
	return seating.Request{ID: r.ID, TicketCount: r.TicketCount, PriorityKey: deref(r.BirthDate)}
}

// Seated reports whether the primary slot is taken.
func (r Registrant) Seated() bool { return r.SeatLabel != nil && *r.SeatLabel != "" }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ErrRegistrationClosed is returned by Validate when intake is closed.
var ErrRegistrationClosed = errors.New("registration is closed")

// RegistrationInput is the public registration form.
type RegistrationInput struct {
	UserName    string `json:"user_name"`
	Phone       string `json:"phone"`
	BirthDate   string `json:"birth_date"`
	TicketCount int    `json:"ticket_count"`
}

// Validate normalises the form in place.  open is the current value of the
// registration_open setting; a closed registration fails before any field
// is checked.
func (in *RegistrationInput) Validate(open bool) error {
	if !open {
		return ErrRegistrationClosed
	}
	name, err := utils.ValidateName(in.UserName)
	if err != nil {
		return err
	}
	phone, err := utils.NormalizePhone(in.Phone)
	if err != nil {
		return err
	}
	in.UserName, in.Phone = name, phone
	in.BirthDate = strings.TrimSpace(in.BirthDate)
	if in.BirthDate != "" {
		if err := utils.ValidateBirthDate(in.BirthDate); err != nil {
			return err
		}
	}
	if in.TicketCount == 0 {
		in.TicketCount = 1
	}
	if in.TicketCount != 1 && in.TicketCount != 2 {
		return ErrTicketCount
	}
	return nil
}

// ErrTicketCount rejects ticket counts other than 1 and 2.
var ErrTicketCount = errors.New("ticket_count must be 1 or 2")

// Registrant builds the row to insert.
func (in RegistrationInput) Registrant() *Registrant {
	r := &Registrant{UserName: in.UserName, Phone: in.Phone, TicketCount: in.TicketCount}
	if in.BirthDate != "" {
		bd := in.BirthDate
		r.BirthDate = &bd
	}
	return r
}
