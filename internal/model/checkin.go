package model

import "time"

// CheckinList is an entrance (or any scan point) with an optional
// restriction on which seat groups it admits.  An empty AllowedSeatGroups
// admits everyone.
type CheckinList struct {
	ID                uint64    `json:"id"`
	Name              string    `json:"name"`
	Description       *string   `json:"description,omitempty"`
	AllowedSeatGroups []string  `json:"allowed_seat_groups"`
	IsActive          bool      `json:"is_active"`
	CheckedInCount    int       `json:"checked_in_count"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Admits reports whether a registrant seated in group may enter through l.
// Registrants without a seat group are not filtered.
func (l CheckinList) Admits(group string) bool {
	if len(l.AllowedSeatGroups) == 0 || group == "" {
		return true
	}
	for _, g := range l.AllowedSeatGroups {
		if g == group {
			return true
		}
	}
	return false
}

// CheckinRecord is one registrant checked in on one list.  The registrant
// fields are filled by listing queries only.
type CheckinRecord struct {
	ID            uint64    `json:"id"`
	RegistrantID  uint64    `json:"registrant_id"`
	CheckinListID uint64    `json:"checkin_list_id"`
	CheckedInAt   time.Time `json:"checked_in_at"`
	CheckedInBy   *string   `json:"checked_in_by,omitempty"`

	UserName  string  `json:"user_name,omitempty"`
	Phone     string  `json:"phone,omitempty"`
	SeatLabel *string `json:"seat_label,omitempty"`
}

// CheckinStats summarises attendance.
type CheckinStats struct {
	Eligible  int `json:"eligible"`
	CheckedIn int `json:"checked_in"`
	Remaining int `json:"remaining"`
}
