package model

import "time"

// SettingRegistrationOpen is the settings key that gates public registration.
const SettingRegistrationOpen = "registration_open"

// SeatGroupConfig is one saved list of seat groups.  Only the latest active
// row is used by assignment runs; older rows are kept as history.
type SeatGroupConfig struct {
	ID        uint64    `json:"id"`
	Groups    []string  `json:"groups"`
	IsActive  bool      `json:"is_active"`
	CreatedBy *string   `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
