// Package queue carries seating events over RabbitMQ.
package queue

// Queue names.  Both are durable and use the default exchange.
const (
	SeatsAssignedQueue   = "seats.assigned"
	CheckinRecordedQueue = "checkin.recorded"
)

// AssignedSeat is one registrant's outcome inside a SeatsAssignedEvent.
type AssignedSeat struct {
	RegistrantID uint64 `json:"registrant_id"`
	Primary      string `json:"primary"`
	Companion    string `json:"companion,omitempty"`
}

// SeatsAssignedEvent is published after an assignment run commits.  Dry
// runs publish nothing.
type SeatsAssignedEvent struct {
	RunID         string         `json:"run_id"`
	Policy        string         `json:"policy"`
	Groups        []string       `json:"groups"`
	AssignedCount int            `json:"assigned_count"`
	SeatsUsed     int            `json:"seats_used"`
	Assignments   []AssignedSeat `json:"assignments"`
	Unplaced      []uint64       `json:"unplaced,omitempty"`
	AssignedAt    string         `json:"assigned_at"`
}

// CheckinRecordedEvent is published for the first scan of a registrant on
// a check-in list.
type CheckinRecordedEvent struct {
	RegistrantID  uint64 `json:"registrant_id"`
	CheckinListID uint64 `json:"checkin_list_id"`
	ListName      string `json:"list_name"`
	SeatLabel     string `json:"seat_label,omitempty"`
	CheckedInBy   string `json:"checked_in_by,omitempty"`
	CheckedInAt   string `json:"checked_in_at"`
}
