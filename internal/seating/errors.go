package seating

import (
	"errors"
	"fmt"
)

var (
	// ErrNoGroups is returned when a run is started without any seat group.
	ErrNoGroups = errors.New("no seat groups configured")
	// ErrInsufficientSeats is returned when the free seats cannot cover the
	// tickets of the roster.  Checked before any seat is handed out.
	ErrInsufficientSeats = errors.New("insufficient free seats")
	// ErrPairingExhausted is returned when a companion request finds no
	// group with two free seats.  The whole run is discarded.
	ErrPairingExhausted = errors.New("no same-group seat pair available")
	// ErrInvalidTicketCount rejects requests that are neither 1 nor 2 seats.
	ErrInvalidTicketCount = errors.New("ticket count must be 1 or 2")
	// ErrUnknownPolicy is returned by ParsePolicy.
	ErrUnknownPolicy = errors.New("unknown assignment policy")
)

// CapacityError reports a run whose ticket demand exceeds the free seats.
type CapacityError struct {
	Free   int
	Needed int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%v: %d free, %d needed", ErrInsufficientSeats, e.Free, e.Needed)
}

func (e *CapacityError) Unwrap() error { return ErrInsufficientSeats }

// PairingError names the companion request that could not be seated.
type PairingError struct {
	RequestID uint64
}

func (e *PairingError) Error() string {
	return fmt.Sprintf("%v for registrant %d", ErrPairingExhausted, e.RequestID)
}

func (e *PairingError) Unwrap() error { return ErrPairingExhausted }
