// Package repository holds the MySQL data access layer.  The sentinel
// errors below let handlers and the assignment service tell failure
// scenarios apart without inspecting driver errors.
package repository

import "errors"

var (
	// ErrNotFound is returned when the addressed row does not exist (or is
	// soft-deleted where that matters).  Handlers translate it to 404.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a conditional write matched no row
	// because the state changed underneath it, or when a delete is blocked
	// by dependent records.  Handlers translate it to 409.
	ErrConflict = errors.New("conflict")

	// ErrSeatTaken is returned when a seat label is already claimed.
	ErrSeatTaken = errors.New("seat already taken")

	// ErrPhoneExists is returned when a phone number is already used by a
	// registrant or a completed companion.
	ErrPhoneExists = errors.New("phone already registered")

	// ErrInvalidConfirmToken guards the bulk reset operations.
	ErrInvalidConfirmToken = errors.New("invalid confirmation token")

	// ErrInvalidSlot is returned for a companion-slot write on a
	// single-ticket registrant, or a slot other than 1 and 2.
	ErrInvalidSlot = errors.New("invalid seat slot")

	// ErrEmailExists is returned when creating a user with a taken email.
	ErrEmailExists = errors.New("email already exists")
)

// Confirmation tokens for the bulk resets.  They prevent an accidental call,
// they are not credentials.
const (
	ConfirmResetAllSeats        = "RESET_ALL_SEATS"
	ConfirmResetSeatsAndPayment = "RESET_SEATS_AND_PAYMENT"
)
