package domain

import "errors"

// Business failures surfaced by the reserve transaction. The repository
// detects all three inside the atomic unit and never leaks raw store errors.
var (
	ErrSlotNotFound      = errors.New("slot not found")
	ErrSlotAlreadyBooked = errors.New("slot is already booked")
	ErrSlotExpired       = errors.New("slot start time has passed")
)

var (
	ErrEmailTaken         = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")

	// ErrInvalidInput wraps malformed-input failures so handlers can map
	// them to 400 before anything touches the store.
	ErrInvalidInput = errors.New("invalid input")
)
