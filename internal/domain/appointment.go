package domain

import "time"

// Slot is a fixed, bookable time window. Slots are created in bulk by the
// generator and never mutated afterwards.
type Slot struct {
	ID      int64     `json:"id"`
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
}

// Booking links one patient to one slot. The slot reference is unique: a slot
// carries at most one booking, ever.
type Booking struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	SlotID    int64     `json:"slot_id"`
	CreatedAt time.Time `json:"created_at"`
}

// BookingWithSlot is the patient-facing listing row.
type BookingWithSlot struct {
	Booking
	Slot Slot `json:"slot"`
}

// BookingDetail is the admin-facing listing row and the reserve response.
type BookingDetail struct {
	Booking
	Slot Slot        `json:"slot"`
	User UserSummary `json:"user"`
}

type BookSlotRequest struct {
	SlotID int64 `json:"slot_id"`
}
