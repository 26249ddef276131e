package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clinicdesk/appointments/internal/domain"
	mw "github.com/clinicdesk/appointments/internal/http/middleware"
	"github.com/clinicdesk/appointments/internal/http/response"
	"github.com/clinicdesk/appointments/pkg/logger"
)

// Book reserves a slot for the authenticated patient.
func (h *Handlers) Book(w http.ResponseWriter, r *http.Request) {
	claims := mw.Claims(r)

	var req domain.BookSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, response.CodeValidationError, "Invalid JSON format")
		return
	}
	if req.SlotID <= 0 {
		response.BadRequest(w, response.CodeValidationError, "slot_id is required")
		return
	}

	booking, err := h.bookingService.Reserve(r.Context(), claims.Sub, req.SlotID)
	switch {
	case err == nil:
		response.WriteJSON(w, http.StatusCreated, booking)
	case errors.Is(err, domain.ErrSlotNotFound):
		response.NotFound(w, response.CodeSlotNotFound, "Slot not found")
	case errors.Is(err, domain.ErrSlotAlreadyBooked):
		response.Conflict(w, response.CodeSlotTaken, "This slot is already booked")
	case errors.Is(err, domain.ErrSlotExpired):
		response.BadRequest(w, response.CodeSlotExpired, "Cannot book slots in the past")
	default:
		logger.ErrorContext(r.Context(), "Reserve failed", "error", err, "slot_id", req.SlotID)
		response.InternalError(w)
	}
}

// MyBookings lists the authenticated patient's bookings, earliest slot first.
func (h *Handlers) MyBookings(w http.ResponseWriter, r *http.Request) {
	claims := mw.Claims(r)

	bookings, err := h.bookingService.ListMyBookings(r.Context(), claims.Sub)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list bookings", "error", err)
		response.InternalError(w)
		return
	}

	response.WriteJSON(w, http.StatusOK, bookings)
}

// AllBookings lists every booking with slot and patient summary. Admin only.
func (h *Handlers) AllBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.bookingService.ListAllBookings(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list bookings", "error", err)
		response.InternalError(w)
		return
	}

	response.WriteJSON(w, http.StatusOK, bookings)
}
