package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/clinicdesk/appointments/internal/http/response"
	"github.com/clinicdesk/appointments/pkg/logger"
)

const dateLayout = "2006-01-02"

// ListSlots returns open slots in the inclusive from/to date range.
func (h *Handlers) ListSlots(w http.ResponseWriter, r *http.Request) {
	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")
	if fromStr == "" || toStr == "" {
		response.BadRequest(w, response.CodeMissingParams, `Both "from" and "to" query parameters are required`)
		return
	}

	from, err := time.ParseInLocation(dateLayout, fromStr, time.Local)
	if err != nil {
		response.BadRequest(w, response.CodeValidationError, "Invalid date format (YYYY-MM-DD)")
		return
	}
	to, err := time.ParseInLocation(dateLayout, toStr, time.Local)
	if err != nil {
		response.BadRequest(w, response.CodeValidationError, "Invalid date format (YYYY-MM-DD)")
		return
	}
	if to.Before(from) {
		response.BadRequest(w, response.CodeValidationError, `"to" must not be before "from"`)
		return
	}

	slots, err := h.slotService.ListAvailable(r.Context(), from, to)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list slots", "error", err)
		response.InternalError(w)
		return
	}

	response.WriteJSON(w, http.StatusOK, slots)
}

// GenerateSlots materializes a week of slots starting at the given date
// (today when omitted). Admin only.
func (h *Handlers) GenerateSlots(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Start string `json:"start"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, response.CodeValidationError, "Invalid JSON format")
			return
		}
	}

	start := time.Now()
	if req.Start != "" {
		parsed, err := time.ParseInLocation(dateLayout, req.Start, time.Local)
		if err != nil {
			response.BadRequest(w, response.CodeValidationError, "Invalid date format (YYYY-MM-DD)")
			return
		}
		start = parsed
	}

	count, err := h.slotService.Generate(r.Context(), start)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to generate slots", "error", err)
		response.InternalError(w)
		return
	}

	response.WriteJSON(w, http.StatusCreated, map[string]int{"created": count})
}
