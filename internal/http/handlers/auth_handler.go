package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clinicdesk/appointments/internal/domain"
	"github.com/clinicdesk/appointments/internal/http/response"
	"github.com/clinicdesk/appointments/pkg/logger"
)

// Register handles patient registration
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, response.CodeValidationError, "Invalid JSON format")
		return
	}

	user, err := h.authService.Register(r.Context(), &req)
	switch {
	case err == nil:
		response.WriteJSON(w, http.StatusCreated, user.Summary())
	case errors.Is(err, domain.ErrInvalidInput):
		response.BadRequest(w, response.CodeValidationError, err.Error())
	case errors.Is(err, domain.ErrEmailTaken):
		response.BadRequest(w, response.CodeEmailExists, "User with this email already exists")
	default:
		logger.ErrorContext(r.Context(), "Registration failed", "error", err)
		response.InternalError(w)
	}
}

// Login handles authentication and token issuance
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, response.CodeValidationError, "Invalid JSON format")
		return
	}

	resp, err := h.authService.Login(r.Context(), &req)
	switch {
	case err == nil:
		response.WriteJSON(w, http.StatusOK, resp)
	case errors.Is(err, domain.ErrInvalidInput):
		response.BadRequest(w, response.CodeValidationError, err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		response.Unauthorized(w, "Invalid email or password")
	default:
		logger.ErrorContext(r.Context(), "Login failed", "error", err)
		response.InternalError(w)
	}
}
