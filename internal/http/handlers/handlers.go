package handlers

import (
	"github.com/clinicdesk/appointments/internal/service"
	"github.com/clinicdesk/appointments/pkg/config"
)

type Handlers struct {
	authService    service.AuthService
	bookingService service.BookingService
	slotService    service.SlotService
	config         *config.Config
}

func New(authService service.AuthService, bookingService service.BookingService, slotService service.SlotService, config *config.Config) *Handlers {
	return &Handlers{
		authService:    authService,
		bookingService: bookingService,
		slotService:    slotService,
		config:         config,
	}
}
