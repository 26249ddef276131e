package service

import (
	"context"
	"time"

	"github.com/clinicdesk/appointments/internal/domain"
	"github.com/clinicdesk/appointments/internal/mailer"
	"github.com/clinicdesk/appointments/internal/repo/postgres"
	"github.com/clinicdesk/appointments/pkg/events"
	"github.com/clinicdesk/appointments/pkg/logger"
)

type BookingService interface {
	// Reserve books the slot for the patient or fails with one of the
	// domain slot errors. Two concurrent reserves for the same slot yield
	// exactly one success.
	Reserve(ctx context.Context, userID, slotID int64) (*domain.BookingDetail, error)
	ListMyBookings(ctx context.Context, userID int64) ([]domain.BookingWithSlot, error)
	ListAllBookings(ctx context.Context) ([]domain.BookingDetail, error)
}

type bookingService struct {
	bookingRepo postgres.BookingRepository
	publisher   events.Publisher
	mailer      mailer.Service
	now         func() time.Time
}

func NewBookingService(bookingRepo postgres.BookingRepository, publisher events.Publisher, mailer mailer.Service) BookingService {
	return &bookingService{
		bookingRepo: bookingRepo,
		publisher:   publisher,
		mailer:      mailer,
		now:         time.Now,
	}
}

func (s *bookingService) Reserve(ctx context.Context, userID, slotID int64) (*domain.BookingDetail, error) {
	booking, err := s.bookingRepo.Reserve(ctx, userID, slotID, s.now())
	if err != nil {
		return nil, err
	}

	// Confirmation email and event are best effort: the booking is already
	// durable and must not be rolled back over notification failures.
	if err := s.mailer.SendBookingConfirmation(booking.User.Email, booking.User.Name, booking.Slot.StartAt, booking.Slot.EndAt); err != nil {
		logger.WarnContext(ctx, "Failed to send booking confirmation", "error", err, "booking_id", booking.ID)
	}

	event := events.AppointmentBookedEvent{
		BookingID:    booking.ID,
		UserID:       booking.UserID,
		PatientEmail: booking.User.Email,
		SlotID:       booking.SlotID,
		StartAt:      booking.Slot.StartAt,
		EndAt:        booking.Slot.EndAt,
		CreatedAt:    booking.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, events.AppointmentBooked, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish appointment booked event", "error", err, "booking_id", booking.ID)
	}

	return booking, nil
}

func (s *bookingService) ListMyBookings(ctx context.Context, userID int64) ([]domain.BookingWithSlot, error) {
	return s.bookingRepo.ListByUser(ctx, userID)
}

func (s *bookingService) ListAllBookings(ctx context.Context) ([]domain.BookingDetail, error) {
	return s.bookingRepo.ListAll(ctx)
}
