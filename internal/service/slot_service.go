package service

import (
	"context"
	"fmt"
	"time"

	"github.com/clinicdesk/appointments/internal/domain"
	"github.com/clinicdesk/appointments/internal/repo/postgres"
	"github.com/clinicdesk/appointments/pkg/events"
	"github.com/clinicdesk/appointments/pkg/logger"
)

const (
	openingHour  = 9
	closingHour  = 17
	slotDuration = 30 * time.Minute
)

type SlotService interface {
	// ListAvailable returns unbooked slots with a start time anywhere on
	// the inclusive [from, to] calendar-date range, ascending by start.
	ListAvailable(ctx context.Context, from, to time.Time) ([]domain.Slot, error)
	// Generate materializes the weekly template over the 7 calendar days
	// starting at start: weekdays only, half-hour slots 09:00-17:00.
	Generate(ctx context.Context, start time.Time) (int, error)
}

type slotService struct {
	slotRepo  postgres.SlotRepository
	publisher events.Publisher
}

func NewSlotService(slotRepo postgres.SlotRepository, publisher events.Publisher) SlotService {
	return &slotService{
		slotRepo:  slotRepo,
		publisher: publisher,
	}
}

func (s *slotService) ListAvailable(ctx context.Context, from, to time.Time) ([]domain.Slot, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("invalid range: to before from")
	}

	loc := from.Location()
	dayStart := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	dayEnd := time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, int(999*time.Millisecond), loc)

	return s.slotRepo.ListAvailable(ctx, dayStart, dayEnd)
}

// Generate is not idempotent: re-running it over an overlapping window
// creates a second set of slots covering the same times.
func (s *slotService) Generate(ctx context.Context, start time.Time) (int, error) {
	slots := BuildWeek(start)

	count, err := s.slotRepo.CreateBatch(ctx, slots)
	if err != nil {
		return 0, fmt.Errorf("failed to create slots: %w", err)
	}

	logger.InfoContext(ctx, "Generated slots", "count", count, "from", start.Format("2006-01-02"))

	event := events.SlotsGeneratedEvent{
		From:  start,
		Count: count,
		RunAt: time.Now(),
	}
	if err := s.publisher.Publish(ctx, events.SlotsGenerated, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish slots generated event", "error", err)
	}

	return count, nil
}

// BuildWeek expands the weekly template into concrete slots: for each of the
// 7 calendar days starting at start, skip Saturday and Sunday, and emit one
// slot per half hour from 09:00 (inclusive) to 17:00 (exclusive).
func BuildWeek(start time.Time) []domain.Slot {
	loc := start.Location()
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)

	var slots []domain.Slot
	for i := 0; i < 7; i++ {
		current := day.AddDate(0, 0, i)
		if wd := current.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}

		startAt := current.Add(openingHour * time.Hour)
		closeAt := current.Add(closingHour * time.Hour)
		for startAt.Before(closeAt) {
			slots = append(slots, domain.Slot{
				StartAt: startAt,
				EndAt:   startAt.Add(slotDuration),
			})
			startAt = startAt.Add(slotDuration)
		}
	}
	return slots
}
