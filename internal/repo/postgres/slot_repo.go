package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/appointments/internal/domain"
)

type SlotRepository interface {
	ListAvailable(ctx context.Context, from, to time.Time) ([]domain.Slot, error)
	CreateBatch(ctx context.Context, slots []domain.Slot) (int, error)
}

type slotRepository struct {
	pool *pgxpool.Pool
}

func NewSlotRepository(pool *pgxpool.Pool) SlotRepository {
	return &slotRepository{pool: pool}
}

// ListAvailable returns slots starting within [from, to] that have no linked
// booking, ascending by start time. A slot booked between this read and a
// subsequent reserve is expected read skew; the reserve transaction is the
// authority.
func (r *slotRepository) ListAvailable(ctx context.Context, from, to time.Time) ([]domain.Slot, error) {
	const q = `
		SELECT s.id, s.start_at, s.end_at
		FROM slots s
		LEFT JOIN bookings b ON b.slot_id = s.id
		WHERE b.id IS NULL
		  AND s.start_at >= $1
		  AND s.start_at <= $2
		ORDER BY s.start_at ASC`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := []domain.Slot{}
	for rows.Next() {
		var s domain.Slot
		if err := rows.Scan(&s.ID, &s.StartAt, &s.EndAt); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// CreateBatch bulk-inserts slots via COPY and returns the inserted count.
func (r *slotRepository) CreateBatch(ctx context.Context, slots []domain.Slot) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	n, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"slots"},
		[]string{"start_at", "end_at"},
		pgx.CopyFromSlice(len(slots), func(i int) ([]any, error) {
			return []any{slots[i].StartAt, slots[i].EndAt}, nil
		}),
	)
	return int(n), err
}
