package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/appointments/internal/domain"
)

type BookingRepository interface {
	// Reserve runs the whole check-and-insert for a slot as one transaction.
	// It fails with domain.ErrSlotNotFound, domain.ErrSlotAlreadyBooked or
	// domain.ErrSlotExpired; any other error is a store failure.
	Reserve(ctx context.Context, userID, slotID int64, now time.Time) (*domain.BookingDetail, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.BookingWithSlot, error)
	ListAll(ctx context.Context) ([]domain.BookingDetail, error)
}

type bookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) BookingRepository {
	return &bookingRepository{pool: pool}
}

func (r *bookingRepository) Reserve(ctx context.Context, userID, slotID int64, now time.Time) (*domain.BookingDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Slot state is checked inside the transaction; a pre-check outside it
	// would race with concurrent reserves.
	const slotQ = `
		SELECT s.id, s.start_at, s.end_at, b.id
		FROM slots s
		LEFT JOIN bookings b ON b.slot_id = s.id
		WHERE s.id = $1`

	var (
		slot      domain.Slot
		bookingID *int64
	)
	err = tx.QueryRow(ctx, slotQ, slotID).Scan(&slot.ID, &slot.StartAt, &slot.EndAt, &bookingID)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrSlotNotFound
	}
	if err != nil {
		return nil, err
	}
	if bookingID != nil {
		return nil, domain.ErrSlotAlreadyBooked
	}
	if !slot.StartAt.After(now) {
		return nil, domain.ErrSlotExpired
	}

	// The unique constraint on bookings.slot_id is the safety net: if a
	// concurrent transaction won the race since the select above, this
	// insert fails with 23505 instead of double-booking the slot.
	const insertQ = `
		INSERT INTO bookings (user_id, slot_id)
		VALUES ($1, $2)
		RETURNING id, created_at`

	detail := domain.BookingDetail{Slot: slot}
	detail.UserID = userID
	detail.SlotID = slotID
	err = tx.QueryRow(ctx, insertQ, userID, slotID).Scan(&detail.ID, &detail.CreatedAt)
	if isUniqueViolation(err) {
		return nil, domain.ErrSlotAlreadyBooked
	}
	if err != nil {
		return nil, err
	}

	const userQ = `SELECT id, name, email, role FROM users WHERE id = $1`
	err = tx.QueryRow(ctx, userQ, userID).Scan(
		&detail.User.ID, &detail.User.Name, &detail.User.Email, &detail.User.Role,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (r *bookingRepository) ListByUser(ctx context.Context, userID int64) ([]domain.BookingWithSlot, error) {
	const q = `
		SELECT b.id, b.user_id, b.slot_id, b.created_at,
		       s.id, s.start_at, s.end_at
		FROM bookings b
		JOIN slots s ON s.id = b.slot_id
		WHERE b.user_id = $1
		ORDER BY s.start_at ASC`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := []domain.BookingWithSlot{}
	for rows.Next() {
		var b domain.BookingWithSlot
		if err := rows.Scan(
			&b.ID, &b.UserID, &b.SlotID, &b.CreatedAt,
			&b.Slot.ID, &b.Slot.StartAt, &b.Slot.EndAt,
		); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (r *bookingRepository) ListAll(ctx context.Context) ([]domain.BookingDetail, error) {
	const q = `
		SELECT b.id, b.user_id, b.slot_id, b.created_at,
		       s.id, s.start_at, s.end_at,
		       u.id, u.name, u.email, u.role
		FROM bookings b
		JOIN slots s ON s.id = b.slot_id
		JOIN users u ON u.id = b.user_id
		ORDER BY s.start_at ASC`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := []domain.BookingDetail{}
	for rows.Next() {
		var b domain.BookingDetail
		if err := rows.Scan(
			&b.ID, &b.UserID, &b.SlotID, &b.CreatedAt,
			&b.Slot.ID, &b.Slot.StartAt, &b.Slot.EndAt,
			&b.User.ID, &b.User.Name, &b.User.Email, &b.User.Role,
		); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
