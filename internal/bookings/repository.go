package bookings

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentdesk/rentdesk/internal/platform/db"
)

// Repository defines persistence operations for bookings.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (*Booking, error)
	List(ctx context.Context, req ListRequest) ([]Booking, int, error)
	Create(ctx context.Context, b Booking) (*Booking, error)
	// UpdateStatus stores to only when the row still holds from. It returns
	// ErrConflict when the row moved on and ErrNotFound when it is gone.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Booking, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const bookingColumns = `id, client_id, equipment_id, start_date, end_date, status, total_amount, notes, created_at, updated_at`

// Get fetches a booking by ID.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

// List returns bookings newest first with the unpaginated total.
func (r *PGRepository) List(ctx context.Context, req ListRequest) ([]Booking, int, error) {
	where := ""
	args := []any{}
	if req.Status != nil {
		args = append(args, string(*req.Status))
		where = " WHERE status = $1"
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM bookings`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, req.Offset)
	query := `SELECT ` + bookingColumns + ` FROM bookings` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	result := make([]Booking, 0, limit)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

// Create inserts a booking.
func (r *PGRepository) Create(ctx context.Context, b Booking) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO bookings (id, client_id, equipment_id, start_date, end_date, status, total_amount, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING `+bookingColumns,
		b.ID, b.ClientID, b.EquipmentID, b.StartDate, b.EndDate, string(b.Status), floatToNumeric(b.TotalAmount), textOrNull(b.Notes))
	return scanBooking(row)
}

// UpdateStatus moves a booking from one status to another inside a transaction.
func (r *PGRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Booking, error) {
	var updated *Booking
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `UPDATE bookings SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2 RETURNING `+bookingColumns,
			id, string(from), string(to))
		b, err := scanBooking(row)
		if err == nil {
			updated = b
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrConflict
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var (
		b      Booking
		status string
		total  pgtype.Numeric
		notes  pgtype.Text
	)
	if err := row.Scan(&b.ID, &b.ClientID, &b.EquipmentID, &b.StartDate, &b.EndDate, &status, &total, &notes, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.Status = Status(status)
	b.TotalAmount = numericToFloat(total)
	if notes.Valid {
		val := notes.String
		b.Notes = &val
	}
	return &b, nil
}

func numericToFloat(n pgtype.Numeric) float64 {
	f, _ := n.Float64Value()
	return f.Float64
}

func floatToNumeric(f float64) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(strconv.FormatFloat(f, 'f', 2, 64))
	return n
}

func textOrNull(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

var _ Repository = (*PGRepository)(nil)
