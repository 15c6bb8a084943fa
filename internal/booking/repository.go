package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// db is the subset of pgxpool.Pool the repository uses; pgxmock satisfies it
// in tests.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository stores bookings in Postgres.
type Repository struct {
	db db
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("booking: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting mocks for tests.
func NewRepositoryWithDB(conn db) *Repository {
	return &Repository{db: conn}
}

// InsertConfirmed writes a confirmed booking. The insert races against the
// partial unique index on (professional_id, date, start_time) for confirmed
// rows; losing the race returns ErrSlotTaken and writes nothing.
func (r *Repository) InsertConfirmed(ctx context.Context, salonID string, req *CreateRequest, durationMinutes int) (*Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	b := Booking{
		ID:              uuid.NewString(),
		SalonID:         salonID,
		ProfessionalID:  req.ProfessionalID,
		ServiceID:       req.ServiceID,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		Date:            req.Date,
		StartTime:       req.StartTime,
		DurationMinutes: durationMinutes,
		Status:          StatusConfirmed,
		Notes:           req.Notes,
	}
	query := `
		INSERT INTO bookings (id, salon_id, professional_id, service_id, customer_name, customer_email, customer_phone, date, start_time, duration_minutes, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (professional_id, date, start_time) WHERE status = 'confirmed' DO NOTHING
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		b.ID,
		b.SalonID,
		b.ProfessionalID,
		b.ServiceID,
		b.CustomerName,
		b.CustomerEmail,
		b.CustomerPhone,
		b.Date,
		b.StartTime,
		b.DurationMinutes,
		b.Status,
		b.Notes,
	).Scan(&b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("booking: insert: %w", err)
	}
	return &b, nil
}

// ConfirmedStartTimes lists the HH:MM start times already confirmed for the
// professional on a date.
func (r *Repository) ConfirmedStartTimes(ctx context.Context, salonID, professionalID, date string) ([]string, error) {
	query := `
		SELECT start_time FROM bookings
		WHERE salon_id = $1 AND professional_id = $2 AND date = $3 AND status = 'confirmed'
	`
	rows, err := r.db.Query(ctx, query, salonID, professionalID, date)
	if err != nil {
		return nil, fmt.Errorf("booking: list confirmed times: %w", err)
	}
	defer rows.Close()

	var times []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("booking: scan start time: %w", err)
		}
		times = append(times, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("booking: iterate confirmed times: %w", err)
	}
	return times, nil
}

// Get fetches one booking scoped to the salon.
func (r *Repository) Get(ctx context.Context, salonID, id string) (*Booking, error) {
	query := `
		SELECT id, salon_id, professional_id, service_id, customer_name, customer_email, customer_phone, date, start_time, duration_minutes, status, external_event_id, external_event_link, notes, created_at
		FROM bookings
		WHERE salon_id = $1 AND id = $2
	`
	var b Booking
	err := r.db.QueryRow(ctx, query, salonID, id).Scan(
		&b.ID, &b.SalonID, &b.ProfessionalID, &b.ServiceID,
		&b.CustomerName, &b.CustomerEmail, &b.CustomerPhone,
		&b.Date, &b.StartTime, &b.DurationMinutes, &b.Status,
		&b.ExternalEventID, &b.ExternalEventLink, &b.Notes, &b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("booking: get: %w", err)
	}
	return &b, nil
}

// ListForDay returns all bookings for a salon on a date, any status.
func (r *Repository) ListForDay(ctx context.Context, salonID, date string) ([]Booking, error) {
	query := `
		SELECT id, salon_id, professional_id, service_id, customer_name, customer_email, customer_phone, date, start_time, duration_minutes, status, external_event_id, external_event_link, notes, created_at
		FROM bookings
		WHERE salon_id = $1 AND date = $2
		ORDER BY start_time
	`
	rows, err := r.db.Query(ctx, query, salonID, date)
	if err != nil {
		return nil, fmt.Errorf("booking: list for day: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

// ListMirrored returns confirmed bookings inside the [from, to] date window
// that carry an external event id, for the stale-event sweep.
func (r *Repository) ListMirrored(ctx context.Context, salonID, from, to string, limit int) ([]Booking, error) {
	if limit <= 0 {
		limit = 200
	}
	query := `
		SELECT id, salon_id, professional_id, service_id, customer_name, customer_email, customer_phone, date, start_time, duration_minutes, status, external_event_id, external_event_link, notes, created_at
		FROM bookings
		WHERE salon_id = $1 AND status = 'confirmed' AND external_event_id <> ''
			AND date >= $2 AND date <= $3
		ORDER BY date, start_time
		LIMIT $4
	`
	rows, err := r.db.Query(ctx, query, salonID, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("booking: list mirrored: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

func scanBookings(rows pgx.Rows) ([]Booking, error) {
	var out []Booking
	for rows.Next() {
		var b Booking
		if err := rows.Scan(
			&b.ID, &b.SalonID, &b.ProfessionalID, &b.ServiceID,
			&b.CustomerName, &b.CustomerEmail, &b.CustomerPhone,
			&b.Date, &b.StartTime, &b.DurationMinutes, &b.Status,
			&b.ExternalEventID, &b.ExternalEventLink, &b.Notes, &b.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("booking: scan row: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("booking: iterate rows: %w", err)
	}
	return out, nil
}

// SetExternalEventRef records the mirrored calendar event for a booking.
func (r *Repository) SetExternalEventRef(ctx context.Context, salonID, id, eventID, eventLink string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE bookings SET external_event_id = $3, external_event_link = $4
		WHERE salon_id = $1 AND id = $2
	`, salonID, id, eventID, eventLink)
	if err != nil {
		return fmt.Errorf("booking: set event ref: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Cancel marks a booking cancelled, freeing its slot.
func (r *Repository) Cancel(ctx context.Context, salonID, id string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE bookings SET status = 'cancelled'
		WHERE salon_id = $1 AND id = $2 AND status = 'confirmed'
	`, salonID, id)
	if err != nil {
		return fmt.Errorf("booking: cancel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a booking row entirely. Used by the stale-event sweep when
// the mirrored calendar event is gone.
func (r *Repository) Delete(ctx context.Context, salonID, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM bookings WHERE salon_id = $1 AND id = $2`, salonID, id)
	if err != nil {
		return fmt.Errorf("booking: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
