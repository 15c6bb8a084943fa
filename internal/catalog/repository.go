package catalog

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

// Repository stores services and professionals in Postgres.
type Repository struct {
	db db
}

// NewRepository initializes a repo backed by pgxpool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("catalog: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting mocks for tests.
func NewRepositoryWithDB(conn db) *Repository {
	return &Repository{db: conn}
}

// CreateService inserts a catalog entry for the salon.
func (r *Repository) CreateService(ctx context.Context, salonID string, req *CreateServiceRequest) (*Service, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	svc := Service{
		ID:              uuid.NewString(),
		SalonID:         salonID,
		Name:            req.Name,
		Description:     req.Description,
		Category:        req.Category,
		DurationMinutes: req.DurationMinutes,
		PriceCents:      req.PriceCents,
	}
	query := `
		INSERT INTO services (id, salon_id, name, description, category, duration_minutes, price_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	if err := r.db.QueryRow(ctx, query,
		svc.ID,
		svc.SalonID,
		svc.Name,
		svc.Description,
		svc.Category,
		svc.DurationMinutes,
		svc.PriceCents,
	).Scan(&svc.CreatedAt); err != nil {
		return nil, fmt.Errorf("catalog: insert service: %w", err)
	}
	return &svc, nil
}

// GetService fetches a service scoped to the salon.
func (r *Repository) GetService(ctx context.Context, salonID, id string) (*Service, error) {
	query := `
		SELECT id, salon_id, name, description, category, duration_minutes, price_cents, created_at
		FROM services
		WHERE id = $1 AND salon_id = $2
	`
	var svc Service
	if err := r.db.QueryRow(ctx, query, id, salonID).Scan(
		&svc.ID,
		&svc.SalonID,
		&svc.Name,
		&svc.Description,
		&svc.Category,
		&svc.DurationMinutes,
		&svc.PriceCents,
		&svc.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("catalog: select service: %w", err)
	}
	return &svc, nil
}

// ListServices returns the salon's catalog ordered by name.
func (r *Repository) ListServices(ctx context.Context, salonID string) ([]Service, error) {
	query := `
		SELECT id, salon_id, name, description, category, duration_minutes, price_cents, created_at
		FROM services
		WHERE salon_id = $1
		ORDER BY name
	`
	rows, err := r.db.Query(ctx, query, salonID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list services: %w", err)
	}
	defer rows.Close()

	var services []Service
	for rows.Next() {
		var svc Service
		if err := rows.Scan(
			&svc.ID,
			&svc.SalonID,
			&svc.Name,
			&svc.Description,
			&svc.Category,
			&svc.DurationMinutes,
			&svc.PriceCents,
			&svc.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("catalog: scan service: %w", err)
		}
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterate services: %w", err)
	}
	return services, nil
}

// DeleteService removes a catalog entry.
func (r *Repository) DeleteService(ctx context.Context, salonID, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM services WHERE id = $1 AND salon_id = $2`, id, salonID)
	if err != nil {
		return fmt.Errorf("catalog: delete service: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrServiceNotFound
	}
	return nil
}

// CreateProfessional inserts a staff member for the salon.
func (r *Repository) CreateProfessional(ctx context.Context, salonID string, req *CreateProfessionalRequest) (*Professional, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	pro := Professional{
		ID:               uuid.NewString(),
		SalonID:          salonID,
		Name:             req.Name,
		GoogleCalendarID: req.GoogleCalendarID,
	}
	query := `
		INSERT INTO professionals (id, salon_id, name, google_calendar_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	if err := r.db.QueryRow(ctx, query,
		pro.ID,
		pro.SalonID,
		pro.Name,
		pro.GoogleCalendarID,
	).Scan(&pro.CreatedAt); err != nil {
		return nil, fmt.Errorf("catalog: insert professional: %w", err)
	}
	return &pro, nil
}

// GetProfessional fetches a professional scoped to the salon.
func (r *Repository) GetProfessional(ctx context.Context, salonID, id string) (*Professional, error) {
	query := `
		SELECT id, salon_id, name, google_calendar_id, created_at
		FROM professionals
		WHERE id = $1 AND salon_id = $2
	`
	var pro Professional
	if err := r.db.QueryRow(ctx, query, id, salonID).Scan(
		&pro.ID,
		&pro.SalonID,
		&pro.Name,
		&pro.GoogleCalendarID,
		&pro.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfessionalNotFound
		}
		return nil, fmt.Errorf("catalog: select professional: %w", err)
	}
	return &pro, nil
}

// ListProfessionals returns the salon's staff ordered by name.
func (r *Repository) ListProfessionals(ctx context.Context, salonID string) ([]Professional, error) {
	query := `
		SELECT id, salon_id, name, google_calendar_id, created_at
		FROM professionals
		WHERE salon_id = $1
		ORDER BY name
	`
	rows, err := r.db.Query(ctx, query, salonID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list professionals: %w", err)
	}
	defer rows.Close()

	var pros []Professional
	for rows.Next() {
		var pro Professional
		if err := rows.Scan(
			&pro.ID,
			&pro.SalonID,
			&pro.Name,
			&pro.GoogleCalendarID,
			&pro.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("catalog: scan professional: %w", err)
		}
		pros = append(pros, pro)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterate professionals: %w", err)
	}
	return pros, nil
}

// DeleteProfessional removes a staff member.
func (r *Repository) DeleteProfessional(ctx context.Context, salonID, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM professionals WHERE id = $1 AND salon_id = $2`, id, salonID)
	if err != nil {
		return fmt.Errorf("catalog: delete professional: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrProfessionalNotFound
	}
	return nil
}
