package salon

import (
	"context"
	"errors"
	"fmt"

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

// Repository stores salons in Postgres.
type Repository struct {
	db db
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("salon: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting mocks for tests.
func NewRepositoryWithDB(conn db) *Repository {
	return &Repository{db: conn}
}

const salonColumns = `id, name, owner_email, plan, asaas_customer_id, timezone, created_at`

func (r *Repository) Get(ctx context.Context, id string) (*Salon, error) {
	query := `SELECT ` + salonColumns + ` FROM salons WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

// GetByAsaasCustomer resolves a salon from the billing customer id carried in
// webhook payloads.
func (r *Repository) GetByAsaasCustomer(ctx context.Context, customerID string) (*Salon, error) {
	query := `SELECT ` + salonColumns + ` FROM salons WHERE asaas_customer_id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, customerID))
}

func (r *Repository) scanOne(row pgx.Row) (*Salon, error) {
	var s Salon
	err := row.Scan(&s.ID, &s.Name, &s.OwnerEmail, &s.Plan, &s.AsaasCustomerID, &s.Timezone, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("salon: get: %w", err)
	}
	return &s, nil
}

// ListIDs returns every tenant id, for background sweeps.
func (r *Repository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM salons ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("salon: list ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("salon: scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("salon: iterate ids: %w", err)
	}
	return ids, nil
}

// UpdatePlan upgrades or downgrades the salon's subscription plan.
func (r *Repository) UpdatePlan(ctx context.Context, id, plan string) error {
	tag, err := r.db.Exec(ctx, `UPDATE salons SET plan = $2 WHERE id = $1`, id, plan)
	if err != nil {
		return fmt.Errorf("salon: update plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAsaasCustomerID links the salon to its billing customer.
func (r *Repository) SetAsaasCustomerID(ctx context.Context, id, customerID string) error {
	tag, err := r.db.Exec(ctx, `UPDATE salons SET asaas_customer_id = $2 WHERE id = $1`, id, customerID)
	if err != nil {
		return fmt.Errorf("salon: set asaas customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
