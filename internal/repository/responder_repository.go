package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aquanet/incident-service/internal/domain"
)

// ResponderRepository reads the responder directory. The directory itself is
// maintained by an external system; the core only validates against it.
type ResponderRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Responder, error)
	ListActive(ctx context.Context) ([]domain.Responder, error)
}

type responderRepository struct {
	pool *pgxpool.Pool
}

// NewResponderRepository builds repository.
func NewResponderRepository(pool *pgxpool.Pool) ResponderRepository {
	return &responderRepository{pool: pool}
}

func (r *responderRepository) GetByID(ctx context.Context, id string) (*domain.Responder, error) {
	const query = `
        SELECT id, name, phone, active, created_at, updated_at
        FROM responders WHERE id=$1`
	var responder domain.Responder
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&responder.ID,
		&responder.Name,
		&responder.Phone,
		&responder.Active,
		&responder.CreatedAt,
		&responder.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &responder, nil
}

func (r *responderRepository) ListActive(ctx context.Context) ([]domain.Responder, error) {
	const query = `
        SELECT id, name, phone, active, created_at, updated_at
        FROM responders WHERE active=TRUE ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Responder
	for rows.Next() {
		var responder domain.Responder
		if err := rows.Scan(
			&responder.ID,
			&responder.Name,
			&responder.Phone,
			&responder.Active,
			&responder.CreatedAt,
			&responder.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, responder)
	}
	return result, rows.Err()
}
