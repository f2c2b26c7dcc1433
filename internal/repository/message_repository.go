package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aquanet/incident-service/internal/domain"
)

// MessageRepository manages report thread messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	ListByReport(ctx context.Context, reportID string) ([]domain.Message, error)
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository builds repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	const query = `
        INSERT INTO messages (report_id, sender_type, sender_name, content, read)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		msg.ReportID,
		msg.SenderType,
		msg.SenderName,
		msg.Content,
		msg.Read,
	).Scan(&msg.ID, &msg.CreatedAt)
}

func (r *messageRepository) ListByReport(ctx context.Context, reportID string) ([]domain.Message, error) {
	const query = `
        SELECT id, report_id, sender_type, sender_name, content, read, created_at
        FROM messages WHERE report_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.ReportID,
			&msg.SenderType,
			&msg.SenderName,
			&msg.Content,
			&msg.Read,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
