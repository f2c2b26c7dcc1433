package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aquanet/incident-service/internal/domain"
)

// EscalationRepository stores watchdog records for critical notifications.
type EscalationRepository interface {
	Create(ctx context.Context, esc *domain.Escalation) error
	GetByID(ctx context.Context, id string) (*domain.Escalation, error)
	List(ctx context.Context, openOnly bool) ([]domain.Escalation, error)
	// ListOpen returns escalations with acknowledged=false and resolved=false.
	ListOpen(ctx context.Context) ([]domain.Escalation, error)
	Acknowledge(ctx context.Context, id string) error
	MarkEscalated(ctx context.Context, id string, at time.Time) error
	ResolveByReport(ctx context.Context, reportID string) error
}

type escalationRepository struct {
	pool *pgxpool.Pool
}

// NewEscalationRepository builds repository.
func NewEscalationRepository(pool *pgxpool.Pool) EscalationRepository {
	return &escalationRepository{pool: pool}
}

func (r *escalationRepository) Create(ctx context.Context, esc *domain.Escalation) error {
	const query = `
        INSERT INTO escalations (notification_id, report_id, acknowledged, resolved)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		esc.NotificationID,
		esc.ReportID,
		esc.Acknowledged,
		esc.Resolved,
	).Scan(&esc.ID, &esc.CreatedAt)
}

const escalationColumns = `id, notification_id, report_id, acknowledged, resolved, created_at, escalated_at`

func (r *escalationRepository) GetByID(ctx context.Context, id string) (*domain.Escalation, error) {
	query := `SELECT ` + escalationColumns + ` FROM escalations WHERE id=$1`
	var esc domain.Escalation
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&esc.ID, &esc.NotificationID, &esc.ReportID,
		&esc.Acknowledged, &esc.Resolved, &esc.CreatedAt, &esc.EscalatedAt,
	); err != nil {
		return nil, err
	}
	return &esc, nil
}

func (r *escalationRepository) List(ctx context.Context, openOnly bool) ([]domain.Escalation, error) {
	query := `SELECT ` + escalationColumns + ` FROM escalations`
	if openOnly {
		query += ` WHERE acknowledged=FALSE AND resolved=FALSE`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEscalations(rows)
}

func (r *escalationRepository) ListOpen(ctx context.Context) ([]domain.Escalation, error) {
	return r.List(ctx, true)
}

// Acknowledge is a one-way terminal transition; repeated calls are no-ops.
func (r *escalationRepository) Acknowledge(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE escalations SET acknowledged=TRUE WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *escalationRepository) MarkEscalated(ctx context.Context, id string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE escalations SET escalated_at=$1 WHERE id=$2`, at, id)
	return err
}

func (r *escalationRepository) ResolveByReport(ctx context.Context, reportID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE escalations SET resolved=TRUE WHERE report_id=$1 AND resolved=FALSE`, reportID)
	return err
}

func scanEscalations(rows pgx.Rows) ([]domain.Escalation, error) {
	var result []domain.Escalation
	for rows.Next() {
		var esc domain.Escalation
		if err := rows.Scan(
			&esc.ID, &esc.NotificationID, &esc.ReportID,
			&esc.Acknowledged, &esc.Resolved, &esc.CreatedAt, &esc.EscalatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, esc)
	}
	return result, rows.Err()
}
