package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aquanet/incident-service/internal/domain"
)

// NotificationFilter controls cursor listing for backlog and polling.
type NotificationFilter struct {
	// AfterID, when set, restricts results to notifications created
	// after the one carrying this id. Unknown ids yield the full window.
	AfterID    *string
	UnreadOnly bool
	Limit      int
}

// NotificationRepository stores staff notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	GetByID(ctx context.Context, id string) (*domain.Notification, error)
	List(ctx context.Context, filter NotificationFilter) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
	CountUnread(ctx context.Context) (int, error)
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository builds repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	const query = `
        INSERT INTO notifications (title, message, severity, read, action_url, source_report_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		n.Title,
		n.Message,
		n.Severity,
		n.Read,
		n.ActionURL,
		n.SourceReportID,
	).Scan(&n.ID, &n.CreatedAt)
}

func (r *notificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	const query = `
        SELECT id, title, message, severity, read, action_url, source_report_id, created_at
        FROM notifications WHERE id=$1`
	var n domain.Notification
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&n.ID, &n.Title, &n.Message, &n.Severity, &n.Read,
		&n.ActionURL, &n.SourceReportID, &n.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepository) List(ctx context.Context, filter NotificationFilter) ([]domain.Notification, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.AfterID != nil && *filter.AfterID != "" {
		args = append(args, *filter.AfterID)
		clauses = append(clauses, fmt.Sprintf(
			`(created_at, id) > (SELECT created_at, id FROM notifications WHERE id=$%d)`, len(args)))
	}
	if filter.UnreadOnly {
		clauses = append(clauses, "read = FALSE")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
        SELECT id, title, message, severity, read, action_url, source_report_id, created_at
        FROM notifications WHERE %s ORDER BY created_at ASC, id ASC LIMIT %d`,
		strings.Join(clauses, " AND "), limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID, &n.Title, &n.Message, &n.Severity, &n.Read,
			&n.ActionURL, &n.SourceReportID, &n.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

// MarkRead flips the read flag to true. Repeated calls are a no-op, so the
// operation stays idempotent and the flag only ever moves false -> true.
func (r *notificationRepository) MarkRead(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE notifications SET read=TRUE WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `UPDATE notifications SET read=TRUE WHERE read=FALSE`)
	return err
}

func (r *notificationRepository) CountUnread(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE read=FALSE`).Scan(&count)
	return count, err
}
