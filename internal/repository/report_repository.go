package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aquanet/incident-service/internal/domain"
)

// ErrStaleToken is returned when an optimistic-concurrency token no longer
// matches the stored updated_at. The caller refetches and retries.
var ErrStaleToken = errors.New("stale update token")

// ReportFilter captures staff search parameters.
type ReportFilter struct {
	Statuses   []domain.ReportStatus
	SearchTerm *string
	Limit      int
	Offset     int
}

// ReportRepository encapsulates report persistence.
type ReportRepository interface {
	// Create inserts the report together with its first timeline entry
	// in one transaction.
	Create(ctx context.Context, report *domain.Report, first *domain.TimelineEntry) error
	GetByID(ctx context.Context, id string) (*domain.Report, error)
	GetByTicketNumber(ctx context.Context, ticketNumber string) (*domain.Report, error)
	ListWithFilter(ctx context.Context, filter ReportFilter) ([]domain.Report, error)
	// ApplyUpdate writes status and assignee guarded by the updated_at
	// token and appends the given timeline entry, atomically. Returns
	// ErrStaleToken when the token does not match.
	ApplyUpdate(ctx context.Context, report *domain.Report, entry *domain.TimelineEntry, token time.Time) error
	ListTimeline(ctx context.Context, reportID string) ([]domain.TimelineEntry, error)
}

type reportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository instantiates repository.
func NewReportRepository(pool *pgxpool.Pool) ReportRepository {
	return &reportRepository{pool: pool}
}

func (r *reportRepository) Create(ctx context.Context, report *domain.Report, first *domain.TimelineEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insertReport = `
        INSERT INTO reports (ticket_number, category, severity, status, description, area,
                             latitude, longitude, reporter_name, reporter_phone, reporter_email)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, insertReport,
		report.TicketNumber,
		report.Category,
		report.Severity,
		report.Status,
		report.Description,
		report.Area,
		report.Latitude,
		report.Longitude,
		report.Reporter.Name,
		report.Reporter.Phone,
		report.Reporter.Email,
	).Scan(&report.ID, &report.CreatedAt, &report.UpdatedAt); err != nil {
		return err
	}

	first.ReportID = report.ID
	const insertEntry = `
        INSERT INTO report_timeline (report_id, status, message, created_at)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	if err := tx.QueryRow(ctx, insertEntry,
		first.ReportID, first.Status, first.Message, report.CreatedAt,
	).Scan(&first.ID, &first.CreatedAt); err != nil {
		return err
	}
	report.Timeline = []domain.TimelineEntry{*first}

	return tx.Commit(ctx)
}

const reportColumns = `id, ticket_number, category, severity, status, description, area,
               latitude, longitude, reporter_name, reporter_phone, reporter_email,
               assigned_to, created_at, updated_at`

func (r *reportRepository) GetByID(ctx context.Context, id string) (*domain.Report, error) {
	query := fmt.Sprintf(`SELECT %s FROM reports WHERE id=$1`, reportColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *reportRepository) GetByTicketNumber(ctx context.Context, ticketNumber string) (*domain.Report, error) {
	query := fmt.Sprintf(`SELECT %s FROM reports WHERE ticket_number=$1`, reportColumns)
	return r.fetchSingle(ctx, query, ticketNumber)
}

func (r *reportRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Report, error) {
	var report domain.Report
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&report.ID,
		&report.TicketNumber,
		&report.Category,
		&report.Severity,
		&report.Status,
		&report.Description,
		&report.Area,
		&report.Latitude,
		&report.Longitude,
		&report.Reporter.Name,
		&report.Reporter.Phone,
		&report.Reporter.Email,
		&report.AssignedTo,
		&report.CreatedAt,
		&report.UpdatedAt,
	); err != nil {
		return nil, err
	}
	timeline, err := r.ListTimeline(ctx, report.ID)
	if err != nil {
		return nil, err
	}
	report.Timeline = timeline
	return &report, nil
}

func (r *reportRepository) ListWithFilter(ctx context.Context, filter ReportFilter) ([]domain.Report, error) {
	base := fmt.Sprintf(`SELECT %s FROM reports`, reportColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(description) LIKE %s OR LOWER(area) LIKE %s OR LOWER(ticket_number) LIKE %s)",
			placeholder, placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReports(rows)
}

func (r *reportRepository) ApplyUpdate(ctx context.Context, report *domain.Report, entry *domain.TimelineEntry, token time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const update = `
        UPDATE reports SET status=$1, assigned_to=$2, severity=$3, updated_at=NOW()
        WHERE id=$4 AND updated_at=$5
        RETURNING updated_at`
	if err := tx.QueryRow(ctx, update,
		report.Status, report.AssignedTo, report.Severity, report.ID, token,
	).Scan(&report.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish a missing report from a stale token.
			var exists bool
			if checkErr := r.pool.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM reports WHERE id=$1)`, report.ID,
			).Scan(&exists); checkErr != nil {
				return checkErr
			}
			if exists {
				return ErrStaleToken
			}
			return pgx.ErrNoRows
		}
		return err
	}

	if entry != nil {
		const insertEntry = `
            INSERT INTO report_timeline (report_id, status, message, created_at)
            VALUES ($1,$2,$3,$4)
            RETURNING id, created_at`
		if err := tx.QueryRow(ctx, insertEntry,
			report.ID, entry.Status, entry.Message, report.UpdatedAt,
		).Scan(&entry.ID, &entry.CreatedAt); err != nil {
			return err
		}
		entry.ReportID = report.ID
		report.Timeline = append(report.Timeline, *entry)
	}

	return tx.Commit(ctx)
}

func (r *reportRepository) ListTimeline(ctx context.Context, reportID string) ([]domain.TimelineEntry, error) {
	const query = `
        SELECT id, report_id, status, message, created_at
        FROM report_timeline WHERE report_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TimelineEntry
	for rows.Next() {
		var entry domain.TimelineEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.ReportID,
			&entry.Status,
			&entry.Message,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func scanReports(rows pgx.Rows) ([]domain.Report, error) {
	var result []domain.Report
	for rows.Next() {
		var report domain.Report
		if err := rows.Scan(
			&report.ID,
			&report.TicketNumber,
			&report.Category,
			&report.Severity,
			&report.Status,
			&report.Description,
			&report.Area,
			&report.Latitude,
			&report.Longitude,
			&report.Reporter.Name,
			&report.Reporter.Phone,
			&report.Reporter.Email,
			&report.AssignedTo,
			&report.CreatedAt,
			&report.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, report)
	}
	return result, rows.Err()
}
