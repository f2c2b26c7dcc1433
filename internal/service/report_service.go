package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aquanet/incident-service/internal/domain"
	"github.com/aquanet/incident-service/internal/events"
	"github.com/aquanet/incident-service/internal/repository"
	apperrors "github.com/aquanet/incident-service/pkg/util"
)

// ReportService coordinates report intake and the status lifecycle.
type ReportService struct {
	reports    repository.ReportRepository
	dispatcher events.Dispatcher
}

// ReportDependencies bundles repositories for the report service.
type ReportDependencies struct {
	ReportRepo repository.ReportRepository
	Dispatcher events.Dispatcher
}

// ReportCreateInput describes the public intake payload.
type ReportCreateInput struct {
	Category    domain.ReportCategory
	Severity    domain.ReportSeverity
	Description string
	Area        string
	Latitude    *float64
	Longitude   *float64
	Reporter    domain.Reporter
}

// ReportListFilter describes staff listing filters.
type ReportListFilter struct {
	Statuses   []domain.ReportStatus
	SearchTerm *string
	Limit      int
	Offset     int
}

// NewReportService constructs the service.
func NewReportService(deps ReportDependencies) *ReportService {
	return &ReportService{
		reports:    deps.ReportRepo,
		dispatcher: deps.Dispatcher,
	}
}

// CreateReport files a new incident report. Status always initializes to
// received and the first timeline entry is written atomically with it.
func (s *ReportService) CreateReport(ctx context.Context, input ReportCreateInput) (*domain.Report, error) {
	if !input.Category.Valid() {
		return nil, apperrors.NewValidationError("unknown category", map[string]any{"category": input.Category})
	}
	if input.Severity == "" {
		input.Severity = domain.SeverityMedium
	}
	if !input.Severity.Valid() {
		return nil, apperrors.NewValidationError("unknown severity", map[string]any{"severity": input.Severity})
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, apperrors.NewValidationError("description required", nil)
	}

	report := &domain.Report{
		TicketNumber: generateTicketNumber(),
		Category:     input.Category,
		Severity:     input.Severity,
		Status:       domain.StatusReceived,
		Description:  strings.TrimSpace(input.Description),
		Area:         strings.TrimSpace(input.Area),
		Latitude:     input.Latitude,
		Longitude:    input.Longitude,
		Reporter:     input.Reporter,
	}
	first := &domain.TimelineEntry{
		Status:  domain.StatusReceived,
		Message: domain.TransitionMessage(domain.StatusReceived),
	}

	if err := s.reports.Create(ctx, report, first); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:         events.EventReportCreated,
		ReportID:     report.ID,
		TicketNumber: report.TicketNumber,
		Payload: events.ReportCreatedPayload{
			Category: report.Category,
			Severity: report.Severity,
			Area:     report.Area,
		},
	})
	return report, nil
}

// GetReport fetches a report by its ticket number.
func (s *ReportService) GetReport(ctx context.Context, ticketNumber string) (*domain.Report, error) {
	report, err := s.reports.GetByTicketNumber(ctx, ticketNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("report", map[string]any{"ticket_number": ticketNumber})
		}
		return nil, apperrors.MapError(err)
	}
	return report, nil
}

// ListReports returns reports matching the staff filter.
func (s *ReportService) ListReports(ctx context.Context, filter ReportListFilter) ([]domain.Report, error) {
	for _, status := range filter.Statuses {
		if !status.Valid() {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": status})
		}
	}
	repoFilter := repository.ReportFilter{
		Statuses:   filter.Statuses,
		SearchTerm: filter.SearchTerm,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	return s.reports.ListWithFilter(ctx, repoFilter)
}

// Transition applies a lifecycle transition to the report identified by
// ticket number. token, when non-nil, is the optimistic-concurrency value the
// caller observed; a stale token fails with Conflict. An edge absent from the
// lifecycle graph fails with InvalidTransition and leaves the report unchanged.
func (s *ReportService) Transition(ctx context.Context, ticketNumber string, target domain.ReportStatus, note string, token *time.Time) (*domain.Report, error) {
	if !target.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": target})
	}
	report, err := s.GetReport(ctx, ticketNumber)
	if err != nil {
		return nil, err
	}
	return s.TransitionLoaded(ctx, report, target, note, token)
}

// TransitionLoaded applies a transition to an already-fetched report. The
// assignment flow uses it so assignment and transition share one engine.
func (s *ReportService) TransitionLoaded(ctx context.Context, report *domain.Report, target domain.ReportStatus, note string, token *time.Time) (*domain.Report, error) {
	// A stale token is a lost race, not an illegal edge; report it as
	// Conflict before the edge is judged against the fresher status.
	concurrencyToken := report.UpdatedAt
	if token != nil {
		if !token.Equal(report.UpdatedAt) {
			return nil, apperrors.NewConflict("report was modified concurrently", map[string]any{
				"ticket_number": report.TicketNumber,
			})
		}
		concurrencyToken = *token
	}

	if !domain.CanTransition(report.Status, target) {
		return nil, apperrors.NewInvalidTransition(string(report.Status), string(target))
	}

	message := domain.TransitionMessage(target)
	if strings.TrimSpace(note) != "" {
		message = strings.TrimSpace(note)
	}

	oldStatus := report.Status
	report.Status = target
	entry := &domain.TimelineEntry{
		Status:  target,
		Message: message,
	}
	if err := s.reports.ApplyUpdate(ctx, report, entry, concurrencyToken); err != nil {
		report.Status = oldStatus
		if errors.Is(err, repository.ErrStaleToken) {
			return nil, apperrors.NewConflict("report was modified concurrently", map[string]any{
				"ticket_number": report.TicketNumber,
			})
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("report", map[string]any{"ticket_number": report.TicketNumber})
		}
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:         events.EventReportStatusChanged,
		ReportID:     report.ID,
		TicketNumber: report.TicketNumber,
		Payload: events.ReportStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: target,
			Severity:  report.Severity,
			Note:      note,
		},
	})
	return report, nil
}

// AvailableActions returns the transitions currently permitted for a report,
// straight from the lifecycle table.
func (s *ReportService) AvailableActions(report *domain.Report) []domain.ReportStatus {
	return domain.AvailableTransitions(report.Status)
}

func (s *ReportService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func generateTicketNumber() string {
	return "WTR-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
