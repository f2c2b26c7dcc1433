package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aquanet/incident-service/internal/domain"
	"github.com/aquanet/incident-service/internal/events"
	"github.com/aquanet/incident-service/internal/repository"
	apperrors "github.com/aquanet/incident-service/pkg/util"
)

// AssignmentService binds reports to responders.
type AssignmentService struct {
	reports    repository.ReportRepository
	responders repository.ResponderRepository
	lifecycle  *ReportService
	dispatcher events.Dispatcher
}

// AssignmentDependencies bundles dependencies.
type AssignmentDependencies struct {
	ReportRepo    repository.ReportRepository
	ResponderRepo repository.ResponderRepository
	Lifecycle     *ReportService
	Dispatcher    events.Dispatcher
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		reports:    deps.ReportRepo,
		responders: deps.ResponderRepo,
		lifecycle:  deps.Lifecycle,
		dispatcher: deps.Dispatcher,
	}
}

// Assign binds the report to a responder. While the report is received or
// under_review the assignment also performs the technician_assigned
// transition; a report already assigned and not yet started is reassigned in
// place with a timeline note. Started or finished reports reject assignment
// with InvalidState.
func (s *AssignmentService) Assign(ctx context.Context, ticketNumber, responderID string) (*domain.Report, error) {
	responder, err := s.responders.GetByID(ctx, responderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("responder", map[string]any{"responder_id": responderID})
		}
		return nil, apperrors.MapError(err)
	}
	if !responder.Active {
		return nil, apperrors.NewConflict("responder inactive", map[string]any{"responder_id": responderID})
	}

	report, err := s.reports.GetByTicketNumber(ctx, ticketNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("report", map[string]any{"ticket_number": ticketNumber})
		}
		return nil, apperrors.MapError(err)
	}

	switch report.Status {
	case domain.StatusReceived, domain.StatusUnderReview:
		reassigned := report.AssignedTo != nil
		report.AssignedTo = &responder.ID
		updated, err := s.lifecycle.TransitionLoaded(ctx, report, domain.StatusTechnicianAssigned, "", nil)
		if err != nil {
			return nil, err
		}
		s.publishAssignedEvent(ctx, updated, responder.ID, reassigned)
		return updated, nil
	case domain.StatusTechnicianAssigned:
		return s.reassign(ctx, report, responder)
	default:
		return nil, apperrors.NewInvalidState(
			fmt.Sprintf("report in status %s cannot be assigned", report.Status),
			map[string]any{"ticket_number": ticketNumber, "status": report.Status})
	}
}

// reassign overwrites the responder without changing status and appends a
// distinct timeline note.
func (s *AssignmentService) reassign(ctx context.Context, report *domain.Report, responder *domain.Responder) (*domain.Report, error) {
	token := report.UpdatedAt
	report.AssignedTo = &responder.ID
	entry := &domain.TimelineEntry{
		Status:  report.Status,
		Message: "Reassigned to " + responder.Name,
	}
	if err := s.reports.ApplyUpdate(ctx, report, entry, token); err != nil {
		if errors.Is(err, repository.ErrStaleToken) {
			return nil, apperrors.NewConflict("report was modified concurrently", map[string]any{
				"ticket_number": report.TicketNumber,
			})
		}
		return nil, apperrors.MapError(err)
	}
	s.publishAssignedEvent(ctx, report, responder.ID, true)
	return report, nil
}

func (s *AssignmentService) publishAssignedEvent(ctx context.Context, report *domain.Report, responderID string, reassigned bool) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:           uuid.NewString(),
		Type:         events.EventReportAssigned,
		ReportID:     report.ID,
		TicketNumber: report.TicketNumber,
		Timestamp:    time.Now(),
		Payload: events.ReportAssignedPayload{
			ResponderID: responderID,
			Reassigned:  reassigned,
		},
	}
	_ = s.dispatcher.Publish(ctx, event)
}
