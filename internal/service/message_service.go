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

// MessageService manages the append-only conversation thread per report.
type MessageService struct {
	reports    repository.ReportRepository
	messages   repository.MessageRepository
	dispatcher events.Dispatcher
}

// MessageDependencies bundles repositories.
type MessageDependencies struct {
	ReportRepo  repository.ReportRepository
	MessageRepo repository.MessageRepository
	Dispatcher  events.Dispatcher
}

// NewMessageService creates the service.
func NewMessageService(deps MessageDependencies) *MessageService {
	return &MessageService{
		reports:    deps.ReportRepo,
		messages:   deps.MessageRepo,
		dispatcher: deps.Dispatcher,
	}
}

// PostMessage appends a message to the report's thread. Closed reports
// reject messages with TicketClosed. Messages are immutable once created;
// corrections are new messages.
func (s *MessageService) PostMessage(ctx context.Context, ticketNumber string, senderType domain.SenderType, content string, senderName *string) (*domain.Message, error) {
	if !senderType.Valid() {
		return nil, apperrors.NewValidationError("unknown sender type", map[string]any{"sender_type": senderType})
	}
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.NewValidationError("content required", nil)
	}

	report, err := s.reports.GetByTicketNumber(ctx, ticketNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("report", map[string]any{"ticket_number": ticketNumber})
		}
		return nil, apperrors.MapError(err)
	}
	if report.Status == domain.StatusClosed {
		return nil, apperrors.NewTicketClosed(ticketNumber)
	}

	msg := &domain.Message{
		ReportID:   report.ID,
		SenderType: senderType,
		SenderName: senderName,
		Content:    strings.TrimSpace(content),
		// Unread for the opposite party until they fetch the thread.
		Read: false,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:         events.EventMessagePosted,
		ReportID:     report.ID,
		TicketNumber: report.TicketNumber,
		Payload: events.MessagePostedPayload{
			MessageID:    msg.ID,
			SenderType:   msg.SenderType,
			ReportStatus: report.Status,
			BodyPreview:  stringPreview(msg.Content, 120),
		},
	})
	return msg, nil
}

// ListMessages returns the thread in creation order.
func (s *MessageService) ListMessages(ctx context.Context, ticketNumber string) ([]domain.Message, error) {
	report, err := s.reports.GetByTicketNumber(ctx, ticketNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("report", map[string]any{"ticket_number": ticketNumber})
		}
		return nil, apperrors.MapError(err)
	}
	return s.messages.ListByReport(ctx, report.ID)
}

func (s *MessageService) publishEvent(ctx context.Context, event events.Event) {
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

// stringPreview truncates body to max runes. Cutting on a rune boundary
// keeps multi-byte content valid UTF-8 in event payloads.
func stringPreview(body string, max int) string {
	runes := []rune(strings.TrimSpace(body))
	if len(runes) <= max {
		return string(runes)
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
