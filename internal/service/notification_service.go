package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/aquanet/incident-service/internal/delivery"
	"github.com/aquanet/incident-service/internal/domain"
	"github.com/aquanet/incident-service/internal/events"
	"github.com/aquanet/incident-service/internal/observability"
	"github.com/aquanet/incident-service/internal/repository"
	apperrors "github.com/aquanet/incident-service/pkg/util"
)

// NotificationService is the notification factory: it converts domain events
// into persisted notification records and hands them to the delivery
// channel. Classification is deterministic and table-driven; critical intake
// additionally opens an escalation watchdog.
type NotificationService struct {
	notifications repository.NotificationRepository
	escalations   repository.EscalationRepository
	publisher     delivery.Publisher
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	metrics       *observability.Metrics
}

// NotificationDependencies bundles dependencies.
type NotificationDependencies struct {
	NotificationRepo repository.NotificationRepository
	EscalationRepo   repository.EscalationRepository
	Publisher        delivery.Publisher
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
	Metrics          *observability.Metrics
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	return &NotificationService{
		notifications: deps.NotificationRepo,
		escalations:   deps.EscalationRepo,
		publisher:     deps.Publisher,
		dispatcher:    deps.Dispatcher,
		logger:        deps.Logger,
		metrics:       deps.Metrics,
	}
}

// RegisterHandlers subscribes to the domain events the factory classifies.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventReportCreated, n.handleReportCreated)
	n.dispatcher.Subscribe(events.EventReportStatusChanged, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventMessagePosted, n.handleMessagePosted)
}

func (n *NotificationService) handleReportCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ReportCreatedPayload)
	if !ok {
		return nil
	}
	if payload.Severity == domain.SeverityCritical {
		return n.emitCritical(ctx, event,
			fmt.Sprintf("Critical %s reported", payload.Category),
			fmt.Sprintf("Report %s: critical %s in %s requires immediate review", event.TicketNumber, payload.Category, areaOrUnknown(payload.Area)))
	}
	return n.emit(ctx, event, domain.NotifyInfo,
		"New report received",
		fmt.Sprintf("Report %s: %s in %s", event.TicketNumber, payload.Category, areaOrUnknown(payload.Area)))
}

func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ReportStatusChangedPayload)
	if !ok {
		return nil
	}
	switch {
	case payload.NewStatus == domain.StatusResolved:
		return n.emit(ctx, event, domain.NotifySuccess,
			"Report resolved",
			fmt.Sprintf("Report %s has been resolved", event.TicketNumber))
	case payload.Severity == domain.SeverityCritical && unreviewed(payload.NewStatus):
		// A critical report still awaiting triage re-enters the
		// escalation window.
		return n.emitCritical(ctx, event,
			"Critical report awaiting review",
			fmt.Sprintf("Report %s is critical and still %s", event.TicketNumber, payload.NewStatus))
	default:
		return n.emit(ctx, event, domain.NotifyInfo,
			"Report status updated",
			fmt.Sprintf("Report %s moved to %s", event.TicketNumber, payload.NewStatus))
	}
}

func (n *NotificationService) handleMessagePosted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.MessagePostedPayload)
	if !ok {
		return nil
	}
	if payload.SenderType != domain.SenderPublic {
		// Staff replies go out to the reporter over external channels,
		// not to the staff feed.
		return nil
	}
	severity := domain.NotifyWarning
	if payload.ReportStatus == domain.StatusResolved || payload.ReportStatus == domain.StatusClosed {
		severity = domain.NotifyInfo
	}
	return n.emit(ctx, event, severity,
		"New message from reporter",
		fmt.Sprintf("Report %s: %s", event.TicketNumber, payload.BodyPreview))
}

// emit persists a notification and then hands it to the delivery channel.
// Persistence failures propagate; delivery failures only log, because the
// record is durable and pollers will pick it up.
func (n *NotificationService) emit(ctx context.Context, event events.Event, severity domain.NotificationSeverity, title, message string) error {
	notification, err := n.store(ctx, event, severity, title, message)
	if err != nil {
		return err
	}
	n.deliver(ctx, notification)
	return nil
}

// emitCritical stores a critical notification plus its escalation watchdog
// before attempting delivery.
func (n *NotificationService) emitCritical(ctx context.Context, event events.Event, title, message string) error {
	notification, err := n.store(ctx, event, domain.NotifyCritical, title, message)
	if err != nil {
		return err
	}
	escalation := &domain.Escalation{
		NotificationID: notification.ID,
		ReportID:       event.ReportID,
	}
	if err := n.escalations.Create(ctx, escalation); err != nil {
		n.logger.Error("failed to create escalation", zap.Error(err), zap.String("report_id", event.ReportID))
	}
	n.deliver(ctx, notification)
	return nil
}

func (n *NotificationService) store(ctx context.Context, event events.Event, severity domain.NotificationSeverity, title, message string) (*domain.Notification, error) {
	actionURL := "/staff/reports/" + event.TicketNumber
	notification := &domain.Notification{
		Title:          title,
		Message:        message,
		Severity:       severity,
		ActionURL:      &actionURL,
		SourceReportID: &event.ReportID,
	}
	if err := n.notifications.Create(ctx, notification); err != nil {
		n.logger.Error("failed to persist notification", zap.Error(err))
		return nil, err
	}
	n.metrics.RecordNotification(string(severity))
	return notification, nil
}

func (n *NotificationService) deliver(ctx context.Context, notification *domain.Notification) {
	if n.publisher == nil {
		return
	}
	if err := n.publisher.Publish(ctx, *notification); err != nil {
		n.logger.Warn("notification delivery failed; pollers will catch up", zap.Error(err))
	}
}

// ListNotifications returns notifications created after the cursor, oldest
// first, for the backlog and the polling fallback.
func (n *NotificationService) ListNotifications(ctx context.Context, afterID *string, limit int) ([]domain.Notification, error) {
	return n.notifications.List(ctx, repository.NotificationFilter{
		AfterID: afterID,
		Limit:   limit,
	})
}

// MarkRead flips a notification to read. Monotonic and idempotent.
func (n *NotificationService) MarkRead(ctx context.Context, id string) error {
	if err := n.notifications.MarkRead(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("notification", map[string]any{"id": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// MarkAllRead flips every unread notification to read. Idempotent.
func (n *NotificationService) MarkAllRead(ctx context.Context) error {
	return apperrors.MapError(n.notifications.MarkAllRead(ctx))
}

// UnreadCount returns the number of unread notifications.
func (n *NotificationService) UnreadCount(ctx context.Context) (int, error) {
	return n.notifications.CountUnread(ctx)
}

// ListEscalations lists escalation records, optionally only open ones.
func (n *NotificationService) ListEscalations(ctx context.Context, openOnly bool) ([]domain.Escalation, error) {
	return n.escalations.List(ctx, openOnly)
}

// AcknowledgeEscalation is the staff's one-way acknowledgement. It does not
// imply the underlying report is resolved.
func (n *NotificationService) AcknowledgeEscalation(ctx context.Context, id string) error {
	if err := n.escalations.Acknowledge(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("escalation", map[string]any{"id": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}

func unreviewed(status domain.ReportStatus) bool {
	return status == domain.StatusReceived || status == domain.StatusUnderReview
}

func areaOrUnknown(area string) string {
	if area == "" {
		return "an unspecified area"
	}
	return area
}
