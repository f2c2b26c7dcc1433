package events

import (
	"time"

	"github.com/aquanet/incident-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventReportCreated       EventType = "report_created"
	EventReportStatusChanged EventType = "report_status_changed"
	EventReportAssigned      EventType = "report_assigned"
	EventMessagePosted       EventType = "message_posted"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID           string      `json:"id"`
	Type         EventType   `json:"type"`
	ReportID     string      `json:"report_id"`
	TicketNumber string      `json:"ticket_number"`
	Timestamp    time.Time   `json:"timestamp"`
	Payload      interface{} `json:"payload"`
}

// ReportCreatedPayload payload.
type ReportCreatedPayload struct {
	Category domain.ReportCategory `json:"category"`
	Severity domain.ReportSeverity `json:"severity"`
	Area     string                `json:"area"`
}

// ReportStatusChangedPayload payload.
type ReportStatusChangedPayload struct {
	OldStatus domain.ReportStatus   `json:"old_status"`
	NewStatus domain.ReportStatus   `json:"new_status"`
	Severity  domain.ReportSeverity `json:"severity"`
	Note      string                `json:"note,omitempty"`
}

// ReportAssignedPayload payload.
type ReportAssignedPayload struct {
	ResponderID string `json:"responder_id"`
	Reassigned  bool   `json:"reassigned"`
}

// MessagePostedPayload payload.
type MessagePostedPayload struct {
	MessageID    string              `json:"message_id"`
	SenderType   domain.SenderType   `json:"sender_type"`
	ReportStatus domain.ReportStatus `json:"report_status"`
	BodyPreview  string              `json:"body_preview"`
}
