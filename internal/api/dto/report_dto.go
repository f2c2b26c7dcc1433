package dto

import (
	"time"

	"github.com/aquanet/incident-service/internal/domain"
)

// CreateReportRequest is the public intake payload.
type CreateReportRequest struct {
	Category    domain.ReportCategory `json:"category"`
	Severity    domain.ReportSeverity `json:"severity"`
	Description string                `json:"description"`
	Area        string                `json:"area"`
	Latitude    *float64              `json:"latitude"`
	Longitude   *float64              `json:"longitude"`
	Reporter    *ReporterRequest      `json:"reporter"`
}

// ReporterRequest carries optional contact details.
type ReporterRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
	Email *string `json:"email"`
}

// CreateReportResponse returns the shareable tracking number.
type CreateReportResponse struct {
	TicketNumber string `json:"ticket_number"`
}

// TimelineEntryResponse is one audit entry.
type TimelineEntryResponse struct {
	Status    domain.ReportStatus `json:"status"`
	Message   string              `json:"message"`
	Timestamp time.Time           `json:"timestamp"`
}

// TrackingResponse is the public view of a report: no reporter PII.
type TrackingResponse struct {
	TicketNumber string                  `json:"ticket_number"`
	Category     domain.ReportCategory   `json:"category"`
	Severity     domain.ReportSeverity   `json:"severity"`
	Status       domain.ReportStatus     `json:"status"`
	Area         string                  `json:"area"`
	Timeline     []TimelineEntryResponse `json:"timeline"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

// StaffReportSummary is one row of the staff dashboard list.
type StaffReportSummary struct {
	ID           string                `json:"id"`
	TicketNumber string                `json:"ticket_number"`
	Category     domain.ReportCategory `json:"category"`
	Severity     domain.ReportSeverity `json:"severity"`
	Status       domain.ReportStatus   `json:"status"`
	Area         string                `json:"area"`
	AssignedTo   *string               `json:"assigned_to"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// StaffReportResponse is the staff view of a report.
type StaffReportResponse struct {
	ID               string                  `json:"id"`
	TicketNumber     string                  `json:"ticket_number"`
	Category         domain.ReportCategory   `json:"category"`
	Severity         domain.ReportSeverity   `json:"severity"`
	Status           domain.ReportStatus     `json:"status"`
	Description      string                  `json:"description"`
	Area             string                  `json:"area"`
	Latitude         *float64                `json:"latitude"`
	Longitude        *float64                `json:"longitude"`
	ReporterName     *string                 `json:"reporter_name"`
	ReporterPhone    *string                 `json:"reporter_phone"`
	ReporterEmail    *string                 `json:"reporter_email"`
	AssignedTo       *string                 `json:"assigned_to"`
	Timeline         []TimelineEntryResponse `json:"timeline"`
	AvailableActions []domain.ReportStatus   `json:"available_actions"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

// UpdateStatusRequest carries a transition request. UpdatedAt, when present,
// is the optimistic-concurrency token the caller last observed.
type UpdateStatusRequest struct {
	Status    domain.ReportStatus `json:"status"`
	Note      string              `json:"note"`
	UpdatedAt *time.Time          `json:"updated_at"`
}

// AssignRequest binds a responder to a report.
type AssignRequest struct {
	ResponderID string `json:"responder_id"`
}

// ResponderResponse is one directory entry.
type ResponderResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// PostMessageRequest appends to the report thread.
type PostMessageRequest struct {
	SenderType domain.SenderType `json:"sender_type"`
	SenderName *string           `json:"sender_name"`
	Content    string            `json:"content"`
}

// MessageResponse is one thread entry.
type MessageResponse struct {
	ID         string            `json:"id"`
	SenderType domain.SenderType `json:"sender_type"`
	SenderName *string           `json:"sender_name"`
	Content    string            `json:"content"`
	Read       bool              `json:"read"`
	CreatedAt  time.Time         `json:"created_at"`
}
