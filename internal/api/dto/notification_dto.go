package dto

import (
	"time"

	"github.com/aquanet/incident-service/internal/domain"
)

// NotificationResponse is one staff notification.
type NotificationResponse struct {
	ID             string                      `json:"id"`
	Title          string                      `json:"title"`
	Message        string                      `json:"message"`
	Severity       domain.NotificationSeverity `json:"severity"`
	Read           bool                        `json:"read"`
	ActionURL      *string                     `json:"action_url,omitempty"`
	SourceReportID *string                     `json:"source_report_id,omitempty"`
	CreatedAt      time.Time                   `json:"created_at"`
}

// EscalationResponse is one watchdog record.
type EscalationResponse struct {
	ID             string     `json:"id"`
	NotificationID string     `json:"notification_id"`
	ReportID       string     `json:"report_id"`
	Acknowledged   bool       `json:"acknowledged"`
	Resolved       bool       `json:"resolved"`
	CreatedAt      time.Time  `json:"created_at"`
	EscalatedAt    *time.Time `json:"escalated_at,omitempty"`
}

// UnreadCountResponse carries the unread counter.
type UnreadCountResponse struct {
	Unread int `json:"unread"`
}
