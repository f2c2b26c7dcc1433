package domain

import "time"

// Escalation is a watchdog record wrapping a critical notification. It is
// created alongside the notification and re-alerts while unacknowledged and
// unresolved. Acknowledgement is one-way; once resolved no escalation fires.
type Escalation struct {
	ID             string
	NotificationID string
	ReportID       string
	Acknowledged   bool
	Resolved       bool
	CreatedAt      time.Time
	EscalatedAt    *time.Time
}
