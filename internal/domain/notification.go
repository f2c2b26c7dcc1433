package domain

import "time"

// NotificationSeverity is presentation priority, distinct from report severity.
type NotificationSeverity string

const (
	NotifyCritical NotificationSeverity = "critical"
	NotifyWarning  NotificationSeverity = "warning"
	NotifySuccess  NotificationSeverity = "success"
	NotifyInfo     NotificationSeverity = "info"
)

// Valid reports whether the severity is a known enumeration value.
func (s NotificationSeverity) Valid() bool {
	switch s {
	case NotifyCritical, NotifyWarning, NotifySuccess, NotifyInfo:
		return true
	}
	return false
}

// Rank orders severities for cue selection; higher is more urgent.
func (s NotificationSeverity) Rank() int {
	switch s {
	case NotifyCritical:
		return 3
	case NotifyWarning:
		return 2
	case NotifySuccess:
		return 1
	default:
		return 0
	}
}

// Notification is a unit of out-of-band information for a staff client.
// Only the Read flag mutates after creation, and only false -> true.
type Notification struct {
	ID             string
	Title          string
	Message        string
	Severity       NotificationSeverity
	Read           bool
	ActionURL      *string
	SourceReportID *string
	CreatedAt      time.Time
}
