package domain

import "time"

// TimelineEntry is an immutable audit entry on a report. The first entry is
// written atomically with report creation; later entries record status
// transitions and reassignment notes. The last entry's status always equals
// the report's status, and timestamps are non-decreasing per report.
type TimelineEntry struct {
	ID        string
	ReportID  string
	Status    ReportStatus
	Message   string
	CreatedAt time.Time
}
