package domain

import "time"

// ReportStatus enumerates lifecycle states for incident reports.
type ReportStatus string

const (
	StatusReceived           ReportStatus = "received"
	StatusUnderReview        ReportStatus = "under_review"
	StatusTechnicianAssigned ReportStatus = "technician_assigned"
	StatusInProgress         ReportStatus = "in_progress"
	StatusResolved           ReportStatus = "resolved"
	StatusClosed             ReportStatus = "closed"
)

// Valid reports whether the status is a known enumeration value.
func (s ReportStatus) Valid() bool {
	switch s {
	case StatusReceived, StatusUnderReview, StatusTechnicianAssigned,
		StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// Terminal reports whether no further transition may leave this status.
func (s ReportStatus) Terminal() bool {
	return s == StatusClosed
}

// ReportCategory enumerates incident types the public can report.
type ReportCategory string

const (
	CategoryLeak              ReportCategory = "leak"
	CategoryBurst             ReportCategory = "burst"
	CategoryNoWater           ReportCategory = "no-water"
	CategoryLowPressure       ReportCategory = "low-pressure"
	CategoryIllegalConnection ReportCategory = "illegal-connection"
	CategoryOverflow          ReportCategory = "overflow"
	CategoryContamination     ReportCategory = "contamination"
	CategoryOther             ReportCategory = "other"
)

// Valid reports whether the category is a known enumeration value.
func (c ReportCategory) Valid() bool {
	switch c {
	case CategoryLeak, CategoryBurst, CategoryNoWater, CategoryLowPressure,
		CategoryIllegalConnection, CategoryOverflow, CategoryContamination, CategoryOther:
		return true
	}
	return false
}

// ReportSeverity classifies impact/urgency at intake.
type ReportSeverity string

const (
	SeverityCritical ReportSeverity = "critical"
	SeverityHigh     ReportSeverity = "high"
	SeverityMedium   ReportSeverity = "medium"
	SeverityLow      ReportSeverity = "low"
)

// Valid reports whether the severity is a known enumeration value.
func (s ReportSeverity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Reporter carries optional contact details for the person filing a report.
// Tracking never requires it; the ticket number alone identifies a report.
type Reporter struct {
	Name  *string
	Phone *string
	Email *string
}

// Report is the aggregate for a public water-network incident.
type Report struct {
	ID           string
	TicketNumber string
	Category     ReportCategory
	Severity     ReportSeverity
	Status       ReportStatus
	Description  string
	Area         string
	Latitude     *float64
	Longitude    *float64
	Reporter     Reporter
	AssignedTo   *string
	Timeline     []TimelineEntry
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CurrentTimelineStatus returns the status recorded by the last timeline
// entry. It always equals Status for a consistent report.
func (r *Report) CurrentTimelineStatus() ReportStatus {
	if len(r.Timeline) == 0 {
		return ""
	}
	return r.Timeline[len(r.Timeline)-1].Status
}
