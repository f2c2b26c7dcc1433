package domain

import "time"

// SenderType indicates which side of the conversation authored a message.
type SenderType string

const (
	SenderStaff  SenderType = "staff"
	SenderPublic SenderType = "public"
)

// Valid reports whether the sender type is a known enumeration value.
func (s SenderType) Valid() bool {
	return s == SenderStaff || s == SenderPublic
}

// Message is one entry in a report's conversation thread. Messages are
// immutable once created and never deleted; corrections are new messages.
type Message struct {
	ID         string
	ReportID   string
	SenderType SenderType
	SenderName *string
	Content    string
	Read       bool
	CreatedAt  time.Time
}
