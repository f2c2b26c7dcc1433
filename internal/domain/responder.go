package domain

import "time"

// Responder models a field technician or crew a report can be assigned to.
// The directory is maintained externally; the core only validates against it.
type Responder struct {
	ID        string
	Name      string
	Phone     string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
