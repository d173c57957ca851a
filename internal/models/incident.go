package models

import "time"

// IncidentSeverity grades an incident.
type IncidentSeverity string

const (
	SeverityLow      IncidentSeverity = "low"
	SeverityMedium   IncidentSeverity = "medium"
	SeverityHigh     IncidentSeverity = "high"
	SeverityCritical IncidentSeverity = "critical"
)

// Valid returns true when the severity is a supported value.
func (s IncidentSeverity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// IncidentStatus tracks investigation progress.
type IncidentStatus string

const (
	IncidentStatusOpen          IncidentStatus = "open"
	IncidentStatusInvestigating IncidentStatus = "investigating"
	IncidentStatusClosed        IncidentStatus = "closed"
)

// Valid returns true when the status is a supported value.
func (s IncidentStatus) Valid() bool {
	switch s {
	case IncidentStatusOpen, IncidentStatusInvestigating, IncidentStatusClosed:
		return true
	default:
		return false
	}
}

// Incident is a disciplinary or safety occurrence reported by a prefect.
type Incident struct {
	Record
	ReportedBy   string           `db:"reported_by" json:"reported_by"`
	ReporterName *string          `db:"reporter_name" json:"reporter_name,omitempty"`
	Title        string           `db:"title" json:"title"`
	Description  string           `db:"description" json:"description"`
	Location     *string          `db:"location" json:"location,omitempty"`
	Severity     IncidentSeverity `db:"severity" json:"severity"`
	Status       IncidentStatus   `db:"status" json:"status"`
	OccurredAt   time.Time        `db:"occurred_at" json:"occurred_at"`
	ActionTaken  *string          `db:"action_taken" json:"action_taken,omitempty"`
}

// OwnerID implements Owned.
func (i Incident) OwnerID() string { return i.ReportedBy }

// CreateIncidentRequest reports an incident.
type CreateIncidentRequest struct {
	Title       string           `json:"title" validate:"required,max=200"`
	Description string           `json:"description" validate:"required"`
	Location    *string          `json:"location"`
	Severity    IncidentSeverity `json:"severity" validate:"required,oneof=low medium high critical"`
	OccurredAt  *time.Time       `json:"occurred_at"`
}

// UpdateIncidentRequest edits an incident.
type UpdateIncidentRequest struct {
	Title       *string           `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string           `json:"description" validate:"omitempty,min=1"`
	Location    *string           `json:"location"`
	Severity    *IncidentSeverity `json:"severity" validate:"omitempty,oneof=low medium high critical"`
	Status      *IncidentStatus   `json:"status" validate:"omitempty,oneof=open investigating closed"`
	OccurredAt  *time.Time        `json:"occurred_at"`
	ActionTaken *string           `json:"action_taken"`
}
