package models

import "time"

// ComplaintStatus is the complaint lifecycle state.
type ComplaintStatus string

const (
	ComplaintStatusPending    ComplaintStatus = "pending"
	ComplaintStatusInProgress ComplaintStatus = "in_progress"
	ComplaintStatusResolved   ComplaintStatus = "resolved"
	ComplaintStatusDismissed  ComplaintStatus = "dismissed"
)

// Valid returns true when the status is a supported value.
func (s ComplaintStatus) Valid() bool {
	switch s {
	case ComplaintStatusPending, ComplaintStatusInProgress, ComplaintStatusResolved, ComplaintStatusDismissed:
		return true
	default:
		return false
	}
}

// Complaint is a grievance raised by any member of the school.
type Complaint struct {
	Record
	SubmittedBy   string          `db:"submitted_by" json:"submitted_by"`
	SubmitterName *string         `db:"submitter_name" json:"submitter_name,omitempty"`
	Title         string          `db:"title" json:"title"`
	Description   string          `db:"description" json:"description"`
	Category      string          `db:"category" json:"category"`
	Status        ComplaintStatus `db:"status" json:"status"`
	Response      *string         `db:"response" json:"response,omitempty"`
	ResolvedAt    *time.Time      `db:"resolved_at" json:"resolved_at,omitempty"`
}

// OwnerID implements Owned.
func (c Complaint) OwnerID() string { return c.SubmittedBy }

// CreateComplaintRequest files a complaint. Status defaults to pending.
type CreateComplaintRequest struct {
	Title       string          `json:"title" validate:"required,max=200"`
	Description string          `json:"description" validate:"required"`
	Category    string          `json:"category" validate:"omitempty,max=60"`
	Status      ComplaintStatus `json:"status" validate:"omitempty,oneof=pending in_progress resolved dismissed"`
}

// UpdateComplaintRequest edits complaint fields.
type UpdateComplaintRequest struct {
	Title       *string          `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string          `json:"description" validate:"omitempty,min=1"`
	Category    *string          `json:"category" validate:"omitempty,max=60"`
	Status      *ComplaintStatus `json:"status" validate:"omitempty,oneof=pending in_progress resolved dismissed"`
	Response    *string          `json:"response"`
}
