package models

import "time"

// ApplicationStatus is the recruitment review state.
type ApplicationStatus string

const (
	ApplicationStatusPending     ApplicationStatus = "pending"
	ApplicationStatusUnderReview ApplicationStatus = "under_review"
	ApplicationStatusApproved    ApplicationStatus = "approved"
	ApplicationStatusRejected    ApplicationStatus = "rejected"
)

// Valid returns true when the status is a supported value.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationStatusPending, ApplicationStatusUnderReview, ApplicationStatusApproved, ApplicationStatusRejected:
		return true
	default:
		return false
	}
}

// Application is a student's request to join the prefect body.
type Application struct {
	Record
	ApplicantID   string            `db:"applicant_id" json:"applicant_id"`
	ApplicantName *string           `db:"applicant_name" json:"applicant_name,omitempty"`
	Position      string            `db:"position" json:"position"`
	Motivation    string            `db:"motivation" json:"motivation"`
	Experience    *string           `db:"experience" json:"experience,omitempty"`
	Status        ApplicationStatus `db:"status" json:"status"`
	ReviewNotes   *string           `db:"review_notes" json:"review_notes,omitempty"`
	ReviewedBy    *string           `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time        `db:"reviewed_at" json:"reviewed_at,omitempty"`
}

// OwnerID implements Owned.
func (a Application) OwnerID() string { return a.ApplicantID }

// CreateApplicationRequest submits an application.
type CreateApplicationRequest struct {
	Position   string  `json:"position" validate:"required,max=120"`
	Motivation string  `json:"motivation" validate:"required"`
	Experience *string `json:"experience"`
}

// UpdateApplicationRequest edits an application or records a review.
type UpdateApplicationRequest struct {
	Position    *string            `json:"position" validate:"omitempty,min=1,max=120"`
	Motivation  *string            `json:"motivation" validate:"omitempty,min=1"`
	Experience  *string            `json:"experience"`
	Status      *ApplicationStatus `json:"status" validate:"omitempty,oneof=pending under_review approved rejected"`
	ReviewNotes *string            `json:"review_notes"`
}
