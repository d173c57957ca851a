package models

import "time"

// DutyStatus tracks whether an assigned duty was performed.
type DutyStatus string

const (
	DutyStatusAssigned  DutyStatus = "assigned"
	DutyStatusCompleted DutyStatus = "completed"
	DutyStatusMissed    DutyStatus = "missed"
)

// Valid returns true when the status is a supported value.
func (s DutyStatus) Valid() bool {
	switch s {
	case DutyStatusAssigned, DutyStatusCompleted, DutyStatusMissed:
		return true
	default:
		return false
	}
}

// Duty is a post assigned to a prefect for a time window.
type Duty struct {
	Record
	PrefectID   string     `db:"prefect_id" json:"prefect_id"`
	PrefectName *string    `db:"prefect_name" json:"prefect_name,omitempty"`
	Title       string     `db:"title" json:"title"`
	Location    string     `db:"location" json:"location"`
	DutyDate    time.Time  `db:"duty_date" json:"duty_date"`
	StartAt     time.Time  `db:"start_at" json:"start_at"`
	EndAt       time.Time  `db:"end_at" json:"end_at"`
	Status      DutyStatus `db:"status" json:"status"`
	Notes       *string    `db:"notes" json:"notes,omitempty"`
	AssignedBy  *string    `db:"assigned_by" json:"assigned_by,omitempty"`
}

// OwnerID implements Owned.
func (d Duty) OwnerID() string { return d.PrefectID }

// CreateDutyRequest assigns a duty.
type CreateDutyRequest struct {
	PrefectID string    `json:"prefect_id" validate:"required"`
	Title     string    `json:"title" validate:"required,max=200"`
	Location  string    `json:"location" validate:"required,max=200"`
	DutyDate  string    `json:"duty_date" validate:"required,datetime=2006-01-02"`
	StartAt   time.Time `json:"start_at" validate:"required"`
	EndAt     time.Time `json:"end_at" validate:"required"`
	Notes     *string   `json:"notes"`
}

// UpdateDutyRequest edits a duty.
type UpdateDutyRequest struct {
	Title    *string     `json:"title" validate:"omitempty,min=1,max=200"`
	Location *string     `json:"location" validate:"omitempty,min=1,max=200"`
	DutyDate *string     `json:"duty_date" validate:"omitempty,datetime=2006-01-02"`
	StartAt  *time.Time  `json:"start_at"`
	EndAt    *time.Time  `json:"end_at"`
	Status   *DutyStatus `json:"status" validate:"omitempty,oneof=assigned completed missed"`
	Notes    *string     `json:"notes"`
}
