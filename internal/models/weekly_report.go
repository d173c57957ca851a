package models

import "time"

// WeeklyReportStatus tracks a report through review.
type WeeklyReportStatus string

const (
	WeeklyReportDraft     WeeklyReportStatus = "draft"
	WeeklyReportSubmitted WeeklyReportStatus = "submitted"
	WeeklyReportReviewed  WeeklyReportStatus = "reviewed"
)

// Valid returns true when the status is a supported value.
func (s WeeklyReportStatus) Valid() bool {
	switch s {
	case WeeklyReportDraft, WeeklyReportSubmitted, WeeklyReportReviewed:
		return true
	default:
		return false
	}
}

// WeeklyReport summarises a prefect's week.
type WeeklyReport struct {
	Record
	PrefectID   string             `db:"prefect_id" json:"prefect_id"`
	PrefectName *string            `db:"prefect_name" json:"prefect_name,omitempty"`
	WeekStart   time.Time          `db:"week_start" json:"week_start"`
	WeekEnd     time.Time          `db:"week_end" json:"week_end"`
	Summary     string             `db:"summary" json:"summary"`
	Challenges  *string            `db:"challenges" json:"challenges,omitempty"`
	Plans       *string            `db:"plans" json:"plans,omitempty"`
	Status      WeeklyReportStatus `db:"status" json:"status"`
	Feedback    *string            `db:"feedback" json:"feedback,omitempty"`
}

// OwnerID implements Owned.
func (w WeeklyReport) OwnerID() string { return w.PrefectID }

// CreateWeeklyReportRequest drafts a report for the caller.
type CreateWeeklyReportRequest struct {
	WeekStart  string             `json:"week_start" validate:"required,datetime=2006-01-02"`
	WeekEnd    string             `json:"week_end" validate:"required,datetime=2006-01-02"`
	Summary    string             `json:"summary" validate:"required"`
	Challenges *string            `json:"challenges"`
	Plans      *string            `json:"plans"`
	Status     WeeklyReportStatus `json:"status" validate:"omitempty,oneof=draft submitted reviewed"`
}

// UpdateWeeklyReportRequest edits a report.
type UpdateWeeklyReportRequest struct {
	WeekStart  *string             `json:"week_start" validate:"omitempty,datetime=2006-01-02"`
	WeekEnd    *string             `json:"week_end" validate:"omitempty,datetime=2006-01-02"`
	Summary    *string             `json:"summary" validate:"omitempty,min=1"`
	Challenges *string             `json:"challenges"`
	Plans      *string             `json:"plans"`
	Status     *WeeklyReportStatus `json:"status" validate:"omitempty,oneof=draft submitted reviewed"`
	Feedback   *string             `json:"feedback"`
}
