package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
	AttendanceStatusLate    AttendanceStatus = "late"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate:
		return true
	default:
		return false
	}
}

// Attendance is one prefect's attendance for a single day.
type Attendance struct {
	Record
	PrefectID   string           `db:"prefect_id" json:"prefect_id"`
	PrefectName *string          `db:"prefect_name" json:"prefect_name,omitempty"`
	Date        time.Time        `db:"date" json:"date"`
	Status      AttendanceStatus `db:"status" json:"status"`
	CheckInAt   *time.Time       `db:"check_in_at" json:"check_in_at,omitempty"`
	Remarks     *string          `db:"remarks" json:"remarks,omitempty"`
	RecordedBy  *string          `db:"recorded_by" json:"recorded_by,omitempty"`
}

// OwnerID implements Owned.
func (a Attendance) OwnerID() string { return a.PrefectID }

// CreateAttendanceRequest records attendance. PrefectID defaults to the caller.
type CreateAttendanceRequest struct {
	PrefectID string           `json:"prefect_id"`
	Date      string           `json:"date" validate:"required,datetime=2006-01-02"`
	Status    AttendanceStatus `json:"status" validate:"required,oneof=present absent late"`
	CheckInAt *time.Time       `json:"check_in_at"`
	Remarks   *string          `json:"remarks"`
}

// UpdateAttendanceRequest edits attendance; nil fields are untouched.
type UpdateAttendanceRequest struct {
	Status    *AttendanceStatus `json:"status" validate:"omitempty,oneof=present absent late"`
	CheckInAt *time.Time        `json:"check_in_at"`
	Remarks   *string           `json:"remarks"`
}
