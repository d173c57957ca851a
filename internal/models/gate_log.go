package models

import "time"

// GateDirection records whether someone entered or left campus.
type GateDirection string

const (
	GateEntry GateDirection = "entry"
	GateExit  GateDirection = "exit"
)

// Valid returns true when the direction is a supported value.
func (d GateDirection) Valid() bool {
	return d == GateEntry || d == GateExit
}

// GateLog is a single gate crossing recorded by a prefect on duty.
type GateLog struct {
	Record
	RecordedBy   string        `db:"recorded_by" json:"recorded_by"`
	RecorderName *string       `db:"recorder_name" json:"recorder_name,omitempty"`
	PersonName   string        `db:"person_name" json:"person_name"`
	Purpose      *string       `db:"purpose" json:"purpose,omitempty"`
	Direction    GateDirection `db:"direction" json:"direction"`
	LoggedAt     time.Time     `db:"logged_at" json:"logged_at"`
	Notes        *string       `db:"notes" json:"notes,omitempty"`
}

// OwnerID implements Owned.
func (g GateLog) OwnerID() string { return g.RecordedBy }

// CreateGateLogRequest records a gate crossing.
type CreateGateLogRequest struct {
	PersonName string        `json:"person_name" validate:"required,max=160"`
	Purpose    *string       `json:"purpose"`
	Direction  GateDirection `json:"direction" validate:"required,oneof=entry exit"`
	LoggedAt   *time.Time    `json:"logged_at"`
	Notes      *string       `json:"notes"`
}

// UpdateGateLogRequest edits a gate crossing.
type UpdateGateLogRequest struct {
	PersonName *string        `json:"person_name" validate:"omitempty,min=1,max=160"`
	Purpose    *string        `json:"purpose"`
	Direction  *GateDirection `json:"direction" validate:"omitempty,oneof=entry exit"`
	LoggedAt   *time.Time     `json:"logged_at"`
	Notes      *string        `json:"notes"`
}
