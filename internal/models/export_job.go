package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ExportResource enumerates resources that can be exported.
type ExportResource string

const (
	ExportAttendance    ExportResource = "attendance"
	ExportComplaints    ExportResource = "complaints"
	ExportIncidents     ExportResource = "incidents"
	ExportDuties        ExportResource = "duties"
	ExportGateLogs      ExportResource = "gate_logs"
	ExportWeeklyReports ExportResource = "weekly_reports"
)

// Valid returns true when the resource is exportable.
func (r ExportResource) Valid() bool {
	switch r {
	case ExportAttendance, ExportComplaints, ExportIncidents, ExportDuties, ExportGateLogs, ExportWeeklyReports:
		return true
	default:
		return false
	}
}

// ExportStatus captures background job lifecycle states.
type ExportStatus string

const (
	ExportStatusQueued     ExportStatus = "QUEUED"
	ExportStatusProcessing ExportStatus = "PROCESSING"
	ExportStatusFinished   ExportStatus = "FINISHED"
	ExportStatusFailed     ExportStatus = "FAILED"
)

// ExportJob persisted background job metadata.
type ExportJob struct {
	ID           string         `db:"id" json:"id"`
	Resource     ExportResource `db:"resource" json:"resource"`
	Params       ExportParams   `db:"params" json:"params"`
	Status       ExportStatus   `db:"status" json:"status"`
	Progress     int            `db:"progress" json:"progress"`
	FilePath     *string        `db:"file_path" json:"-"`
	ResultURL    *string        `db:"result_url" json:"result_url,omitempty"`
	CreatedBy    string         `db:"created_by" json:"created_by"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time     `db:"finished_at" json:"finished_at,omitempty"`
	ErrorMessage *string        `db:"error_message" json:"error_message,omitempty"`
}

// ExportParams stores request-scoped options persisted as JSONB.
type ExportParams struct {
	Format   string     `json:"format"`
	OwnerID  string     `json:"ownerId,omitempty"`
	Status   string     `json:"status,omitempty"`
	DateFrom *time.Time `json:"dateFrom,omitempty"`
	DateTo   *time.Time `json:"dateTo,omitempty"`
}

// Value marshals params to JSON for persistence.
func (p ExportParams) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal export params: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the params struct.
func (p *ExportParams) Scan(value interface{}) error {
	if value == nil {
		*p = ExportParams{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ExportParams", value)
	}
	if len(data) == 0 {
		*p = ExportParams{}
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("unmarshal export params: %w", err)
	}
	return nil
}

// ExportRequest queues an export.
type ExportRequest struct {
	Resource ExportResource `json:"resource" validate:"required,oneof=attendance complaints incidents duties gate_logs weekly_reports"`
	Format   string         `json:"format" validate:"omitempty,oneof=csv pdf"`
	OwnerID  string         `json:"owner_id"`
	Status   string         `json:"status"`
	DateFrom *time.Time     `json:"date_from"`
	DateTo   *time.Time     `json:"date_to"`
}

// ExportStatusResponse is returned when polling a job.
type ExportStatusResponse struct {
	Job         *ExportJob `json:"job"`
	DownloadURL *string    `json:"download_url,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}
