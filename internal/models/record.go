package models

import (
	"time"

	"github.com/google/uuid"
)

// Record carries the server-assigned identity and timestamps every resource row shares.
type Record struct {
	ID        string    `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RecordID returns the row identifier.
func (r Record) RecordID() string { return r.ID }

// Updated returns the last modification time.
func (r Record) Updated() time.Time { return r.UpdatedAt }

// Stamp assigns an id and creation time if missing and bumps updated_at.
func (r *Record) Stamp(now time.Time) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
}

// Owned is implemented by rows that belong to a single actor.
type Owned interface {
	OwnerID() string
}

// ListFilter scopes resource listings. Status is matched against the resource's
// enumerated column; dates against its primary date column.
type ListFilter struct {
	OwnerID   string
	Status    string
	DateFrom  *time.Time
	DateTo    *time.Time
	Search    string
	Page      int
	PageSize  int
	SortOrder string
}

// Normalize clamps paging to sane bounds.
func (f *ListFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 || f.PageSize > 100 {
		f.PageSize = 20
	}
}

// Fields is a partial update keyed by column name.
type Fields map[string]interface{}

// StatusUpdateRequest moves a record to another state. Any state may follow any other.
type StatusUpdateRequest struct {
	Status string `json:"status" validate:"required"`
}
