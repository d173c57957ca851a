package models

import "time"

// EventStatus tracks a scheduled school event.
type EventStatus string

const (
	EventStatusScheduled EventStatus = "scheduled"
	EventStatusCancelled EventStatus = "cancelled"
	EventStatusCompleted EventStatus = "completed"
)

// Valid returns true when the status is a supported value.
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusScheduled, EventStatusCancelled, EventStatusCompleted:
		return true
	default:
		return false
	}
}

// Event is a calendar entry visible to every member.
type Event struct {
	Record
	CreatedBy   string      `db:"created_by" json:"created_by"`
	CreatorName *string     `db:"creator_name" json:"creator_name,omitempty"`
	Title       string      `db:"title" json:"title"`
	Description *string     `db:"description" json:"description,omitempty"`
	Location    *string     `db:"location" json:"location,omitempty"`
	StartAt     time.Time   `db:"start_at" json:"start_at"`
	EndAt       time.Time   `db:"end_at" json:"end_at"`
	Status      EventStatus `db:"status" json:"status"`
}

// OwnerID implements Owned.
func (e Event) OwnerID() string { return e.CreatedBy }

// CreateEventRequest schedules an event.
type CreateEventRequest struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description *string   `json:"description"`
	Location    *string   `json:"location"`
	StartAt     time.Time `json:"start_at" validate:"required"`
	EndAt       time.Time `json:"end_at" validate:"required"`
}

// UpdateEventRequest edits an event.
type UpdateEventRequest struct {
	Title       *string      `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string      `json:"description"`
	Location    *string      `json:"location"`
	StartAt     *time.Time   `json:"start_at"`
	EndAt       *time.Time   `json:"end_at"`
	Status      *EventStatus `json:"status" validate:"omitempty,oneof=scheduled cancelled completed"`
}
