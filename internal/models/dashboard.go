package models

import "time"

// DashboardSummary is the management overview.
type DashboardSummary struct {
	PendingComplaints   int            `db:"pending_complaints" json:"pending_complaints"`
	OpenIncidents       int            `db:"open_incidents" json:"open_incidents"`
	AssignedDuties      int            `db:"assigned_duties" json:"assigned_duties"`
	PendingApplications int            `db:"pending_applications" json:"pending_applications"`
	UpcomingEvents      int            `db:"upcoming_events" json:"upcoming_events"`
	AttendanceToday     map[string]int `db:"-" json:"attendance_today"`
	GeneratedAt         time.Time      `db:"-" json:"generated_at"`
	System              *SystemMetrics `db:"-" json:"system,omitempty"`
}

// StatusCount is a grouped count row.
type StatusCount struct {
	Status string `db:"status" json:"status"`
	Count  int    `db:"count" json:"count"`
}
