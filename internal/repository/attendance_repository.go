package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/prefect-api/internal/models"
)

var attendanceTable = tableSpec{
	name:          "attendance",
	columns:       []string{"id", "prefect_id", "date", "status", "check_in_at", "remarks", "recorded_by", "created_at", "updated_at"},
	joins:         "LEFT JOIN users u ON u.id = t.prefect_id",
	joinSelect:    "u.full_name AS prefect_name",
	updatable:     []string{"status", "check_in_at", "remarks"},
	ownerColumn:   "prefect_id",
	statusColumn:  "status",
	dateColumn:    "date",
	searchColumns: []string{"t.remarks", "u.full_name"},
}

// AttendanceRepository stores daily prefect attendance.
type AttendanceRepository struct {
	*crudTable[models.Attendance]
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{crudTable: newCrudTable[models.Attendance](db, attendanceTable)}
}

// Create inserts an attendance row. The (prefect_id, date) pair is unique.
func (r *AttendanceRepository) Create(ctx context.Context, a *models.Attendance) (*models.Attendance, error) {
	a.Stamp(r.now())
	return r.insert(ctx, a)
}

// ExistsForDate reports whether the prefect already has attendance on the given day.
func (r *AttendanceRepository) ExistsForDate(ctx context.Context, prefectID string, date time.Time) (bool, error) {
	const query = `SELECT id FROM attendance WHERE prefect_id = $1 AND date = $2 LIMIT 1`
	var id string
	if err := r.db.GetContext(ctx, &id, query, prefectID, date.Format("2006-01-02")); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check attendance duplicate: %w", err)
	}
	return true, nil
}
