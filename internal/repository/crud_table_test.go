package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/prefect-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

var complaintRowColumns = []string{"id", "submitted_by", "title", "description", "category", "status", "response", "resolved_at", "created_at", "updated_at", "submitter_name"}

func TestComplaintRepositoryCreateReturnsStoredRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("WITH t AS (INSERT INTO complaints (id, submitted_by, title, description, category, status, response, resolved_at, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING *)")).
		WithArgs(sqlmock.AnyArg(), "u1", "Broken tap", "Tap leaks", "facilities", "pending", nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(complaintRowColumns).
			AddRow("c1", "u1", "Broken tap", "Tap leaks", "facilities", "pending", nil, nil, now, now, "Ada"))

	stored, err := repo.Create(context.Background(), &models.Complaint{
		SubmittedBy: "u1",
		Title:       "Broken tap",
		Description: "Tap leaks",
		Category:    "facilities",
		Status:      models.ComplaintStatusPending,
	})
	require.NoError(t, err)
	assert.Equal(t, "c1", stored.ID)
	require.NotNil(t, stored.SubmitterName)
	assert.Equal(t, "Ada", *stored.SubmitterName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplaintRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM complaints t LEFT JOIN users u ON u.id = t.submitted_by WHERE t.submitted_by = $1 AND t.status = $2 AND t.created_at >= $3 AND (LOWER(COALESCE(t.title, '')) LIKE $4 OR LOWER(COALESCE(t.description, '')) LIKE $4 OR LOWER(COALESCE(t.category, '')) LIKE $4) ORDER BY t.created_at DESC, t.id DESC LIMIT 20 OFFSET 0")).
		WithArgs("u1", "pending", from, "%tap%").
		WillReturnRows(sqlmock.NewRows(complaintRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM complaints t LEFT JOIN users u ON u.id = t.submitted_by WHERE")).
		WithArgs("u1", "pending", from, "%tap%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	items, total, err := repo.List(context.Background(), models.ListFilter{OwnerID: "u1", Status: "pending", DateFrom: &from, Search: " TAP "})
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.Equal(t, 0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCrudTableUpdateOnlyProvidedFields(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)
	fixed := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	mock.ExpectQuery(regexp.QuoteMeta("WITH t AS (UPDATE complaints SET resolved_at = $2, status = $3, updated_at = $4 WHERE id = $1 RETURNING *)")).
		WithArgs("c1", fixed, "resolved", fixed).
		WillReturnRows(sqlmock.NewRows(complaintRowColumns).
			AddRow("c1", "u1", "Broken tap", "Tap leaks", "facilities", "resolved", nil, fixed, fixed, fixed, "Ada"))

	updated, err := repo.Update(context.Background(), "c1", models.Fields{"status": "resolved", "resolved_at": fixed})
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintStatusResolved, updated.Status)
	require.NotNil(t, updated.ResolvedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCrudTableUpdateEmptyBumpsTimestamp(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WITH t AS (UPDATE complaints SET updated_at = $2 WHERE id = $1 RETURNING *)")).
		WithArgs("missing", sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Update(context.Background(), "missing", models.Fields{})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCrudTableUpdateRejectsImmutableColumns(t *testing.T) {
	db, _, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	_, err := repo.Update(context.Background(), "c1", models.Fields{"submitted_by": "someone-else"})
	assert.Error(t, err)
	_, err = repo.Update(context.Background(), "c1", models.Fields{"id": "new"})
	assert.Error(t, err)
}

func TestCrudTableDeleteMissingIsNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewIncidentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM incidents WHERE id = $1")).WithArgs("i1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM incidents WHERE id = $1")).WithArgs("i1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM incidents t LEFT JOIN users u ON u.id = t.reported_by WHERE t.id = $1 LIMIT 1")).WithArgs("i1").WillReturnError(sql.ErrNoRows)

	require.NoError(t, repo.Delete(context.Background(), "i1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "i1"), sql.ErrNoRows)
	_, err := repo.FindByID(context.Background(), "i1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceExistsForDate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)
	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM attendance WHERE prefect_id = $1 AND date = $2 LIMIT 1")).
		WithArgs("P1", "2024-01-10").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM attendance WHERE prefect_id = $1 AND date = $2 LIMIT 1")).
		WithArgs("P2", "2024-01-10").
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.ExistsForDate(context.Background(), "P1", day)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.ExistsForDate(context.Background(), "P2", day)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
