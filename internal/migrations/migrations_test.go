package migrations

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestApplyRunsPendingInVersionOrder(t *testing.T) {
	db, mock := newMockDB(t)
	source := fstest.MapFS{
		"V10__later.sql": {Data: []byte("CREATE TABLE later (id INT)")},
		"V2__second.sql": {Data: []byte("CREATE TABLE second (id INT)")},
		"V1__first.sql":  {Data: []byte("CREATE TABLE first (id INT)")},
	}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE second").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO schema_migrations").WithArgs(2, "V2__second.sql").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE later").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO schema_migrations").WithArgs(10, "V10__later.sql").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	applied, err := Apply(context.Background(), db, source)
	require.NoError(t, err)
	assert.Equal(t, []string{"V2__second.sql", "V10__later.sql"}, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyRollsBackFailedMigration(t *testing.T) {
	db, mock := newMockDB(t)
	source := fstest.MapFS{"V1__broken.sql": {Data: []byte("CREATE TABLE broken")}}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version FROM schema_migrations").WillReturnRows(sqlmock.NewRows([]string{"version"}))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE broken").WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	applied, err := Apply(context.Background(), db, source)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "V1__broken.sql")
	assert.Empty(t, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListMigrationsRejectsBadNames(t *testing.T) {
	_, err := listMigrations(fstest.MapFS{"init.sql": {Data: []byte("SELECT 1")}})
	assert.Error(t, err)

	_, err = listMigrations(fstest.MapFS{
		"V1__a.sql": {Data: []byte("SELECT 1")},
		"V1__b.sql": {Data: []byte("SELECT 1")},
	})
	assert.Error(t, err)
}

func TestEmbeddedMigrationsAreOrdered(t *testing.T) {
	migs, err := listMigrations(Embedded())
	require.NoError(t, err)
	require.NotEmpty(t, migs)
	for i, mig := range migs {
		assert.Equal(t, i+1, mig.Version, mig.Name)
	}
}
