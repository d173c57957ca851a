package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/prefect-api/internal/models"
)

var messageRowColumns = []string{"id", "conversation_id", "sender_id", "body", "attachment_url", "is_edited", "created_at", "updated_at", "sender_name"}

func TestListMessagesReturnsAscendingPage(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewConversationRepository(db)

	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(messageRowColumns).
		AddRow("m1", "c1", "u1", "first", nil, false, t0, t0, "Ada").
		AddRow("m2", "c1", "u2", "second", nil, false, t0.Add(time.Second), t0.Add(time.Second), "Bo").
		AddRow("m3", "c1", "u1", "third", nil, true, t0.Add(2*time.Second), t0.Add(3*time.Second), "Ada")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE m.conversation_id = $1 ORDER BY m.created_at DESC, m.id DESC LIMIT 50\n) recent ORDER BY created_at ASC, id ASC")).
		WithArgs("c1").
		WillReturnRows(rows)

	msgs, err := repo.ListMessages(context.Background(), "c1", models.MessagePageFilter{})
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"m1", "m2", "m3"}, []string{msgs[0].ID, msgs[1].ID, msgs[2].ID})
	assert.True(t, msgs[2].IsEdited)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListMessagesBeforeCursor(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewConversationRepository(db)

	before := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE m.conversation_id = $1 AND m.created_at < $2 ORDER BY m.created_at DESC, m.id DESC LIMIT 10")).
		WithArgs("c1", before).
		WillReturnRows(sqlmock.NewRows(messageRowColumns))

	msgs, err := repo.ListMessages(context.Background(), "c1", models.MessagePageFilter{Limit: 10, Before: &before})
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListMessagesTupleCursorKeepsTiedTimestamps(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewConversationRepository(db)

	before := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE m.conversation_id = $1 AND (m.created_at, m.id) < ($2, $3) ORDER BY m.created_at DESC, m.id DESC LIMIT 10")).
		WithArgs("c1", before, "m-0005").
		WillReturnRows(sqlmock.NewRows(messageRowColumns))

	msgs, err := repo.ListMessages(context.Background(), "c1", models.MessagePageFilter{Limit: 10, Before: &before, BeforeID: "m-0005"})
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateConversationEnrolsCreator(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewConversationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO conversations").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO conversation_participants").WithArgs(sqlmock.AnyArg(), "creator", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO conversation_participants").WithArgs(sqlmock.AnyArg(), "u2", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	conv, err := repo.Create(context.Background(), &models.Conversation{Title: "Duty roster", Type: models.ConversationGroup, CreatedBy: "creator", IsActive: true}, []string{"u2"})
	require.NoError(t, err)
	assert.NotEmpty(t, conv.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveLastParticipantKeepsConversation(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewConversationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM conversation_participants WHERE conversation_id = $1 AND user_id = $2")).
		WithArgs("c1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RemoveParticipant(context.Background(), "c1", "u1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMessageMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewConversationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM messages WHERE conversation_id = $1 AND id = $2 RETURNING clock_timestamp()")).
		WithArgs("c1", "m9").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.DeleteMessage(context.Background(), "c1", "m9")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
