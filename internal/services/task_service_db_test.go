package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/isdelr/taskflow-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockTaskService(t *testing.T) (*TaskService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewTaskService(db, nil), mock
}

func TestTaskService_DatabaseErrorsAreWrapped(t *testing.T) {
	s, mock := newMockTaskService(t)
	ctx := context.Background()
	boom := errors.New("disk I/O error")

	mock.ExpectQuery("SELECT .+ FROM tasks WHERE id = \\? AND user_id = \\?").
		WithArgs("t1", "u1").
		WillReturnError(boom)

	_, err := s.GetTask(ctx, "u1", "t1")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)

	mock.ExpectQuery("DELETE FROM tasks WHERE id = \\? AND user_id = \\? RETURNING title").
		WithArgs("t1", "u1").
		WillReturnError(sql.ErrNoRows)

	assert.ErrorIs(t, s.RemoveTask(ctx, "u1", "t1"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskService_ListFailsWhenStatsFail(t *testing.T) {
	s, mock := newMockTaskService(t)

	mock.ExpectQuery("SELECT .+ FROM tasks WHERE user_id = \\?").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "description", "status", "priority", "due_date", "created_at", "updated_at"}))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("u1").
		WillReturnError(errors.New("database is locked"))

	_, err := s.ListTasks(context.Background(), "u1", models.TaskQuery{})
	assert.ErrorContains(t, err, "count tasks")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskService_UpdateReportsMissingRow(t *testing.T) {
	s, mock := newMockTaskService(t)

	mock.ExpectExec("UPDATE tasks SET title = \\?, updated_at = \\? WHERE id = \\? AND user_id = \\?").
		WithArgs("New", sqlmock.AnyArg(), "t1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := s.UpdateTask(context.Background(), "u1", "t1", models.TaskPatch{Title: models.Some("New")})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
