package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/feedbackhub/internal/model"
)

func TestPostgresFeedbackRepo_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresFeedbackRepo(db)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO feedbacks \(message, project_id\)\s+SELECT \$1, id FROM projects WHERE id = \$2 AND deleted_at IS NULL`).
		WithArgs("great", "p-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(99), now))

	f := &model.Feedback{Message: "great", ProjectID: "p-1"}
	require.NoError(t, repo.Create(context.Background(), f))
	assert.Equal(t, int64(99), f.ID)
}

// TestPostgresFeedbackRepo_Create_ProjectMissing はプロジェクトがない場合に行が作られないことを検証する。
func TestPostgresFeedbackRepo_Create_ProjectMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresFeedbackRepo(db)

	mock.ExpectQuery(`INSERT INTO feedbacks`).
		WithArgs("great", "p-gone").
		WillReturnError(sql.ErrNoRows)

	err := repo.Create(context.Background(), &model.Feedback{Message: "great", ProjectID: "p-gone"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresFeedbackRepo_ListByProjectID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresFeedbackRepo(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM feedbacks WHERE project_id = \$1 AND deleted_at IS NULL`).
		WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`ORDER BY created_at DESC, id DESC\s+LIMIT \$2 OFFSET \$3`).
		WithArgs("p-1", 2, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "message", "project_id", "created_at"}).
			AddRow(int64(3), "c", "p-1", now).
			AddRow(int64(2), "b", "p-1", now.Add(-time.Minute)))
	mock.ExpectCommit()

	page, err := repo.ListByProjectID(context.Background(), "p-1", model.Pagination{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Feedbacks, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFeedbackRepo_SoftDelete(t *testing.T) {
	t.Run("削除成功", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgresFeedbackRepo(db)

		mock.ExpectExec(`UPDATE feedbacks SET deleted_at = now\(\)\s+WHERE id = \$1 AND project_id = \$2 AND deleted_at IS NULL`).
			WithArgs(int64(5), "p-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.SoftDelete(context.Background(), 5, "p-1"))
	})

	t.Run("別プロジェクトのフィードバックはErrNotFound", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgresFeedbackRepo(db)

		mock.ExpectExec(`UPDATE feedbacks SET deleted_at`).
			WithArgs(int64(5), "p-2").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.SoftDelete(context.Background(), 5, "p-2"), ErrNotFound)
	})
}
