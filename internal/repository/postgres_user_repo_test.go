package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/feedbackhub/internal/model"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var userRowColumns = []string{"id", "provider_account_id", "email", "name", "refresh_token", "created_at", "deleted_at"}

func TestPostgresUserRepo_FindByProviderAccountID_Found(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM users\s+WHERE provider_account_id = \$1 AND deleted_at IS NULL`).
		WithArgs("google-123").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(int64(7), "google-123", "a@example.com", "Alice", "rt", now, nil))

	user, err := repo.FindByProviderAccountID(context.Background(), "google-123")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "Alice", user.Name)
	require.NotNil(t, user.RefreshToken)
	assert.Equal(t, "rt", *user.RefreshToken)
	assert.Nil(t, user.DeletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepo_FindByProviderAccountID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)

	mock.ExpectQuery(`SELECT .+ FROM users`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	user, err := repo.FindByProviderAccountID(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestPostgresUserRepo_FindAnyByProviderAccountID_IncludesDeleted(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE provider_account_id = \$1$`).
		WithArgs("google-123").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(int64(7), "google-123", "a@example.com", "Alice", nil, now, now))

	user, err := repo.FindAnyByProviderAccountID(context.Background(), "google-123")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.True(t, user.IsDeleted())
	assert.Nil(t, user.RefreshToken)
}

func TestPostgresUserRepo_Create_SetsIDAndCreatedAt(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO users \(provider_account_id, email, name\)`).
		WithArgs("google-123", "a@example.com", "Alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), now))

	user := &model.User{ProviderAccountID: "google-123", Email: "a@example.com", Name: "Alice"}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, now, user.CreatedAt)
}

func TestPostgresUserRepo_Create_UniqueViolation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &model.User{ProviderAccountID: "google-123"})
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestPostgresUserRepo_UpdateRefreshToken(t *testing.T) {
	t.Run("更新成功", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgresUserRepo(db)

		mock.ExpectExec(`UPDATE users SET refresh_token = \$1`).
			WithArgs("new-token", int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.UpdateRefreshToken(context.Background(), 7, "new-token"))
	})

	t.Run("対象なしはErrNotFound", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgresUserRepo(db)

		mock.ExpectExec(`UPDATE users SET refresh_token`).
			WithArgs("new-token", int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.UpdateRefreshToken(context.Background(), 7, "new-token"), ErrNotFound)
	})
}

func TestPostgresUserRepo_SoftDelete_OnlySetsDeletedAt(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)

	mock.ExpectExec(`UPDATE users SET deleted_at = now\(\)\s+WHERE id = \$1 AND deleted_at IS NULL`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SoftDelete(context.Background(), 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestPostgresUserRepo_ReplaceWithdrawn_CascadesThenInserts はフィードバック、プロジェクト、
// 退会済みユーザーの順に削除し、同一トランザクションで新しいユーザーを作成することを検証する。
func TestPostgresUserRepo_ReplaceWithdrawn_CascadesThenInserts(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM feedbacks [\s\S]+deleted_at IS NOT NULL`).WithArgs("google-123").WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec(`DELETE FROM projects [\s\S]+deleted_at IS NOT NULL`).WithArgs("google-123").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM users WHERE provider_account_id = \$1 AND deleted_at IS NOT NULL`).WithArgs("google-123").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO users \(provider_account_id, email, name\)`).
		WithArgs("google-123", "b@example.com", "Bob").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(43), now))
	mock.ExpectCommit()

	user := &model.User{ProviderAccountID: "google-123", Email: "b@example.com", Name: "Bob"}
	require.NoError(t, repo.ReplaceWithdrawn(context.Background(), user))
	assert.Equal(t, int64(43), user.ID)
	assert.Equal(t, now, user.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepo_ReplaceWithdrawn_DeleteFailureRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM feedbacks`).WithArgs("google-123").WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec(`DELETE FROM projects`).WithArgs("google-123").WillReturnError(errors.New("db down"))
	mock.ExpectRollback()

	err := repo.ReplaceWithdrawn(context.Background(), &model.User{ProviderAccountID: "google-123"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestPostgresUserRepo_ReplaceWithdrawn_InsertFailureRollsBackDeletes はINSERTが失敗した場合に
// 削除もロールバックされ、コミットされないことを検証する。
func TestPostgresUserRepo_ReplaceWithdrawn_InsertFailureRollsBackDeletes(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM feedbacks`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM projects`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM users`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO users`).WillReturnError(errors.New("insert failed"))
	mock.ExpectRollback()

	err := repo.ReplaceWithdrawn(context.Background(), &model.User{ProviderAccountID: "google-123"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestPostgresUserRepo_ReplaceWithdrawn_LiveUserIsDuplicate は有効なユーザーが残っている場合に
// ErrDuplicateKey を返し、ロールバックすることを検証する。
func TestPostgresUserRepo_ReplaceWithdrawn_LiveUserIsDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM feedbacks`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM projects`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM users`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT INTO users`).WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.ReplaceWithdrawn(context.Background(), &model.User{ProviderAccountID: "google-123"})
	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}
