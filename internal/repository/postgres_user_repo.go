package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/feedbackhub/internal/model"
)

const userColumns = `id, provider_account_id, email, name, refresh_token, created_at, deleted_at`

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

func scanUser(row rowScanner) (*model.User, error) {
	user := &model.User{}
	var refreshToken sql.NullString
	var deletedAt sql.NullTime
	if err := row.Scan(
		&user.ID, &user.ProviderAccountID, &user.Email, &user.Name,
		&refreshToken, &user.CreatedAt, &deletedAt,
	); err != nil {
		return nil, err
	}
	if refreshToken.Valid {
		user.RefreshToken = &refreshToken.String
	}
	if deletedAt.Valid {
		user.DeletedAt = &deletedAt.Time
	}
	return user, nil
}

// FindByProviderAccountID は退会していないユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByProviderAccountID(ctx context.Context, providerAccountID string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE provider_account_id = $1 AND deleted_at IS NULL`,
		providerAccountID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by provider account ID: %w", err)
	}
	return user, nil
}

// FindAnyByProviderAccountID は退会済みを含めてユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindAnyByProviderAccountID(ctx context.Context, providerAccountID string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE provider_account_id = $1`,
		providerAccountID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by provider account ID: %w", err)
	}
	return user, nil
}

// rowQuerier は *sql.DB と *sql.Tx の共通部分。
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Create はユーザーを作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	return insertUser(ctx, r.db, user)
}

func insertUser(ctx context.Context, q rowQuerier, user *model.User) error {
	err := q.QueryRowContext(ctx,
		`INSERT INTO users (provider_account_id, email, name)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		user.ProviderAccountID, user.Email, user.Name,
	).Scan(&user.ID, &user.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("failed to insert user: %w", ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// UpdateRefreshToken はリフレッシュトークンを上書きする。
func (r *PostgresUserRepo) UpdateRefreshToken(ctx context.Context, userID int64, refreshToken string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET refresh_token = $1
		 WHERE id = $2 AND deleted_at IS NULL`,
		refreshToken, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update refresh token: %w", err)
	}
	return requireAffected(result, "user", userID)
}

// SoftDelete はユーザーを論理削除する。
func (r *PostgresUserRepo) SoftDelete(ctx context.Context, userID int64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET deleted_at = now()
		 WHERE id = $1 AND deleted_at IS NULL`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to soft delete user: %w", err)
	}
	return requireAffected(result, "user", userID)
}

// ReplaceWithdrawn は退会済みユーザーと配下のデータを物理削除し、新しいユーザーを作成する。
// 外部キーはRESTRICTのため、feedbacks → projects → users の順に削除する。
// INSERTが失敗した場合は削除もロールバックされる。
func (r *PostgresUserRepo) ReplaceWithdrawn(ctx context.Context, user *model.User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	pid := user.ProviderAccountID

	_, err = tx.ExecContext(ctx,
		`DELETE FROM feedbacks WHERE project_id IN (
		   SELECT p.id FROM projects p
		   JOIN users u ON u.id = p.user_id
		   WHERE u.provider_account_id = $1 AND u.deleted_at IS NOT NULL
		 )`,
		pid,
	)
	if err != nil {
		return fmt.Errorf("failed to delete feedbacks: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM projects WHERE user_id IN (
		   SELECT id FROM users WHERE provider_account_id = $1 AND deleted_at IS NOT NULL
		 )`,
		pid,
	)
	if err != nil {
		return fmt.Errorf("failed to delete projects: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM users WHERE provider_account_id = $1 AND deleted_at IS NOT NULL`,
		pid,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if err := insertUser(ctx, tx, user); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// requireAffected は更新行がない場合に ErrNotFound を返す。
func requireAffected(result sql.Result, entity string, key any) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s %v: %w", entity, key, ErrNotFound)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
