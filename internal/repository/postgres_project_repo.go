package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/feedbackhub/internal/model"
)

// snapshotTxOptions は件数とページを同一スナップショットから読むためのトランザクション設定。
var snapshotTxOptions = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

// PostgresProjectRepo はPostgreSQLを使用したプロジェクトリポジトリ。
type PostgresProjectRepo struct {
	db *sql.DB
}

// NewPostgresProjectRepo はPostgresProjectRepoを生成する。
func NewPostgresProjectRepo(db *sql.DB) *PostgresProjectRepo {
	return &PostgresProjectRepo{db: db}
}

// Create はプロジェクトを作成する。
func (r *PostgresProjectRepo) Create(ctx context.Context, project *model.Project) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO projects (id, title, user_id)
		 VALUES ($1, $2, $3)
		 RETURNING created_at`,
		project.ID, project.Title, project.UserID,
	).Scan(&project.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

// FindByID は論理削除されていないプロジェクトを取得する。見つからない場合はnilを返す。
func (r *PostgresProjectRepo) FindByID(ctx context.Context, id string) (*model.Project, error) {
	project := &model.Project{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, user_id, created_at FROM projects
		 WHERE id = $1 AND deleted_at IS NULL`,
		id,
	).Scan(&project.ID, &project.Title, &project.UserID, &project.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find project by ID: %w", err)
	}
	return project, nil
}

// FindWithFeedbacks はプロジェクトと有効なフィードバックを新しい順で取得する。
// 見つからない場合はnilを返す。
func (r *PostgresProjectRepo) FindWithFeedbacks(ctx context.Context, id string) (*model.ProjectWithFeedbacks, error) {
	tx, err := r.db.BeginTx(ctx, snapshotTxOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result := &model.ProjectWithFeedbacks{}
	err = tx.QueryRowContext(ctx,
		`SELECT id, title, user_id, created_at FROM projects
		 WHERE id = $1 AND deleted_at IS NULL`,
		id,
	).Scan(&result.ID, &result.Title, &result.UserID, &result.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find project by ID: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, message, project_id, created_at FROM feedbacks
		 WHERE project_id = $1 AND deleted_at IS NULL
		 ORDER BY created_at DESC, id DESC`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedbacks: %w", err)
	}
	defer rows.Close()

	result.Feedbacks, err = scanFeedbacks(rows)
	if err != nil {
		return nil, err
	}
	result.FeedbackCount = len(result.Feedbacks)

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

// UpdateTitle はタイトルを更新する。
// 所有者の一致と論理削除の有無を同じUPDATE文で判定する。
func (r *PostgresProjectRepo) UpdateTitle(ctx context.Context, id string, ownerID int64, title string) (*model.Project, error) {
	project := &model.Project{}
	err := r.db.QueryRowContext(ctx,
		`UPDATE projects SET title = $1
		 WHERE id = $2 AND user_id = $3 AND deleted_at IS NULL
		 RETURNING id, title, user_id, created_at`,
		title, id, ownerID,
	).Scan(&project.ID, &project.Title, &project.UserID, &project.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return project, nil
}

// SoftDelete はプロジェクトを論理削除する。配下のフィードバックは変更しない。
func (r *PostgresProjectRepo) SoftDelete(ctx context.Context, id string, ownerID int64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE projects SET deleted_at = now()
		 WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`,
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("failed to soft delete project: %w", err)
	}
	return requireAffected(result, "project", id)
}

// ListByUserID はユーザーのプロジェクト一覧と総件数を返す。
func (r *PostgresProjectRepo) ListByUserID(ctx context.Context, ownerID int64, page model.Pagination) (*model.ProjectPage, error) {
	tx, err := r.db.BeginTx(ctx, snapshotTxOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result := &model.ProjectPage{Projects: []*model.Project{}}
	err = tx.QueryRowContext(ctx,
		`SELECT count(*) FROM projects WHERE user_id = $1 AND deleted_at IS NULL`,
		ownerID,
	).Scan(&result.Total)
	if err != nil {
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT p.id, p.title, p.user_id, p.created_at, count(f.id) AS feedback_count
		 FROM projects p
		 LEFT JOIN feedbacks f ON f.project_id = p.id AND f.deleted_at IS NULL
		 WHERE p.user_id = $1 AND p.deleted_at IS NULL
		 GROUP BY p.id
		 ORDER BY p.created_at DESC, p.id DESC
		 LIMIT $2 OFFSET $3`,
		ownerID, page.Limit(), page.Offset(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p := &model.Project{}
		if err := rows.Scan(&p.ID, &p.Title, &p.UserID, &p.CreatedAt, &p.FeedbackCount); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		result.Projects = append(result.Projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

// compile-time interface check
var _ ProjectRepository = (*PostgresProjectRepo)(nil)
