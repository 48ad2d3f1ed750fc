package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/feedbackhub/internal/model"
)

// PostgresFeedbackRepo はPostgreSQLを使用したフィードバックリポジトリ。
type PostgresFeedbackRepo struct {
	db *sql.DB
}

// NewPostgresFeedbackRepo はPostgresFeedbackRepoを生成する。
func NewPostgresFeedbackRepo(db *sql.DB) *PostgresFeedbackRepo {
	return &PostgresFeedbackRepo{db: db}
}

// Create はフィードバックを作成する。
// プロジェクトの存在確認と挿入を1文で行い、確認後に削除されたプロジェクトへ書き込まない。
func (r *PostgresFeedbackRepo) Create(ctx context.Context, feedback *model.Feedback) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO feedbacks (message, project_id)
		 SELECT $1, id FROM projects WHERE id = $2 AND deleted_at IS NULL
		 RETURNING id, created_at`,
		feedback.Message, feedback.ProjectID,
	).Scan(&feedback.ID, &feedback.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("project %s: %w", feedback.ProjectID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	return nil
}

// ListByProjectID はフィードバック一覧と総件数を返す。
func (r *PostgresFeedbackRepo) ListByProjectID(ctx context.Context, projectID string, page model.Pagination) (*model.FeedbackPage, error) {
	tx, err := r.db.BeginTx(ctx, snapshotTxOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result := &model.FeedbackPage{}
	err = tx.QueryRowContext(ctx,
		`SELECT count(*) FROM feedbacks WHERE project_id = $1 AND deleted_at IS NULL`,
		projectID,
	).Scan(&result.Total)
	if err != nil {
		return nil, fmt.Errorf("failed to count feedbacks: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, message, project_id, created_at FROM feedbacks
		 WHERE project_id = $1 AND deleted_at IS NULL
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		projectID, page.Limit(), page.Offset(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedbacks: %w", err)
	}
	defer rows.Close()

	result.Feedbacks, err = scanFeedbacks(rows)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

// SoftDelete はフィードバックを論理削除する。
func (r *PostgresFeedbackRepo) SoftDelete(ctx context.Context, id int64, projectID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE feedbacks SET deleted_at = now()
		 WHERE id = $1 AND project_id = $2 AND deleted_at IS NULL`,
		id, projectID,
	)
	if err != nil {
		return fmt.Errorf("failed to soft delete feedback: %w", err)
	}
	return requireAffected(result, "feedback", id)
}

func scanFeedbacks(rows *sql.Rows) ([]*model.Feedback, error) {
	feedbacks := []*model.Feedback{}
	for rows.Next() {
		f := &model.Feedback{}
		if err := rows.Scan(&f.ID, &f.Message, &f.ProjectID, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		feedbacks = append(feedbacks, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate feedbacks: %w", err)
	}
	return feedbacks, nil
}

// compile-time interface check
var _ FeedbackRepository = (*PostgresFeedbackRepo)(nil)
