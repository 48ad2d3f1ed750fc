// Package feedback はフィードバックの投稿・閲覧・削除のドメインロジックを提供する。
package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/feedbackhub/internal/model"
	"github.com/hitoshi/feedbackhub/internal/repository"
)

// TextCleaner はユーザー入力からマークアップを取り除く。
type TextCleaner interface {
	Clean(input string) string
}

// ProjectFinder は有効なプロジェクトを取得する。見つからない場合はnilを返す。
type ProjectFinder interface {
	FindByID(ctx context.Context, id string) (*model.Project, error)
}

// CreatedCounter はフィードバック投稿数を記録する。
type CreatedCounter interface {
	IncFeedbackCreated()
}

// Service はフィードバックのサービス層。
// 投稿は公開リンクから誰でも行えるが、閲覧と削除はプロジェクトの所有者のみ。
type Service struct {
	feedbackRepo repository.FeedbackRepository
	projects     ProjectFinder
	cleaner      TextCleaner
	counter      CreatedCounter
}

// NewService はServiceの新しいインスタンスを生成する。counterはnilでもよい。
func NewService(
	feedbackRepo repository.FeedbackRepository,
	projects ProjectFinder,
	cleaner TextCleaner,
	counter CreatedCounter,
) *Service {
	return &Service{
		feedbackRepo: feedbackRepo,
		projects:     projects,
		cleaner:      cleaner,
		counter:      counter,
	}
}

// Create はフィードバックを投稿する。所有者の確認は行わない。
// プロジェクトが存在しないか論理削除済みの場合はForbiddenを返し、何も作成しない。
func (s *Service) Create(ctx context.Context, message, projectID string) (*model.Feedback, error) {
	if projectID == "" {
		return nil, model.NewBadRequestError("projectIdを指定してください。")
	}
	cleaned := s.cleaner.Clean(message)
	if cleaned == "" {
		return nil, model.NewBadRequestError("メッセージを入力してください。")
	}

	f := &model.Feedback{Message: cleaned, ProjectID: projectID}
	if err := s.feedbackRepo.Create(ctx, f); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewProjectAccessDeniedError()
		}
		return nil, fmt.Errorf("フィードバックの作成に失敗しました: %w", err)
	}

	if s.counter != nil {
		s.counter.IncFeedbackCreated()
	}
	slog.Info("フィードバックを受け付けました",
		slog.Int64("feedback_id", f.ID),
		slog.String("project_id", projectID),
	)
	return f, nil
}

// ownedProject はプロジェクトの存在と所有者を確認する。
// 存在しない場合も所有者でない場合もForbiddenを返す。
func (s *Service) ownedProject(ctx context.Context, projectID string, requesterID int64) (*model.Project, error) {
	p, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	if p == nil || p.UserID != requesterID {
		return nil, model.NewProjectAccessDeniedError()
	}
	return p, nil
}

// ListByProject はプロジェクトの有効なフィードバックを新しい順に返す。
func (s *Service) ListByProject(ctx context.Context, projectID string, requesterID int64, page model.Pagination) (*model.FeedbackPage, error) {
	if !page.Valid() {
		return nil, model.NewBadRequestError(
			fmt.Sprintf("pageは1以上、pageSizeは1〜%dで指定してください。", model.MaxPageSize))
	}
	if _, err := s.ownedProject(ctx, projectID, requesterID); err != nil {
		return nil, err
	}

	result, err := s.feedbackRepo.ListByProjectID(ctx, projectID, page)
	if err != nil {
		return nil, fmt.Errorf("フィードバック一覧の取得に失敗しました: %w", err)
	}
	return result, nil
}

// Delete はフィードバックを論理削除する。
// 呼び出し側が指定したprojectIDでプロジェクトの所有者を確認してから、
// そのプロジェクトに属するフィードバックだけを対象にする。
func (s *Service) Delete(ctx context.Context, id int64, projectID string, requesterID int64) error {
	if projectID == "" {
		return model.NewBadRequestError("projectIdを指定してください。")
	}
	if _, err := s.ownedProject(ctx, projectID, requesterID); err != nil {
		return err
	}

	if err := s.feedbackRepo.SoftDelete(ctx, id, projectID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewFeedbackNotFoundError(id)
		}
		return fmt.Errorf("フィードバックの削除に失敗しました: %w", err)
	}

	slog.Info("フィードバックを削除しました",
		slog.Int64("feedback_id", id),
		slog.String("project_id", projectID),
		slog.Int64("user_id", requesterID),
	)
	return nil
}
