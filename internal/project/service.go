// Package project はプロジェクト管理のドメインロジックを提供する。
package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/feedbackhub/internal/model"
	"github.com/hitoshi/feedbackhub/internal/repository"
)

// TextCleaner はユーザー入力からマークアップを取り除く。
type TextCleaner interface {
	Clean(input string) string
}

// Service はプロジェクト管理のサービス層。
// 更新・削除・フィードバック付き取得はすべて所有者の一致を確認する。
type Service struct {
	projectRepo repository.ProjectRepository
	cleaner     TextCleaner
	newID       func() string
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(projectRepo repository.ProjectRepository, cleaner TextCleaner) *Service {
	return &Service{
		projectRepo: projectRepo,
		cleaner:     cleaner,
		newID:       uuid.NewString,
	}
}

// normalizeTitle はタイトルを整形し、1〜100文字であることを検証する。
func (s *Service) normalizeTitle(title string) (string, error) {
	cleaned := s.cleaner.Clean(title)
	n := utf8.RuneCountInString(cleaned)
	if n == 0 {
		return "", model.NewBadRequestError("タイトルを入力してください。")
	}
	if n > model.ProjectTitleMaxLength {
		return "", model.NewBadRequestError(
			fmt.Sprintf("タイトルは%d文字以内で入力してください。", model.ProjectTitleMaxLength))
	}
	return cleaned, nil
}

// Create はプロジェクトを作成する。
func (s *Service) Create(ctx context.Context, title string, ownerID int64) (*model.Project, error) {
	cleaned, err := s.normalizeTitle(title)
	if err != nil {
		return nil, err
	}

	p := &model.Project{
		ID:     s.newID(),
		Title:  cleaned,
		UserID: ownerID,
	}
	if err := s.projectRepo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("プロジェクトの作成に失敗しました: %w", err)
	}

	slog.Info("プロジェクトを作成しました",
		slog.String("project_id", p.ID),
		slog.Int64("user_id", ownerID),
	)
	return p, nil
}

// findOwned は有効なプロジェクトを取得し、所有者を確認する。
// 存在しなければNotFound、所有者でなければForbidden。
func (s *Service) findOwned(ctx context.Context, id string, requesterID int64) (*model.Project, error) {
	p, err := s.projectRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewProjectNotFoundError(id)
	}
	if p.UserID != requesterID {
		return nil, model.NewProjectForbiddenError()
	}
	return p, nil
}

// Update はプロジェクトのタイトルを更新する。
func (s *Service) Update(ctx context.Context, id, title string, requesterID int64) (*model.Project, error) {
	cleaned, err := s.normalizeTitle(title)
	if err != nil {
		return nil, err
	}
	if _, err := s.findOwned(ctx, id, requesterID); err != nil {
		return nil, err
	}

	updated, err := s.projectRepo.UpdateTitle(ctx, id, requesterID, cleaned)
	if err != nil {
		// 確認後に削除された場合
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewProjectNotFoundError(id)
		}
		return nil, fmt.Errorf("プロジェクトの更新に失敗しました: %w", err)
	}
	return updated, nil
}

// Delete はプロジェクトを論理削除する。
func (s *Service) Delete(ctx context.Context, id string, requesterID int64) error {
	if _, err := s.findOwned(ctx, id, requesterID); err != nil {
		return err
	}

	if err := s.projectRepo.SoftDelete(ctx, id, requesterID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewProjectNotFoundError(id)
		}
		return fmt.Errorf("プロジェクトの削除に失敗しました: %w", err)
	}

	slog.Info("プロジェクトを削除しました",
		slog.String("project_id", id),
		slog.Int64("user_id", requesterID),
	)
	return nil
}

// GetWithFeedback はプロジェクトを有効なフィードバック付きで返す。
// 所有者以外には存在の有無を区別せずForbiddenを返す。
func (s *Service) GetWithFeedback(ctx context.Context, id string, requesterID int64) (*model.ProjectWithFeedbacks, error) {
	p, err := s.projectRepo.FindWithFeedbacks(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	if p == nil || p.UserID != requesterID {
		return nil, model.NewProjectAccessDeniedError()
	}
	return p, nil
}

// List はユーザーの有効なプロジェクトを新しい順に返す。
func (s *Service) List(ctx context.Context, ownerID int64, page model.Pagination) (*model.ProjectPage, error) {
	if !page.Valid() {
		return nil, model.NewBadRequestError(
			fmt.Sprintf("pageは1以上、pageSizeは1〜%dで指定してください。", model.MaxPageSize))
	}
	result, err := s.projectRepo.ListByUserID(ctx, ownerID, page)
	if err != nil {
		return nil, fmt.Errorf("プロジェクト一覧の取得に失敗しました: %w", err)
	}
	return result, nil
}
