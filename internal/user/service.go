// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/feedbackhub/internal/model"
	"github.com/hitoshi/feedbackhub/internal/repository"
)

// SignupInput はOAuthプロバイダーで検証済みの新規登録情報。
type SignupInput struct {
	ProviderAccountID string
	Email             string
	Name              string
}

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{userRepo: userRepo}
}

// Login は退会していないユーザーを返す。未登録の場合はNotFound。
func (s *Service) Login(ctx context.Context, providerAccountID string) (*model.User, error) {
	return s.FindByProviderAccountID(ctx, providerAccountID)
}

// FindByProviderAccountID は退会していないユーザーを返す。
func (s *Service) FindByProviderAccountID(ctx context.Context, providerAccountID string) (*model.User, error) {
	user, err := s.userRepo.FindByProviderAccountID(ctx, providerAccountID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// Signup はユーザーを新規登録する。
// 有効なユーザーが既にいる場合はConflictを返し、何も変更しない。
// 退会済みユーザーがいる場合は、そのユーザーのプロジェクトとフィードバックを含めた
// 物理削除と作成を1つのトランザクションで行う。
func (s *Service) Signup(ctx context.Context, in SignupInput) (*model.User, error) {
	if in.ProviderAccountID == "" {
		return nil, model.NewBadRequestError("プロバイダーアカウントIDが必要です。")
	}

	existing, err := s.userRepo.FindAnyByProviderAccountID(ctx, in.ProviderAccountID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}

	if existing != nil && !existing.IsDeleted() {
		return nil, model.NewUserConflictError()
	}

	user := &model.User{
		ProviderAccountID: in.ProviderAccountID,
		Email:             in.Email,
		Name:              in.Name,
	}

	if existing != nil {
		if err := s.userRepo.ReplaceWithdrawn(ctx, user); err != nil {
			// 退会済みユーザーの削除と同時に別の登録が完了した場合
			if errors.Is(err, repository.ErrDuplicateKey) {
				return nil, model.NewUserConflictError()
			}
			return nil, fmt.Errorf("退会済みユーザーの再登録に失敗しました: %w", err)
		}
		slog.Info("退会済みユーザーを物理削除して再登録しました",
			slog.Int64("old_user_id", existing.ID),
			slog.Int64("user_id", user.ID),
		)
		return user, nil
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// 同時に登録された場合
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, model.NewUserConflictError()
		}
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	slog.Info("ユーザーを登録しました", slog.Int64("user_id", user.ID))
	return user, nil
}

// UpdateRefreshToken は保存済みのリフレッシュトークンを上書きする。
func (s *Service) UpdateRefreshToken(ctx context.Context, providerAccountID, refreshToken string) error {
	user, err := s.FindByProviderAccountID(ctx, providerAccountID)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdateRefreshToken(ctx, user.ID, refreshToken); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewUserNotFoundError()
		}
		return fmt.Errorf("リフレッシュトークンの更新に失敗しました: %w", err)
	}
	return nil
}

// Withdraw はユーザーを論理削除する。
// プロジェクトとフィードバックは残し、同じアカウントで再登録されたときに物理削除する。
func (s *Service) Withdraw(ctx context.Context, providerAccountID string) error {
	user, err := s.FindByProviderAccountID(ctx, providerAccountID)
	if err != nil {
		return err
	}
	if err := s.userRepo.SoftDelete(ctx, user.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewUserNotFoundError()
		}
		return fmt.Errorf("退会処理に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました", slog.Int64("user_id", user.ID))
	return nil
}
