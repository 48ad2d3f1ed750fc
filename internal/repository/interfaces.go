// Package repository はデータ永続化のインターフェースを定義する。
//
// Find系のメソッドは対象が見つからない場合に (nil, nil) を返す。
// 更新・削除系のメソッドは対象行がない場合に ErrNotFound を返す。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/feedbackhub/internal/model"
)

var (
	// ErrNotFound は更新・削除の対象行が存在しないことを表す。
	ErrNotFound = errors.New("repository: row not found")
	// ErrDuplicateKey は一意制約違反を表す。
	ErrDuplicateKey = errors.New("repository: duplicate key")
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByProviderAccountID は退会していないユーザーを取得する。
	FindByProviderAccountID(ctx context.Context, providerAccountID string) (*model.User, error)

	// FindAnyByProviderAccountID は退会済みを含めてユーザーを取得する。
	FindAnyByProviderAccountID(ctx context.Context, providerAccountID string) (*model.User, error)

	// Create はユーザーを作成し、採番されたIDと作成日時をuserに設定する。
	// provider_account_idが重複した場合は ErrDuplicateKey を返す。
	Create(ctx context.Context, user *model.User) error

	// UpdateRefreshToken は退会していないユーザーのリフレッシュトークンを上書きする。
	UpdateRefreshToken(ctx context.Context, userID int64, refreshToken string) error

	// SoftDelete はユーザーのdeleted_atのみを設定する。プロジェクトには波及しない。
	SoftDelete(ctx context.Context, userID int64) error

	// ReplaceWithdrawn は同じprovider_account_idの退会済みユーザーと所有するプロジェクト、
	// フィードバックを物理削除し、userを作成する。すべて同一トランザクションで行う。
	// 有効なユーザーが残っている場合は ErrDuplicateKey を返し、何も変更しない。
	ReplaceWithdrawn(ctx context.Context, user *model.User) error
}

// ProjectRepository はプロジェクトデータの永続化インターフェース。
type ProjectRepository interface {
	// Create はプロジェクトを作成し、作成日時をprojectに設定する。
	Create(ctx context.Context, project *model.Project) error

	// FindByID は論理削除されていないプロジェクトを取得する。
	FindByID(ctx context.Context, id string) (*model.Project, error)

	// FindWithFeedbacks はプロジェクトと有効なフィードバック一覧を同一スナップショットで取得する。
	FindWithFeedbacks(ctx context.Context, id string) (*model.ProjectWithFeedbacks, error)

	// UpdateTitle は所有者が一致する場合のみタイトルを更新し、更新後のプロジェクトを返す。
	UpdateTitle(ctx context.Context, id string, ownerID int64, title string) (*model.Project, error)

	// SoftDelete は所有者が一致する場合のみプロジェクトを論理削除する。
	SoftDelete(ctx context.Context, id string, ownerID int64) error

	// ListByUserID はユーザーの有効なプロジェクトを作成日時の降順で返す。
	// 各プロジェクトには有効なフィードバック件数が付与される。
	ListByUserID(ctx context.Context, ownerID int64, page model.Pagination) (*model.ProjectPage, error)
}

// FeedbackRepository はフィードバックデータの永続化インターフェース。
type FeedbackRepository interface {
	// Create は有効なプロジェクトが存在する場合のみフィードバックを作成する。
	// プロジェクトが存在しないか論理削除済みの場合は ErrNotFound を返す。
	Create(ctx context.Context, feedback *model.Feedback) error

	// ListByProjectID はプロジェクトの有効なフィードバックを作成日時の降順で返す。
	ListByProjectID(ctx context.Context, projectID string, page model.Pagination) (*model.FeedbackPage, error)

	// SoftDelete は指定プロジェクトに属するフィードバックを論理削除する。
	SoftDelete(ctx context.Context, id int64, projectID string) error
}
