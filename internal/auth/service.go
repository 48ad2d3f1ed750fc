// Package auth はOAuthログインフローとJWTによるトークン管理を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/feedbackhub/internal/model"
	"github.com/hitoshi/feedbackhub/internal/user"
)

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	Provider       string
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// Intent はOAuthフローの目的。ログインか新規登録か。
type Intent string

const (
	IntentLogin  Intent = "login"
	IntentSignup Intent = "signup"
)

// ParseIntent はクエリ文字列のtypeをIntentに変換する。空文字列はログインとみなす。
func ParseIntent(s string) (Intent, error) {
	switch Intent(s) {
	case "", IntentLogin:
		return IntentLogin, nil
	case IntentSignup:
		return IntentSignup, nil
	default:
		return "", model.NewBadRequestError(fmt.Sprintf("typeはloginまたはsignupを指定してください: %s", s))
	}
}

// UserService は認証フローが利用するユーザー操作。
type UserService interface {
	Login(ctx context.Context, providerAccountID string) (*model.User, error)
	Signup(ctx context.Context, in user.SignupInput) (*model.User, error)
	FindByProviderAccountID(ctx context.Context, providerAccountID string) (*model.User, error)
	UpdateRefreshToken(ctx context.Context, providerAccountID, refreshToken string) error
	Withdraw(ctx context.Context, providerAccountID string) error
}

// LoginResult はOAuthコールバック処理の結果。
type LoginResult struct {
	User              *model.User
	ProviderAccountID string
	Tokens            TokenPair
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth  OAuthProvider
	users  UserService
	tokens *TokenIssuer
}

// NewService はServiceを生成する。
func NewService(oauth OAuthProvider, users UserService, tokens *TokenIssuer) *Service {
	return &Service{
		oauth:  oauth,
		users:  users,
		tokens: tokens,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleCallback はOAuthコールバックを処理し、トークンを発行する。
// ログインでは登録済みユーザーのみ、新規登録では未登録か退会済みのアカウントのみ受け付ける。
func (s *Service) HandleCallback(ctx context.Context, code string, intent Intent) (*LoginResult, error) {
	info, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		slog.Warn("OAuthの認可コード交換に失敗しました", slog.String("error", err.Error()))
		return nil, model.NewOAuthFailedError()
	}

	var u *model.User
	switch intent {
	case IntentSignup:
		u, err = s.users.Signup(ctx, user.SignupInput{
			ProviderAccountID: info.ProviderUserID,
			Email:             info.Email,
			Name:              info.Name,
		})
	default:
		u, err = s.users.Login(ctx, info.ProviderUserID)
	}
	if err != nil {
		return nil, err
	}

	pair, err := s.issuePair(u)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateRefreshToken(ctx, u.ProviderAccountID, pair.RefreshToken); err != nil {
		return nil, err
	}

	slog.Info("ログインしました",
		slog.Int64("user_id", u.ID),
		slog.String("intent", string(intent)),
		slog.String("provider", info.Provider),
	)

	return &LoginResult{
		User:              u,
		ProviderAccountID: u.ProviderAccountID,
		Tokens:            *pair,
	}, nil
}

// Refresh はCookieのリフレッシュトークンを検証し、アクセストークンとリフレッシュトークンを再発行する。
// 新しいリフレッシュトークンで保存済みの値を上書きするが、古いトークンは失効させない。
func (s *Service) Refresh(ctx context.Context, providerAccountID, refreshToken string) (*TokenPair, error) {
	if providerAccountID == "" || refreshToken == "" {
		return nil, model.NewLoginRequiredError()
	}

	u, err := s.users.FindByProviderAccountID(ctx, providerAccountID)
	if err != nil {
		return nil, err
	}

	uid, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil || uid != u.ID {
		return nil, model.NewInvalidTokenError()
	}

	access, err := s.tokens.RefreshAccessToken(providerAccountID, refreshToken)
	if err != nil {
		return nil, model.NewInvalidTokenError()
	}
	refresh, err := s.tokens.IssueRefreshToken(u.ID)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateRefreshToken(ctx, providerAccountID, refresh); err != nil {
		return nil, err
	}

	slog.Info("トークンを再発行しました", slog.Int64("user_id", u.ID))
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Withdraw は退会処理を行う。
func (s *Service) Withdraw(ctx context.Context, providerAccountID string) error {
	if providerAccountID == "" {
		return model.NewLoginRequiredError()
	}
	return s.users.Withdraw(ctx, providerAccountID)
}

// Authenticate はアクセストークンを検証し、有効なユーザーを返す。
// トークンが有効でも退会済みの場合はNotFoundを返す。
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*model.User, error) {
	providerAccountID, err := s.tokens.ParseAccessToken(accessToken)
	if err != nil {
		return nil, model.NewInvalidTokenError()
	}
	return s.users.FindByProviderAccountID(ctx, providerAccountID)
}

func (s *Service) issuePair(u *model.User) (*TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(u.ProviderAccountID)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefreshToken(u.ID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
