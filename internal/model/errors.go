// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError はHTTP境界までそのまま伝播させるドメインエラー。
// Codeからステータスコードを決定し、Messageはレスポンスにそのまま載る。
type APIError struct {
	Code    string // エラーコード
	Message string // エラーメッセージ
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// HasCode はerrのチェーンに指定コードのAPIErrorが含まれるかを返す。
func HasCode(err error, code string) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

// NewBadRequestError は入力不正エラーを生成する。
func NewBadRequestError(message string) *APIError {
	return &APIError{Code: ErrCodeBadRequest, Message: message}
}

// NewLoginRequiredError はセッションCookieが揃っていない場合のエラーを生成する。
func NewLoginRequiredError() *APIError {
	return &APIError{Code: ErrCodeBadRequest, Message: "ログインが必要です。"}
}

// NewUnauthorizedError は認証失敗エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{Code: ErrCodeUnauthorized, Message: "認証が必要です。"}
}

// NewInvalidTokenError はトークンの署名不正・期限切れエラーを生成する。
func NewInvalidTokenError() *APIError {
	return &APIError{Code: ErrCodeUnauthorized, Message: "トークンが無効か、有効期限が切れています。"}
}

// NewOAuthFailedError はOAuthプロバイダーとの認可コード交換に失敗した場合のエラーを生成する。
func NewOAuthFailedError() *APIError {
	return &APIError{Code: ErrCodeUnauthorized, Message: "Google認証に失敗しました。"}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{Code: ErrCodeNotFound, Message: "ユーザーが見つかりません。"}
}

// NewUserConflictError は有効なユーザーが既に存在する場合のエラーを生成する。
func NewUserConflictError() *APIError {
	return &APIError{Code: ErrCodeConflict, Message: "ユーザーは既に登録されています。"}
}

// NewProjectNotFoundError はプロジェクトが見つからない場合のエラーを生成する。
func NewProjectNotFoundError(projectID string) *APIError {
	return &APIError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("指定されたプロジェクトが見つかりません: %s", projectID),
	}
}

// NewProjectForbiddenError は所有者以外がプロジェクトを操作しようとした場合のエラーを生成する。
func NewProjectForbiddenError() *APIError {
	return &APIError{Code: ErrCodeForbidden, Message: "このプロジェクトを操作する権限がありません。"}
}

// NewProjectAccessDeniedError はプロジェクトの不存在と権限不足を区別せずに返すエラーを生成する。
// 所有者以外にプロジェクトの存在を知らせないために使う。
func NewProjectAccessDeniedError() *APIError {
	return &APIError{Code: ErrCodeForbidden, Message: "プロジェクトが見つからないか、アクセス権限がありません。"}
}

// NewFeedbackNotFoundError はフィードバックが見つからない場合のエラーを生成する。
func NewFeedbackNotFoundError(feedbackID int64) *APIError {
	return &APIError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("指定されたフィードバックが見つかりません: %d", feedbackID),
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{Code: ErrCodeRateLimited, Message: "リクエストが多すぎます。しばらく待ってから再度お試しください。"}
}

// NewInternalError は内部エラーの汎用レスポンス用エラーを生成する。
// 詳細はログにのみ記録する。
func NewInternalError() *APIError {
	return &APIError{Code: ErrCodeInternal, Message: "内部エラーが発生しました。"}
}
