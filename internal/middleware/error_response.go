package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/feedbackhub/internal/model"
)

// DefaultSuccessMessage は成功レスポンスに載せる既定メッセージ。
const DefaultSuccessMessage = "リクエストに成功しました。"

// nowFunc はエラーレスポンスのtimestamp生成に使う時刻関数。テストで差し替える。
var nowFunc = time.Now

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
type ErrorResponseBody struct {
	StatusCode int    `json:"statusCode"`
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Path       string `json:"path"`
	Timestamp  string `json:"timestamp"`
}

// SuccessResponseBody はAPI成功レスポンスの統一フォーマット。
type SuccessResponseBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// StatusCodeFor はエラーコードに対応するHTTPステータスコードを返す。
func StatusCodeFor(code string) int {
	switch code {
	case model.ErrCodeBadRequest:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeNotFound:
		return http.StatusNotFound
	case model.ErrCodeConflict:
		return http.StatusConflict
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		StatusCode: statusCode,
		Success:    false,
		Message:    message,
		Path:       r.URL.Path,
		Timestamp:  nowFunc().UTC().Format(time.RFC3339),
	})
}

// WriteAPIError はAPIErrorのコードからステータスを決めてエラーレスポンスを書き込む。
func WriteAPIError(w http.ResponseWriter, r *http.Request, apiErr *model.APIError) {
	WriteErrorResponse(w, r, StatusCodeFor(apiErr.Code), apiErr.Message)
}

// WriteError はサービス層から返ったエラーをレスポンスに変換する。
// APIError以外のエラーは詳細をログに記録し、汎用の500を返す。
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		WriteAPIError(w, r, apiErr)
		return
	}
	slog.Error("unhandled error",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	WriteInternalServerError(w, r)
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter, r *http.Request) {
	WriteAPIError(w, r, model.NewInternalError())
}

// WriteSuccessResponse は統一成功フォーマットでレスポンスを書き込む。
func WriteSuccessResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(SuccessResponseBody{
		Success: true,
		Message: DefaultSuccessMessage,
		Data:    data,
	})
}
