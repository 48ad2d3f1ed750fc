package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/hitoshi/feedbackhub/internal/middleware"
	"github.com/hitoshi/feedbackhub/internal/model"
)

// maxRequestBodyBytes はJSONリクエストボディの上限サイズ。
const maxRequestBodyBytes = 64 << 10

// decodeJSON はリクエストボディをJSONとしてdstに読み込む。
// 解析できない場合はBadRequestのAPIErrorを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return model.NewBadRequestError("リクエストボディが空です。")
		}
		return model.NewBadRequestError("リクエストボディの解析に失敗しました。")
	}
	return nil
}

// parsePagination はクエリのpage/pageSizeを解析する。
// 未指定の場合はデフォルト値を使い、整数でない・範囲外の場合はBadRequestを返す。
func parsePagination(r *http.Request) (model.Pagination, error) {
	page := model.Pagination{Page: model.DefaultPage, PageSize: model.DefaultPageSize}

	q := r.URL.Query()
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return page, model.NewBadRequestError(fmt.Sprintf("pageは整数で指定してください: %s", v))
		}
		page.Page = n
	}
	if v := q.Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return page, model.NewBadRequestError(fmt.Sprintf("pageSizeは整数で指定してください: %s", v))
		}
		page.PageSize = n
	}

	if !page.Valid() {
		return page, model.NewBadRequestError(
			fmt.Sprintf("pageは1以上、pageSizeは1以上%d以下で指定してください。", model.MaxPageSize))
	}
	return page, nil
}

// requireUserID は認証ゲートが注入したユーザーIDを取り出す。
// ゲート外で呼ばれた場合は401を書き込みfalseを返す。
func requireUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, r, model.NewUnauthorizedError())
		return 0, false
	}
	return userID, true
}

// writeSuccess は統一成功フォーマットでレスポンスを書き込む。
func writeSuccess(w http.ResponseWriter, statusCode int, data any) {
	middleware.WriteSuccessResponse(w, statusCode, data)
}

// handleServiceError はサービス層から返されたエラーを統一エラーフォーマットのレスポンスに変換する。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	middleware.WriteError(w, r, err)
}
