package handler

import (
	"net/http"

	"github.com/hitoshi/feedbackhub/internal/middleware"
	"github.com/hitoshi/feedbackhub/internal/model"
)

// UserHandler はログインユーザー情報のHTTPハンドラー。
type UserHandler struct{}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// Me は認証ゲートが解決した現在のユーザーを返す。
// GET /user
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, r, model.NewUnauthorizedError())
		return
	}

	writeSuccess(w, http.StatusOK, toUserResponse(user))
}
