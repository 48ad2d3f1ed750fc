package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/feedbackhub/internal/model"
)

// FeedbackServiceInterface はフィードバックハンドラーが必要とするサービスインターフェース。
type FeedbackServiceInterface interface {
	Create(ctx context.Context, message, projectID string) (*model.Feedback, error)
	ListByProject(ctx context.Context, projectID string, requesterID int64, page model.Pagination) (*model.FeedbackPage, error)
	Delete(ctx context.Context, id int64, projectID string, requesterID int64) error
}

// FeedbackHandler はフィードバックのHTTPハンドラー。
type FeedbackHandler struct {
	service FeedbackServiceInterface
}

// NewFeedbackHandler はFeedbackHandlerを生成する。
func NewFeedbackHandler(service FeedbackServiceInterface) *FeedbackHandler {
	return &FeedbackHandler{service: service}
}

// createFeedbackRequest はフィードバック投稿リクエストのボディ。
type createFeedbackRequest struct {
	ProjectID string `json:"projectId"`
	Message   string `json:"message"`
}

// Create は公開リンクからのフィードバックを受け付ける。未ログインでも投稿できる。
// POST /feedback
func (h *FeedbackHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createFeedbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	fb, err := h.service.Create(r.Context(), req.Message, req.ProjectID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, createFeedbackResponse{CreatedID: fb.ID})
}

// ListByProject はプロジェクトのフィードバック一覧を新しい順に返す。所有者のみ閲覧できる。
// GET /feedback/project/{projectId}?page=1&pageSize=10
func (h *FeedbackHandler) ListByProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	page, err := parsePagination(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	result, err := h.service.ListByProject(r.Context(), chi.URLParam(r, "projectId"), userID, page)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, feedbackListResponse{
		Feedbacks: toFeedbackResponses(result.Feedbacks),
		Total:     result.Total,
		Page:      page.Page,
		PageSize:  page.PageSize,
	})
}

// Delete はフィードバックを論理削除する。所属プロジェクトはクエリで指定する。
// DELETE /feedback/{id}?projectId=xxx
func (h *FeedbackHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	rawID := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id < 1 {
		handleServiceError(w, r, model.NewBadRequestError("フィードバックIDが不正です: "+rawID))
		return
	}

	if err := h.service.Delete(r.Context(), id, r.URL.Query().Get("projectId"), userID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
