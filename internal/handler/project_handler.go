package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/feedbackhub/internal/model"
)

// ProjectServiceInterface はプロジェクトハンドラーが必要とするサービスインターフェース。
type ProjectServiceInterface interface {
	Create(ctx context.Context, title string, ownerID int64) (*model.Project, error)
	Update(ctx context.Context, id, title string, requesterID int64) (*model.Project, error)
	Delete(ctx context.Context, id string, requesterID int64) error
	GetWithFeedback(ctx context.Context, id string, requesterID int64) (*model.ProjectWithFeedbacks, error)
	List(ctx context.Context, ownerID int64, page model.Pagination) (*model.ProjectPage, error)
}

// ProjectHandler はプロジェクト管理のHTTPハンドラー。
type ProjectHandler struct {
	service ProjectServiceInterface
}

// NewProjectHandler はProjectHandlerを生成する。
func NewProjectHandler(service ProjectServiceInterface) *ProjectHandler {
	return &ProjectHandler{service: service}
}

// projectTitleRequest はプロジェクト作成・更新リクエストのボディ。
type projectTitleRequest struct {
	Title string `json:"title"`
}

// Create はプロジェクトを作成する。
// POST /project
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req projectTitleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	project, err := h.service.Create(r.Context(), req.Title, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, createProjectResponse{
		CreatedID:       project.ID,
		projectResponse: toProjectResponse(project),
	})
}

// Update はプロジェクトのタイトルを更新する。
// PUT /project/{id}
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req projectTitleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	project, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req.Title, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, toProjectResponse(project))
}

// Delete はプロジェクトを論理削除する。
// DELETE /project/{id}
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Get はプロジェクトと有効なフィードバック一覧を返す。
// GET /project/{id}
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	pf, err := h.service.GetWithFeedback(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, projectDetailResponse{
		projectResponse: toProjectResponse(&pf.Project),
		Feedbacks:       toFeedbackResponses(pf.Feedbacks),
		FeedbackCount:   len(pf.Feedbacks),
	})
}

// List はログインユーザーのプロジェクト一覧を新しい順に返す。
// GET /project?page=1&pageSize=10
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	page, err := parsePagination(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	result, err := h.service.List(r.Context(), userID, page)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	projects := make([]projectSummaryResponse, len(result.Projects))
	for i, p := range result.Projects {
		projects[i] = projectSummaryResponse{
			projectResponse: toProjectResponse(p),
			FeedbackCount:   p.FeedbackCount,
		}
	}

	writeSuccess(w, http.StatusOK, projectListResponse{
		Projects: projects,
		Total:    result.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
	})
}
