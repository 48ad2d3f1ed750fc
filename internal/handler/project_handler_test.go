package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/feedbackhub/internal/middleware"
	"github.com/hitoshi/feedbackhub/internal/model"
)

// --- モック定義 ---

type mockProjectService struct {
	createFn          func(ctx context.Context, title string, ownerID int64) (*model.Project, error)
	updateFn          func(ctx context.Context, id, title string, requesterID int64) (*model.Project, error)
	deleteFn          func(ctx context.Context, id string, requesterID int64) error
	getWithFeedbackFn func(ctx context.Context, id string, requesterID int64) (*model.ProjectWithFeedbacks, error)
	listFn            func(ctx context.Context, ownerID int64, page model.Pagination) (*model.ProjectPage, error)
}

func (m *mockProjectService) Create(ctx context.Context, title string, ownerID int64) (*model.Project, error) {
	if m.createFn != nil {
		return m.createFn(ctx, title, ownerID)
	}
	return nil, nil
}

func (m *mockProjectService) Update(ctx context.Context, id, title string, requesterID int64) (*model.Project, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, title, requesterID)
	}
	return nil, nil
}

func (m *mockProjectService) Delete(ctx context.Context, id string, requesterID int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id, requesterID)
	}
	return nil
}

func (m *mockProjectService) GetWithFeedback(ctx context.Context, id string, requesterID int64) (*model.ProjectWithFeedbacks, error) {
	if m.getWithFeedbackFn != nil {
		return m.getWithFeedbackFn(ctx, id, requesterID)
	}
	return nil, nil
}

func (m *mockProjectService) List(ctx context.Context, ownerID int64, page model.Pagination) (*model.ProjectPage, error) {
	if m.listFn != nil {
		return m.listFn(ctx, ownerID, page)
	}
	return &model.ProjectPage{}, nil
}

// --- テストヘルパー ---

var testCreatedAt = time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

// authedRequest は認証済みユーザーを注入したリクエストを生成する。
func authedRequest(method, target, body string, userID int64) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	return req.WithContext(middleware.ContextWithUser(req.Context(), &model.User{ID: userID}))
}

// withURLParams はchiのURLパラメータをリクエストに設定する。
func withURLParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// decodeData は成功レスポンスのdataをdstにデコードする。
func decodeData(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	if !envelope.Success {
		t.Fatalf("success = false, message = %q", envelope.Message)
	}
	if err := json.Unmarshal(envelope.Data, dst); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
}

// --- Create ---

func TestProjectHandler_Create_Returns201(t *testing.T) {
	svc := &mockProjectService{
		createFn: func(ctx context.Context, title string, ownerID int64) (*model.Project, error) {
			if ownerID != 9007199254740993 {
				t.Errorf("ownerID = %d", ownerID)
			}
			return &model.Project{ID: "p-1", Title: title, UserID: ownerID, CreatedAt: testCreatedAt}, nil
		},
	}
	h := NewProjectHandler(svc)

	w := httptest.NewRecorder()
	h.Create(w, authedRequest(http.MethodPost, "/project", `{"title":"My Project"}`, 9007199254740993))

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var raw map[string]any
	decodeData(t, resp, &raw)
	if raw["createdId"] != "p-1" || raw["id"] != "p-1" {
		t.Errorf("createdId/id = %v/%v, want p-1", raw["createdId"], raw["id"])
	}
	if raw["title"] != "My Project" {
		t.Errorf("title = %v", raw["title"])
	}
	// 64bitのユーザーIDは精度を落とさないよう文字列で返す
	if raw["userId"] != "9007199254740993" {
		t.Errorf("userId = %#v, want string %q", raw["userId"], "9007199254740993")
	}
	if raw["createdAt"] != "2024-04-01T12:00:00Z" {
		t.Errorf("createdAt = %v", raw["createdAt"])
	}
}

func TestProjectHandler_Create_MalformedJSON_Returns400(t *testing.T) {
	h := NewProjectHandler(&mockProjectService{
		createFn: func(ctx context.Context, title string, ownerID int64) (*model.Project, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	})

	for _, body := range []string{`{"title":`, `not json`} {
		w := httptest.NewRecorder()
		h.Create(w, authedRequest(http.MethodPost, "/project", body, 1))
		if w.Result().StatusCode != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want %d", body, w.Result().StatusCode, http.StatusBadRequest)
		}
	}
}

func TestProjectHandler_Create_ValidationError_Returns400(t *testing.T) {
	h := NewProjectHandler(&mockProjectService{
		createFn: func(ctx context.Context, title string, ownerID int64) (*model.Project, error) {
			return nil, model.NewBadRequestError("タイトルは1文字以上100文字以下で入力してください。")
		},
	})

	w := httptest.NewRecorder()
	h.Create(w, authedRequest(http.MethodPost, "/project", `{"title":""}`, 1))

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestProjectHandler_Create_NoUser_Returns401(t *testing.T) {
	h := NewProjectHandler(&mockProjectService{})

	w := httptest.NewRecorder()
	h.Create(w, httptest.NewRequest(http.MethodPost, "/project", strings.NewReader(`{"title":"x"}`)))

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

// --- Update ---

func TestProjectHandler_Update(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"success", nil, http.StatusOK},
		{"not_found", model.NewProjectNotFoundError("p-1"), http.StatusNotFound},
		{"forbidden", model.NewProjectForbiddenError(), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewProjectHandler(&mockProjectService{
				updateFn: func(ctx context.Context, id, title string, requesterID int64) (*model.Project, error) {
					if id != "p-1" || title != "Renamed" || requesterID != 5 {
						t.Errorf("args = (%q, %q, %d)", id, title, requesterID)
					}
					if tt.err != nil {
						return nil, tt.err
					}
					return &model.Project{ID: id, Title: title, UserID: requesterID, CreatedAt: testCreatedAt}, nil
				},
			})

			req := withURLParams(authedRequest(http.MethodPut, "/project/p-1", `{"title":"Renamed"}`, 5), map[string]string{"id": "p-1"})
			w := httptest.NewRecorder()
			h.Update(w, req)

			if w.Result().StatusCode != tt.status {
				t.Errorf("status = %d, want %d", w.Result().StatusCode, tt.status)
			}
		})
	}
}

// --- Delete ---

func TestProjectHandler_Delete_Returns204(t *testing.T) {
	var deleted string
	h := NewProjectHandler(&mockProjectService{
		deleteFn: func(ctx context.Context, id string, requesterID int64) error {
			deleted = id
			return nil
		},
	})

	req := withURLParams(authedRequest(http.MethodDelete, "/project/p-1", "", 5), map[string]string{"id": "p-1"})
	w := httptest.NewRecorder()
	h.Delete(w, req)

	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}
	if deleted != "p-1" {
		t.Errorf("deleted = %q, want %q", deleted, "p-1")
	}
	if w.Body.Len() != 0 {
		t.Errorf("body should be empty, got %q", w.Body.String())
	}
}

func TestProjectHandler_Delete_Forbidden_Returns403(t *testing.T) {
	h := NewProjectHandler(&mockProjectService{
		deleteFn: func(ctx context.Context, id string, requesterID int64) error {
			return model.NewProjectForbiddenError()
		},
	})

	req := withURLParams(authedRequest(http.MethodDelete, "/project/p-1", "", 5), map[string]string{"id": "p-1"})
	w := httptest.NewRecorder()
	h.Delete(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
}

// --- Get ---

func TestProjectHandler_Get_ReturnsProjectWithFeedbacks(t *testing.T) {
	h := NewProjectHandler(&mockProjectService{
		getWithFeedbackFn: func(ctx context.Context, id string, requesterID int64) (*model.ProjectWithFeedbacks, error) {
			return &model.ProjectWithFeedbacks{
				Project: model.Project{ID: id, Title: "P", UserID: requesterID, CreatedAt: testCreatedAt},
				Feedbacks: []*model.Feedback{
					{ID: 2, Message: "newer", ProjectID: id, CreatedAt: testCreatedAt.Add(time.Hour)},
					{ID: 1, Message: "older", ProjectID: id, CreatedAt: testCreatedAt},
				},
			}, nil
		},
	})

	req := withURLParams(authedRequest(http.MethodGet, "/project/p-1", "", 5), map[string]string{"id": "p-1"})
	w := httptest.NewRecorder()
	h.Get(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var data struct {
		ID            string             `json:"id"`
		Feedbacks     []feedbackResponse `json:"feedbacks"`
		FeedbackCount int                `json:"feedbackCount"`
	}
	decodeData(t, w.Result(), &data)
	if data.ID != "p-1" || data.FeedbackCount != 2 || len(data.Feedbacks) != 2 {
		t.Fatalf("data = %+v", data)
	}
	if data.Feedbacks[0].ID != 2 || data.Feedbacks[0].ProjectID != "p-1" {
		t.Errorf("first feedback = %+v", data.Feedbacks[0])
	}
}

func TestProjectHandler_Get_Denied_Returns403(t *testing.T) {
	h := NewProjectHandler(&mockProjectService{
		getWithFeedbackFn: func(ctx context.Context, id string, requesterID int64) (*model.ProjectWithFeedbacks, error) {
			return nil, model.NewProjectAccessDeniedError()
		},
	})

	req := withURLParams(authedRequest(http.MethodGet, "/project/none", "", 5), map[string]string{"id": "none"})
	w := httptest.NewRecorder()
	h.Get(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
}

// --- List ---

func TestProjectHandler_List_PassesPaginationAndWrapsResult(t *testing.T) {
	var gotPage model.Pagination
	h := NewProjectHandler(&mockProjectService{
		listFn: func(ctx context.Context, ownerID int64, page model.Pagination) (*model.ProjectPage, error) {
			gotPage = page
			return &model.ProjectPage{
				Projects: []*model.Project{{ID: "p-2", Title: "B", UserID: ownerID, FeedbackCount: 3}},
				Total:    11,
			}, nil
		},
	})

	w := httptest.NewRecorder()
	h.List(w, authedRequest(http.MethodGet, "/project?page=2&pageSize=10", "", 5))

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if gotPage != (model.Pagination{Page: 2, PageSize: 10}) {
		t.Errorf("page = %+v", gotPage)
	}

	var data struct {
		Projects []struct {
			ID            string `json:"id"`
			FeedbackCount int    `json:"feedbackCount"`
		} `json:"projects"`
		Total    int `json:"total"`
		Page     int `json:"page"`
		PageSize int `json:"pageSize"`
	}
	decodeData(t, w.Result(), &data)
	if data.Total != 11 || data.Page != 2 || data.PageSize != 10 {
		t.Errorf("meta = %+v", data)
	}
	if len(data.Projects) != 1 || data.Projects[0].FeedbackCount != 3 {
		t.Errorf("projects = %+v", data.Projects)
	}
}

func TestProjectHandler_List_EmptyIsArray(t *testing.T) {
	h := NewProjectHandler(&mockProjectService{})

	w := httptest.NewRecorder()
	h.List(w, authedRequest(http.MethodGet, "/project", "", 5))

	if !strings.Contains(w.Body.String(), `"projects":[]`) {
		t.Errorf("body = %s, want empty projects array", w.Body.String())
	}
}

func TestProjectHandler_List_InvalidPagination_Returns400(t *testing.T) {
	h := NewProjectHandler(&mockProjectService{
		listFn: func(ctx context.Context, ownerID int64, page model.Pagination) (*model.ProjectPage, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	})

	w := httptest.NewRecorder()
	h.List(w, authedRequest(http.MethodGet, "/project?pageSize=101", "", 5))

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}
