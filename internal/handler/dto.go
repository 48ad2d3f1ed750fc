package handler

import (
	"time"

	"github.com/hitoshi/feedbackhub/internal/model"
)

// ユーザーIDはJavaScriptの数値精度を超えうるため文字列としてエンコードする。

type userResponse struct {
	ID                int64     `json:"id,string"`
	ProviderAccountID string    `json:"providerAccountId"`
	Email             string    `json:"email"`
	Name              string    `json:"name"`
	CreatedAt         time.Time `json:"createdAt"`
}

type projectResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UserID    int64     `json:"userId,string"`
	CreatedAt time.Time `json:"createdAt"`
}

type createProjectResponse struct {
	CreatedID string `json:"createdId"`
	projectResponse
}

type projectSummaryResponse struct {
	projectResponse
	FeedbackCount int `json:"feedbackCount"`
}

type projectDetailResponse struct {
	projectResponse
	Feedbacks     []feedbackResponse `json:"feedbacks"`
	FeedbackCount int                `json:"feedbackCount"`
}

type projectListResponse struct {
	Projects []projectSummaryResponse `json:"projects"`
	Total    int                      `json:"total"`
	Page     int                      `json:"page"`
	PageSize int                      `json:"pageSize"`
}

type feedbackResponse struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	ProjectID string    `json:"projectId"`
	CreatedAt time.Time `json:"createdAt"`
}

type createFeedbackResponse struct {
	CreatedID int64 `json:"createdId"`
}

type feedbackListResponse struct {
	Feedbacks []feedbackResponse `json:"feedbacks"`
	Total     int                `json:"total"`
	Page      int                `json:"page"`
	PageSize  int                `json:"pageSize"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:                u.ID,
		ProviderAccountID: u.ProviderAccountID,
		Email:             u.Email,
		Name:              u.Name,
		CreatedAt:         u.CreatedAt,
	}
}

func toProjectResponse(p *model.Project) projectResponse {
	return projectResponse{
		ID:        p.ID,
		Title:     p.Title,
		UserID:    p.UserID,
		CreatedAt: p.CreatedAt,
	}
}

func toFeedbackResponses(feedbacks []*model.Feedback) []feedbackResponse {
	// 0件でもnullではなく[]を返す
	results := make([]feedbackResponse, len(feedbacks))
	for i, f := range feedbacks {
		results[i] = feedbackResponse{
			ID:        f.ID,
			Message:   f.Message,
			ProjectID: f.ProjectID,
			CreatedAt: f.CreatedAt,
		}
	}
	return results
}
