package model

import "time"

// Feedback はプロジェクトに寄せられたフィードバックを表す。
// 公開リンクから未ログインで投稿されるため、投稿者情報は持たない。
type Feedback struct {
	ID        int64
	Message   string
	ProjectID string
	CreatedAt time.Time
	DeletedAt *time.Time
}

// FeedbackPage はフィードバック一覧の1ページ分とページング前の総件数。
type FeedbackPage struct {
	Feedbacks []*Feedback
	Total     int
}
