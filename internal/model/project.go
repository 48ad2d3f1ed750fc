package model

import "time"

// ProjectTitleMaxLength はプロジェクトタイトルの最大文字数（rune数）。
const ProjectTitleMaxLength = 100

// Project はフィードバックを収集する単位を表す。
type Project struct {
	ID        string
	Title     string
	UserID    int64
	CreatedAt time.Time
	DeletedAt *time.Time

	// FeedbackCount は論理削除されていないフィードバック数。一覧取得時のみ設定される。
	FeedbackCount int
}

// ProjectWithFeedbacks はプロジェクトと、その有効なフィードバック一覧。
type ProjectWithFeedbacks struct {
	Project
	Feedbacks []*Feedback
}

// ProjectPage はプロジェクト一覧の1ページ分とページング前の総件数。
type ProjectPage struct {
	Projects []*Project
	Total    int
}
