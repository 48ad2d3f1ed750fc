package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/feedbackhub/internal/middleware"
)

// MetricsRecorder はHTTPリクエストと認証イベントの計測値を記録する。
// metrics.Collectorが満たす。
type MetricsRecorder interface {
	middleware.RequestRecorder
	AuthEventRecorder
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Authenticator     middleware.Authenticator
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// 運用
	HealthChecker  HealthChecker
	Metrics        MetricsRecorder
	MetricsHandler http.Handler

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ドメイン
	ProjectService  ProjectServiceInterface
	FeedbackService FeedbackServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP → Recovery → SecurityHeaders → CORS → Logging → Metrics
//
// 認証が必要なルートはさらに Session → RateLimit(ユーザー単位) を通る。
// 認証不要のルートは RateLimit(IP単位) を通り、フィードバック投稿には投稿専用の制限を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewMetricsMiddleware(deps.Metrics))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig, deps.Metrics)
	userHandler := NewUserHandler()
	projectHandler := NewProjectHandler(deps.ProjectService)
	feedbackHandler := NewFeedbackHandler(deps.FeedbackService)
	healthHandler := NewHealthHandler(deps.HealthChecker)

	// --- 運用エンドポイント（レート制限なし） ---
	r.Get("/health", healthHandler.Check)
	r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)

	// --- 認証不要のルート ---
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware(middleware.KeyByClientIP))

		r.Route("/auth", func(r chi.Router) {
			r.Get("/google", authHandler.Login)
			r.Get("/google/callback", authHandler.Callback)
			r.Get("/refresh", authHandler.Refresh)
			r.Get("/logout", authHandler.Logout)
			r.Get("/withdraw", authHandler.Withdraw)
		})

		// 公開リンクからの投稿（投稿専用レート制限を追加）
		r.With(deps.RateLimiter.FeedbackMiddleware(middleware.KeyByClientIP)).
			Post("/feedback", feedbackHandler.Create)
	})

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.Authenticator))
		r.Use(deps.RateLimiter.GeneralMiddleware(middleware.KeyByUserID))

		r.Get("/user", userHandler.Me)

		r.Route("/project", func(r chi.Router) {
			r.Get("/", projectHandler.List)
			r.Post("/", projectHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", projectHandler.Get)
				r.Put("/", projectHandler.Update)
				r.Delete("/", projectHandler.Delete)
			})
		})

		r.Get("/feedback/project/{projectId}", feedbackHandler.ListByProject)
		r.Delete("/feedback/{id}", feedbackHandler.Delete)
	})

	return r
}
