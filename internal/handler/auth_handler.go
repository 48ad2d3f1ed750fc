// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/feedbackhub/internal/auth"
	"github.com/hitoshi/feedbackhub/internal/metrics"
	"github.com/hitoshi/feedbackhub/internal/middleware"
	"github.com/hitoshi/feedbackhub/internal/model"
)

const (
	providerAccountIDCookie = "provider_account_id"
	refreshTokenCookie      = "refresh_token"
	oauthStateCookie        = "oauth_state"
	oauthIntentCookie       = "oauth_intent"

	// oauthFlowMaxAge はOAuthフロー中のstate/intent Cookieの有効期間。
	oauthFlowMaxAge = 10 * time.Minute
)

// 認証イベント名（メトリクスのeventラベル）
const (
	authEventRefresh  = "refresh"
	authEventLogout   = "logout"
	authEventWithdraw = "withdraw"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	GetLoginURL(state string) string
	HandleCallback(ctx context.Context, code string, intent auth.Intent) (*auth.LoginResult, error)
	Refresh(ctx context.Context, providerAccountID, refreshToken string) (*auth.TokenPair, error)
	Withdraw(ctx context.Context, providerAccountID string) error
}

// AuthEventRecorder は認証イベントの結果を記録する。
type AuthEventRecorder interface {
	RecordAuthEvent(event, outcome string)
}

type nopAuthEventRecorder struct{}

func (nopAuthEventRecorder) RecordAuthEvent(string, string) {}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	LoginRedirectURL string // ログイン成功後のリダイレクト先
	CookieDomain     string
	CookieSecure     bool
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
}

// AuthHandler はOAuth認証とトークンCookieを扱うHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
	events  AuthEventRecorder
}

// NewAuthHandler はAuthHandlerを生成する。eventsがnilの場合は記録しない。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig, events AuthEventRecorder) *AuthHandler {
	if events == nil {
		events = nopAuthEventRecorder{}
	}
	return &AuthHandler{
		service: service,
		config:  config,
		events:  events,
	}
}

// Login はGoogle OAuthフローを開始する。
// GET /auth/google?type=login|signup
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	intent, err := auth.ParseIntent(r.URL.Query().Get("type"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w, r)
		return
	}

	// stateとintentをCookieに保存（CSRF対策）
	h.setFlowCookie(w, oauthStateCookie, state, oauthFlowMaxAge)
	h.setFlowCookie(w, oauthIntentCookie, string(intent), oauthFlowMaxAge)

	http.Redirect(w, r, h.service.GetLoginURL(state), http.StatusTemporaryRedirect)
}

// Callback はOAuthコールバックを処理する。
// GET /auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	// 1. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch", slog.String("query_state", state))
		middleware.WriteAPIError(w, r, model.NewBadRequestError("stateパラメータが不正です。"))
		return
	}

	intent := auth.IntentLogin
	if c, err := r.Cookie(oauthIntentCookie); err == nil {
		if parsed, err := auth.ParseIntent(c.Value); err == nil {
			intent = parsed
		}
	}

	// フロー用Cookieは成否にかかわらず削除
	h.setFlowCookie(w, oauthStateCookie, "", -1)
	h.setFlowCookie(w, oauthIntentCookie, "", -1)

	// 2. 認可コードの取得
	code := r.URL.Query().Get("code")
	if code == "" {
		middleware.WriteAPIError(w, r, model.NewBadRequestError("認可コードがありません。"))
		return
	}

	// 3. ログインまたは新規登録
	result, err := h.service.HandleCallback(r.Context(), code, intent)
	if err != nil {
		h.events.RecordAuthEvent(string(intent), metrics.OutcomeFailure)
		handleServiceError(w, r, err)
		return
	}
	h.events.RecordAuthEvent(string(intent), metrics.OutcomeSuccess)

	// 4. セッションCookieを設定してフロントエンドにリダイレクト
	h.setSessionCookies(w, result.ProviderAccountID, result.Tokens)
	http.Redirect(w, r, h.config.LoginRedirectURL, http.StatusTemporaryRedirect)
}

// Refresh はリフレッシュトークンでアクセストークンとリフレッシュトークンを再発行する。
// GET /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.service.Refresh(r.Context(), cookieValue(r, providerAccountIDCookie), cookieValue(r, refreshTokenCookie))
	if err != nil {
		h.events.RecordAuthEvent(authEventRefresh, metrics.OutcomeFailure)
		handleServiceError(w, r, err)
		return
	}
	h.events.RecordAuthEvent(authEventRefresh, metrics.OutcomeSuccess)

	h.setCookie(w, middleware.AccessTokenCookieName, tokens.AccessToken, h.config.AccessTokenTTL)
	h.setCookie(w, refreshTokenCookie, tokens.RefreshToken, h.config.RefreshTokenTTL)
	writeSuccess(w, http.StatusOK, nil)
}

// Logout はセッションCookieを削除する。トークンはサーバー側では失効させない。
// GET /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookieValue(r, providerAccountIDCookie) == "" {
		h.events.RecordAuthEvent(authEventLogout, metrics.OutcomeFailure)
		middleware.WriteAPIError(w, r, model.NewLoginRequiredError())
		return
	}

	h.clearSessionCookies(w)
	h.events.RecordAuthEvent(authEventLogout, metrics.OutcomeSuccess)
	writeSuccess(w, http.StatusOK, nil)
}

// Withdraw は退会処理を行い、セッションCookieを削除する。
// GET /auth/withdraw
func (h *AuthHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Withdraw(r.Context(), cookieValue(r, providerAccountIDCookie)); err != nil {
		h.events.RecordAuthEvent(authEventWithdraw, metrics.OutcomeFailure)
		handleServiceError(w, r, err)
		return
	}

	h.clearSessionCookies(w)
	h.events.RecordAuthEvent(authEventWithdraw, metrics.OutcomeSuccess)
	writeSuccess(w, http.StatusOK, nil)
}

// setSessionCookies はログイン状態を表す3つのCookieを設定する。
func (h *AuthHandler) setSessionCookies(w http.ResponseWriter, providerAccountID string, tokens auth.TokenPair) {
	h.setCookie(w, providerAccountIDCookie, providerAccountID, h.config.RefreshTokenTTL)
	h.setCookie(w, middleware.AccessTokenCookieName, tokens.AccessToken, h.config.AccessTokenTTL)
	h.setCookie(w, refreshTokenCookie, tokens.RefreshToken, h.config.RefreshTokenTTL)
}

func (h *AuthHandler) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{providerAccountIDCookie, middleware.AccessTokenCookieName, refreshTokenCookie} {
		h.setCookie(w, name, "", -1)
	}
}

// setCookie はHTTP Onlyのセッション系Cookieを書き込む。maxAgeが負の場合は削除する。
func (h *AuthHandler) setCookie(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   cookieMaxAge(maxAge),
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// setFlowCookie はOAuthフロー中だけ使うCookieを書き込む。ドメインは指定しない。
func (h *AuthHandler) setFlowCookie(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   cookieMaxAge(maxAge),
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func cookieMaxAge(d time.Duration) int {
	if d < 0 {
		return -1
	}
	return int(d / time.Second)
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
