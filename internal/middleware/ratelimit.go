package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/feedbackhub/internal/model"
)

// RateLimiterConfig はレートリミッターの設定。
type RateLimiterConfig struct {
	// API全般: 1クライアントあたりの秒間リクエスト数とバースト
	GeneralRate  float64
	GeneralBurst int

	// フィードバック投稿: 1クライアントあたりの秒間リクエスト数とバースト
	FeedbackRate  float64
	FeedbackBurst int

	// 不要になったリミッターのクリーンアップ間隔
	CleanupInterval time.Duration
}

// DefaultRateLimiterConfig はデフォルトのレートリミッター設定を返す。
// API全般: 120 req/min, フィードバック投稿: 10 req/min
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfigPerMinute(120, 10)
}

// RateLimiterConfigPerMinute は分あたりのリクエスト数から設定を組み立てる。
// バーストは分あたりの上限と同じ値にする。
func RateLimiterConfigPerMinute(generalPerMinute, feedbackPerMinute int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     float64(generalPerMinute) / 60.0,
		GeneralBurst:    generalPerMinute,
		FeedbackRate:    float64(feedbackPerMinute) / 60.0,
		FeedbackBurst:   feedbackPerMinute,
		CleanupInterval: 5 * time.Minute,
	}
}

// KeyFunc はリクエストからレート制限の単位となるキーを取り出す。
// キーを決められない場合はfalseを返す。
type KeyFunc func(r *http.Request) (string, bool)

// KeyByUserID は認証済みユーザーIDをキーにする。
// セッションミドルウェアより後段で使う。
func KeyByUserID(r *http.Request) (string, bool) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		return "", false
	}
	return "user:" + strconv.FormatInt(userID, 10), true
}

// KeyByClientIP はクライアントIPをキーにする。
// 未ログインでも叩ける公開エンドポイント向け。
func KeyByClientIP(r *http.Request) (string, bool) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "" {
		return "", false
	}
	return "ip:" + host, true
}

// clientLimiter はキーごとのレートリミッターと最終アクセス時刻を保持する。
type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterStore は同じレート設定を共有するキー別リミッターの集合。
type limiterStore struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	rate     rate.Limit
	burst    int
}

func newLimiterStore(r float64, burst int) *limiterStore {
	return &limiterStore{
		limiters: make(map[string]*clientLimiter),
		rate:     rate.Limit(r),
		burst:    burst,
	}
}

// get はキーに対応するリミッターを取得し、なければ作成する。
func (s *limiterStore) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cl, exists := s.limiters[key]; exists {
		cl.lastAccess = time.Now()
		return cl.limiter
	}

	limiter := rate.NewLimiter(s.rate, s.burst)
	s.limiters[key] = &clientLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}
	return limiter
}

// evict は最終アクセスがttlより古いエントリを削除する。
func (s *limiterStore) evict(ttl time.Duration) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, cl := range s.limiters {
		if now.Sub(cl.lastAccess) > ttl {
			delete(s.limiters, key)
		}
	}
}

func (s *limiterStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// RateLimiter はクライアント単位のレート制限を管理する。
// API全般とフィードバック投稿の2種類のリミッターを独立して保持する。
type RateLimiter struct {
	config   RateLimiterConfig
	general  *limiterStore
	feedback *limiterStore

	stopCh chan struct{}
	once   sync.Once
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで不要なリミッターのクリーンアップを開始する。
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:   cfg,
		general:  newLimiterStore(cfg.GeneralRate, cfg.GeneralBurst),
		feedback: newLimiterStore(cfg.FeedbackRate, cfg.FeedbackBurst),
		stopCh:   make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップgoroutineを停止する。複数回呼んでも安全。
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() {
		close(rl.stopCh)
	})
}

// GeneralMiddleware はAPI全般のレート制限ミドルウェアを返す。
func (rl *RateLimiter) GeneralMiddleware(key KeyFunc) func(next http.Handler) http.Handler {
	return limitMiddleware(rl.general, rl.config.GeneralRate, key)
}

// FeedbackMiddleware はフィードバック投稿用のレート制限ミドルウェアを返す。
// API全般のレート制限とは独立して適用される。
func (rl *RateLimiter) FeedbackMiddleware(key KeyFunc) func(next http.Handler) http.Handler {
	return limitMiddleware(rl.feedback, rl.config.FeedbackRate, key)
}

// GeneralLimiterCount はAPI全般リミッターのエントリ数を返す（テスト用）。
func (rl *RateLimiter) GeneralLimiterCount() int {
	return rl.general.count()
}

// FeedbackLimiterCount はフィードバック投稿リミッターのエントリ数を返す（テスト用）。
func (rl *RateLimiter) FeedbackLimiterCount() int {
	return rl.feedback.count()
}

func limitMiddleware(store *limiterStore, r float64, key KeyFunc) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			k, ok := key(req)
			if !ok {
				WriteAPIError(w, req, model.NewUnauthorizedError())
				return
			}

			if !store.get(k).Allow() {
				writeRateLimitResponse(w, req, r)
				return
			}

			next.ServeHTTP(w, req)
		})
	}
}

// cleanupLoop は定期的に最終アクセスが古いリミッターを削除する。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は最終アクセスからCleanupIntervalの2倍を超えたエントリを削除する。
func (rl *RateLimiter) cleanup() {
	ttl := rl.config.CleanupInterval * 2
	rl.general.evict(ttl)
	rl.feedback.evict(ttl)
}

// writeRateLimitResponse はHTTP 429レスポンスを書き込む。
// Retry-Afterヘッダーには次のトークンが補充されるまでの秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, r *http.Request, ratePerSec float64) {
	retryAfter := int(math.Ceil(1.0 / ratePerSec))
	if retryAfter < 1 {
		retryAfter = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	WriteAPIError(w, r, model.NewRateLimitedError())
}
