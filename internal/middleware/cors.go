package middleware

import (
	"net/http"
	"strings"
)

// corsPolicy はフロントエンド1オリジンだけに開くCORS設定。
type corsPolicy struct {
	origin string
	// methods はフロントエンドが使うメソッド。タイトル更新はPUTで行うためPATCHは含めない。
	methods string
	// headers はJSONボディ送信に必要なヘッダーのみ。トークンはCookieで運ぶ。
	headers string
	// exposed はレート制限時の待ち秒数をフロントエンドから読めるようにする。
	exposed string
	maxAge  string
}

// NewCORSMiddleware はフロントエンドのオリジンにのみCookie付きリクエストを許可するミドルウェアを返す。
// Originヘッダーが別オリジンの場合はCORSヘッダーを付けず、プリフライトは403で拒否する。
// Originヘッダーのない同一オリジン・サーバー間のリクエストはそのまま通す。
func NewCORSMiddleware(allowedOrigin string) func(next http.Handler) http.Handler {
	p := corsPolicy{
		origin:  strings.TrimRight(allowedOrigin, "/"),
		methods: "GET, POST, PUT, DELETE, OPTIONS",
		headers: "Content-Type",
		exposed: "Retry-After",
		maxAge:  "86400",
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")

			origin := r.Header.Get("Origin")
			allowed := origin == "" || origin == p.origin
			if allowed {
				h.Set("Access-Control-Allow-Origin", p.origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Expose-Headers", p.exposed)
			}

			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			h.Set("Access-Control-Allow-Methods", p.methods)
			h.Set("Access-Control-Allow-Headers", p.headers)
			h.Set("Access-Control-Max-Age", p.maxAge)
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
