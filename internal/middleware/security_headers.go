package middleware

import "net/http"

// apiSecurityHeaders はJSONとリダイレクトしか返さないAPI向けのヘッダー。
var apiSecurityHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	// HTMLを返さないため、スクリプト・フレーム埋め込みを含めて何も読み込ませない
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"X-Frame-Options", "DENY"},
	// OAuthコールバックのURLには認可コードが載るため、Refererで外部に渡さない
	{"Referrer-Policy", "no-referrer"},
	{"Cross-Origin-Resource-Policy", "same-site"},
	// トークンをSet-Cookieで返すため、中間キャッシュに残さない
	{"Cache-Control", "no-store"},
}

// NewSecurityHeadersMiddleware は全レスポンスにapiSecurityHeadersを付与するミドルウェアを返す。
func NewSecurityHeadersMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, kv := range apiSecurityHeaders {
				h.Set(kv[0], kv[1])
			}
			next.ServeHTTP(w, r)
		})
	}
}
