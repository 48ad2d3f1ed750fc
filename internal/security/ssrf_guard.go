// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"net/http"
	"time"

	"github.com/doyensec/safeurl"
)

// allowedSchemes は外部APIへの送信で許可されるURLスキーム。
var allowedSchemes = []string{"https"}

// SSRFGuard は外部API呼び出し用のHTTPクライアントを生成する。
// サーバーから送信するのはOAuthプロバイダへのリクエストのみだが、
// 設定ミスで内部ネットワークに向かないようsafeurlで宛先を制限する。
type SSRFGuard struct {
	allowedPorts []int
}

// NewSSRFGuard はhttpsの443番ポートのみ許可するSSRFGuardを生成する。
func NewSSRFGuard() *SSRFGuard {
	return &SSRFGuard{allowedPorts: []int{443}}
}

// NewSafeClient はSSRF防止機能付きのHTTPクライアントを生成する。
// safeurlのデフォルト設定により以下がブロックされる:
//   - プライベートIPアドレス (10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16)
//   - ループバックアドレス (127.0.0.0/8, ::1)
//   - リンクローカルアドレス (169.254.0.0/16, fe80::/10)
//
// 宛先IPの検証はDNS解決後にDialerのControlフックで行われる。
func (g *SSRFGuard) NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(g.allowedPorts...).
		Build()

	return safeurl.Client(config).Client
}
