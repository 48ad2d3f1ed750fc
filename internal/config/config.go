package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Token
	JWTSecretKey    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Rate Limit（req/min）
	RateLimitGeneral  int
	RateLimitFeedback int

	// Server
	ServerPort string

	// Client
	ClientURL        string
	LoginSuccessPath string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// LoginRedirectURL はOAuthログイン成功後のリダイレクト先を返す。
func (c *Config) LoginRedirectURL() string {
	return strings.TrimRight(c.ClientURL, "/") + c.LoginSuccessPath
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込むが、既存の環境変数は上書きしない。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	if cfg.GoogleClientID == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}

	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	if cfg.GoogleClientSecret == "" {
		missing = append(missing, "GOOGLE_CLIENT_SECRET")
	}

	cfg.GoogleRedirectURL = os.Getenv("GOOGLE_REDIRECT_URL")
	if cfg.GoogleRedirectURL == "" {
		missing = append(missing, "GOOGLE_REDIRECT_URL")
	}

	// 署名鍵がない状態ではトークンを発行・検証できないため起動させない
	cfg.JWTSecretKey = os.Getenv("JWT_SECRET_KEY")
	if cfg.JWTSecretKey == "" {
		missing = append(missing, "JWT_SECRET_KEY")
	}

	cfg.ClientURL = os.Getenv("CLIENT_URL")
	if cfg.ClientURL == "" {
		missing = append(missing, "CLIENT_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	clientURL, err := url.Parse(cfg.ClientURL)
	if err != nil || clientURL.Scheme == "" || clientURL.Host == "" {
		return nil, fmt.Errorf("CLIENT_URL must be an absolute URL: %q", cfg.ClientURL)
	}

	// Optional fields with defaults
	var invalid []string
	cfg.AccessTokenTTL = getEnvDuration("ACCESS_TOKEN_TTL", time.Hour, &invalid)
	cfg.RefreshTokenTTL = getEnvDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour, &invalid)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120, &invalid)
	cfg.RateLimitFeedback = getEnvInt("RATE_LIMIT_FEEDBACK", 10, &invalid)
	if len(invalid) > 0 {
		return nil, fmt.Errorf("environment variables must be positive values: %v", invalid)
	}

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.LoginSuccessPath = getEnvString("LOGIN_SUCCESS_PATH", "/login-success")
	cfg.CookieSecure = strings.HasPrefix(cfg.ClientURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", clientURL.Hostname())
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", clientURL.Scheme+"://"+clientURL.Host)

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// getEnvInt は正の整数を読み込む。解釈できない値や0以下の値はinvalidにキーを追加する。
func getEnvInt(key string, defaultVal int, invalid *[]string) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		*invalid = append(*invalid, key)
		return defaultVal
	}
	return i
}

// getEnvDuration は正の期間を読み込む。解釈できない値や0以下の値はinvalidにキーを追加する。
func getEnvDuration(key string, defaultVal time.Duration, invalid *[]string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		*invalid = append(*invalid, key)
		return defaultVal
	}
	return d
}
