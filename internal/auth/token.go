package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	// DefaultAccessTokenTTL はアクセストークンの既定の有効期間。
	DefaultAccessTokenTTL = time.Hour
	// DefaultRefreshTokenTTL はリフレッシュトークンの既定の有効期間。
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// ErrInvalidToken は署名不正、期限切れ、種別違いなど検証に失敗したトークンを表す。
var ErrInvalidToken = errors.New("auth: invalid token")

// accessClaims はアクセストークンのクレーム。subにもプロバイダーアカウントIDを入れる。
type accessClaims struct {
	jwt.RegisteredClaims
	ProviderAccountID string `json:"providerAccountId"`
	Type              string `json:"typ"`
}

// refreshClaims はリフレッシュトークンのクレーム。
type refreshClaims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"uid"`
	Type   string `json:"typ"`
}

// TokenConfig はトークン発行の設定。ゼロ値の項目は既定値で補われる。
type TokenConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Now はテストで時刻を固定するために差し替える。
	Now func() time.Time
}

// TokenPair はログイン・リフレッシュ時に発行されるトークンの組。
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenIssuer はHS256署名のアクセストークンとリフレッシュトークンを発行・検証する。
// 失効リストは持たず、有効性は署名と有効期限のみで判定する。
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer はTokenIssuerを生成する。署名鍵が空の場合はエラーを返す。
func NewTokenIssuer(secret []byte, cfg TokenConfig) (*TokenIssuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: token signing secret is empty")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTokenTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &TokenIssuer{
		secret:     secret,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        cfg.Now,
	}, nil
}

// AccessTTL はアクセストークンの有効期間を返す。Cookieの有効期限に使う。
func (i *TokenIssuer) AccessTTL() time.Duration { return i.accessTTL }

// RefreshTTL はリフレッシュトークンの有効期間を返す。
func (i *TokenIssuer) RefreshTTL() time.Duration { return i.refreshTTL }

func (i *TokenIssuer) registeredClaims(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := i.now()
	return jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
}

// IssueAccessToken はプロバイダーアカウントIDを主体とするアクセストークンを発行する。
func (i *TokenIssuer) IssueAccessToken(providerAccountID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		RegisteredClaims:  i.registeredClaims(providerAccountID, i.accessTTL),
		ProviderAccountID: providerAccountID,
		Type:              tokenTypeAccess,
	})
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// IssueRefreshToken はユーザーIDに紐づくリフレッシュトークンを発行する。
func (i *TokenIssuer) IssueRefreshToken(userID int64) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims{
		RegisteredClaims: i.registeredClaims("", i.refreshTTL),
		UserID:           userID,
		Type:             tokenTypeRefresh,
	})
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return signed, nil
}

func (i *TokenIssuer) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return i.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

// ParseAccessToken はアクセストークンを検証し、プロバイダーアカウントIDを返す。
func (i *TokenIssuer) ParseAccessToken(tokenString string) (string, error) {
	claims := &accessClaims{}
	if err := i.parse(tokenString, claims); err != nil {
		return "", err
	}
	if claims.Type != tokenTypeAccess || claims.ProviderAccountID == "" {
		return "", ErrInvalidToken
	}
	return claims.ProviderAccountID, nil
}

// ParseRefreshToken はリフレッシュトークンを検証し、ユーザーIDを返す。
func (i *TokenIssuer) ParseRefreshToken(tokenString string) (int64, error) {
	claims := &refreshClaims{}
	if err := i.parse(tokenString, claims); err != nil {
		return 0, err
	}
	if claims.Type != tokenTypeRefresh || claims.UserID == 0 {
		return 0, ErrInvalidToken
	}
	return claims.UserID, nil
}

// RefreshAccessToken はリフレッシュトークンが有効な場合に新しいアクセストークンを発行する。
// 何も永続化しない。
func (i *TokenIssuer) RefreshAccessToken(providerAccountID, refreshToken string) (string, error) {
	if _, err := i.ParseRefreshToken(refreshToken); err != nil {
		return "", err
	}
	return i.IssueAccessToken(providerAccountID)
}
