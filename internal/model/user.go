// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// ProviderAccountIDはGoogleアカウントのsubで、一度登録されると変更されない。
type User struct {
	ID                int64
	ProviderAccountID string
	Email             string
	Name              string
	RefreshToken      *string
	CreatedAt         time.Time
	DeletedAt         *time.Time
}

// IsDeleted は退会済み（論理削除済み）かどうかを返す。
func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}
