// Package model はドメインモデルを定義する。
package model

import "time"

// Platform は連携先のソーシャルメディアプラットフォームを表す。
type Platform string

const (
	// PlatformLinkedIn はLinkedInプラットフォームを示す。
	// 永続化時の値は大文字で統一する。
	PlatformLinkedIn Platform = "LINKEDIN"
)

// SocialAccountCredential はユーザーと外部プラットフォームの連携情報を表す。
// (UserID, Platform) の組み合わせで一意となり、再連携時は同一レコードを上書きする。
type SocialAccountCredential struct {
	ID               string
	UserID           string
	Platform         Platform
	AccessToken      string
	RefreshToken     *string // プロバイダーが返さない場合はnil
	TokenExpiresAt   time.Time
	PlatformUserID   string
	PlatformUsername string
	IsConnected      bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
