// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/sociallink/internal/model"
)

// CredentialRepository はソーシャルアカウント連携情報の永続化インターフェース。
type CredentialRepository interface {
	// FindByUserAndPlatform はユーザーIDとプラットフォームで連携情報を検索する。
	// 見つからない場合はnilを返す。
	FindByUserAndPlatform(ctx context.Context, userID string, platform model.Platform) (*model.SocialAccountCredential, error)

	// Upsert は(user_id, platform)をキーに連携情報を冪等にUPSERTする。
	// 既存レコードがある場合は同一IDのままトークンとプロフィール情報を上書きし、
	// is_connectedをtrueに設定する。
	Upsert(ctx context.Context, cred *model.SocialAccountCredential) error

	// UpdateByID は指定IDのレコードのトークン・プロフィール・接続フラグを更新する。
	UpdateByID(ctx context.Context, id string, cred *model.SocialAccountCredential) error

	// ListByUserID はユーザーの全連携アカウントを返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.SocialAccountCredential, error)
}
