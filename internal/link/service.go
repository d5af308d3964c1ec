// Package link はソーシャルアカウント連携のOAuthフローを提供する。
package link

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/sociallink/internal/model"
	"github.com/hitoshi/sociallink/internal/repository"
)

// ProfileSource はプロフィール取得に使用するエンドポイントの種別を表す。
// GETコールバックはuserinfo、レガシーのPOSTエントリポイントは/v2/meを読む。
type ProfileSource string

const (
	// ProfileSourceUserInfo はOpenID Connectのuserinfoエンドポイント（sub/name/given_name）。
	ProfileSourceUserInfo ProfileSource = "userinfo"
	// ProfileSourceMe はレガシーの/v2/meエンドポイント（id/name/localizedFirstName）。
	ProfileSourceMe ProfileSource = "me"
)

// TokenGrant はトークン交換の結果を表す。永続化されない一時データ。
type TokenGrant struct {
	AccessToken  string
	RefreshToken *string // LinkedInが返さない場合はnil
	ExpiresIn    int     // 秒
}

// Profile はプロバイダーから取得したプロフィール情報を表す。永続化されない一時データ。
type Profile struct {
	ExternalUserID string
	DisplayName    string
}

// OAuthProvider はOAuth連携プロバイダーのインターフェース。
type OAuthProvider interface {
	// AuthorizationURL は認可URLを生成する。stateはそのまま埋め込まれる。
	AuthorizationURL(state string) string
	// ExchangeCode は認可コードをトークンに交換する。
	ExchangeCode(ctx context.Context, code string) (*TokenGrant, error)
	// FetchProfile はアクセストークンでプロフィールを取得する。
	FetchProfile(ctx context.Context, accessToken string, source ProfileSource) (*Profile, error)
}

// NameSanitizer はプロバイダー由来の表示名をサニタイズするインターフェース。
type NameSanitizer interface {
	SanitizeName(raw string) string
}

// MetricsRecorder は連携フローのメトリクス記録のインターフェース。
type MetricsRecorder interface {
	RecordLinkSuccess()
	RecordLinkFailure(reason string)
	RecordPersistenceFailure()
	RecordExchangeLatency(duration time.Duration)
}

// LinkStatus は連携処理の最終状態を表す。
type LinkStatus string

const (
	// StatusLinked は連携が完全に成功したことを示す。
	StatusLinked LinkStatus = "linked"
	// StatusLinkedWithPersistenceWarning はトークン取得には成功したが
	// 永続化に失敗したことを示す。ユーザーには成功として扱う。
	StatusLinkedWithPersistenceWarning LinkStatus = "linked_with_persistence_warning"
	// StatusFailed は連携が失敗したことを示す。
	StatusFailed LinkStatus = "failed"
)

// LinkResult は連携処理の結果を表す。
// ハンドラーはStatusに応じてリダイレクト先を決定する。
type LinkResult struct {
	Status      LinkStatus
	FailureCode string // Statusがfailedの場合のエラーコード（model.ErrCode*）
	Message     string // Statusがfailedの場合の人間可読メッセージ
}

// Failed はStatusがStatusFailedかどうかを返す。
func (r LinkResult) Failed() bool {
	return r.Status == StatusFailed
}

// Service はアカウント連携のビジネスロジックを提供する。
type Service struct {
	oauth     OAuthProvider
	credRepo  repository.CredentialRepository
	sanitizer NameSanitizer
	metrics   MetricsRecorder
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	credRepo repository.CredentialRepository,
	sanitizer NameSanitizer,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		oauth:     oauth,
		credRepo:  credRepo,
		sanitizer: sanitizer,
		metrics:   metrics,
	}
}

// AuthorizationURL は連携開始用の認可URLを生成する。
func (s *Service) AuthorizationURL(userID string) string {
	return s.oauth.AuthorizationURL(userID)
}

// CompleteLink は認可コードからアカウント連携を完了する。
//  1. 認可コードをトークンに交換する（失敗は最終的な失敗）
//  2. プロフィールを取得する（失敗は最終的な失敗、連携情報は書き込まない）
//  3. (userID, LINKEDIN)をキーに連携情報をUPSERTする
//
// 永続化の失敗は意図的に飲み込む: 発行済みトークンを失うことのほうが
// 記録漏れより深刻なため、警告付き成功として扱う。
// userIDが空の場合（stateなしコールバック）は永続化をスキップし成功として扱う。
func (s *Service) CompleteLink(ctx context.Context, code, userID string, source ProfileSource) LinkResult {
	// 1. 認可コードをトークンに交換
	start := time.Now()
	grant, err := s.oauth.ExchangeCode(ctx, code)
	s.metrics.RecordExchangeLatency(time.Since(start))
	if err != nil {
		slog.Warn("token exchange failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		s.metrics.RecordLinkFailure("upstream_auth")
		return LinkResult{
			Status:      StatusFailed,
			FailureCode: model.ErrCodeUpstreamAuthError,
			Message:     err.Error(),
		}
	}

	// 2. プロフィールを取得
	profile, err := s.oauth.FetchProfile(ctx, grant.AccessToken, source)
	if err != nil {
		slog.Warn("profile fetch failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		s.metrics.RecordLinkFailure("upstream_profile")
		return LinkResult{
			Status:      StatusFailed,
			FailureCode: model.ErrCodeUpstreamProfileError,
			Message:     err.Error(),
		}
	}

	// stateなしのコールバックは永続化せず成功扱い
	if userID == "" {
		slog.Warn("missing user ID in callback state, skipping persistence")
		s.metrics.RecordLinkSuccess()
		return LinkResult{Status: StatusLinked}
	}

	// 3. 連携情報をUPSERT
	cred := &model.SocialAccountCredential{
		UserID:           userID,
		Platform:         model.PlatformLinkedIn,
		AccessToken:      grant.AccessToken,
		RefreshToken:     grant.RefreshToken,
		TokenExpiresAt:   time.Now().Add(time.Duration(grant.ExpiresIn) * time.Second),
		PlatformUserID:   profile.ExternalUserID,
		PlatformUsername: s.sanitizer.SanitizeName(profile.DisplayName),
		IsConnected:      true,
	}

	if err := s.credRepo.Upsert(ctx, cred); err != nil {
		// トークン交換成功を主たる成功シグナルとみなし、ユーザーには成功を返す
		slog.Error("failed to persist social account credential",
			slog.String("user_id", userID),
			slog.String("platform", string(model.PlatformLinkedIn)),
			slog.String("error", err.Error()),
		)
		s.metrics.RecordPersistenceFailure()
		s.metrics.RecordLinkSuccess()
		return LinkResult{Status: StatusLinkedWithPersistenceWarning}
	}

	slog.Info("social account linked",
		slog.String("user_id", userID),
		slog.String("platform", string(model.PlatformLinkedIn)),
		slog.String("platform_user_id", profile.ExternalUserID),
	)
	s.metrics.RecordLinkSuccess()

	return LinkResult{Status: StatusLinked}
}

// ListAccounts はユーザーの連携アカウント一覧を返す。
func (s *Service) ListAccounts(ctx context.Context, userID string) ([]*model.SocialAccountCredential, error) {
	return s.credRepo.ListByUserID(ctx, userID)
}

// Disconnect は指定プラットフォームの連携を切断状態にする。
// レコードは削除せず、is_connectedをfalseに更新する。
// 連携が存在しない場合はmodel.APIError（ACCOUNT_NOT_FOUND）を返す。
func (s *Service) Disconnect(ctx context.Context, userID string, platform model.Platform) error {
	cred, err := s.credRepo.FindByUserAndPlatform(ctx, userID, platform)
	if err != nil {
		return err
	}
	if cred == nil {
		return model.NewAccountNotFoundError(string(platform))
	}

	cred.IsConnected = false
	if err := s.credRepo.UpdateByID(ctx, cred.ID, cred); err != nil {
		return err
	}

	slog.Info("social account disconnected",
		slog.String("user_id", userID),
		slog.String("platform", string(platform)),
	)

	return nil
}
