package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/sociallink/internal/model"
)

// PostgresCredentialRepo はPostgreSQLを使用した連携情報リポジトリ。
type PostgresCredentialRepo struct {
	db *sql.DB
}

// NewPostgresCredentialRepo はPostgresCredentialRepoを生成する。
func NewPostgresCredentialRepo(db *sql.DB) *PostgresCredentialRepo {
	return &PostgresCredentialRepo{db: db}
}

// FindByUserAndPlatform はユーザーIDとプラットフォームで連携情報を検索する。
// 見つからない場合はnilを返す。
func (r *PostgresCredentialRepo) FindByUserAndPlatform(ctx context.Context, userID string, platform model.Platform) (*model.SocialAccountCredential, error) {
	cred := &model.SocialAccountCredential{}
	var refreshToken sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, platform, access_token, refresh_token, token_expires_at,
		        platform_user_id, platform_username, is_connected, created_at, updated_at
		 FROM social_accounts
		 WHERE user_id = $1 AND platform = $2`,
		userID, string(platform),
	).Scan(
		&cred.ID, &cred.UserID, &cred.Platform,
		&cred.AccessToken, &refreshToken, &cred.TokenExpiresAt,
		&cred.PlatformUserID, &cred.PlatformUsername, &cred.IsConnected,
		&cred.CreatedAt, &cred.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("連携情報の取得に失敗しました: %w", err)
	}

	if refreshToken.Valid {
		cred.RefreshToken = &refreshToken.String
	}

	return cred, nil
}

// Upsert は(user_id, platform)をキーに連携情報を冪等にUPSERTする。
// UNIQUE(user_id, platform)制約を利用したINSERT ON CONFLICTで実装する。
// 既存レコードのidとcreated_atは維持される。
func (r *PostgresCredentialRepo) Upsert(ctx context.Context, cred *model.SocialAccountCredential) error {
	now := time.Now().UTC()

	if cred.ID == "" {
		cred.ID = uuid.New().String()
	}
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = now
	}
	cred.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO social_accounts
		     (id, user_id, platform, access_token, refresh_token, token_expires_at,
		      platform_user_id, platform_username, is_connected, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (user_id, platform) DO UPDATE SET
		     access_token = EXCLUDED.access_token,
		     refresh_token = EXCLUDED.refresh_token,
		     token_expires_at = EXCLUDED.token_expires_at,
		     platform_user_id = EXCLUDED.platform_user_id,
		     platform_username = EXCLUDED.platform_username,
		     is_connected = EXCLUDED.is_connected,
		     updated_at = EXCLUDED.updated_at`,
		cred.ID, cred.UserID, string(cred.Platform),
		cred.AccessToken, nullString(cred.RefreshToken), cred.TokenExpiresAt,
		cred.PlatformUserID, cred.PlatformUsername, cred.IsConnected,
		cred.CreatedAt, cred.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("連携情報のUPSERTに失敗しました: %w", err)
	}

	return nil
}

// UpdateByID は指定IDのレコードのトークン・プロフィール・接続フラグを更新する。
func (r *PostgresCredentialRepo) UpdateByID(ctx context.Context, id string, cred *model.SocialAccountCredential) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE social_accounts SET
		     access_token = $2,
		     refresh_token = $3,
		     token_expires_at = $4,
		     platform_user_id = $5,
		     platform_username = $6,
		     is_connected = $7,
		     updated_at = $8
		 WHERE id = $1`,
		id,
		cred.AccessToken, nullString(cred.RefreshToken), cred.TokenExpiresAt,
		cred.PlatformUserID, cred.PlatformUsername, cred.IsConnected,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("連携情報の更新に失敗しました: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("social account not found: %s", id)
	}

	return nil
}

// ListByUserID はユーザーの全連携アカウントをプラットフォーム名順で返す。
func (r *PostgresCredentialRepo) ListByUserID(ctx context.Context, userID string) ([]*model.SocialAccountCredential, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, platform, access_token, refresh_token, token_expires_at,
		        platform_user_id, platform_username, is_connected, created_at, updated_at
		 FROM social_accounts
		 WHERE user_id = $1
		 ORDER BY platform`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("連携アカウント一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var creds []*model.SocialAccountCredential
	for rows.Next() {
		cred := &model.SocialAccountCredential{}
		var refreshToken sql.NullString

		if err := rows.Scan(
			&cred.ID, &cred.UserID, &cred.Platform,
			&cred.AccessToken, &refreshToken, &cred.TokenExpiresAt,
			&cred.PlatformUserID, &cred.PlatformUsername, &cred.IsConnected,
			&cred.CreatedAt, &cred.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("連携アカウントの読み取りに失敗しました: %w", err)
		}

		if refreshToken.Valid {
			cred.RefreshToken = &refreshToken.String
		}

		creds = append(creds, cred)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("連携アカウント一覧の走査に失敗しました: %w", err)
	}

	return creds, nil
}

// nullString は*stringをsql.NullStringに変換する。
func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// compile-time interface check
var _ CredentialRepository = (*PostgresCredentialRepo)(nil)
