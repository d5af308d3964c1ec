package link

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultLinkedInAuthURL     = "https://www.linkedin.com/oauth/v2/authorization"
	defaultLinkedInTokenURL    = "https://www.linkedin.com/oauth/v2/accessToken"
	defaultLinkedInUserInfoURL = "https://api.linkedin.com/v2/userinfo"
	defaultLinkedInMeURL       = "https://api.linkedin.com/v2/me"
)

// linkedInScopes はアカウント連携で要求する固定スコープ。
// カンマ区切りの1つのscopeパラメータとしてLinkedInに渡す。
const linkedInScopes = "openid,profile,email,w_member_social"

// UpstreamStatusRecorder はプロバイダーAPIのHTTPステータスコードを記録するインターフェース。
type UpstreamStatusRecorder interface {
	RecordUpstreamHTTPStatus(statusCode int)
}

// LinkedInConfig はLinkedIn OAuthプロバイダーの設定。
type LinkedInConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	// 外部呼び出しのタイムアウト。ゼロ値の場合は10秒。
	Timeout time.Duration

	// プロバイダーAPIレスポンスのステータスコード記録先。nilの場合は記録しない。
	StatusRecorder UpstreamStatusRecorder

	// テスト用にオーバーライド可能なURL
	AuthURL     string
	TokenURL    string
	UserInfoURL string
	MeURL       string
}

// LinkedInProvider はLinkedIn OAuth 2.0によるアカウント連携を提供する。
type LinkedInProvider struct {
	config LinkedInConfig
	client *http.Client
}

// NewLinkedInProvider はLinkedInProviderを生成する。
func NewLinkedInProvider(config LinkedInConfig) *LinkedInProvider {
	if config.AuthURL == "" {
		config.AuthURL = defaultLinkedInAuthURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultLinkedInTokenURL
	}
	if config.UserInfoURL == "" {
		config.UserInfoURL = defaultLinkedInUserInfoURL
	}
	if config.MeURL == "" {
		config.MeURL = defaultLinkedInMeURL
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	return &LinkedInProvider{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// AuthorizationURL はLinkedInの認可URLを生成する。
// stateには連携開始ユーザーのIDをそのまま乗せ、コールバックで回収する。
func (p *LinkedInProvider) AuthorizationURL(state string) string {
	params := url.Values{
		"response_type": {"code"},
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.RedirectURI},
		"scope":         {linkedInScopes},
		"state":         {state},
	}
	return p.config.AuthURL + "?" + params.Encode()
}

// linkedInTokenResponse はLinkedInのトークンエンドポイントのレスポンス。
type linkedInTokenResponse struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// linkedInErrorResponse はLinkedInのエラーレスポンス。
type linkedInErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ExchangeCode は認可コードをアクセストークンに交換する。
// 非2xxレスポンスの場合、LinkedInが返したerror_descriptionをエラーメッセージに含める。
func (p *LinkedInProvider) ExchangeCode(ctx context.Context, code string) (*TokenGrant, error) {
	data := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {p.config.RedirectURI},
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()
	p.recordStatus(resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp linkedInErrorResponse
		if json.Unmarshal(body, &errResp) == nil {
			if errResp.ErrorDescription != "" {
				return nil, fmt.Errorf("token exchange failed: %s", errResp.ErrorDescription)
			}
			if errResp.Error != "" {
				return nil, fmt.Errorf("token exchange failed: %s", errResp.Error)
			}
		}
		return nil, fmt.Errorf("token exchange failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp linkedInTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}

	grant := &TokenGrant{
		AccessToken: tokenResp.AccessToken,
		ExpiresIn:   tokenResp.ExpiresIn,
	}
	if tokenResp.RefreshToken != "" {
		grant.RefreshToken = &tokenResp.RefreshToken
	}

	return grant, nil
}

// FetchProfile はアクセストークンでLinkedInのプロフィールを取得する。
// sourceに応じてuserinfoエンドポイント（sub/name/given_name）または
// レガシーの/v2/meエンドポイント（id/name/localizedFirstName）を読む。
func (p *LinkedInProvider) FetchProfile(ctx context.Context, accessToken string, source ProfileSource) (*Profile, error) {
	endpoint := p.config.UserInfoURL
	if source == ProfileSourceMe {
		endpoint = p.config.MeURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()
	p.recordStatus(resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("profile fetch failed with status %d", resp.StatusCode)
	}

	profile, err := parseProfile(body, source)
	if err != nil {
		return nil, err
	}

	return profile, nil
}

// parseProfile はプロフィールレスポンスをProfileSourceに応じた形でパースする。
func parseProfile(body []byte, source ProfileSource) (*Profile, error) {
	switch source {
	case ProfileSourceMe:
		var me struct {
			ID                 string `json:"id"`
			Name               string `json:"name"`
			LocalizedFirstName string `json:"localizedFirstName"`
		}
		if err := json.Unmarshal(body, &me); err != nil {
			return nil, fmt.Errorf("failed to parse profile response: %w", err)
		}
		if me.ID == "" {
			return nil, fmt.Errorf("empty id in profile response")
		}
		name := me.Name
		if name == "" {
			name = me.LocalizedFirstName
		}
		return &Profile{ExternalUserID: me.ID, DisplayName: name}, nil
	default:
		var userInfo struct {
			Sub       string `json:"sub"`
			Name      string `json:"name"`
			GivenName string `json:"given_name"`
		}
		if err := json.Unmarshal(body, &userInfo); err != nil {
			return nil, fmt.Errorf("failed to parse userinfo response: %w", err)
		}
		if userInfo.Sub == "" {
			return nil, fmt.Errorf("empty sub in userinfo response")
		}
		name := userInfo.Name
		if name == "" {
			name = userInfo.GivenName
		}
		return &Profile{ExternalUserID: userInfo.Sub, DisplayName: name}, nil
	}
}

func (p *LinkedInProvider) recordStatus(statusCode int) {
	if p.config.StatusRecorder != nil {
		p.config.StatusRecorder.RecordUpstreamHTTPStatus(statusCode)
	}
}

// compile-time interface check
var _ OAuthProvider = (*LinkedInProvider)(nil)
