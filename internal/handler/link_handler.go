// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/hitoshi/sociallink/internal/link"
	"github.com/hitoshi/sociallink/internal/middleware"
	"github.com/hitoshi/sociallink/internal/model"
)

// missingCodeMessage はコールバックに認可コードが無い場合のエラーリダイレクトに使う固定文言。
const missingCodeMessage = "missing_code"

// LinkServiceInterface は連携ハンドラーが必要とするサービスインターフェース。
type LinkServiceInterface interface {
	AuthorizationURL(userID string) string
	CompleteLink(ctx context.Context, code, userID string, source link.ProfileSource) link.LinkResult
}

// LinkHandlerConfig は連携ハンドラーの設定。
type LinkHandlerConfig struct {
	// BaseURL はリダイレクト先フロントエンドのベースURL。
	BaseURL string
}

// LinkHandler はLinkedInアカウント連携のHTTPハンドラー。
type LinkHandler struct {
	service LinkServiceInterface
	config  LinkHandlerConfig
}

// NewLinkHandler はLinkHandlerを生成する。
func NewLinkHandler(service LinkServiceInterface, config LinkHandlerConfig) *LinkHandler {
	return &LinkHandler{
		service: service,
		config:  config,
	}
}

// InitiateLink はLinkedIn OAuthフローを開始する。
// GET /auth/linkedin/connect?userId=xxx
//
// userIdはstateパラメータとしてそのまま認可URLに埋め込まれ、
// コールバックで連携先ユーザーの特定に使われる。
func (h *LinkHandler) InitiateLink(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingUserIDError())
		return
	}

	authURL := h.service.AuthorizationURL(userID)
	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback はLinkedInからのOAuthコールバックを処理する。
// GET /auth/linkedin/callback?code=xxx&state=yyy
//
// 結果はJSONではなくブラウザリダイレクトで返す:
//   - 成功（永続化失敗の警告付き成功を含む）→ {BaseURL}/dashboard?linkedin=connected
//   - 失敗 → {BaseURL}/auth/error?message=...
//
// codeが無い場合はプロバイダーを一切呼ばず、固定文言でエラーリダイレクトする。
func (h *LinkHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	userID := r.URL.Query().Get("state")

	if code == "" {
		h.redirectError(w, r, missingCodeMessage)
		return
	}

	result := h.service.CompleteLink(r.Context(), code, userID, link.ProfileSourceUserInfo)
	if result.Failed() {
		h.redirectError(w, r, result.Message)
		return
	}

	h.redirectSuccess(w, r)
}

// linkRequest はPOSTエントリポイントのリクエストボディ。
type linkRequest struct {
	Code   string `json:"code"`
	UserID string `json:"userId"`
}

// CompleteLinkPost はJSONボディから連携を完了するレガシーエントリポイント。
// POST /auth/linkedin/connect with {"code": "...", "userId": "..."}
//
// GETコールバックと同じパイプラインだが、プロフィールは/v2/me形状で読む。
// codeまたはuserIdが無い場合は400 JSONを返す。結果はコールバック同様リダイレクト。
func (h *LinkHandler) CompleteLinkPost(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingCodeAndUserIDError())
		return
	}

	if req.Code == "" || req.UserID == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingCodeAndUserIDError())
		return
	}

	result := h.service.CompleteLink(r.Context(), req.Code, req.UserID, link.ProfileSourceMe)
	if result.Failed() {
		h.redirectError(w, r, result.Message)
		return
	}

	h.redirectSuccess(w, r)
}

// MethodNotAllowed は許可されていないHTTPメソッドに405 JSONを返す。
// PUT/DELETE/PATCH /auth/linkedin/connect
func (h *LinkHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	middleware.WriteErrorResponse(w, http.StatusMethodNotAllowed, model.NewMethodNotAllowedError())
}

func (h *LinkHandler) redirectSuccess(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.config.BaseURL+"/dashboard?linkedin=connected", http.StatusFound)
}

func (h *LinkHandler) redirectError(w http.ResponseWriter, r *http.Request, message string) {
	http.Redirect(w, r, h.config.BaseURL+"/auth/error?message="+url.QueryEscape(message), http.StatusFound)
}
