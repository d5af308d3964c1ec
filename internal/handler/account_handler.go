package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/sociallink/internal/middleware"
	"github.com/hitoshi/sociallink/internal/model"
)

// AccountServiceInterface はアカウントハンドラーが必要とするサービスインターフェース。
type AccountServiceInterface interface {
	ListAccounts(ctx context.Context, userID string) ([]*model.SocialAccountCredential, error)
	Disconnect(ctx context.Context, userID string, platform model.Platform) error
}

// AccountHandler は連携アカウント管理のHTTPハンドラー。
type AccountHandler struct {
	service AccountServiceInterface
}

// NewAccountHandler はAccountHandlerを生成する。
func NewAccountHandler(service AccountServiceInterface) *AccountHandler {
	return &AccountHandler{service: service}
}

// accountResponse は連携アカウント一覧のレスポンス項目。
// トークンそのものはレスポンスに含めない。
type accountResponse struct {
	Platform         string    `json:"platform"`
	PlatformUsername string    `json:"platformUsername"`
	IsConnected      bool      `json:"isConnected"`
	TokenExpiresAt   time.Time `json:"tokenExpiresAt"`
}

// ListAccounts はユーザーの連携アカウント一覧を返す。
// GET /api/accounts?userId=xxx
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingUserIDError())
		return
	}

	creds, err := h.service.ListAccounts(r.Context(), userID)
	if err != nil {
		slog.Error("failed to list social accounts",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	accounts := make([]accountResponse, 0, len(creds))
	for _, cred := range creds {
		accounts = append(accounts, accountResponse{
			Platform:         string(cred.Platform),
			PlatformUsername: cred.PlatformUsername,
			IsConnected:      cred.IsConnected,
			TokenExpiresAt:   cred.TokenExpiresAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(accounts)
}

// Disconnect は指定プラットフォームの連携を切断する。
// POST /api/accounts/{platform}/disconnect?userId=xxx
//
// レコードは削除せず切断状態に更新する。連携が存在しない場合は404を返す。
func (h *AccountHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingUserIDError())
		return
	}

	platform := model.Platform(strings.ToUpper(chi.URLParam(r, "platform")))

	if err := h.service.Disconnect(r.Context(), userID, platform); err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeAccountNotFound {
			middleware.WriteErrorResponse(w, http.StatusNotFound, apiErr)
			return
		}

		slog.Error("failed to disconnect social account",
			slog.String("user_id", userID),
			slog.String("platform", string(platform)),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":   "disconnected",
		"platform": string(platform),
	})
}
