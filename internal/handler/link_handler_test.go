package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hitoshi/sociallink/internal/link"
	"github.com/hitoshi/sociallink/internal/middleware"
	"github.com/hitoshi/sociallink/internal/model"
)

// --- モック定義 ---

type mockLinkService struct {
	authorizationURLFn func(userID string) string
	completeLinkFn     func(ctx context.Context, code, userID string, source link.ProfileSource) link.LinkResult
}

func (m *mockLinkService) AuthorizationURL(userID string) string {
	if m.authorizationURLFn != nil {
		return m.authorizationURLFn(userID)
	}
	return ""
}

func (m *mockLinkService) CompleteLink(ctx context.Context, code, userID string, source link.ProfileSource) link.LinkResult {
	if m.completeLinkFn != nil {
		return m.completeLinkFn(ctx, code, userID, source)
	}
	return link.LinkResult{Status: link.StatusLinked}
}

func testLinkHandlerConfig() LinkHandlerConfig {
	return LinkHandlerConfig{BaseURL: "http://localhost:3000"}
}

// --- InitiateLink ---

func TestLinkHandler_InitiateLink_RedirectsToAuthorizationURL(t *testing.T) {
	svc := &mockLinkService{
		authorizationURLFn: func(userID string) string {
			return "https://www.linkedin.com/oauth/v2/authorization?state=" + userID
		},
	}
	h := NewLinkHandler(svc, testLinkHandlerConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/linkedin/connect?userId=user-1", nil)
	w := httptest.NewRecorder()

	h.InitiateLink(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusFound)
	}

	location := resp.Header.Get("Location")
	if !strings.Contains(location, "linkedin.com/oauth/v2/authorization") {
		t.Errorf("Location = %q, want LinkedIn authorization URL", location)
	}
	if !strings.Contains(location, "state=user-1") {
		t.Errorf("Location = %q, want state=user-1", location)
	}
}

func TestLinkHandler_InitiateLink_MissingUserID(t *testing.T) {
	called := false
	svc := &mockLinkService{
		authorizationURLFn: func(userID string) string {
			called = true
			return ""
		},
	}
	h := NewLinkHandler(svc, testLinkHandlerConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/linkedin/connect", nil)
	w := httptest.NewRecorder()

	h.InitiateLink(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if resp.Header.Get("Location") != "" {
		t.Error("expected no redirect for missing userId")
	}
	if called {
		t.Error("authorization URL must not be built when userId is missing")
	}

	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if body.Error != "User ID is required" {
		t.Errorf("error = %q, want %q", body.Error, "User ID is required")
	}
}

// --- Callback ---

func TestLinkHandler_Callback_SuccessRedirectsToDashboard(t *testing.T) {
	var gotCode, gotUserID string
	var gotSource link.ProfileSource
	svc := &mockLinkService{
		completeLinkFn: func(ctx context.Context, code, userID string, source link.ProfileSource) link.LinkResult {
			gotCode, gotUserID, gotSource = code, userID, source
			return link.LinkResult{Status: link.StatusLinked}
		},
	}
	h := NewLinkHandler(svc, testLinkHandlerConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/linkedin/callback?code=auth-code&state=user-1", nil)
	w := httptest.NewRecorder()

	h.Callback(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusFound)
	}
	if got := resp.Header.Get("Location"); got != "http://localhost:3000/dashboard?linkedin=connected" {
		t.Errorf("Location = %q, want dashboard redirect", got)
	}

	if gotCode != "auth-code" {
		t.Errorf("code = %q, want auth-code", gotCode)
	}
	if gotUserID != "user-1" {
		t.Errorf("userID = %q, want user-1", gotUserID)
	}
	if gotSource != link.ProfileSourceUserInfo {
		t.Errorf("source = %q, want %q", gotSource, link.ProfileSourceUserInfo)
	}
}

func TestLinkHandler_Callback_PersistenceWarningStillRedirectsToDashboard(t *testing.T) {
	svc := &mockLinkService{
		completeLinkFn: func(ctx context.Context, code, userID string, source link.ProfileSource) link.LinkResult {
			return link.LinkResult{Status: link.StatusLinkedWithPersistenceWarning}
		},
	}
	h := NewLinkHandler(svc, testLinkHandlerConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/linkedin/callback?code=auth-code&state=user-1", nil)
	w := httptest.NewRecorder()

	h.Callback(w, req)

	if got := w.Result().Header.Get("Location"); got != "http://localhost:3000/dashboard?linkedin=connected" {
		t.Errorf("Location = %q, want dashboard redirect despite persistence warning", got)
	}
}

func TestLinkHandler_Callback_MissingCode(t *testing.T) {
	called := false
	svc := &mockLinkService{
		completeLinkFn: func(ctx context.Context, code, userID string, source link.ProfileSource) link.LinkResult {
			called = true
			return link.LinkResult{Status: link.StatusLinked}
		},
	}
	h := NewLinkHandler(svc, testLinkHandlerConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/linkedin/callback?state=user-1", nil)
	w := httptest.NewRecorder()

	h.Callback(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusFound)
	}
	if got := resp.Header.Get("Location"); got != "http://localhost:3000/auth/error?message=missing_code" {
		t.Errorf("Location = %q, want missing_code error redirect", got)
	}
	if called {
		t.Error("service must not be called when code is missing")
	}
}

func TestLinkHandler_Callback_FailureRedirectsWithMessage(t *testing.T) {
	svc := &mockLinkService{
		completeLinkFn: func(ctx context.Context, code, userID string, source link.ProfileSource) link.LinkResult {
			return link.LinkResult{
				Status:      link.StatusFailed,
				FailureCode: model.ErrCodeUpstreamAuthError,
				Message:     "invalid authorization code",
			}
		},
	}
	h := NewLinkHandler(svc, testLinkHandlerConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/linkedin/callback?code=bad-code&state=user-1", nil)
	w := httptest.NewRecorder()

	h.Callback(w, req)

	location := w.Result().Header.Get("Location")
	parsed, err := url.Parse(location)
	if err != nil {
		t.Fatalf("failed to parse Location %q: %v", location, err)
	}
	if parsed.Path != "/auth/error" {
		t.Errorf("path = %q, want /auth/error", parsed.Path)
	}
	if got := parsed.Query().Get("message"); got != "invalid authorization code" {
		t.Errorf("message = %q, want %q", got, "invalid authorization code")
	}
}

func TestLinkHandler_Callback_MissingStateStillCompletes(t *testing.T) {
	var gotUserID string
	svc := &mockLinkService{
		completeLinkFn: func(ctx context.Context, code, userID string, source link.ProfileSource) link.LinkResult {
			gotUserID = userID
			return link.LinkResult{Status: link.StatusLinked}
		},
	}
	h := NewLinkHandler(svc, testLinkHandlerConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/linkedin/callback?code=auth-code", nil)
	w := httptest.NewRecorder()

	h.Callback(w, req)

	// stateが無くてもパイプラインは走り、成功リダイレクトする
	if gotUserID != "" {
		t.Errorf("userID = %q, want empty", gotUserID)
	}
	if got := w.Result().Header.Get("Location"); got != "http://localhost:3000/dashboard?linkedin=connected" {
		t.Errorf("Location = %q, want dashboard redirect", got)
	}
}

// --- CompleteLinkPost ---

func TestLinkHandler_CompleteLinkPost_UsesLegacyProfileSource(t *testing.T) {
	var gotCode, gotUserID string
	var gotSource link.ProfileSource
	svc := &mockLinkService{
		completeLinkFn: func(ctx context.Context, code, userID string, source link.ProfileSource) link.LinkResult {
			gotCode, gotUserID, gotSource = code, userID, source
			return link.LinkResult{Status: link.StatusLinked}
		},
	}
	h := NewLinkHandler(svc, testLinkHandlerConfig())

	body, _ := json.Marshal(map[string]string{"code": "auth-code", "userId": "user-1"})
	req := httptest.NewRequest(http.MethodPost, "/auth/linkedin/connect", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.CompleteLinkPost(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusFound)
	}
	if got := resp.Header.Get("Location"); got != "http://localhost:3000/dashboard?linkedin=connected" {
		t.Errorf("Location = %q, want dashboard redirect", got)
	}

	if gotCode != "auth-code" || gotUserID != "user-1" {
		t.Errorf("code, userID = %q, %q, want auth-code, user-1", gotCode, gotUserID)
	}
	if gotSource != link.ProfileSourceMe {
		t.Errorf("source = %q, want %q", gotSource, link.ProfileSourceMe)
	}
}

func TestLinkHandler_CompleteLinkPost_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"codeなし", `{"userId": "user-1"}`},
		{"userIdなし", `{"code": "auth-code"}`},
		{"両方なし", `{}`},
		{"不正なJSON", `not-json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &mockLinkService{
				completeLinkFn: func(ctx context.Context, code, userID string, source link.ProfileSource) link.LinkResult {
					called = true
					return link.LinkResult{Status: link.StatusLinked}
				},
			}
			h := NewLinkHandler(svc, testLinkHandlerConfig())

			req := httptest.NewRequest(http.MethodPost, "/auth/linkedin/connect", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			h.CompleteLinkPost(w, req)

			resp := w.Result()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
			}
			if called {
				t.Error("service must not be called")
			}

			var errBody middleware.ErrorResponseBody
			if err := json.NewDecoder(resp.Body).Decode(&errBody); err != nil {
				t.Fatalf("failed to decode error body: %v", err)
			}
			if errBody.Error != "Code and User ID are required" {
				t.Errorf("error = %q, want %q", errBody.Error, "Code and User ID are required")
			}
		})
	}
}

func TestLinkHandler_CompleteLinkPost_FailureRedirectsWithMessage(t *testing.T) {
	svc := &mockLinkService{
		completeLinkFn: func(ctx context.Context, code, userID string, source link.ProfileSource) link.LinkResult {
			return link.LinkResult{
				Status:      link.StatusFailed,
				FailureCode: model.ErrCodeUpstreamProfileError,
				Message:     "failed to get LinkedIn profile",
			}
		},
	}
	h := NewLinkHandler(svc, testLinkHandlerConfig())

	body, _ := json.Marshal(map[string]string{"code": "auth-code", "userId": "user-1"})
	req := httptest.NewRequest(http.MethodPost, "/auth/linkedin/connect", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.CompleteLinkPost(w, req)

	location := w.Result().Header.Get("Location")
	parsed, err := url.Parse(location)
	if err != nil {
		t.Fatalf("failed to parse Location %q: %v", location, err)
	}
	if parsed.Path != "/auth/error" {
		t.Errorf("path = %q, want /auth/error", parsed.Path)
	}
	if got := parsed.Query().Get("message"); got != "failed to get LinkedIn profile" {
		t.Errorf("message = %q, want profile error message", got)
	}
}

// --- MethodNotAllowed ---

func TestLinkHandler_MethodNotAllowed(t *testing.T) {
	h := NewLinkHandler(&mockLinkService{}, testLinkHandlerConfig())

	req := httptest.NewRequest(http.MethodPut, "/auth/linkedin/connect", nil)
	w := httptest.NewRecorder()

	h.MethodNotAllowed(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusMethodNotAllowed)
	}

	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if body.Error != "Method not allowed" {
		t.Errorf("error = %q, want %q", body.Error, "Method not allowed")
	}
}
