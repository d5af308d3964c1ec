package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeBadRequest           = "BAD_REQUEST"
	ErrCodeMethodNotAllowed     = "METHOD_NOT_ALLOWED"
	ErrCodeUpstreamAuthError    = "UPSTREAM_AUTH_ERROR"
	ErrCodeUpstreamProfileError = "UPSTREAM_PROFILE_ERROR"
	ErrCodePersistenceError     = "PERSISTENCE_ERROR"
	ErrCodeAccountNotFound      = "ACCOUNT_NOT_FOUND"
)

// NewMissingUserIDError はuserId未指定エラーを生成する。
func NewMissingUserIDError() *APIError {
	return &APIError{
		Code:     ErrCodeBadRequest,
		Message:  "User ID is required",
		Category: "validation",
		Action:   "ログイン状態を確認し、userIdパラメータを付与して再度お試しください。",
	}
}

// NewMissingCodeAndUserIDError はcodeまたはuserId未指定エラーを生成する。
func NewMissingCodeAndUserIDError() *APIError {
	return &APIError{
		Code:     ErrCodeBadRequest,
		Message:  "Code and User ID are required",
		Category: "validation",
		Action:   "認可コードとユーザーIDの両方を指定してください。",
	}
}

// NewMethodNotAllowedError は許可されていないHTTPメソッドのエラーを生成する。
func NewMethodNotAllowedError() *APIError {
	return &APIError{
		Code:     ErrCodeMethodNotAllowed,
		Message:  "Method not allowed",
		Category: "validation",
		Action:   "このエンドポイントはGETまたはPOSTのみ対応しています。",
	}
}

// NewAccountNotFoundError は連携アカウントが見つからない場合のエラーを生成する。
func NewAccountNotFoundError(platform string) *APIError {
	return &APIError{
		Code:     ErrCodeAccountNotFound,
		Message:  fmt.Sprintf("指定されたプラットフォームの連携アカウントが見つかりません: %s", platform),
		Category: "auth",
		Action:   "先にアカウント連携を行ってください。",
	}
}
