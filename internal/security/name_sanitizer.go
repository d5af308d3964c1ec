// Package security はアプリケーションのセキュリティ機能を提供する。
//
// NameSanitizerService はプロバイダーから取得した表示名をサニタイズし、
// ダッシュボード表示時のXSSリスクからユーザーを保護する。
// プロフィールAPIのレスポンスは外部入力として扱い、保存前に必ず通す。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// NameSanitizerService は表示名サニタイズ機能のインターフェースを定義する。
type NameSanitizerService interface {
	// SanitizeName は表示名からすべてのHTMLタグを除去し、
	// 前後の空白を取り除いたプレーンテキストを返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeName(raw string) string
}

// nameSanitizer はNameSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type nameSanitizer struct {
	policy *bluemonday.Policy
}

// NewNameSanitizer はNameSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicy（全タグ除去）を使用する。表示名にマークアップは不要のため、
// 許可リストは空で運用する。
func NewNameSanitizer() *nameSanitizer {
	return &nameSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeName は表示名からすべてのHTMLタグを除去する。
// bluemondayはタグ除去後にエンティティをエスケープするため、
// 表示名としてそのまま保存できるようアンエスケープして返す。
func (s *nameSanitizer) SanitizeName(raw string) string {
	if raw == "" {
		return ""
	}
	cleaned := s.policy.Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}

// compile-time interface check
var _ NameSanitizerService = (*nameSanitizer)(nil)
