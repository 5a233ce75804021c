// Package security はアプリケーションのセキュリティ機能を提供する。
//
// CaptionSanitizer は写真キャプションからHTMLを取り除き、プレーンテキストとして保存できる形にする。
// bluemondayのStrictPolicyを使用し、タグはすべて除去する。
package security

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// MaxCaptionLength はキャプションの最大文字数（rune数）。
const MaxCaptionLength = 500

// CaptionSanitizerService はキャプションのサニタイズ機能のインターフェースを定義する。
type CaptionSanitizerService interface {
	// Sanitize はキャプションからタグを除去し前後の空白を取り除く。
	// nil、または結果が空文字列になる場合はnilを返す。
	Sanitize(raw *string) *string
}

// captionSanitizer はCaptionSanitizerServiceの実装。
// bluemondayのポリシーはスレッドセーフに共有できる。
type captionSanitizer struct {
	policy *bluemonday.Policy
}

// NewCaptionSanitizer はCaptionSanitizerServiceの新しいインスタンスを生成する。
func NewCaptionSanitizer() *captionSanitizer {
	return &captionSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はキャプションからタグを除去し前後の空白を取り除く。
func (s *captionSanitizer) Sanitize(raw *string) *string {
	if raw == nil {
		return nil
	}
	// StrictPolicyはテキスト中の&や"もエスケープするため、プレーンテキストに戻す
	cleaned := strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(*raw)))
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

// CaptionTooLong はキャプションが最大文字数を超えているかを返す。
func CaptionTooLong(raw *string) bool {
	return raw != nil && utf8.RuneCountInString(*raw) > MaxCaptionLength
}
