// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は利用者が入力する自由記述テキスト（氏名、住所、商品名など）から
// HTMLマークアップを除去する。保存された値はダッシュボードにそのまま表示されるため、
// 保存前にタグを取り除いておく。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はプレーンテキスト化のインターフェースを定義する。
type TextSanitizerService interface {
	// Clean は入力からすべてのHTMLタグを除去したプレーンテキストを返す。
	// script, styleの中身も除去される。
	// タグを含まない入力はそのまま返す（&や'はエスケープしない）。
	Clean(s string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーはスレッドセーフに利用できる。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// 許可タグなしのStrictPolicyを使用する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Clean は入力からHTMLタグを除去する。
func (s *textSanitizer) Clean(in string) string {
	if !strings.ContainsRune(in, '<') {
		return in
	}
	// StrictPolicyはテキストをエスケープして返すため、保存用に元へ戻す
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(in)))
}
