// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService は分類器へ送信する前の投稿テキストから
// HTMLタグをすべて除去する。bluemondayのStrictPolicyを使用し、
// タグ・属性・スクリプトを一切通過させないプレーンテキスト化を行う。
// タグ内に不適切な文言を隠して分類器の判定をすり抜ける攻撃と、
// プロンプトへのマークアップ混入の両方を防ぐ。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService は投稿テキストのサニタイズ機能のインターフェースを定義する。
// 分類器への送信前に使用される。
type ContentSanitizerService interface {
	// Sanitize は入力からHTMLタグをすべて除去したプレーンテキストを返す。
	// 前後の空白はトリムされる。空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicy（全タグ除去）を使用する。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力からHTMLタグをすべて除去したプレーンテキストを返す。
func (s *contentSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
