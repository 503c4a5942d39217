// Package moderation は投稿のモデレーション判定を提供する。
// 分類器の生応答の解釈と、失敗を封じ込める判定エンジンを含む。
package moderation

import "strings"

// Verdict は分類器の応答を解釈した結果を表す。
type Verdict int

const (
	// VerdictApprove は明示的な承認（応答が "true"）。
	VerdictApprove Verdict = iota
	// VerdictReject は明示的な却下（応答が "false"）。
	VerdictReject
	// VerdictAmbiguous は解釈不能な応答。
	// 安全側に倒して却下と同じ扱いにするが、可観測性のため区別する。
	VerdictAmbiguous
)

// String はVerdictのログ出力用表現を返す。
func (v Verdict) String() string {
	switch v {
	case VerdictApprove:
		return "approve"
	case VerdictReject:
		return "reject"
	case VerdictAmbiguous:
		return "ambiguous"
	default:
		return "unknown"
	}
}

// Approved は判定が承認かどうかを返す。
// VerdictAmbiguousは却下として扱われる。
func (v Verdict) Approved() bool {
	return v == VerdictApprove
}

// ParseVerdict は分類器の生応答をVerdictに解釈する。
// 前後の空白をトリムした上で、リテラル "true" / "false" との
// 完全一致のみを機械可読な応答として認める。大文字小文字の正規化は行わない。
// それ以外の応答（空文字列、説明文、別言語など）はすべてVerdictAmbiguousになる。
func ParseVerdict(raw string) Verdict {
	switch strings.TrimSpace(raw) {
	case "true":
		return VerdictApprove
	case "false":
		return VerdictReject
	default:
		return VerdictAmbiguous
	}
}
