package moderation

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/modman/internal/metrics"
	"github.com/hitoshi/modman/internal/security"
)

// ContentClassifier は外部分類器の呼び出しインターフェース。
// テスト時にモックに差し替え可能。
type ContentClassifier interface {
	// Classify はタイトルと本文を分類器へ送信し、生の応答テキストを返す。
	Classify(ctx context.Context, title, body string) (string, error)
}

// Engine は1件の投稿に対する最終的なモデレーション判定を生成する。
// 分類器の失敗をすべてこの層で封じ込め、呼び出し元には必ずboolを返す。
// インフラ障害と内容違反は外部からは区別できない（どちらも却下）。
// 両者の区別はログとメトリクスでのみ行う。
type Engine struct {
	classifier ContentClassifier
	sanitizer  security.ContentSanitizerService
	logger     *slog.Logger
	collector  metrics.MetricsCollector
	timeout    time.Duration
}

// defaultClassifyTimeout は分類器呼び出しのデフォルトタイムアウト。
const defaultClassifyTimeout = 30 * time.Second

// NewEngine はEngineの新しいインスタンスを生成する。
// timeoutが0以下の場合はデフォルト値30秒を使用する。
func NewEngine(
	classifier ContentClassifier,
	sanitizer security.ContentSanitizerService,
	logger *slog.Logger,
	collector metrics.MetricsCollector,
	timeout time.Duration,
) *Engine {
	if timeout <= 0 {
		timeout = defaultClassifyTimeout
	}
	return &Engine{
		classifier: classifier,
		sanitizer:  sanitizer,
		logger:     logger,
		collector:  collector,
		timeout:    timeout,
	}
}

// Decide はタイトルと本文に対する最終判定を返す（true=承認、false=却下）。
// このメソッドはエラーを返さない。以下のすべてのケースで却下に解決する:
//   - 分類器の呼び出し失敗（ネットワーク、タイムアウト、非2xx）
//   - 解釈不能な応答（"true"/"false" 以外）
//
// タイトルが空の投稿も有効な入力として扱う。
func (e *Engine) Decide(ctx context.Context, title, body string) bool {
	// 分類器にはHTMLタグを除去したプレーンテキストを渡す
	title = e.sanitizer.Sanitize(title)
	body = e.sanitizer.Sanitize(body)

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	raw, err := e.classifier.Classify(ctx, title, body)
	e.collector.RecordClassifyLatency(time.Since(start))

	if err != nil {
		// 安全側デフォルト: インフラ障害は却下として解決する
		e.logger.Error("分類器の呼び出しに失敗したため安全側で却下します",
			slog.String("error", err.Error()),
		)
		e.collector.RecordClassifierFailure()
		return false
	}

	verdict := ParseVerdict(raw)
	switch verdict {
	case VerdictApprove:
		e.collector.RecordApproved()
	case VerdictReject:
		e.collector.RecordRejected()
	case VerdictAmbiguous:
		// 明示的なfalseとは区別してログに残す（外部から見える結果は同じ却下）
		e.logger.Warn("分類器の応答を解釈できないため安全側で却下します",
			slog.String("raw_verdict", truncate(raw, 100)),
		)
		e.collector.RecordAmbiguousVerdict()
	}

	return verdict.Approved()
}

// truncate はログ出力用に文字列をmax文字（rune数）で切り詰める。
// バイト位置ではなくrune境界で切るため、マルチバイト文字が途中で分断されることはない。
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}
