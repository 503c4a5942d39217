// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ワーカーや判定エンジンから利用する。
type MetricsCollector interface {
	RecordApproved()
	RecordRejected()
	RecordAmbiguousVerdict()
	RecordClassifierFailure()
	RecordStoreFailure()
	RecordClassifyLatency(duration time.Duration)
	SetPendingPosts(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	approved          prometheus.Counter
	rejected          prometheus.Counter
	ambiguousVerdict  prometheus.Counter
	classifierFailure prometheus.Counter
	storeFailure      prometheus.Counter
	classifyLatency   prometheus.Histogram
	pendingPosts      prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		approved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "modman_moderation_approved_total",
			Help: "承認判定の合計数",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "modman_moderation_rejected_total",
			Help: "却下判定の合計数（明示的なfalse応答のみ）",
		}),
		ambiguousVerdict: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "modman_ambiguous_verdict_total",
			Help: "解釈不能な応答により安全側で却下した合計数",
		}),
		classifierFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "modman_classifier_failure_total",
			Help: "分類器呼び出し失敗により安全側で却下した合計数",
		}),
		storeFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "modman_store_failure_total",
			Help: "判定結果の書き込み失敗の合計数（投稿はpendingのまま再試行される）",
		}),
		classifyLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "modman_classify_latency_seconds",
			Help:    "分類器呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		pendingPosts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "modman_pending_posts",
			Help: "モデレーション待ちの投稿数",
		}),
	}

	reg.MustRegister(
		c.approved,
		c.rejected,
		c.ambiguousVerdict,
		c.classifierFailure,
		c.storeFailure,
		c.classifyLatency,
		c.pendingPosts,
	)

	return c
}

// RecordApproved は承認判定を記録する。
func (c *Collector) RecordApproved() {
	c.approved.Inc()
}

// RecordRejected は明示的な却下判定を記録する。
func (c *Collector) RecordRejected() {
	c.rejected.Inc()
}

// RecordAmbiguousVerdict は解釈不能応答による却下を記録する。
func (c *Collector) RecordAmbiguousVerdict() {
	c.ambiguousVerdict.Inc()
}

// RecordClassifierFailure は分類器呼び出し失敗による却下を記録する。
func (c *Collector) RecordClassifierFailure() {
	c.classifierFailure.Inc()
}

// RecordStoreFailure は判定結果の書き込み失敗を記録する。
func (c *Collector) RecordStoreFailure() {
	c.storeFailure.Inc()
}

// RecordClassifyLatency は分類器呼び出しのレイテンシを記録する。
func (c *Collector) RecordClassifyLatency(duration time.Duration) {
	c.classifyLatency.Observe(duration.Seconds())
}

// SetPendingPosts はモデレーション待ち投稿数を記録する。
func (c *Collector) SetPendingPosts(count int) {
	c.pendingPosts.Set(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントのみを提供するHTTPハンドラーを返す。
// APIサーバーを持たないワーカーモードでのスクレイプ用。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
