package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestCollector_ImplementsInterface はCollectorがMetricsCollectorを実装することを検証する。
func TestCollector_ImplementsInterface(t *testing.T) {
	var _ MetricsCollector = (*Collector)(nil)
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() == name {
			if len(mf.GetMetric()) != 1 {
				t.Fatalf("expected 1 metric for %s, got %d", name, len(mf.GetMetric()))
			}
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestRecordApproved_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordApproved()
	c.RecordApproved()

	if val := counterValue(t, reg, "modman_moderation_approved_total"); val != 2 {
		t.Errorf("moderation_approved_total = %v, want 2", val)
	}
}

// TestAmbiguousAndFailureCountedSeparately は曖昧応答と分類器障害が
// 明示的な却下とは別のカウンタに記録されることを検証する。
func TestAmbiguousAndFailureCountedSeparately(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRejected()
	c.RecordAmbiguousVerdict()
	c.RecordClassifierFailure()

	if val := counterValue(t, reg, "modman_moderation_rejected_total"); val != 1 {
		t.Errorf("moderation_rejected_total = %v, want 1", val)
	}
	if val := counterValue(t, reg, "modman_ambiguous_verdict_total"); val != 1 {
		t.Errorf("ambiguous_verdict_total = %v, want 1", val)
	}
	if val := counterValue(t, reg, "modman_classifier_failure_total"); val != 1 {
		t.Errorf("classifier_failure_total = %v, want 1", val)
	}
}

func TestRecordStoreFailure_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordStoreFailure()

	if val := counterValue(t, reg, "modman_store_failure_total"); val != 1 {
		t.Errorf("store_failure_total = %v, want 1", val)
	}
}

func TestSetPendingPosts_SetsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.SetPendingPosts(7)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() == "modman_pending_posts" {
			if val := mf.GetMetric()[0].GetGauge().GetValue(); val != 7 {
				t.Errorf("pending_posts = %v, want 7", val)
			}
			return
		}
	}
	t.Fatal("metric modman_pending_posts not found")
}

func TestRecordClassifyLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordClassifyLatency(250 * time.Millisecond)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() == "modman_classify_latency_seconds" {
			if count := mf.GetMetric()[0].GetHistogram().GetSampleCount(); count != 1 {
				t.Errorf("histogram sample count = %d, want 1", count)
			}
			return
		}
	}
	t.Fatal("metric modman_classify_latency_seconds not found")
}

func TestSetupMetricsRoute_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordApproved()

	server := httptest.NewServer(SetupMetricsRoute(reg))
	defer server.Close()

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("metricsエンドポイントへのリクエストに失敗: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ステータスコード = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("レスポンスボディの読み取りに失敗: %v", err)
	}
	if !strings.Contains(string(body), "modman_moderation_approved_total") {
		t.Error("メトリクス出力にmodman_moderation_approved_totalが含まれていない")
	}
}
