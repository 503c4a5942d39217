package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/modman/internal/metrics"
	"github.com/hitoshi/modman/internal/middleware"
	"github.com/hitoshi/modman/internal/model"
)

// mockHealthChecker はHealthCheckerのテスト用モック。
type mockHealthChecker struct {
	pingErr error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.pingErr
}

func newTestRouter(t *testing.T, checker HealthChecker, svc DecisionServiceInterface) http.Handler {
	t.Helper()
	registry := prometheus.NewRegistry()
	metrics.NewCollector(registry)

	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)

	return NewRouter(&RouterDeps{
		HealthChecker:   checker,
		RateLimiter:     rl,
		Gatherer:        registry,
		DecisionService: svc,
		PostFinder: &mockPostFinder{
			findByIDFunc: func(ctx context.Context, id string) (*model.Post, error) {
				if id == "known-post" {
					return &model.Post{ID: id, ModerationState: model.ModerationPending}, nil
				}
				return nil, nil
			},
		},
	})
}

func TestRouter_Health_OK(t *testing.T) {
	router := newTestRouter(t, &mockHealthChecker{}, &mockDecisionService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("ステータスコード = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("レスポンスボディ = %q, want containing %q", rec.Body.String(), "ok")
	}
}

func TestRouter_Health_DBDown_ReturnsServiceUnavailable(t *testing.T) {
	router := newTestRouter(t, &mockHealthChecker{pingErr: errors.New("connection refused")}, &mockDecisionService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ステータスコード = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestRouter_Metrics_Exposed(t *testing.T) {
	router := newTestRouter(t, &mockHealthChecker{}, &mockDecisionService{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("ステータスコード = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRouter_ModerationCheck_Routed(t *testing.T) {
	router := newTestRouter(t, &mockHealthChecker{}, &mockDecisionService{})

	body := `{"title": "t", "content": "c"}`
	req := httptest.NewRequest(http.MethodPost, "/api/moderation/check", strings.NewReader(body))
	req.RemoteAddr = "192.0.2.1:12345"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("ステータスコード = %d, want %d", rec.Code, http.StatusOK)
	}
}

// TestRouter_ModerationStatus_Routed は状態照会エンドポイントが
// URLパラメータ付きで正しくルーティングされることを検証する。
func TestRouter_ModerationStatus_Routed(t *testing.T) {
	router := newTestRouter(t, &mockHealthChecker{}, &mockDecisionService{})

	req := httptest.NewRequest(http.MethodGet, "/api/moderation/posts/known-post", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ステータスコード = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "pending") {
		t.Errorf("レスポンスボディ = %q, want containing %q", rec.Body.String(), "pending")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/moderation/posts/unknown-post", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("未知の投稿IDのステータスコード = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

// TestRouter_PanicInHandler_Returns500 はハンドラー内のpanicが
// リカバリされ500に変換されることを検証する。
func TestRouter_PanicInHandler_Returns500(t *testing.T) {
	router := newTestRouter(t, &mockHealthChecker{}, &mockDecisionService{
		decideFunc: func(ctx context.Context, title, body string) bool {
			panic("unexpected")
		},
	})

	body := `{"title": "t", "content": "c"}`
	req := httptest.NewRequest(http.MethodPost, "/api/moderation/check", strings.NewReader(body))
	req.RemoteAddr = "192.0.2.2:12345"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("ステータスコード = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}
