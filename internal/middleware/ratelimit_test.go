package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func newTestConfig() RateLimiterConfig {
	return RateLimiterConfig{
		CheckRate:       rate.Limit(1), // 1 req/sec
		CheckBurst:      2,
		CleanupInterval: time.Hour,
		EntryTTL:        time.Hour,
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCheckMiddleware_AllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(newTestConfig())
	defer rl.Stop()

	h := rl.CheckMiddleware()(okHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/moderation/check", nil)
		req.RemoteAddr = "192.0.2.1:1000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("%d回目のステータスコード = %d, want %d", i+1, rec.Code, http.StatusOK)
		}
	}
}

func TestCheckMiddleware_RejectsOverBurst(t *testing.T) {
	rl := NewRateLimiter(newTestConfig())
	defer rl.Stop()

	h := rl.CheckMiddleware()(okHandler())

	var lastCode int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/moderation/check", nil)
		req.RemoteAddr = "192.0.2.1:1000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		lastCode = rec.Code
	}

	if lastCode != http.StatusTooManyRequests {
		t.Errorf("バースト超過後のステータスコード = %d, want %d", lastCode, http.StatusTooManyRequests)
	}
}

// TestCheckMiddleware_LimitsPerClientIP はレート制限がクライアントIPごとに
// 独立して適用されることを検証する。
func TestCheckMiddleware_LimitsPerClientIP(t *testing.T) {
	rl := NewRateLimiter(newTestConfig())
	defer rl.Stop()

	h := rl.CheckMiddleware()(okHandler())

	// クライアントAがバーストを使い切る
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "192.0.2.1:1000"
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	// クライアントBは影響を受けない
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "192.0.2.2:2000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("別クライアントのステータスコード = %d, want %d", rec.Code, http.StatusOK)
	}

	if rl.LimiterCount() != 2 {
		t.Errorf("リミッターエントリ数 = %d, want 2", rl.LimiterCount())
	}
}

func TestCheckMiddleware_SetsRetryAfterHeader(t *testing.T) {
	rl := NewRateLimiter(newTestConfig())
	defer rl.Stop()

	h := rl.CheckMiddleware()(okHandler())

	var rec *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "192.0.2.1:1000"
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)
	}

	if rec.Header().Get("Retry-After") == "" {
		t.Error("429レスポンスにRetry-Afterヘッダーが設定されていない")
	}
}

func TestCleanup_RemovesExpiredEntries(t *testing.T) {
	cfg := newTestConfig()
	cfg.EntryTTL = time.Millisecond
	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	rl.getOrCreateLimiter("192.0.2.1")
	if rl.LimiterCount() != 1 {
		t.Fatalf("リミッターエントリ数 = %d, want 1", rl.LimiterCount())
	}

	time.Sleep(5 * time.Millisecond)
	rl.cleanup()

	if rl.LimiterCount() != 0 {
		t.Errorf("クリーンアップ後のエントリ数 = %d, want 0", rl.LimiterCount())
	}
}

func TestRateLimitPerMinute(t *testing.T) {
	got := RateLimitPerMinute(120)
	if got != rate.Limit(2) {
		t.Errorf("RateLimitPerMinute(120) = %v, want %v", got, rate.Limit(2))
	}
}

func TestExtractClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:54321"

	if got := extractClientIP(req); got != "203.0.113.7" {
		t.Errorf("extractClientIP = %q, want %q", got, "203.0.113.7")
	}
}
