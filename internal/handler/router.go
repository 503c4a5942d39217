package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/modman/internal/metrics"
	"github.com/hitoshi/modman/internal/middleware"
)

// HealthChecker はデータベース接続の死活確認インターフェース。
// *sql.DB がこれを満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	HealthChecker HealthChecker
	RateLimiter   *middleware.RateLimiter
	Gatherer      prometheus.Gatherer

	DecisionService DecisionServiceInterface
	PostFinder      PostFinder
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// エンドポイント:
//
//	GET  /health                          - 死活確認（DBへのPingを含む）
//	GET  /metrics                         - Prometheusスクレイプ
//	POST /api/moderation/check            - モデレーション事前チェック（レート制限付き）
//	GET  /api/moderation/posts/{postID}   - モデレーション状態照会
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())

	r.Get("/health", newHealthHandler(deps.HealthChecker))
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))

	moderationHandler := NewModerationHandler(deps.DecisionService, deps.PostFinder)

	r.Route("/api/moderation", func(r chi.Router) {
		// 事前チェックは1回ごとにモデル呼び出しが発生するためレート制限する
		r.With(deps.RateLimiter.CheckMiddleware()).Post("/check", moderationHandler.Check)
		r.Get("/posts/{postID}", moderationHandler.Status)
	})

	return r
}

// newHealthHandler はGET /healthのハンドラーを生成する。
// DBへのPingが成功すれば200、失敗すれば503を返す。
func newHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")

		if err := checker.PingContext(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy"})
			return
		}

		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
