package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/modman/internal/classifier"
	"github.com/hitoshi/modman/internal/config"
	"github.com/hitoshi/modman/internal/database"
	"github.com/hitoshi/modman/internal/handler"
	"github.com/hitoshi/modman/internal/logger"
	"github.com/hitoshi/modman/internal/metrics"
	"github.com/hitoshi/modman/internal/middleware"
	"github.com/hitoshi/modman/internal/moderation"
	"github.com/hitoshi/modman/internal/repository"
	"github.com/hitoshi/modman/internal/security"
	moderatepkg "github.com/hitoshi/modman/internal/worker/moderate"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("model", cfg.GeminiModel),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// buildEngine は判定エンジンとその依存関係を構築する。
// serveモードとworkerモードで共有するワイヤリング。
// APIキー未設定の場合はエラーを返し、プロセスの起動を中止させる。
func buildEngine(cfg *config.Config, collector metrics.MetricsCollector) (*moderation.Engine, error) {
	classifierClient, err := classifier.NewClient(
		&http.Client{Timeout: cfg.ClassifyTimeout},
		slog.Default(),
		cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiAPIBase,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create classifier client: %w", err)
	}

	sanitizer := security.NewContentSanitizer()

	return moderation.NewEngine(
		classifierClient, sanitizer, slog.Default(), collector, cfg.ClassifyTimeout,
	), nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化（状態照会エンドポイントが使用する）
	postRepo := repository.NewPostgresPostRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. 判定エンジンの構築（APIキー未設定ならここで起動失敗）
	engine, err := buildEngine(cfg, collector)
	if err != nil {
		return err
	}

	// 5. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitCheck > 0 {
		// configのRateLimitCheckはreq/min単位なのでreq/secに変換する
		rateLimiterCfg.CheckRate = middleware.RateLimitPerMinute(cfg.RateLimitCheck)
		rateLimiterCfg.CheckBurst = cfg.RateLimitCheck
	}
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		HealthChecker:   db,
		RateLimiter:     rateLimiter,
		Gatherer:        registry,
		DecisionService: engine,
		PostFinder:      postRepo,
	}

	router := handler.NewRouter(deps)

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // 事前チェックは分類器呼び出しを含むため長め
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はモデレーションワーカーモードで起動する。
// DB接続を開き、モデレーションスケジューラを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
// シャットダウン時は実行中のティックの完了を待ってから停止するため、
// 判定や書き込みが中途半端な状態で残ることはない。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリの初期化
	postRepo := repository.NewPostgresPostRepo(db)
	auditRepo := repository.NewPostgresDecisionAuditRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. 判定エンジンの構築（APIキー未設定ならここで起動失敗）
	engine, err := buildEngine(cfg, collector)
	if err != nil {
		return err
	}

	// 5. スケジューラの初期化
	scheduler := moderatepkg.NewScheduler(postRepo, auditRepo, engine, slog.Default(), collector)

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	// メトリクスエンドポイントをバックグラウンドで提供
	metricsServer := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: metrics.SetupMetricsRoute(registry),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()
	defer metricsServer.Close()

	slog.Info("worker starting",
		slog.Duration("moderation_interval", cfg.ModerationInterval),
	)

	// モデレーションスケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx, cfg.ModerationInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
