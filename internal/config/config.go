package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Classifier (Gemini)
	GeminiAPIKey    string
	GeminiModel     string
	GeminiAPIBase   string
	ClassifyTimeout time.Duration

	// Moderation worker
	ModerationInterval time.Duration

	// Rate Limit
	RateLimitCheck int

	// Server
	ServerPort string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
// GEMINI_API_KEYの欠落は起動時の致命的エラーであり、
// 分類器なしでモデレーションを動かすことは許可しない。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	if cfg.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.GeminiModel = getEnvString("GEMINI_MODEL", "gemini-2.5-flash")
	cfg.GeminiAPIBase = getEnvString("GEMINI_API_BASE", "https://generativelanguage.googleapis.com")
	cfg.ClassifyTimeout = getEnvDuration("CLASSIFY_TIMEOUT", 30*time.Second)
	cfg.ModerationInterval = getEnvDuration("MODERATION_INTERVAL", 30*time.Second)
	cfg.RateLimitCheck = getEnvInt("RATE_LIMIT_CHECK", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// getEnvDuration は環境変数からtime.Durationを読み込む。
// 解析できない値や0以下の値はデフォルト値にフォールバックする。
// 0以下の間隔はtime.NewTickerをパニックさせるため、ここで弾く。
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("環境変数の値が不正なためデフォルト値を使用します",
			slog.String("key", key),
			slog.String("value", v),
			slog.Duration("default", defaultVal),
		)
		return defaultVal
	}
	return d
}
