package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestSetup_WritesJSONToWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(&buf, "")

	logger.Info("test message", slog.String("key", "value"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("ログ出力がJSONとして解析できない: %v", err)
	}

	if entry["msg"] != "test message" {
		t.Errorf("msg = %v, want %q", entry["msg"], "test message")
	}
	if entry["key"] != "value" {
		t.Errorf("key = %v, want %q", entry["key"], "value")
	}
}

func TestSetup_DebugLevelSuppressedByDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(&buf, "")

	logger.Debug("should not appear")

	if buf.Len() != 0 {
		t.Errorf("infoレベルでdebugログが出力された: %s", buf.String())
	}
}

func TestSetup_DebugLevelEnabled(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(&buf, "debug")

	logger.Debug("debug message")

	if buf.Len() == 0 {
		t.Error("debugレベルでdebugログが出力されなかった")
	}
}

func TestParseLevel_UnknownValueFallsBackToInfo(t *testing.T) {
	if got := parseLevel("verbose"); got != slog.LevelInfo {
		t.Errorf("parseLevel(%q) = %v, want %v", "verbose", got, slog.LevelInfo)
	}
}

func TestSetupDefault_SetsGlobalLogger(t *testing.T) {
	var buf bytes.Buffer
	SetupDefault(&buf)

	slog.Info("global logger test")

	if buf.Len() == 0 {
		t.Error("グローバルロガーが設定されていない")
	}
}
