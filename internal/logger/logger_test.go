package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/samvad-hq/naivehttp/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for raw, want := range cases {
		if got := ParseLevel(raw); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestZapLoggerWritesObjectField(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapLogger(zap.New(core))

	log.WarnObj("exchange failed", "exchange", map[string]any{"status": 404})

	entries := logs.FilterMessage("exchange failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("level = %v", entries[0].Level)
	}
	if _, ok := entries[0].ContextMap()["exchange"]; !ok {
		t.Fatalf("missing exchange field: %v", entries[0].ContextMap())
	}
}

func TestInitEmitsJSONWithConfiguredLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := initWithWriter(&config.Config{AppName: "naivehttp", LogLevel: "warn"}, &buf)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	defer func() { S = nil }()

	log.InfoObj("dropped", "k", 1)
	log.WarnObj("kept", "k", 2)
	_ = log.Sync()

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %q", buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal(lines[0], &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry["msg"] != "kept" || entry["app"] != "naivehttp" {
		t.Fatalf("entry = %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("missing ts key: %v", entry)
	}
}
