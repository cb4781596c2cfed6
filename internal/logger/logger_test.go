package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"phoneverify/internal/config"
)

func TestBuildJSON(t *testing.T) {
	var buf bytes.Buffer
	l := build(config.LoggingConfig{Level: "debug", Format: "json"}, &buf)
	Component(l, "bot").Debug("hello", "chat_id", 42)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("not json: %q", buf.String())
	}
	if rec["msg"] != "hello" || rec["component"] != "bot" || rec["chat_id"] != float64(42) {
		t.Fatalf("record = %v", rec)
	}
}

func TestBuildTextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := build(config.LoggingConfig{Level: "warn"}, &buf)
	l.Info("skipped")
	l.Warn("kept")
	out := buf.String()
	if strings.Contains(out, "skipped") || !strings.Contains(out, "msg=kept") {
		t.Fatalf("output = %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug, "WARN": slog.LevelWarn, "warning": slog.LevelWarn,
		"error": slog.LevelError, "": slog.LevelInfo, "bogus": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
