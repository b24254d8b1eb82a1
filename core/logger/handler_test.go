package logger

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newTestHandler(buf *bytes.Buffer, format logFormat) (*structuredHandler, *asyncWriter) {
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	return newStructuredHandler(handlerConfig{
		level:    slog.LevelInfo,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	}), aw
}

func drain(t *testing.T, aw *asyncWriter) {
	t.Helper()
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	ctx := WithRID(Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	log := slog.New(handler).With("component", "staging")
	LogEvent(ctx, log, slog.LevelInfo, "submission.created",
		slog.String("status", "ok"),
		slog.Int("media", 2),
	)
	drain(t, aw)

	tokens := strings.Split(strings.TrimSpace(buf.String()), " ")
	expected := []string{"ts=", "level=INFO", "component=staging", "event=submission.created", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9"}
	if len(tokens) < len(expected) {
		t.Fatalf("unexpected token count: %d (%v)", len(tokens), tokens)
	}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatJSON)
	ctx := WithRID(Background(), "rid-json")

	log := slog.New(handler).With("component", "lifecycle")
	LogEvent(ctx, log, slog.LevelError, "publish.failed",
		slog.String("status", "fail"),
		slog.String("err", "boom"),
	)
	drain(t, aw)

	line := strings.TrimSpace(buf.String())
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"lifecycle"`, `"event":"publish.failed"`, `"status":"fail"`, `"rid":"rid-json"`, `"err":"boom"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		if idx == -1 || idx < pos {
			t.Fatalf("prefix %s not found in order within %s", pref, line)
		}
		pos = idx
	}
}

func TestStructuredHandlerCompactRIDJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatJSON)
	rawRID := "12:34:56"
	LogEvent(WithRID(Background(), rawRID), slog.New(handler), slog.LevelInfo, "rid.test")
	drain(t, aw)

	line := buf.String()
	if !strings.Contains(line, `"rid":"`+CompactRID(rawRID)+`"`) {
		t.Fatalf("expected compact rid in JSON, got %s", line)
	}
	if !strings.Contains(line, `"rid_full":"`+rawRID+`"`) {
		t.Fatalf("expected rid_full in JSON output, got %s", line)
	}
}

func TestStructuredHandlerDurationKey(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	LogEvent(Background(), slog.New(handler), slog.LevelInfo, "timing",
		slog.Duration("duration", 1500*time.Microsecond),
	)
	drain(t, aw)

	if !strings.Contains(buf.String(), "duration_ms=2") {
		t.Fatalf("expected rounded duration_ms, got %s", buf.String())
	}
}

func TestStructuredHandlerBelowLevelIsDropped(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	LogEvent(Background(), slog.New(handler), slog.LevelDebug, "noise")
	drain(t, aw)

	if buf.Len() != 0 {
		t.Fatalf("debug record should be filtered, got %s", buf.String())
	}
}

func TestTimestampedName(t *testing.T) {
	at := time.Date(2026, 10, 15, 9, 45, 0, 0, time.UTC)
	if got := TimestampedName("bot_log.log", at); got != "bot_log_15102026_094500.log" {
		t.Fatalf("unexpected name %s", got)
	}
}

func TestParseRatioSpec(t *testing.T) {
	if n, d := parseRatioSpec("1/10"); n != 1 || d != 10 {
		t.Fatalf("1/10 parsed as %d/%d", n, d)
	}
	if n, d := parseRatioSpec("25"); n != 1 || d != 25 {
		t.Fatalf("25 parsed as %d/%d", n, d)
	}
	if n, d := parseRatioSpec("off"); n != 0 || d != 0 {
		t.Fatalf("off parsed as %d/%d", n, d)
	}
}
