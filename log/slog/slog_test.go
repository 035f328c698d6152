package slog

import (
	"bytes"
	"encoding/json"
	stdslog "log/slog"
	"testing"

	"github.com/unkn0wn-root/tiercache"
)

func TestLoggerWritesStructuredRecord(t *testing.T) {
	var buf bytes.Buffer
	h := stdslog.NewJSONHandler(&buf, &stdslog.HandlerOptions{Level: stdslog.LevelDebug})
	New(stdslog.New(h)).Info("repository registered", tiercache.Fields{"repository": "stats", "policy": "HOT_AWARE"})

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if rec["level"] != "INFO" || rec["msg"] != "repository registered" {
		t.Fatalf("record: %v", rec)
	}
	if rec["repository"] != "stats" || rec["policy"] != "HOT_AWARE" {
		t.Fatalf("fields: %v", rec)
	}
}
