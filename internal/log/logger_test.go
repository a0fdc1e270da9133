package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestProductionLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "production")
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	logger.Info().Str("user_id", "u1").Msg("login")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}
	if entry["env"] != "production" {
		t.Errorf("env=%v", entry["env"])
	}
	if entry["user_id"] != "u1" {
		t.Errorf("user_id=%v", entry["user_id"])
	}
	if entry["message"] != "login" {
		t.Errorf("message=%v", entry["message"])
	}
}

func TestProductionLoggerDropsDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "production")
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	logger.Debug().Msg("noise")
	if buf.Len() != 0 {
		t.Fatalf("debug line written in production: %q", buf.String())
	}
}

func TestDevelopmentLoggerIsConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "development")
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	logger.Debug().Msg("visible")
	out := buf.String()
	if !strings.Contains(out, "visible") {
		t.Fatalf("debug line missing: %q", out)
	}
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Fatalf("expected console output, got JSON: %q", out)
	}
}
