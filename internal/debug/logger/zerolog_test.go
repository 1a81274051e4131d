package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestZerologWritesComponentField(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerolog(&buf, zerolog.DebugLevel)

	log.Info("SeriesReader", "series loaded", map[string]interface{}{"slices": 3})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["component"] != "SeriesReader" {
		t.Errorf("component = %v", entry["component"])
	}
	if entry["message"] != "series loaded" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v", entry["level"])
	}
	if entry["slices"] != float64(3) {
		t.Errorf("slices field = %v", entry["slices"])
	}
	if _, ok := entry["time"]; !ok {
		t.Error("timestamp field missing")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerolog(&buf, zerolog.WarnLevel)

	log.Debug("GUI", "hidden", nil)
	log.Info("GUI", "hidden", nil)
	if buf.Len() != 0 {
		t.Errorf("sub-warn output written: %q", buf.String())
	}

	log.Warning("GUI", "shown", nil)
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warning suppressed: %q", buf.String())
	}
}

func TestErrorCarriesCause(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerolog(&buf, zerolog.ErrorLevel)

	log.Error("SnapshotWriter", errors.New("disk full"), map[string]interface{}{"path": "/tmp/axial.png"})

	out := buf.String()
	if !strings.Contains(out, "disk full") || !strings.Contains(out, "/tmp/axial.png") {
		t.Errorf("error line missing cause or fields: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	if got := ParseLevel("debug"); got != zerolog.DebugLevel {
		t.Errorf("ParseLevel(debug) = %v", got)
	}
	if got := ParseLevel("warn"); got != zerolog.WarnLevel {
		t.Errorf("ParseLevel(warn) = %v", got)
	}
	if got := ParseLevel(""); got != zerolog.InfoLevel {
		t.Errorf("ParseLevel(empty) = %v", got)
	}
	if got := ParseLevel("bogus"); got != zerolog.InfoLevel {
		t.Errorf("ParseLevel(bogus) = %v", got)
	}
}

func TestNoOpLoggerIsSilent(t *testing.T) {
	// Must simply not panic with nil fields and errors.
	var log NoOpLogger
	log.Info("X", "m", nil)
	log.Debug("X", "m", nil)
	log.Warning("X", "m", nil)
	log.Error("X", nil, nil)
}
