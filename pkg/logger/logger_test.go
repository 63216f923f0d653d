package logger

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("loud", ""); err == nil {
		t.Fatalf("unknown level accepted")
	}
	l, err := New("debug", "")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !l.Core().Enabled(zap.DebugLevel) {
		t.Fatalf("debug not enabled")
	}
}

func TestLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "solarb.log")
	l, err := New("warn", path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	l.Info("dropped")
	l.Warn("kept", zap.String("pool", "abc"))
	_ = l.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var entry map[string]interface{}
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("log line is not a single JSON object: %q", data)
	}
	if entry["msg"] != "kept" || entry["pool"] != "abc" || entry["ts"] == nil {
		t.Fatalf("entry = %v", entry)
	}
}

func TestJournalOneLinePerEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	j := NewJournal(path)
	j.Info("execution", zap.String("id", "a"))
	j.Info("execution", zap.String("id", "b"))
	_ = j.Sync()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer f.Close()
	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("bad journal line %q", scanner.Text())
		}
		lines++
	}
	if lines != 2 {
		t.Fatalf("journal lines = %d", lines)
	}

	if NewJournal("") == nil {
		t.Fatalf("disabled journal should be a no-op logger")
	}
}
