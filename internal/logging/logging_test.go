package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestLevels(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want zap.AtomicLevel
	}{
		{"default", Options{}, zap.NewAtomicLevelAt(zap.WarnLevel)},
		{"verbose", Options{Verbose: true}, zap.NewAtomicLevelAt(zap.DebugLevel)},
		{"quiet", Options{Quiet: true}, zap.NewAtomicLevelAt(zap.ErrorLevel)},
		{"verbose wins", Options{Verbose: true, Quiet: true}, zap.NewAtomicLevelAt(zap.DebugLevel)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.opts)
			if err != nil {
				t.Fatalf("build failed: %v", err)
			}
			if !logger.Core().Enabled(tt.want.Level()) {
				t.Errorf("expected %s enabled", tt.want.Level())
			}
			if tt.want.Level() > zap.DebugLevel && logger.Core().Enabled(tt.want.Level()-1) {
				t.Errorf("expected %s disabled", tt.want.Level()-1)
			}
		})
	}
}

func TestJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	logger, err := New(Options{JSON: true, File: path})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	logger.Warn("regularized", zap.Float64("epsilon", 1e-6))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	line := strings.TrimSpace(string(data))
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("expected json, got %q: %v", line, err)
	}
	if entry["level"] != "warn" || entry["msg"] != "regularized" {
		t.Errorf("unexpected entry %v", entry)
	}
}
