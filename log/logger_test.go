package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/minecart-io/minecart/types"
)

func TestLogger_CarriesRunContext(t *testing.T) {
	meta := &types.RunMeta{RunID: "run-9", Mode: types.ModeDownload}

	var buf bytes.Buffer
	logger := NewLogger(meta, nil).WithOutput(&buf)

	logger.Info("page fetched", map[string]any{"offset": 10})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("entry is not JSON: %v\n%s", err, buf.String())
	}
	if entry["run_id"] != "run-9" || entry["mode"] != "download" {
		t.Errorf("run context = %v / %v", entry["run_id"], entry["mode"])
	}
	if entry["message"] != "page fetched" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v", entry["level"])
	}
}

func TestLogger_WithOutputEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(nil, nil).WithOutput(&buf)

	logger.Debug("cursor advanced", map[string]any{"cursor": 20})

	if !strings.Contains(buf.String(), "cursor advanced") {
		t.Errorf("debug entry missing:\n%s", buf.String())
	}
}

func TestLogger_NilRunMeta(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(nil, nil).WithOutput(&buf)

	logger.Info("no context", nil)

	if strings.Contains(buf.String(), "run_id") {
		t.Errorf("nil meta should not emit run_id:\n%s", buf.String())
	}
}

func TestLogger_FileSinkWritesRotatingFile(t *testing.T) {
	dir := t.TempDir()
	meta := &types.RunMeta{RunID: "run-1", Mode: types.ModeDelete}

	logger := NewLogger(meta, &FileSink{Dir: dir, Name: "run.log"})
	logger.Debug("only in the file core", nil)

	// lumberjack creates the file lazily on first write.
	data, err := os.ReadFile(filepath.Join(dir, "run.log"))
	if err != nil {
		t.Fatalf("reading file sink: %v", err)
	}
	if !strings.Contains(string(data), "only in the file core") {
		t.Errorf("file sink missing entry:\n%s", data)
	}
}
