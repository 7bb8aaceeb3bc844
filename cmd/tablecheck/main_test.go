package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"tablecheck/internal/metrics"
)

// flushRecorder counts backend calls so tests can assert the flush actually
// happened on a given exit path.
type flushRecorder struct {
	mu       sync.Mutex
	counters map[string]float64
	flushed  int
}

func (r *flushRecorder) IncCounter(name string, delta float64, labels metrics.Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counters == nil {
		r.counters = map[string]float64{}
	}
	r.counters[name] += delta
}

func (r *flushRecorder) ObserveHistogram(name string, value float64, labels metrics.Labels) {}

func (r *flushRecorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushed++
	return nil
}

const testDescriptor = `{
  "name": "mine-data",
  "resources": [
    {
      "name": "controller-operator-history",
      "schema": {
        "fields": [
          {"name": "MINE_ID", "type": "integer"},
          {"name": "CONTROLLER_NM", "type": "string"}
        ],
        "foreignKeys": [
          {"fields": ["MINE_ID"], "reference": {"resource": "mines", "fields": ["MINE_ID"]}}
        ]
      }
    }
  ]
}`

// writeJob lays out a complete runnable job in dir and returns the config path.
func writeJob(t *testing.T, dir, data string) string {
	t.Helper()

	files := map[string]string{
		"datapackage.json": testDescriptor,
		"history.csv":      data,
		"mines.csv":        "MINE_ID\n1234567\n7654321\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	job := map[string]any{
		"job":        "test-history",
		"descriptor": filepath.Join(dir, "datapackage.json"),
		"resource":   "controller-operator-history",
		"source":     map[string]any{"kind": "file", "file": map[string]any{"path": filepath.Join(dir, "history.csv")}},
		"parser":     map[string]any{"kind": "csv"},
		"reference":  map[string]any{"kind": "csv", "csv": map[string]any{"path": filepath.Join(dir, "mines.csv")}},
		"output":     map[string]any{"path": filepath.Join(dir, "report.json")},
	}
	b, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("marshal job: %v", err)
	}
	cfgPath := filepath.Join(dir, "job.json")
	if err := os.WriteFile(cfgPath, b, 0o644); err != nil {
		t.Fatalf("write job config: %v", err)
	}
	return cfgPath
}

func TestRealMainCleanData(t *testing.T) {
	cfgPath := writeJob(t, t.TempDir(), "MINE_ID,CONTROLLER_NM\n1234567,ACME\n")

	rec := &flushRecorder{}
	metrics.SetBackend(rec)

	if code := realMain([]string{"-config", cfgPath}); code != exitOK {
		t.Fatalf("exit code = %d, want %d", code, exitOK)
	}
	if rec.flushed != 1 {
		t.Fatalf("flush count = %d, want 1", rec.flushed)
	}
}

func TestRealMainFlushesOnInvalidReport(t *testing.T) {
	// A dangling key makes the report invalid; the defects-found exit must
	// still flush metrics, since finding defects is the tool's whole point.
	cfgPath := writeJob(t, t.TempDir(), "MINE_ID,CONTROLLER_NM\n9999999,GHOST\n")

	rec := &flushRecorder{}
	metrics.SetBackend(rec)

	if code := realMain([]string{"-config", cfgPath}); code != exitInvalid {
		t.Fatalf("exit code = %d, want %d", code, exitInvalid)
	}
	if rec.flushed != 1 {
		t.Fatalf("flush count = %d, want 1", rec.flushed)
	}
	if rec.counters["tablecheck_runs_total"] != 1 {
		t.Fatalf("runs_total = %v, want 1", rec.counters["tablecheck_runs_total"])
	}
	if rec.counters["tablecheck_rows_total"] == 0 {
		t.Fatal("row counters not recorded before flush")
	}
}

func TestRealMainBadConfigPath(t *testing.T) {
	if code := realMain([]string{"-config", filepath.Join(t.TempDir(), "missing.json")}); code != exitFailure {
		t.Fatalf("exit code = %d, want %d", code, exitFailure)
	}
}
