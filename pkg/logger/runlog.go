package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RunLogEntry is one recorded event of a batch run.
type RunLogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level,omitempty"`
	ErrorType string                 `json:"error_type,omitempty"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// RunLog accumulates execution and error entries during a batch and flushes
// them to timestamped JSON documents when the run completes. The error
// document is only written when errors occurred.
type RunLog struct {
	stage string

	mu      sync.Mutex
	started time.Time
	entries []RunLogEntry
	errors  []RunLogEntry
}

func NewRunLog(stage string) *RunLog {
	return &RunLog{stage: stage, started: time.Now()}
}

// Record appends an execution entry. Entries at error level are mirrored into
// the error log.
func (r *RunLog) Record(level, msg string, details map[string]interface{}) {
	entry := RunLogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   msg,
		Details:   details,
	}

	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.mu.Unlock()

	if level == "error" {
		r.RecordError(msg, "runtime", details)
	}
}

// RecordError appends a classified error entry.
func (r *RunLog) RecordError(msg, errorType string, details map[string]interface{}) {
	entry := RunLogEntry{
		Timestamp: time.Now(),
		ErrorType: errorType,
		Message:   msg,
		Details:   details,
	}

	r.mu.Lock()
	r.errors = append(r.errors, entry)
	r.mu.Unlock()
}

// ErrorCount returns the number of error entries recorded so far.
func (r *RunLog) ErrorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors)
}

type runLogDocument struct {
	Stage          string        `json:"stage"`
	ExecutionStart time.Time     `json:"execution_start"`
	ExecutionEnd   time.Time     `json:"execution_end"`
	Summary        interface{}   `json:"summary,omitempty"`
	ExecutionLog   []RunLogEntry `json:"execution_log"`
}

type errorLogDocument struct {
	Stage         string        `json:"stage"`
	ExecutionTime time.Time     `json:"execution_time"`
	TotalErrors   int           `json:"total_errors"`
	Errors        []RunLogEntry `json:"errors"`
}

// Flush writes the run log (and, if any errors were recorded, the error log
// under an Errors subdirectory) into dir. Flushing ends the current run: the
// recorder resets so the next run's documents cover only its own entries.
func (r *RunLog) Flush(dir string, summary interface{}) error {
	r.mu.Lock()
	entries := r.entries
	errs := r.errors
	started := r.started
	r.entries = nil
	r.errors = nil
	r.started = time.Now()
	r.mu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create run log dir: %w", err)
	}

	stamp := time.Now().Format("2006-01-02_15-04-05")

	doc := runLogDocument{
		Stage:          r.stage,
		ExecutionStart: started,
		ExecutionEnd:   time.Now(),
		Summary:        summary,
		ExecutionLog:   entries,
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.json", r.stage, stamp))
	if err := writeJSONFile(path, doc); err != nil {
		return err
	}

	if len(errs) == 0 {
		return nil
	}

	errDir := filepath.Join(dir, "Errors")
	if err := os.MkdirAll(errDir, 0o755); err != nil {
		return fmt.Errorf("create error log dir: %w", err)
	}
	errDoc := errorLogDocument{
		Stage:         r.stage,
		ExecutionTime: time.Now(),
		TotalErrors:   len(errs),
		Errors:        errs,
	}
	errPath := filepath.Join(errDir, fmt.Sprintf("%s_errors_%s.json", r.stage, stamp))
	return writeJSONFile(errPath, errDoc)
}

func writeJSONFile(path string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run log: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write run log: %w", err)
	}
	return nil
}
