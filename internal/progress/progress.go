// Package progress implements the command/progress surface: a stream
// of phase updates a caller (CLI or otherwise) can subscribe to while a
// scan runs, plus a JSONL sink for offline inspection.
package progress

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Phase is one stage of a scan, reported in the order a scan passes
// through them.
type Phase string

const (
	PhaseStarting     Phase = "starting"
	PhaseDiscovering  Phase = "discovering"
	PhasePreprocessing Phase = "preprocessing"
	PhaseParsing      Phase = "parsing"
	PhaseInserting    Phase = "inserting"
	PhaseCompleted    Phase = "completed"
	PhaseError        Phase = "error"
)

// Update is one point in the progress stream.
type Update struct {
	Timestamp time.Time `json:"ts"`
	Phase     Phase     `json:"phase"`
	Completed uint32    `json:"completed"`
	Total     uint32    `json:"total"`
	Progress  float32   `json:"progress"`
	Message   string    `json:"message,omitempty"`
}

// Reporter receives progress updates. Emit must not block the caller for
// long; a slow subscriber should buffer or drop, not stall the scan.
type Reporter interface {
	Emit(u Update)
}

// Func adapts a plain function to a Reporter.
type Func func(u Update)

// Emit implements Reporter.
func (f Func) Emit(u Update) { f(u) }

// Null discards every update.
var Null Reporter = Func(func(Update) {})

// report constructs and emits an Update, filling Timestamp and Progress.
func report(r Reporter, phase Phase, completed, total uint32, message string) {
	if r == nil {
		r = Null
	}
	var p float32
	if total > 0 {
		p = float32(completed) / float32(total)
	}
	r.Emit(Update{
		Timestamp: time.Now(),
		Phase:     phase,
		Completed: completed,
		Total:     total,
		Progress:  p,
		Message:   message,
	})
}

// Starting reports the scan has begun.
func Starting(r Reporter, message string) { report(r, PhaseStarting, 0, 0, message) }

// Discovering reports directory-walk progress; total is unknown until the
// walk finishes, so completed counts files found so far.
func Discovering(r Reporter, found int, message string) {
	report(r, PhaseDiscovering, uint32(found), 0, message)
}

// Preprocessing reports diff-stage progress against the known candidate count.
func Preprocessing(r Reporter, completed, total int, message string) {
	report(r, PhasePreprocessing, uint32(completed), uint32(total), message)
}

// Parsing reports per-file parse completion against the to-parse count.
func Parsing(r Reporter, completed, total int, message string) {
	report(r, PhaseParsing, uint32(completed), uint32(total), message)
}

// Inserting reports the single batched-commit step.
func Inserting(r Reporter, message string) { report(r, PhaseInserting, 0, 0, message) }

// Completed reports a successful scan, with the final counts.
func Completed(r Reporter, completed, total int, message string) {
	report(r, PhaseCompleted, uint32(completed), uint32(total), message)
}

// Error reports a fatal scan failure; no further updates follow.
func Error(r Reporter, message string) { report(r, PhaseError, 0, 0, message) }

// JSONLSink appends every Update to a JSONL file, for offline inspection of
// a completed or crashed scan. It is safe for concurrent Emit calls.
type JSONLSink struct {
	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
	path    string
}

// NewJSONLSink creates (or truncates) path and returns a sink writing to it.
func NewJSONLSink(path string) (*JSONLSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create progress log: %w", err)
	}
	return &JSONLSink{file: f, encoder: json.NewEncoder(f), path: path}, nil
}

// Emit implements Reporter.
func (s *JSONLSink) Emit(u Update) {
	if s == nil || s.file == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.encoder.Encode(u)
}

// Path returns the sink's file path.
func (s *JSONLSink) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying file.
func (s *JSONLSink) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	return s.file.Close()
}

// Multi fans one Update out to several Reporters.
type Multi []Reporter

// Emit implements Reporter.
func (m Multi) Emit(u Update) {
	for _, r := range m {
		if r != nil {
			r.Emit(u)
		}
	}
}
