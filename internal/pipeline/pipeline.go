// Package pipeline wires the discovery, diff, parse-coordination and
// catalog-ingest stages together into a single start_scan/cancel_scan/
// status command surface, guarded by an is_scanning flag.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/fauli/dawidx/internal/catalog"
	"github.com/fauli/dawidx/internal/coordinate"
	"github.com/fauli/dawidx/internal/diff"
	"github.com/fauli/dawidx/internal/discover"
	"github.com/fauli/dawidx/internal/progress"
	"github.com/fauli/dawidx/internal/util"
)

// Scanner owns the is_scanning flag and the in-flight cancellation func for
// one catalog. Only one scan may run at a time; a second start_scan call
// while one is live is rejected with util.ErrScanInProgress.
type Scanner struct {
	cat *catalog.Catalog
	ext string

	scanning atomic.Bool
	mu       sync.Mutex
	cancel   context.CancelFunc
}

// New creates a Scanner over an open catalog, filtering candidates to ext
// (e.g. ".als").
func New(cat *catalog.Catalog, ext string) *Scanner {
	return &Scanner{cat: cat, ext: ext}
}

// Result summarizes one completed scan.
type Result struct {
	FilesDiscovered int
	FilesParsed     int
	FilesFailed     int
	Stats           catalog.IngestStats
	Errors          []error
}

// IsScanning reports whether a scan is currently in flight.
func (s *Scanner) IsScanning() bool {
	return s.scanning.Load()
}

// CancelScan requests cancellation of the in-flight scan. Best-effort: a
// scan already past discovery and diff runs its parse batch to completion
// and aborts before the commit; the worker pool itself is never preempted.
func (s *Scanner) CancelScan() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// StartScan runs discover -> diff -> coordinate -> ingest over roots,
// reporting phase updates to reporter (progress.Null if nil). It returns
// util.ErrScanInProgress if a scan is already running.
func (s *Scanner) StartScan(ctx context.Context, roots []string, reporter progress.Reporter) (Result, error) {
	if !s.scanning.CompareAndSwap(false, true) {
		return Result{}, util.ErrScanInProgress
	}
	defer s.scanning.Store(false)

	scanCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	progress.Starting(reporter, fmt.Sprintf("scanning %d root(s)", len(roots)))

	var candidates []string
	for _, root := range roots {
		found, err := discover.Discover(scanCtx, root, s.ext)
		if err != nil {
			progress.Error(reporter, err.Error())
			return Result{}, err
		}
		candidates = append(candidates, found...)
		progress.Discovering(reporter, len(candidates), root)
	}

	toParse, err := diff.Filter(candidates, s.lastParsedLookup)
	if err != nil {
		progress.Error(reporter, err.Error())
		return Result{}, err
	}
	progress.Preprocessing(reporter, len(candidates)-len(toParse), len(candidates),
		fmt.Sprintf("%d unchanged, %d to parse", len(candidates)-len(toParse), len(toParse)))

	select {
	case <-scanCtx.Done():
		progress.Error(reporter, "scan cancelled before parsing")
		return Result{}, scanCtx.Err()
	default:
	}

	fileResults := coordinate.Run(toParse)

	var inputs []catalog.ProjectInput
	var failures []error
	for i, r := range fileResults {
		if r.Err != nil {
			failures = append(failures, util.FileError{Path: r.Path, Err: r.Err})
			progress.Parsing(reporter, i+1, len(toParse), fmt.Sprintf("failed: %s", r.Path))
			continue
		}
		inputs = append(inputs, catalog.ProjectInput{
			Path:       r.Path,
			Hash:       r.Info.Hash,
			CreatedAt:  r.Info.CreatedAt,
			ModifiedAt: r.Info.ModifiedAt,
			Result:     r.Result,
		})
		progress.Parsing(reporter, i+1, len(toParse), r.Path)
	}

	select {
	case <-scanCtx.Done():
		progress.Error(reporter, "scan cancelled before commit")
		return Result{}, scanCtx.Err()
	default:
	}

	progress.Inserting(reporter, fmt.Sprintf("committing %d project(s)", len(inputs)))
	stats, err := s.cat.Ingest(inputs)
	if err != nil {
		progress.Error(reporter, err.Error())
		return Result{}, err
	}

	result := Result{
		FilesDiscovered: len(candidates),
		FilesParsed:     len(inputs),
		FilesFailed:     len(failures),
		Stats:           stats,
		Errors:          failures,
	}
	progress.Completed(reporter, len(inputs), len(toParse),
		fmt.Sprintf("%d parsed, %d failed", result.FilesParsed, result.FilesFailed))
	return result, nil
}

func (s *Scanner) lastParsedLookup(path string) (int64, bool, error) {
	t, ok, err := s.cat.GetLastParsedAt(path)
	if err != nil || !ok {
		return 0, ok, err
	}
	return t.Unix(), true, nil
}
