// Package watch implements the filesystem watcher: it wraps fsnotify
// and emits the semantic event stream Created/Modified/Deleted/Renamed,
// filtered to project-extension files, plus an offline-reconciliation pass
// run once at startup.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/fauli/dawidx/internal/discover"
	"github.com/fauli/dawidx/internal/util"
)

// EventKind discriminates the four semantic events a watch session emits.
type EventKind int

const (
	Created EventKind = iota
	Modified
	Deleted
	Renamed
)

// Event is one semantic filesystem change, filtered to project-extension
// files. From is only set for Renamed; To holds the new path for Renamed
// and the sole path for every other kind.
type Event struct {
	Kind EventKind
	From string
	To   string
}

// Watcher wraps an fsnotify watcher, tracking the set of watched roots and
// pairing split rename events (fsnotify reports a rename as separate
// Remove/Create events with no shared identity) into a single Renamed event.
type Watcher struct {
	fs         *fsnotify.Watcher
	ext        string
	roots      map[string]bool
	events     chan Event
	pendingOld *string
	pendingAt  time.Time
}

// renameWindow bounds how long a bare Remove is held awaiting a matching
// Create before it is reported as a plain Deleted.
const renameWindow = 500 * time.Millisecond

// New creates a Watcher filtering to files with extension ext (including
// the leading dot, e.g. ".als").
func New(ext string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, util.NewIOError("watcher", err)
	}
	return &Watcher{
		fs:     fsw,
		ext:    strings.ToLower(ext),
		roots:  make(map[string]bool),
		events: make(chan Event, 256),
	}, nil
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

// AddRoot begins watching root recursively (fsnotify itself only watches
// one directory per call, so every subdirectory is added explicitly).
func (w *Watcher) AddRoot(root string) error {
	if w.roots[root] {
		return nil
	}
	w.roots[root] = true

	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			util.WarnLog("watch: cannot walk %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			if d.Name() == discover.BackupMarker && path != root {
				return filepath.SkipDir
			}
			if err := w.fs.Add(path); err != nil {
				util.WarnLog("watch: cannot watch %s: %v", path, err)
			}
		}
		return nil
	})
}

// Events returns the semantic event stream.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Run pumps the underlying fsnotify event stream into semantic Events until
// the watcher is closed. Run blocks; call it from its own goroutine.
func (w *Watcher) Run() {
	defer close(w.events)
	ticker := time.NewTicker(renameWindow)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				w.flushPending()
				return
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			util.WarnLog("watch: fsnotify error: %v", err)
		case <-ticker.C:
			if w.pendingOld != nil && time.Since(w.pendingAt) > renameWindow {
				w.emit(Event{Kind: Deleted, To: *w.pendingOld})
				w.pendingOld = nil
			}
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !w.matchesExt(ev.Name) {
		return
	}

	switch {
	case ev.Op&fsnotify.Create != 0:
		if w.pendingOld != nil {
			from := *w.pendingOld
			w.pendingOld = nil
			w.emit(Event{Kind: Renamed, From: from, To: ev.Name})
			return
		}
		w.emit(Event{Kind: Created, To: ev.Name})

	case ev.Op&fsnotify.Write != 0:
		w.emit(Event{Kind: Modified, To: ev.Name})

	case ev.Op&fsnotify.Remove != 0:
		w.flushPending()
		path := ev.Name
		w.pendingOld = &path
		w.pendingAt = time.Now()

	case ev.Op&fsnotify.Rename != 0:
		// fsnotify reports the source side of a rename with Op Rename;
		// treat identically to Remove and await a paired Create.
		w.flushPending()
		path := ev.Name
		w.pendingOld = &path
		w.pendingAt = time.Now()
	}
}

func (w *Watcher) flushPending() {
	if w.pendingOld != nil {
		w.emit(Event{Kind: Deleted, To: *w.pendingOld})
		w.pendingOld = nil
	}
}

func (w *Watcher) emit(e Event) {
	select {
	case w.events <- e:
	default:
		util.WarnLog("watch: event channel full, dropping %+v", e)
	}
}

func (w *Watcher) matchesExt(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == w.ext
}

// ActiveProject is the minimal view of a catalog row offline reconciliation
// needs.
type ActiveProject struct {
	Path         string
	LastParsedAt time.Time
}

// ReconcileOffline implements the startup reconciliation pass: for
// each active project, emit Modified if the file changed while the process
// was not running, or Deleted if it vanished; then emit Created for any
// on-disk project not already known to the catalog.
func ReconcileOffline(roots []string, ext string, active []ActiveProject, knownPaths map[string]bool) []Event {
	var events []Event

	for _, p := range active {
		info, err := os.Stat(p.Path)
		if err != nil {
			events = append(events, Event{Kind: Deleted, To: p.Path})
			continue
		}
		if info.ModTime().After(p.LastParsedAt) {
			events = append(events, Event{Kind: Modified, To: p.Path})
		}
	}

	for _, root := range roots {
		found, err := discoverQuiet(root, ext)
		if err != nil {
			continue
		}
		for _, path := range found {
			if !knownPaths[path] {
				events = append(events, Event{Kind: Created, To: path})
			}
		}
	}

	return events
}

// discoverQuiet is a thin indirection so ReconcileOffline can be unit
// tested without a real filesystem walk dependency beyond discover.Discover.
var discoverQuiet = func(root, ext string) ([]string, error) {
	return discover.Discover(context.Background(), root, ext)
}
