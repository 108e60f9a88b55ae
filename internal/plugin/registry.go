// Package plugin implements the plugin registry lookup: optional,
// read-only enrichment of a discovered device identifier against the
// DAW's own plugin database, adding vendor/version/SDK/flag metadata the
// project file itself never carries.
package plugin

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
	"golang.org/x/text/unicode/norm"

	"github.com/fauli/dawidx/internal/util"
)

// Info is the enrichment a registry lookup can add to a plugin row.
type Info struct {
	Vendor     string
	Version    string
	SDKVersion string
	Flags      string
}

// Registry resolves a plugin's device identifier against an external
// database. Implementations may be backed by the DAW's own catalog file,
// a stub, or a test double.
type Registry interface {
	Lookup(ctx context.Context, deviceIdentifier string) (Info, bool, error)
}

// Global is the optional, process-wide registry. It is nil until a caller
// assigns one (the CLI sets it after Open succeeds); enrichment is skipped
// entirely when it is nil,
// matching live_database_dir's "absence disables enrichment" contract.
var Global Registry

// Enrich resolves deviceIdentifier against Global if one is configured,
// returning (Info{}, false) when no registry is set or the lookup misses.
// Lookup failures are logged and treated as a miss: enrichment is best
// effort and must never fail a scan.
func Enrich(deviceIdentifier string) (Info, bool) {
	if Global == nil {
		return Info{}, false
	}
	info, ok, err := Global.Lookup(context.Background(), deviceIdentifier)
	if err != nil {
		util.WarnLog("plugin registry lookup failed for %s: %v", deviceIdentifier, err)
		return Info{}, false
	}
	return info, ok
}

// SQLiteRegistry looks plugins up in a read-only copy of the DAW's own
// plugin database, selected as the most recently modified *.db file in a
// configured directory (the DAW itself may rotate or version this file).
type SQLiteRegistry struct {
	db *sql.DB
}

// Open locates the most recent *.db file under dir and opens it read-only.
// It returns an error if dir contains no database file.
func Open(dir string) (*SQLiteRegistry, error) {
	path, err := mostRecentDBFile(dir)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro&immutable=1", path))
	if err != nil {
		return nil, util.NewIOError(path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, util.NewIOError(path, err)
	}

	return &SQLiteRegistry{db: db}, nil
}

// Close releases the underlying database handle.
func (r *SQLiteRegistry) Close() error {
	return r.db.Close()
}

// Lookup resolves a device identifier against the plugins table the DAW
// itself maintains, keyed by the same dev_identifier grammar the catalog
// uses.
func (r *SQLiteRegistry) Lookup(ctx context.Context, deviceIdentifier string) (Info, bool, error) {
	var info Info
	row := r.db.QueryRowContext(ctx, `
		SELECT vendor, version, sdk_version, flags
		FROM plugins
		WHERE dev_identifier = ?
	`, deviceIdentifier)

	err := row.Scan(&info.Vendor, &info.Version, &info.SDKVersion, &info.Flags)
	switch {
	case err == sql.ErrNoRows:
		return Info{}, false, nil
	case err != nil:
		return Info{}, false, fmt.Errorf("lookup %s: %w", deviceIdentifier, err)
	}
	// The external database is maintained by the DAW itself and can carry
	// vendor names in decomposed Unicode form; normalize before it reaches
	// the catalog so the same vendor always compares equal.
	info.Vendor = norm.NFC.String(info.Vendor)
	return info, true, nil
}

func mostRecentDBFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", util.NewIOError(dir, err)
	}

	type candidate struct {
		path    string
		modTime int64
	}
	var candidates []candidate
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".db") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{
			path:    filepath.Join(dir, e.Name()),
			modTime: info.ModTime().Unix(),
		})
	}
	if len(candidates) == 0 {
		return "", util.NewIOError(dir, fmt.Errorf("no plugin database file found"))
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].modTime > candidates[j].modTime })
	return candidates[0].path, nil
}
