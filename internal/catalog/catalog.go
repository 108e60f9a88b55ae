// Package catalog implements the persistent store: schema,
// batched upsert protocol, reactivation, and the query surface the
// ingestion pipeline and watcher depend on.
package catalog

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/fauli/dawidx/internal/util"
)

const currentSchemaVersion = 1

// Catalog owns the single SQLite connection backing the project index.
type Catalog struct {
	db *sql.DB
}

// Open opens or creates a catalog database at path.
func Open(path string) (*Catalog, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_timeout=5000&_busy_timeout=5000&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	db.SetMaxOpenConns(1) // single-writer model avoids SQLITE_BUSY under WAL
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	c := &Catalog{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return c, nil
}

// Close closes the underlying connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// DB returns the underlying connection for callers needing custom queries.
func (c *Catalog) DB() *sql.DB {
	return c.db
}

// CheckIntegrity runs PRAGMA integrity_check against the catalog.
func (c *Catalog) CheckIntegrity() error {
	var result string
	if err := c.db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

func (c *Catalog) migrate() error {
	version, err := c.getSchemaVersion()
	if err != nil {
		return err
	}
	if version >= currentSchemaVersion {
		return nil
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration transaction: %w", err)
	}
	defer tx.Rollback()

	if version < 1 {
		if _, err := tx.Exec(schemaV1); err != nil {
			return fmt.Errorf("failed to apply schema v1: %w", err)
		}
		if err := c.setSchemaVersion(tx, 1); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (c *Catalog) getSchemaVersion() (int, error) {
	var exists int
	err := c.db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&exists)
	if err != nil {
		return 0, err
	}
	if exists == 0 {
		return 0, nil
	}

	var version int
	err = c.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func (c *Catalog) setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

// Transaction runs fn inside a single database transaction, rolling back on
// any error it returns. Begin is retried with backoff on SQLITE_BUSY/locked,
// which can surface briefly even under the single-writer model while a
// prior connection's WAL checkpoint is in flight.
func (c *Catalog) Transaction(fn func(*sql.Tx) error) error {
	tx, err := util.RetryWithBackoff(util.CatalogRetryConfig(), func() (*sql.Tx, error) {
		return c.db.Begin()
	}, "catalog.Begin")
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
