package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/ontoreg/internal/errs"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on import_edges.import_version
const currentSchemaVersion = 1

// readConns bounds the read pool.
const readConns = 4

// Store provides durable storage for named graphs and the version catalog.
// Uses SQLite with WAL mode. Writes go through a single connection; View
// transactions use a separate query-only pool and see the last committed
// snapshot. In-memory databases cannot be shared between pools, so they
// read through the write connection.
type Store struct {
	db   *sql.DB
	read *sql.DB
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode, so the read pool is not blocked by an open write
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// Failures are reported as errs.CodeStoreUnavailable.
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errs.StoreUnavailable("open", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errs.StoreUnavailable("connect", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, errs.StoreUnavailable("configure", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, errs.StoreUnavailable("migrate", err)
	}

	s := &Store{db: db, read: db}
	if isMemory(path) {
		return s, nil
	}

	read, err := openReader(path)
	if err != nil {
		db.Close()
		return nil, errs.StoreUnavailable("open reader", err)
	}
	s.read = read
	return s, nil
}

// openReader opens the query-only pool. The schema must already exist.
func openReader(path string) (*sql.DB, error) {
	read, err := sql.Open("sqlite3", readerDSN(path))
	if err != nil {
		return nil, err
	}
	read.SetMaxOpenConns(readConns)
	read.SetMaxIdleConns(readConns)
	if err := read.Ping(); err != nil {
		read.Close()
		return nil, err
	}
	return read, nil
}

// readerDSN builds a URI filename for path with the reader's connection
// parameters. The driver applies underscore parameters to every new
// connection in the pool.
func readerDSN(path string) string {
	const params = "_query_only=true&_busy_timeout=5000&_foreign_keys=true"
	if strings.HasPrefix(path, "file:") {
		if strings.Contains(path, "?") {
			return path + "&" + params
		}
		return path + "?" + params
	}
	escaped := strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23").Replace(path)
	return "file:" + escaped + "?" + params
}

func isMemory(path string) bool {
	return path == "" || path == ":memory:" || strings.Contains(path, "mode=memory")
}

// Close closes both connection pools.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	var readErr error
	if s.read != nil && s.read != s.db {
		readErr = s.read.Close()
	}
	if err := s.db.Close(); err != nil {
		return err
	}
	return readErr
}

// Ping verifies the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errs.StoreUnavailable("ping", err)
	}
	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the reverse index used to find dependents of a version.
// New databases get it from schema.sql; databases created before v1 need it
// added explicitly.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_import_edges_target
		ON import_edges(import_version)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}
