package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - inspections table
const currentSchemaVersion = 1

// Store provides durable storage for inspection records.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	path string
	db   *sql.DB // writer, single connection
	read *sql.DB // reader pool; same handle as db for in-memory databases
	feed *changeFeed
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and the schema automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - FULL synchronous mode so a returned insert is durable
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	dsn, err := fileDSN(path, "")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Open database (creates file if doesn't exist)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify connection works
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db, isMemory(path)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{path: path, db: db, read: db, feed: newChangeFeed()}

	// An in-memory database lives in its single connection, so readers
	// have to share it.
	if !isMemory(path) {
		read, err := openReader(path)
		if err != nil {
			db.Close()
			return nil, err
		}
		s.read = read
	}

	return s, nil
}

// openReader opens the read-only pool. Pragmas set with Exec only reach one
// pooled connection, so the busy timeout travels in the DSN instead.
func openReader(path string) (*sql.DB, error) {
	dsn, err := fileDSN(path, readerParams)
	if err != nil {
		return nil, fmt.Errorf("failed to open reader: %w", err)
	}
	read, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open reader: %w", err)
	}
	if err := read.Ping(); err != nil {
		read.Close()
		return nil, fmt.Errorf("failed to connect reader: %w", err)
	}
	return read, nil
}

// readerParams are appended to the reader URI; mode=ro is read by SQLite,
// _busy_timeout by the driver.
const readerParams = "mode=ro&_busy_timeout=5000"

// fileDSN turns a database path into a file: URI. The path is made absolute
// and percent-escaped: SQLite decodes %XX in URI paths and the driver cuts a
// plain name at '?', while '#', '%' and '?' are all legal in file names.
// Paths that already are URIs or name an in-memory database pass through.
func fileDSN(path, params string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	if strings.HasPrefix(path, "file:") {
		if params == "" {
			return path, nil
		}
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + params, nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	abs = filepath.ToSlash(abs)
	if !strings.HasPrefix(abs, "/") {
		// Windows drive letter: file:///C:/dir/x.db
		abs = "/" + abs
	}
	u := url.URL{Scheme: "file", Path: abs, RawQuery: params}
	return u.String(), nil
}

// Close closes the database connections and ends every change subscription.
// Should be called when the store is no longer needed.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if s.feed != nil {
		s.feed.close()
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

// DB returns the underlying writer handle for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// isMemory reports whether path names an in-memory database.
func isMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB, memory bool) error {
	pragmas := []string{
		"PRAGMA synchronous = FULL",
		"PRAGMA busy_timeout = 5000",
	}
	if !memory {
		pragmas = append([]string{"PRAGMA journal_mode = WAL"}, pragmas...)
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and stamps the version.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if version != currentSchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(ctx context.Context, name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRowContext(ctx, query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
