// Package sqlite is the default archive backend. The database uses WAL
// journal mode with a single-writer connection; batches are stored as a
// header row plus the full document as JSON.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver.

	"github.com/hoanghai1803/murmur/internal/archive"
	"github.com/hoanghai1803/murmur/internal/models"
)

var _ archive.Backend = (*Archive)(nil)

// Archive is a SQLite-backed batch store.
type Archive struct {
	db *sql.DB
}

// Open opens (or creates) the archive database at the given path and applies
// any pending migrations. It configures the connection for WAL journal mode,
// a 5-second busy timeout, and foreign key enforcement. Parent directories
// are created if missing.
//
// The connection pool is limited to a single connection because SQLite
// supports only one concurrent writer.
func Open(path string) (*Archive, error) {
	// For in-memory databases, skip directory creation.
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating archive directory %q: %w", dir, err)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening archive database %q: %w", path, err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging archive database %q: %w", path, err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating archive database %q: %w", path, err)
	}

	slog.Info("opened sqlite archive", "path", path)
	return &Archive{db: db}, nil
}

// Close closes the underlying database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Save stores the batch and returns its "sqlite:<batch_id>" location.
func (a *Archive) Save(ctx context.Context, b *models.Batch) (string, error) {
	document, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("encoding batch %s: %w", b.BatchID, err)
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO batches (
			batch_id, query, created_at, unique_comments,
			grand_total, attempts_made, target_achieved, document
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.BatchID,
		b.Query,
		b.Timestamp.UTC().Format(time.RFC3339),
		b.UniqueComments,
		b.GrandTotal,
		b.AttemptsMade,
		boolToInt(b.TargetAchieved),
		string(document),
	)
	if err != nil {
		return "", fmt.Errorf("inserting batch %s: %w", b.BatchID, err)
	}

	return "sqlite:" + b.BatchID, nil
}

// Get returns the full stored batch, or archive.ErrNotFound.
func (a *Archive) Get(ctx context.Context, batchID string) (*models.Batch, error) {
	var document string
	err := a.db.QueryRowContext(ctx,
		"SELECT document FROM batches WHERE batch_id = ?", batchID,
	).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, archive.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying batch %s: %w", batchID, err)
	}

	var b models.Batch
	if err := json.Unmarshal([]byte(document), &b); err != nil {
		return nil, fmt.Errorf("decoding batch %s: %w", batchID, err)
	}
	return &b, nil
}

// List returns up to limit batch summaries, newest first.
func (a *Archive) List(ctx context.Context, limit int) ([]models.BatchSummary, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT batch_id, query, created_at, unique_comments,
		       grand_total, attempts_made, target_achieved
		FROM batches
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing batches: %w", err)
	}
	defer rows.Close()

	summaries := []models.BatchSummary{}
	for rows.Next() {
		var s models.BatchSummary
		var createdAt string
		var achieved int
		if err := rows.Scan(
			&s.BatchID, &s.Query, &createdAt, &s.UniqueComments,
			&s.GrandTotal, &s.AttemptsMade, &achieved,
		); err != nil {
			return nil, fmt.Errorf("scanning batch summary: %w", err)
		}
		s.Timestamp = parseTime(createdAt)
		s.TargetAchieved = achieved != 0
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating batch summaries: %w", err)
	}

	return summaries, nil
}

// Stats reports how many batches and comments the archive holds.
func (a *Archive) Stats(ctx context.Context) (*archive.Stats, error) {
	stats := &archive.Stats{Backend: "sqlite"}
	err := a.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(unique_comments), 0),
		       COALESCE(SUM(grand_total), 0)
		FROM batches`,
	).Scan(&stats.Batches, &stats.UniqueComments, &stats.GrandTotal)
	if err != nil {
		return nil, fmt.Errorf("querying archive stats: %w", err)
	}
	return stats, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// parseTime parses a stored timestamp in common SQLite formats. It returns
// the zero time if parsing fails.
func parseTime(s string) time.Time {
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrate applies any unapplied schema migrations. Migration files are read
// from the embedded migrations/ directory and must be named
// NNN_description.sql where NNN is the version number. Each migration runs
// inside its own transaction.
func migrate(db *sql.DB) error {
	const createTracker = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		);
	`
	if _, err := db.Exec(createTracker); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	applied, err := appliedVersions(db)
	if err != nil {
		return fmt.Errorf("reading applied migrations: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	type migrationFile struct {
		version  int
		filename string
	}
	var files []migrationFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		version := parseVersion(entry.Name())
		if version <= 0 {
			continue
		}
		files = append(files, migrationFile{version: version, filename: entry.Name()})
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].version < files[j].version
	})

	for _, mf := range files {
		if applied[mf.version] {
			continue
		}

		sqlBytes, err := migrationsFS.ReadFile("migrations/" + mf.filename)
		if err != nil {
			return fmt.Errorf("reading migration file %q: %w", mf.filename, err)
		}

		if err := applyMigration(db, mf.version, string(sqlBytes)); err != nil {
			return fmt.Errorf("applying migration %s: %w", mf.filename, err)
		}

		slog.Info("applied migration", "version", mf.version, "file", mf.filename)
	}

	return nil
}

// parseVersion extracts the version number from a migration filename like
// "001_initial_schema.sql" → 1.
func parseVersion(filename string) int {
	parts := strings.SplitN(filename, "_", 2)
	if len(parts) == 0 {
		return 0
	}
	v, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0
	}
	return v
}

// appliedVersions returns the set of migration versions already applied.
func appliedVersions(db *sql.DB) (map[int]bool, error) {
	rows, err := db.Query("SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("querying schema_migrations: %w", err)
	}
	defer rows.Close()

	versions := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning migration version: %w", err)
		}
		versions[v] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating migration versions: %w", err)
	}

	return versions, nil
}

// applyMigration executes a single migration's SQL and records its version,
// all within one transaction.
func applyMigration(db *sql.DB, version int, sql string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.Exec(sql); err != nil {
		return fmt.Errorf("executing migration SQL: %w", err)
	}

	if _, err := tx.Exec(
		"INSERT INTO schema_migrations (version) VALUES (?)", version,
	); err != nil {
		return fmt.Errorf("recording migration version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration: %w", err)
	}

	return nil
}
