package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/intel-ingest/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/intel-ingest/internal/core/domain"
	"github.com/custodia-labs/intel-ingest/internal/core/ports/driven"
)

// Verify interface compliance at compile time.
var (
	_ driven.RecordStore = (*Store)(nil)
	_ driven.RunStore    = (*Store)(nil)
)

// DatabaseFile is the database file name inside the data directory.
const DatabaseFile = "intel.db"

// timeLayout is how timestamps are written. It is fixed width so that
// text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is the SQLite-backed record store and run log.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for ingested_at and refreshed_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore opens or creates the database in dataDir and applies migrations.
// If dataDir is empty, defaults to ~/.intel-ingest/data.
func NewStore(dataDir string, opts ...Option) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".intel-ingest", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection: concurrent batches queue in database/sql instead of
	// racing for the SQLite write lock and failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &Store{
		db:   db,
		path: dbPath,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// migrate applies every embedded NNN_*.up.sql newer than the recorded version.
// Each migration inserts its own row into schema_migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ==================== Record Store ====================

// Upsert inserts the record or refreshes the row holding its natural key.
func (s *Store) Upsert(ctx context.Context, record domain.Record) (driven.UpsertOutcome, error) {
	return s.upsert(ctx, s.db, record, s.now().UTC())
}

// UpsertBatch upserts all records in one transaction.
func (s *Store) UpsertBatch(ctx context.Context, records []domain.Record) (driven.BatchOutcome, error) {
	var out driven.BatchOutcome
	if len(records) == 0 {
		return out, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return out, persistence("begin batch", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	now := s.now().UTC()
	for _, record := range records {
		outcome, err := s.upsert(ctx, tx, record, now)
		if err != nil {
			return driven.BatchOutcome{}, err
		}
		if outcome == driven.UpsertInserted {
			out.Inserted++
		} else {
			out.Updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return driven.BatchOutcome{}, persistence("commit batch", err)
	}
	return out, nil
}

func (s *Store) upsert(ctx context.Context, db execer, record domain.Record, now time.Time) (driven.UpsertOutcome, error) {
	r, err := rowFor(record)
	if err != nil {
		return 0, err
	}
	meta := record.Meta()
	provenance := string(meta.Provenance)
	if provenance == "" {
		provenance = "{}"
	}
	stamp := now.Format(timeLayout)

	cols := append([]string{"natural_key"}, r.cols...)
	cols = append(cols, "source", "raw_data", "ingested_at", "refreshed_at", "revision")
	args := append([]any{record.NaturalKey()}, r.vals...)
	args = append(args, meta.Source, provenance, stamp, stamp, 1)

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	updates := make([]string, 0, len(r.mutable)+4)
	for _, c := range r.mutable {
		updates = append(updates, c+" = excluded."+c)
	}
	updates = append(updates,
		"source = excluded.source",
		"raw_data = excluded.raw_data",
		"refreshed_at = excluded.refreshed_at",
		"revision = "+r.table+".revision + 1",
	)

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(natural_key) DO UPDATE SET %s RETURNING revision",
		r.table, strings.Join(cols, ", "), placeholders, strings.Join(updates, ", "),
	)

	var revision int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&revision); err != nil {
		return 0, persistence("upsert "+record.NaturalKey(), err)
	}
	if revision == 1 {
		return driven.UpsertInserted, nil
	}
	return driven.UpsertUpdated, nil
}

// Count returns the number of stored records of a kind.
func (s *Store) Count(ctx context.Context, kind domain.RecordKind) (int, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, persistence("count "+table, err)
	}
	return n, nil
}

// List returns stored records of a kind ordered by natural key.
func (s *Store) List(ctx context.Context, kind domain.RecordKind) ([]domain.Record, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	cols := selectColumns[kind]
	query := fmt.Sprintf(
		"SELECT %s, source, raw_data, ingested_at, refreshed_at, revision FROM %s ORDER BY natural_key",
		strings.Join(cols, ", "), table,
	)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, persistence("list "+table, err)
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		record, err := scanRecord(kind, rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("list "+table, err)
	}
	return records, nil
}

// ==================== Run Store ====================

// RecordRun appends a run to the log.
func (s *Store) RecordRun(ctx context.Context, run domain.PipelineRun) error {
	summary, err := json.Marshal(run.Sources)
	if err != nil {
		return fmt.Errorf("%w: encoding run summary: %v", domain.ErrPersistence, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pipeline_runs (id, started_at, finished_at, status, total_records, summary)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt.UTC().Format(timeLayout), run.FinishedAt.UTC().Format(timeLayout),
		string(run.Status), run.TotalRecords, string(summary))
	if err != nil {
		return persistence("record run "+run.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]domain.PipelineRun, error) {
	query := `
		SELECT id, started_at, finished_at, status, total_records, summary
		FROM pipeline_runs ORDER BY started_at DESC, id DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistence("list runs", err)
	}
	defer rows.Close()

	var runs []domain.PipelineRun
	for rows.Next() {
		var (
			run                 domain.PipelineRun
			started, finished   string
			status, summaryJSON string
		)
		if err := rows.Scan(&run.ID, &started, &finished, &status, &run.TotalRecords, &summaryJSON); err != nil {
			return nil, persistence("scan run", err)
		}
		run.Status = domain.RunStatus(status)
		if run.StartedAt, err = parseTime(started); err != nil {
			return nil, persistence("scan run "+run.ID, err)
		}
		if run.FinishedAt, err = parseTime(finished); err != nil {
			return nil, persistence("scan run "+run.ID, err)
		}
		if err := json.Unmarshal([]byte(summaryJSON), &run.Sources); err != nil {
			return nil, persistence("decode run "+run.ID, err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("list runs", err)
	}
	return runs, nil
}

// ==================== Helpers ====================

func persistence(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrPersistence, err)
	}
	return fmt.Errorf("%s: %w: %v", op, domain.ErrPersistence, err)
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", time.DateTime} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
