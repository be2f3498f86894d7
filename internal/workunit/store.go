package workunit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"cadastra/internal/config"
)

// Sentinel errors returned by the conditional-update primitives. The engines
// translate these into their caller-facing taxonomy.
var (
	// ErrConflict reports that a conditional update found the row in a
	// different state than expected and applied nothing.
	ErrConflict = errors.New("state conflict")
	// ErrNotFound reports that a referenced work unit does not exist.
	ErrNotFound = errors.New("work unit not found")
)

// Store manages work-unit persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the work-unit database and verifies the
// schema version.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	// Pragmas ride the DSN so that every connection database/sql opens gets
	// them. Applying them with db.Exec would configure a single pooled
	// connection and leave the rest without a busy_timeout, turning lost
	// write races into immediate SQLITE_BUSY errors under load.
	dbPath := filepath.Join(cfg.Paths.DataDir, "cadastra.db")
	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying connection so the history log can share it.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// CreatePending inserts a new pending work unit. The insert is idempotent:
// a duplicate (region, batch, block) is reported as created=false, not an
// error, so re-running an import is safe.
func (s *Store) CreatePending(ctx context.Context, key Key, complexity string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO work_units (
            region, batch_code, block_number, complexity, stage, state,
            reject_count, approve_count, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, 0, 0, ?, ?)
        ON CONFLICT (region, batch_code, block_number) DO NOTHING`,
		key.Region,
		key.Batch,
		key.Block,
		nullableString(complexity),
		StageProduction,
		StatePending,
		now,
		now,
	)
	if err != nil {
		return false, fmt.Errorf("insert work unit: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Get fetches a work unit by key. A missing unit returns nil without error.
func (s *Store) Get(ctx context.Context, key Key) (*WorkUnit, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+unitColumns+` FROM work_units
         WHERE region = ? AND batch_code = ? AND block_number = ?`,
		key.Region, key.Batch, key.Block,
	)
	unit, err := scanUnit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get work unit: %w", err)
	}
	return unit, nil
}

func validateKey(key Key) error {
	if strings.TrimSpace(key.Region) == "" {
		return errors.New("region is required")
	}
	if strings.TrimSpace(key.Batch) == "" {
		return errors.New("batch code is required")
	}
	if key.Block < 0 {
		return fmt.Errorf("block number %d is negative", key.Block)
	}
	return nil
}

const unitColumns = "region, batch_code, block_number, complexity, stage, state, operator, reviewer, reject_count, approve_count, created_at, updated_at"

func scanUnit(scanner interface{ Scan(dest ...any) error }) (*WorkUnit, error) {
	var (
		region     string
		batch      string
		block      int
		complexity sql.NullString
		stageStr   string
		stateStr   string
		operator   sql.NullString
		reviewer   sql.NullString
		rejects    int
		approvals  int
		createdRaw string
		updatedRaw string
	)

	if err := scanner.Scan(
		&region,
		&batch,
		&block,
		&complexity,
		&stageStr,
		&stateStr,
		&operator,
		&reviewer,
		&rejects,
		&approvals,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	unit := &WorkUnit{
		Key:          Key{Region: region, Batch: batch, Block: block},
		Complexity:   complexity.String,
		Stage:        Stage(stageStr),
		State:        State(stateStr),
		Operator:     operator.String,
		Reviewer:     reviewer.String,
		RejectCount:  rejects,
		ApproveCount: approvals,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		unit.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		unit.UpdatedAt = updated
	}
	return unit, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
