package stores

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/unitops/unitops/pkg/operation"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrOutcomeNotFound is returned when no outcome row matches a query.
var ErrOutcomeNotFound = errors.New("outcome not found")

// SQLiteStore persists operation outcomes in SQLite. It implements
// operation.Recorder.
type SQLiteStore struct {
	db   *sql.DB
	path string
	cfg  Config
}

// Config holds SQLite store configuration.
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	return &SQLiteStore{
		path: cfg.Path,
		cfg:  cfg,
	}, nil
}

// Init opens the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// HealthCheck verifies the database connection is alive.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}

// Migrate runs the embedded schema migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// RecordOutcome persists a settled operation outcome.
func (s *SQLiteStore) RecordOutcome(ctx context.Context, outcome *operation.Outcome) error {
	outputs, err := json.Marshal(outcome.Outputs)
	if err != nil {
		return fmt.Errorf("failed to encode outputs: %w", err)
	}

	failures, err := json.Marshal(outcome.ResourceFailures)
	if err != nil {
		return fmt.Errorf("failed to encode resource failures: %w", err)
	}

	query := `
		INSERT INTO outcomes (operation_id, unit_name, action, phase, reason, outputs, resource_failures, started_at, settled_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		string(outcome.OperationID),
		outcome.UnitName,
		string(outcome.Action),
		string(outcome.Phase),
		string(outcome.Reason),
		string(outputs),
		string(failures),
		outcome.StartedAt,
		outcome.SettledAt,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}

	return nil
}

// GetOutcome retrieves an outcome row by ID.
func (s *SQLiteStore) GetOutcome(ctx context.Context, id int64) (*OutcomeRecord, error) {
	query := `
		SELECT id, operation_id, unit_name, action, phase, reason, outputs, resource_failures, started_at, settled_at, created_at
		FROM outcomes
		WHERE id = ?
	`

	rec := &OutcomeRecord{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID,
		&rec.OperationID,
		&rec.UnitName,
		&rec.Action,
		&rec.Phase,
		&rec.Reason,
		&rec.Outputs,
		&rec.Failures,
		&rec.StartedAt,
		&rec.SettledAt,
		&rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOutcomeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get outcome: %w", err)
	}

	return rec, nil
}

// LatestOutcome retrieves the most recently settled outcome for a unit.
func (s *SQLiteStore) LatestOutcome(ctx context.Context, unitName string) (*OutcomeRecord, error) {
	query := `
		SELECT id, operation_id, unit_name, action, phase, reason, outputs, resource_failures, started_at, settled_at, created_at
		FROM outcomes
		WHERE unit_name = ?
		ORDER BY settled_at DESC
		LIMIT 1
	`

	rec := &OutcomeRecord{}
	err := s.db.QueryRowContext(ctx, query, unitName).Scan(
		&rec.ID,
		&rec.OperationID,
		&rec.UnitName,
		&rec.Action,
		&rec.Phase,
		&rec.Reason,
		&rec.Outputs,
		&rec.Failures,
		&rec.StartedAt,
		&rec.SettledAt,
		&rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOutcomeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest outcome: %w", err)
	}

	return rec, nil
}

// ListOutcomes lists outcomes with pagination, newest first. Empty unitName
// or phase filters match everything.
func (s *SQLiteStore) ListOutcomes(ctx context.Context, unitName, phase string, limit, offset int) ([]*OutcomeRecord, error) {
	query := `
		SELECT id, operation_id, unit_name, action, phase, reason, outputs, resource_failures, started_at, settled_at, created_at
		FROM outcomes
		WHERE (? = '' OR unit_name = ?) AND (? = '' OR phase = ?)
		ORDER BY settled_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, unitName, unitName, phase, phase, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list outcomes: %w", err)
	}
	defer rows.Close()

	records := []*OutcomeRecord{}
	for rows.Next() {
		rec := &OutcomeRecord{}
		err := rows.Scan(
			&rec.ID,
			&rec.OperationID,
			&rec.UnitName,
			&rec.Action,
			&rec.Phase,
			&rec.Reason,
			&rec.Outputs,
			&rec.Failures,
			&rec.StartedAt,
			&rec.SettledAt,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate outcomes: %w", err)
	}

	return records, nil
}
