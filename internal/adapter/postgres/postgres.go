// Package postgres implements the domain repositories using PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"weighttracking/internal/domain"
)

var (
	_ domain.UserRepository        = (*DB)(nil)
	_ domain.EmployeeRepository    = (*DB)(nil)
	_ domain.ResidentRepository    = (*DB)(nil)
	_ domain.WeightSheetRepository = (*DB)(nil)
	_ domain.WeightRepository      = (*DB)(nil)
	_ domain.SessionRepository     = (*SessionRepo)(nil)
)

// DB wraps a *sql.DB and implements domain repository interfaces.
type DB struct {
	sql *sql.DB
}

// Open connects to PostgreSQL, pings, and runs migrations.
func Open(connStr string) (*DB, error) {
	s, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	s.SetMaxOpenConns(10)
	s.SetMaxIdleConns(5)
	s.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	d := New(s)
	if err := d.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return d, nil
}

// New wraps an already opened connection pool without migrating it.
func New(s *sql.DB) *DB {
	return &DB{sql: s}
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

// Ping checks the connection.
func (d *DB) Ping(ctx context.Context) error {
	return d.sql.PingContext(ctx)
}

var schema = []string{
	"CREATE TABLE IF NOT EXISTS users (id BIGSERIAL PRIMARY KEY, username TEXT UNIQUE NOT NULL, password_hash TEXT NOT NULL, created_at TIMESTAMPTZ NOT NULL);",
	"CREATE TABLE IF NOT EXISTS sessions (token TEXT PRIMARY KEY, user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE, user_agent TEXT NOT NULL DEFAULT '', ip TEXT NOT NULL DEFAULT '', expires_at TIMESTAMPTZ NOT NULL, created_at TIMESTAMPTZ NOT NULL);",
	"CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);",
	"CREATE TABLE IF NOT EXISTS employees (id BIGSERIAL PRIMARY KEY, user_id BIGINT UNIQUE NOT NULL REFERENCES users(id) ON DELETE CASCADE, role TEXT NOT NULL DEFAULT '');",
	"CREATE TABLE IF NOT EXISTS residents (id BIGSERIAL PRIMARY KEY, first_name TEXT NOT NULL, last_name TEXT NOT NULL, room_num INTEGER NOT NULL DEFAULT 0);",
	`CREATE TABLE IF NOT EXISTS weight_sheets (
		id BIGSERIAL PRIMARY KEY,
		employee_id BIGINT REFERENCES employees(id) ON DELETE SET NULL,
		resident_id BIGINT NOT NULL REFERENCES residents(id) ON DELETE CASCADE,
		date DATE NOT NULL,
		reweighed BOOLEAN NOT NULL DEFAULT FALSE,
		refused BOOLEAN NOT NULL DEFAULT FALSE,
		not_in_room BOOLEAN NOT NULL DEFAULT FALSE,
		daily_wts BOOLEAN NOT NULL DEFAULT FALSE,
		show_alert BOOLEAN NOT NULL DEFAULT TRUE,
		scale_type TEXT NOT NULL DEFAULT '',
		final BOOLEAN NOT NULL DEFAULT FALSE,
		CONSTRAINT weight_sheets_resident_date_key UNIQUE (resident_id, date)
	);`,
	"CREATE INDEX IF NOT EXISTS idx_weight_sheets_date ON weight_sheets(date);",
	`CREATE TABLE IF NOT EXISTS weights (
		id BIGSERIAL PRIMARY KEY,
		resident_id BIGINT NOT NULL REFERENCES residents(id) ON DELETE CASCADE,
		weight_sheet_id BIGINT REFERENCES weight_sheets(id) ON DELETE SET NULL,
		date DATE NOT NULL,
		weight DOUBLE PRECISION NOT NULL
	);`,
	"CREATE INDEX IF NOT EXISTS idx_weights_date ON weights(date);",
	"CREATE INDEX IF NOT EXISTS idx_weights_resident_date ON weights(resident_id, date);",
}

func (d *DB) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

// isUniqueViolation reports whether err is a postgres unique_violation.
func isUniqueViolation(err error) bool {
	return pqCode(err) == "23505"
}

func isForeignKeyViolation(err error) bool {
	return pqCode(err) == "23503"
}

// foreignKeyError names the missing row behind a foreign_key_violation from
// the violated constraint. Constraints carry postgres' default
// <table>_<column>_fkey names. Violations of other constraints are returned
// unchanged.
func foreignKeyError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch {
	case strings.HasSuffix(pqErr.Constraint, "_resident_id_fkey"):
		return domain.ErrResidentNotFound
	case strings.HasSuffix(pqErr.Constraint, "_employee_id_fkey"):
		return domain.ErrEmployeeNotFound
	case strings.HasSuffix(pqErr.Constraint, "_weight_sheet_id_fkey"):
		return domain.ErrWeightSheetNotFound
	}
	return fmt.Errorf("foreign key %q: %w", pqErr.Constraint, err)
}

// withTx runs fn in a transaction, committing on nil and rolling back
// otherwise.
func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
