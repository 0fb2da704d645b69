/*
 * Copyright (c) 2026, WSO2 LLC. (https://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/wso2/identity-secret-mgt/pkg/models"
)

const (
	sqliteBackend   = "sqlite"
	postgresBackend = "postgres"

	schemaVersion = 1

	// pgUniqueViolation is the SQLSTATE of a unique constraint violation.
	pgUniqueViolation = "23505"
)

//go:embed schema.sqlite.sql
var sqliteSchema string

//go:embed schema.postgres.sql
var postgresSchema string

func init() {
	RegisterBackend(sqliteBackend, func(ctx context.Context, opts Options, logger *slog.Logger) (SecretStore, error) {
		return NewSQLiteStore(ctx, opts, logger)
	})
	RegisterBackend(postgresBackend, func(ctx context.Context, opts Options, logger *slog.Logger) (SecretStore, error) {
		return NewPostgresStore(ctx, opts, logger)
	})
}

// secretRow is the column layout of idn_secret.
type secretRow struct {
	ID           string `db:"secret_id"`
	TenantID     int    `db:"tenant_id"`
	Name         string `db:"secret_name"`
	Type         string `db:"secret_type"`
	Description  string `db:"description"`
	Ciphertext   string `db:"secret_value"`
	CreatedTime  int64  `db:"created_time"`
	LastModified int64  `db:"last_modified"`
}

func (r *secretRow) toModel() *models.Secret {
	return &models.Secret{
		ID:           r.ID,
		TenantID:     r.TenantID,
		Name:         r.Name,
		Type:         r.Type,
		Description:  r.Description,
		Ciphertext:   r.Ciphertext,
		CreatedTime:  time.Unix(0, r.CreatedTime).UTC(),
		LastModified: time.Unix(0, r.LastModified).UTC(),
	}
}

const selectColumns = `secret_id, tenant_id, secret_name, secret_type, description, secret_value, created_time, last_modified`

// SQLStore persists secrets in a relational database through sqlx.
// Timestamps are stored as UTC unix nanoseconds.
type SQLStore struct {
	db      *sqlx.DB
	backend string
	closed  atomic.Bool
	logger  *slog.Logger
}

var _ SecretStore = (*SQLStore)(nil)

// NewSQLiteStore opens (creating if needed) a SQLite database file
func NewSQLiteStore(ctx context.Context, opts Options, logger *slog.Logger) (*SQLStore, error) {
	if opts.SQLitePath == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if dir := filepath.Dir(opts.SQLitePath); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_foreign_keys=ON", opts.SQLitePath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection avoids "database is locked" errors under concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &SQLStore{db: db, backend: sqliteBackend, logger: logger}
	if err := store.init(ctx, opts.ConnectTimeout); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite secret storage initialized",
		slog.String("database_path", opts.SQLitePath),
		slog.String("journal_mode", "WAL"))

	return store, nil
}

// NewPostgresStore connects to PostgreSQL through the pgx stdlib driver
func NewPostgresStore(ctx context.Context, opts Options, logger *slog.Logger) (*SQLStore, error) {
	if opts.Postgres.Host == "" || opts.Postgres.Database == "" {
		return nil, fmt.Errorf("postgres host and database are required")
	}

	db, err := sqlx.Open("pgx", opts.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	store := &SQLStore{db: db, backend: postgresBackend, logger: logger}
	if err := store.init(ctx, opts.ConnectTimeout); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("PostgreSQL secret storage initialized",
		slog.String("host", opts.Postgres.Host),
		slog.Int("port", opts.Postgres.Port),
		slog.String("database", opts.Postgres.Database))

	return store, nil
}

func (s *SQLStore) init(ctx context.Context, connectTimeout time.Duration) error {
	if err := s.ping(ctx, connectTimeout); err != nil {
		return err
	}
	if err := s.initSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// ping retries the connectivity check with exponential backoff until
// connectTimeout elapses.
func (s *SQLStore) ping(ctx context.Context, connectTimeout time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = connectTimeout

	attempt := 0
	op := func() error {
		attempt++
		err := s.db.PingContext(ctx)
		if err != nil {
			s.logger.Warn("Database not reachable yet",
				slog.String("backend", s.backend),
				slog.Int("attempt", attempt),
				slog.Any("error", err))
		}
		return err
	}

	var policy backoff.BackOff = b
	if connectTimeout <= 0 {
		policy = &backoff.StopBackOff{}
	}
	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
	}
	return nil
}

func (s *SQLStore) initSchema(ctx context.Context) error {
	if s.backend == sqliteBackend {
		var version int
		if err := s.db.GetContext(ctx, &version, "PRAGMA user_version"); err != nil {
			return fmt.Errorf("failed to query schema version: %w", err)
		}
		if version >= schemaVersion {
			s.logger.Debug("Database schema already exists", slog.Int("version", version))
			return nil
		}
		s.logger.Info("Initializing database schema", slog.Int("version", schemaVersion))
		if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
			return fmt.Errorf("failed to set schema version: %w", err)
		}
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start schema transaction: %w", err)
	}
	defer tx.Rollback()

	// PostgreSQL statements are executed one by one.
	for _, stmt := range strings.Split(postgresSchema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" || isCommentOnly(stmt) {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	var count int
	if err := tx.GetContext(ctx, &count, "SELECT COUNT(*) FROM idn_secret_schema_version"); err != nil {
		return fmt.Errorf("failed to query schema version: %w", err)
	}
	if count == 0 {
		if _, err := tx.ExecContext(ctx, "INSERT INTO idn_secret_schema_version (version) VALUES ($1)", schemaVersion); err != nil {
			return fmt.Errorf("failed to set schema version: %w", err)
		}
	}
	return tx.Commit()
}

func isCommentOnly(stmt string) bool {
	for _, line := range strings.Split(stmt, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}
	return true
}

// withTx runs fn in its own transaction. The transaction is rolled back on
// every path that does not commit.
func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	if s.closed.Load() {
		return ErrDatabaseUnavailable
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return s.mapError(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return s.mapError(err)
	}
	if err := tx.Commit(); err != nil {
		return s.mapError(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// Insert stores a new secret
func (s *SQLStore) Insert(ctx context.Context, secret *models.Secret) error {
	query := s.db.Rebind(`INSERT INTO idn_secret (` + selectColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			secret.ID,
			secret.TenantID,
			secret.Name,
			secret.Type,
			secret.Description,
			secret.Ciphertext,
			secret.CreatedTime.UTC().UnixNano(),
			secret.LastModified.UTC().UnixNano(),
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return fmt.Errorf("%w: secret with name '%s'", ErrConflict, secret.Name)
			}
			return fmt.Errorf("failed to insert secret: %w", err)
		}
		return nil
	})
}

// UpdateByName overwrites ciphertext, type, description and last modified time
func (s *SQLStore) UpdateByName(ctx context.Context, tenantID int, name, ciphertext, secretType, description string, lastModified time.Time) (int64, error) {
	query := s.db.Rebind(`UPDATE idn_secret SET secret_value = ?, secret_type = ?, description = ?, last_modified = ?
		WHERE tenant_id = ? AND secret_name = ?`)
	var affected int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, query, ciphertext, secretType, description, lastModified.UTC().UnixNano(), tenantID, name)
		if err != nil {
			return fmt.Errorf("failed to update secret: %w", err)
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected, err
}

// DeleteByName removes a secret by name
func (s *SQLStore) DeleteByName(ctx context.Context, tenantID int, name string) (int64, error) {
	return s.delete(ctx, "secret_name", tenantID, name)
}

// DeleteByID removes a secret by id
func (s *SQLStore) DeleteByID(ctx context.Context, tenantID int, id string) (int64, error) {
	return s.delete(ctx, "secret_id", tenantID, id)
}

func (s *SQLStore) delete(ctx context.Context, column string, tenantID int, value string) (int64, error) {
	query := s.db.Rebind(`DELETE FROM idn_secret WHERE tenant_id = ? AND ` + column + ` = ?`)
	var affected int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, query, tenantID, value)
		if err != nil {
			return fmt.Errorf("failed to delete secret: %w", err)
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected, err
}

// FindByName retrieves a secret by name
func (s *SQLStore) FindByName(ctx context.Context, tenantID int, name string) (*models.Secret, error) {
	return s.find(ctx, "secret_name", tenantID, name)
}

// FindByID retrieves a secret by id
func (s *SQLStore) FindByID(ctx context.Context, tenantID int, id string) (*models.Secret, error) {
	return s.find(ctx, "secret_id", tenantID, id)
}

func (s *SQLStore) find(ctx context.Context, column string, tenantID int, value string) (*models.Secret, error) {
	query := s.db.Rebind(`SELECT ` + selectColumns + ` FROM idn_secret WHERE tenant_id = ? AND ` + column + ` = ?`)
	var row secretRow
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &row, query, tenantID, value); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to query secret: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

// ListByTenant returns the tenant's secrets in insertion order
func (s *SQLStore) ListByTenant(ctx context.Context, tenantID int) ([]*models.Secret, error) {
	query := s.db.Rebind(`SELECT ` + selectColumns + ` FROM idn_secret WHERE tenant_id = ? ORDER BY seq ASC`)
	var rows []secretRow
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.SelectContext(ctx, &rows, query, tenantID); err != nil {
			return fmt.Errorf("failed to list secrets: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := make([]*models.Secret, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].toModel())
	}
	return result, nil
}

// Name returns the backend name
func (s *SQLStore) Name() string {
	return s.backend
}

// Close closes the database connection pool
func (s *SQLStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// mapError translates driver failures into storage sentinel errors.
func (s *SQLStore) mapError(err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return err
	}
	if errors.Is(err, sql.ErrConnDone) || s.closed.Load() {
		return fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && (sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
		return fmt.Errorf("%w: %v", ErrDatabaseLocked, err)
	}
	return err
}

// isUniqueConstraintError checks if the error is a UNIQUE constraint violation
func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}
