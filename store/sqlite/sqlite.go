/*
Package sqlite provides a SQLite-backed implementation of history.Repository.

PURPOSE:
  Persists the calculation log and named calendar profiles for the server.

INTERFACES IMPLEMENTED:
  history.Store:        Calculation records (append, list, exists, prune)
  history.ProfileStore: Named profiles (save, get, list, delete)

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on calculations
  - DELETE only through Prune, by age
  - Idempotency keys live in their own table and survive Prune, so a retried
    request whose original record was pruned is still rejected

KEY TABLES:
  calculations:     One row per answered request
  idempotency_keys: Every key ever accepted
  profiles:         Named zone/week settings

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, with WAL mode for concurrent readers.

USAGE:
  store, err := sqlite.New("./data/calendar.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - history/history.go: Interface definitions
  - history/store/memory.go: In-memory implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/calendar-engine/calendar"
	"github.com/warp/calendar-engine/history"
)

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements history.Repository using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS calculations (
		id TEXT PRIMARY KEY,
		operation TEXT NOT NULL,
		field TEXT NOT NULL,
		rounding TEXT,
		zone TEXT NOT NULL,
		operands_json TEXT NOT NULL,
		result TEXT NOT NULL,
		fraction TEXT,
		idempotency_key TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_calculations_created_at
		ON calculations(created_at);
	CREATE INDEX IF NOT EXISTS idx_calculations_operation
		ON calculations(operation, created_at);

	CREATE TABLE IF NOT EXISTS idempotency_keys (
		key TEXT PRIMARY KEY,
		calculation_id TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS profiles (
		name TEXT PRIMARY KEY,
		zone TEXT NOT NULL,
		first_day INTEGER NOT NULL,
		lenient INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CALCULATION STORE (history.Store interface)
// =============================================================================

// Append adds a record to the log.
func (s *Store) Append(ctx context.Context, r history.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	operands, err := json.Marshal(r.Operands)
	if err != nil {
		return fmt.Errorf("failed to encode operands: %w", err)
	}
	var fraction sql.NullString
	if r.Fraction.Valid {
		fraction = sql.NullString{String: r.Fraction.Decimal.String(), Valid: true}
	}
	createdAt := r.CreatedAt.UTC().Format(timeLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if r.IdempotencyKey != "" {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO idempotency_keys (key, calculation_id, created_at) VALUES (?, ?, ?)",
			r.IdempotencyKey, r.ID, createdAt,
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return history.ErrDuplicateIdempotencyKey
			}
			return fmt.Errorf("failed to reserve idempotency key: %w", err)
		}
	}

	query := `
		INSERT INTO calculations
		(id, operation, field, rounding, zone, operands_json, result, fraction, idempotency_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		r.ID,
		string(r.Operation),
		r.Field.String(),
		nullString(r.Rounding),
		r.Zone,
		string(operands),
		r.Result,
		fraction,
		nullString(r.IdempotencyKey),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append calculation: %w", err)
	}

	return tx.Commit()
}

// List returns matching records, newest first.
func (s *Store) List(ctx context.Context, f history.Filter) ([]history.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		where []string
		args  []any
	)
	if f.Operation != "" {
		where = append(where, "operation = ?")
		args = append(args, string(f.Operation))
	}
	if !f.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, f.Since.UTC().Format(timeLayout))
	}

	query := `
		SELECT id, operation, field, rounding, zone, operands_json, result, fraction, idempotency_key, created_at
		FROM calculations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query calculations: %w", err)
	}
	defer rows.Close()

	var records []history.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Exists checks if an idempotency key was ever accepted.
func (s *Store) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM idempotency_keys WHERE key = ?",
		idempotencyKey,
	).Scan(&count)

	return count > 0, err
}

// Prune deletes calculations created before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM calculations WHERE created_at < ?",
		cutoff.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune calculations: %w", err)
	}
	return res.RowsAffected()
}

func scanRecord(rows *sql.Rows) (history.Record, error) {
	var (
		r              history.Record
		operation      string
		field          string
		rounding       sql.NullString
		operandsJSON   string
		fraction       sql.NullString
		idempotencyKey sql.NullString
		createdAt      string
	)

	err := rows.Scan(
		&r.ID, &operation, &field, &rounding, &r.Zone, &operandsJSON,
		&r.Result, &fraction, &idempotencyKey, &createdAt,
	)
	if err != nil {
		return r, fmt.Errorf("failed to scan calculation: %w", err)
	}

	r.Operation = history.Operation(operation)
	if r.Field, err = calendar.ParseField(field); err != nil {
		return r, fmt.Errorf("calculation %s: %w", r.ID, err)
	}
	r.Rounding = rounding.String
	r.IdempotencyKey = idempotencyKey.String
	if err := json.Unmarshal([]byte(operandsJSON), &r.Operands); err != nil {
		return r, fmt.Errorf("calculation %s operands: %w", r.ID, err)
	}
	if fraction.Valid {
		d, err := decimal.NewFromString(fraction.String)
		if err != nil {
			return r, fmt.Errorf("calculation %s fraction: %w", r.ID, err)
		}
		r.Fraction = decimal.NewNullDecimal(d)
	}
	r.CreatedAt, _ = time.Parse(timeLayout, createdAt)

	return r, nil
}

// =============================================================================
// PROFILE STORE (history.ProfileStore interface)
// =============================================================================

// SaveProfile inserts or replaces a profile.
func (s *Store) SaveProfile(ctx context.Context, p history.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO profiles (name, zone, first_day, lenient, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			zone = excluded.zone,
			first_day = excluded.first_day,
			lenient = excluded.lenient,
			updated_at = excluded.updated_at
	`

	updatedAt := p.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, query,
		p.Name, p.Zone, int(p.FirstDay), p.Lenient, updatedAt.UTC().Format(timeLayout),
	)
	return err
}

// GetProfile retrieves a profile by name.
func (s *Store) GetProfile(ctx context.Context, name string) (history.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT name, zone, first_day, lenient, updated_at FROM profiles WHERE name = ?",
		name,
	)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return history.Profile{}, history.ErrNotFound
	}
	return p, err
}

// ListProfiles returns all profiles ordered by name.
func (s *Store) ListProfiles(ctx context.Context) ([]history.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT name, zone, first_day, lenient, updated_at FROM profiles ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := []history.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// DeleteProfile removes a profile.
func (s *Store) DeleteProfile(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM profiles WHERE name = ?", name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return history.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (history.Profile, error) {
	var (
		p         history.Profile
		firstDay  int
		updatedAt string
	)
	if err := row.Scan(&p.Name, &p.Zone, &firstDay, &p.Lenient, &updatedAt); err != nil {
		return p, err
	}
	p.FirstDay = time.Weekday(firstDay)
	p.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return p, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"calculations", "idempotency_keys", "profiles"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
