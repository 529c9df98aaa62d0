package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/codefuturist/mailwatch/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// GetWatchState returns the last-seen UID for a target, or 0 when the
// target has no stored state.
func (s *SQLiteStore) GetWatchState(
	ctx context.Context,
	account, folder string,
) (uint32, error) {
	var lastUID uint32
	err := s.db.GetContext(ctx, &lastUID,
		"SELECT last_uid FROM watch_state WHERE account = ? AND folder = ?",
		account, folder,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("getting watch state %s/%s: %w", account, folder, err)
	}
	return lastUID, nil
}

// SetWatchState upserts the last-seen UID for a target.
func (s *SQLiteStore) SetWatchState(
	ctx context.Context,
	account, folder string,
	lastUID uint32,
) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO watch_state (account, folder, last_uid, updated_at)
		VALUES (?, ?, ?, ?)`,
		account, folder, lastUID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("setting watch state %s/%s: %w", account, folder, err)
	}
	return nil
}

// RecordTriage inserts one triage audit record.
func (s *SQLiteStore) RecordTriage(
	ctx context.Context,
	rec model.TriageRecord,
) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	labels, err := json.Marshal(rec.Labels)
	if err != nil {
		return fmt.Errorf("marshaling labels: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO triage_log (
			id, account, folder, uid, sender, subject,
			path, rule_name, priority, labels, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Account, rec.Folder, rec.UID, rec.Sender, rec.Subject,
		string(rec.Path), rec.RuleName, string(rec.Priority),
		string(labels), rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording triage for %s/%d: %w", rec.Account, rec.UID, err)
	}
	return nil
}

// RecentTriage returns the newest triage records, most recent first.
func (s *SQLiteStore) RecentTriage(
	ctx context.Context,
	limit int,
) ([]model.TriageRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, account, folder, uid, sender, subject,
		       path, rule_name, priority, labels, created_at
		FROM triage_log ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying triage log: %w", err)
	}
	defer rows.Close()

	var records []model.TriageRecord
	for rows.Next() {
		rec, err := scanTriageRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// TouchAccount upserts the changed-at marker for an account.
func (s *SQLiteStore) TouchAccount(ctx context.Context, account string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO account_changes (account, changed_at)
		VALUES (?, ?)`,
		account, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("touching account %s: %w", account, err)
	}
	return nil
}

// scanTriageRecord scans a triage row from a sqlx.Rows result set.
func scanTriageRecord(rows *sqlx.Rows) (model.TriageRecord, error) {
	var (
		rec       model.TriageRecord
		path      string
		priority  string
		labels    string
		createdAt time.Time
	)

	err := rows.Scan(
		&rec.ID, &rec.Account, &rec.Folder, &rec.UID, &rec.Sender, &rec.Subject,
		&path, &rec.RuleName, &priority, &labels, &createdAt,
	)
	if err != nil {
		return model.TriageRecord{}, fmt.Errorf("scanning triage row: %w", err)
	}

	rec.Path = model.TriagePath(path)
	rec.Priority = model.Priority(priority)
	rec.CreatedAt = createdAt

	if labels != "" {
		if err := json.Unmarshal([]byte(labels), &rec.Labels); err != nil {
			return model.TriageRecord{}, fmt.Errorf("unmarshaling labels: %w", err)
		}
	}

	return rec, nil
}

var _ Store = (*SQLiteStore)(nil)
