/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements all persistence contracts using SQLite. In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  loyalty.Store:          Users, balances, append-only entry log
  notify.PreferenceStore: Per-user reminder configuration (defaults applied here)
  notify.ReminderStore:   Reminder records with per-channel outcomes
  notify.DueStore:        Overdue-user query for the sweep
  notify.ContactStore:    Delivery targets

APPEND-ONLY ENFORCEMENT:
  The entries table is append-only:
  - No UPDATE statements on entries
  - No DELETE statements on entries

ATOMIC BALANCE DELTA:
  ApplyDelta is a single conditional UPDATE guarded by the floor check
  ("... WHERE balance + delta >= 0"), so concurrent earns/redeems for the
  same user can never race on a stale read. The balance column additionally
  carries a CHECK(balance >= 0) constraint.

KEY TABLES:
  users:        Account, balance, derived tier
  entries:      Immutable points ledger
  preferences:  Reminder channel toggles and cooldown
  reminders:    Reminder records (channel results as JSON)

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/ecorewards.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). Versioned migration tooling is out of
  scope for this service.

SEE ALSO:
  - loyalty/store.go: Interface definitions
  - notify/store.go: Reminder-side contracts
  - loyalty/store/memory.go: In-memory implementation for testing
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

	"github.com/ecorewards/loyalty-engine/loyalty"
	"github.com/ecorewards/loyalty-engine/notify"
)

// Store implements all storage interfaces using SQLite.
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
	-- Users (balance mutated only via ApplyDelta)
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT UNIQUE NOT NULL,
		email TEXT,
		balance INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
		tier TEXT NOT NULL DEFAULT 'bronze',
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email
		ON users(email) WHERE email IS NOT NULL AND email != '';

	-- Entries (append-only points ledger)
	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		kind TEXT NOT NULL CHECK (kind IN ('earn', 'redeem')),
		amount INTEGER NOT NULL CHECK (amount > 0),
		description TEXT,
		created_at TEXT NOT NULL
	);

	-- Composite index for history queries (hot path)
	CREATE INDEX IF NOT EXISTS idx_entries_user_created
		ON entries(user_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_entries_kind
		ON entries(kind);

	-- Reminder preferences (absent row = defaults)
	CREATE TABLE IF NOT EXISTS preferences (
		user_id TEXT PRIMARY KEY REFERENCES users(id),
		sms INTEGER NOT NULL DEFAULT 1,
		email INTEGER NOT NULL DEFAULT 1,
		reminders_enabled INTEGER NOT NULL DEFAULT 1,
		cooldown_days INTEGER NOT NULL DEFAULT 30
	);

	-- Reminder records (superseded, never overwritten, by later cycles)
	CREATE TABLE IF NOT EXISTS reminders (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		due_at TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		channel_results_json TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reminders_user_created
		ON reminders(user_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_reminders_user_status
		ON reminders(user_id, status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// USERS (loyalty.Store interface)
// =============================================================================

// CreateUser inserts a new user record.
func (s *Store) CreateUser(ctx context.Context, user loyalty.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.Tier == "" {
		user.Tier = loyalty.TierOf(user.Balance)
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, phone, email, balance, tier, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Phone, user.Email,
		user.Balance, user.Tier, user.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return loyalty.ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser returns the user, or loyalty.ErrUserNotFound.
func (s *Store) GetUser(ctx context.Context, id loyalty.UserID) (*loyalty.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getUser(ctx, id)
}

func (s *Store) getUser(ctx context.Context, id loyalty.UserID) (*loyalty.User, error) {
	var (
		user      loyalty.User
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, COALESCE(email, ''), balance, tier, created_at
		FROM users WHERE id = ?`, id,
	).Scan(&user.ID, &user.Name, &user.Phone, &user.Email, &user.Balance, &user.Tier, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, loyalty.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &user, nil
}

// ListUsers returns all users ordered by creation time.
func (s *Store) ListUsers(ctx context.Context) ([]loyalty.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, COALESCE(email, ''), balance, tier, created_at
		FROM users ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []loyalty.User
	for rows.Next() {
		var (
			user      loyalty.User
			createdAt string
		)
		if err := rows.Scan(&user.ID, &user.Name, &user.Phone, &user.Email,
			&user.Balance, &user.Tier, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		user.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		users = append(users, user)
	}
	return users, rows.Err()
}

// ApplyDelta atomically adjusts a user's balance. The floor check is part of
// the UPDATE itself - there is no separate read that could go stale.
func (s *Store) ApplyDelta(ctx context.Context, id loyalty.UserID, delta int64, floorAtZero bool) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `UPDATE users SET balance = balance + ? WHERE id = ?`
	args := []any{delta, id}
	if floorAtZero {
		query += ` AND balance + ? >= 0`
		args = append(args, delta)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, false, fmt.Errorf("failed to apply delta: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("failed to apply delta: %w", err)
	}

	var balance int64
	err = s.db.QueryRowContext(ctx, `SELECT balance FROM users WHERE id = ?`, id).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, loyalty.ErrUserNotFound
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read balance: %w", err)
	}

	return balance, affected > 0, nil
}

// SetTier records the derived tier.
func (s *Store) SetTier(ctx context.Context, id loyalty.UserID, tier loyalty.Tier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE users SET tier = ? WHERE id = ?`, tier, id)
	if err != nil {
		return fmt.Errorf("failed to set tier: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return loyalty.ErrUserNotFound
	}
	return nil
}

// =============================================================================
// ENTRIES (append-only ledger)
// =============================================================================

// AppendEntry adds a ledger entry. The ONLY write on the entries table.
func (s *Store) AppendEntry(ctx context.Context, entry loyalty.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entries (id, user_id, kind, amount, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.UserID, entry.Kind, entry.Amount,
		entry.Description, entry.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append entry: %w", err)
	}
	return nil
}

// ListEntries returns the user's entries, newest first.
func (s *Store) ListEntries(ctx context.Context, id loyalty.UserID, limit int) ([]loyalty.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, user_id, kind, amount, COALESCE(description, ''), created_at
		FROM entries
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`
	args := []any{id}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []loyalty.Entry
	for rows.Next() {
		var (
			entry     loyalty.Entry
			createdAt string
		)
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Kind, &entry.Amount,
			&entry.Description, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entry.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// =============================================================================
// PREFERENCES (notify.PreferenceStore interface)
// =============================================================================

// GetPreferences resolves the user's reminder preference. A missing row
// yields the fully-populated default; defaulting happens here and only here.
func (s *Store) GetPreferences(ctx context.Context, userID loyalty.UserID) (notify.Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pref notify.Preference
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, sms, email, reminders_enabled, cooldown_days
		FROM preferences WHERE user_id = ?`, userID,
	).Scan(&pref.UserID, &pref.SMS, &pref.Email, &pref.RemindersEnabled, &pref.CooldownDays)
	if errors.Is(err, sql.ErrNoRows) {
		return notify.DefaultPreference(userID), nil
	}
	if err != nil {
		return notify.Preference{}, fmt.Errorf("failed to get preferences: %w", err)
	}
	return pref, nil
}

// SavePreferences stores the full preference row.
func (s *Store) SavePreferences(ctx context.Context, pref notify.Preference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (user_id, sms, email, reminders_enabled, cooldown_days)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			sms = excluded.sms,
			email = excluded.email,
			reminders_enabled = excluded.reminders_enabled,
			cooldown_days = excluded.cooldown_days`,
		pref.UserID, pref.SMS, pref.Email, pref.RemindersEnabled, pref.CooldownDays,
	)
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

// =============================================================================
// REMINDERS (notify.ReminderStore interface)
// =============================================================================

// CreateReminder inserts a new reminder record.
func (s *Store) CreateReminder(ctx context.Context, rec notify.ReminderRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	resultsJSON, err := marshalResults(rec.ChannelResults)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reminders (id, user_id, due_at, status, channel_results_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID,
		rec.DueAt.UTC().Format(time.RFC3339),
		rec.Status, resultsJSON,
		rec.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create reminder: %w", err)
	}
	return nil
}

// UpdateReminder writes the post-dispatch status and channel results.
func (s *Store) UpdateReminder(ctx context.Context, rec notify.ReminderRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	resultsJSON, err := marshalResults(rec.ChannelResults)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE reminders SET status = ?, channel_results_json = ? WHERE id = ?`,
		rec.Status, resultsJSON, rec.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update reminder: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("reminder %s not found", rec.ID)
	}
	return nil
}

// HasActiveReminder reports whether a pending record exists for the user.
func (s *Store) HasActiveReminder(ctx context.Context, userID loyalty.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reminders WHERE user_id = ? AND status = 'pending'`,
		userID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check active reminder: %w", err)
	}
	return count > 0, nil
}

// ListReminders returns the user's reminder records, newest first.
func (s *Store) ListReminders(ctx context.Context, userID loyalty.UserID, limit int) ([]notify.ReminderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, user_id, due_at, status, COALESCE(channel_results_json, ''), created_at
		FROM reminders
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	defer rows.Close()

	var records []notify.ReminderRecord
	for rows.Next() {
		var (
			rec         notify.ReminderRecord
			dueAt       string
			resultsJSON string
			createdAt   string
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &dueAt, &rec.Status, &resultsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		rec.DueAt, _ = time.Parse(time.RFC3339, dueAt)
		rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		if resultsJSON != "" {
			json.Unmarshal([]byte(resultsJSON), &rec.ChannelResults)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// =============================================================================
// DUE QUERY (notify.DueStore interface)
// =============================================================================

// ListUsersDue returns users with reminders enabled and no qualifying
// payment earn within their cooldown window. Users without a preference row
// fall back to the provided default cooldown with reminders enabled.
func (s *Store) ListUsersDue(ctx context.Context, cooldownDays int) ([]loyalty.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id
		FROM users u
		LEFT JOIN preferences p ON p.user_id = u.id
		WHERE COALESCE(p.reminders_enabled, 1) = 1
		AND NOT EXISTS (
			SELECT 1 FROM entries e
			WHERE e.user_id = u.id
			  AND e.kind = 'earn'
			  AND instr(lower(e.description), 'payment') > 0
			  AND datetime(e.created_at) > datetime('now', '-' || COALESCE(p.cooldown_days, ?) || ' days')
		)
		ORDER BY u.id ASC`, cooldownDays)
	if err != nil {
		return nil, fmt.Errorf("failed to list due users: %w", err)
	}
	defer rows.Close()

	var ids []loyalty.UserID
	for rows.Next() {
		var id loyalty.UserID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan due user: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// =============================================================================
// CONTACTS (notify.ContactStore interface)
// =============================================================================

// GetContact returns delivery targets for a user.
func (s *Store) GetContact(ctx context.Context, userID loyalty.UserID) (notify.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return notify.Contact{}, err
	}
	return notify.Contact{Name: user.Name, Phone: user.Phone, Email: user.Email}, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func marshalResults(results map[notify.Channel]notify.ChannelResult) (string, error) {
	if len(results) == 0 {
		return "", nil
	}
	b, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("failed to marshal channel results: %w", err)
	}
	return string(b), nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Interface conformance checks.
var (
	_ loyalty.Store          = (*Store)(nil)
	_ notify.PreferenceStore = (*Store)(nil)
	_ notify.ReminderStore   = (*Store)(nil)
	_ notify.DueStore        = (*Store)(nil)
	_ notify.ContactStore    = (*Store)(nil)
)
