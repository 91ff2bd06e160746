// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/namedraw/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// ErrUnavailable marks every failure reaching the database.
var ErrUnavailable = errors.New("storage unavailable")

// Config keys.
const (
	KeyFilterConfig = "filter_config"
	KeySpeechConfig = "speech_config"
	KeyLastReset    = "last_reset"
)

// Store wraps SQLite access for draw state and ledgers.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.init(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// New wraps an existing database handle without running migrations.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) init() error {
	stmts := []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
		`CREATE TABLE IF NOT EXISTS remaining_indices (
			idx INTEGER PRIMARY KEY
		);`,
		`CREATE TABLE IF NOT EXISTS history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			name TEXT NOT NULL,
			tones TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS favorites (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			name TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS excluded (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			name TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS config (
			key TEXT PRIMARY KEY,
			value TEXT
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func wrap(op string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", op, ErrUnavailable, err)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func deleteRemaining(ctx context.Context, ex execer, index int) error {
	if _, err := ex.ExecContext(ctx, `DELETE FROM remaining_indices WHERE idx = ?`, index); err != nil {
		return wrap("delete remaining index", err)
	}
	return nil
}

func insertRemaining(ctx context.Context, ex execer, index int) error {
	if _, err := ex.ExecContext(ctx, `INSERT OR IGNORE INTO remaining_indices (idx) VALUES (?)`, index); err != nil {
		return wrap("insert remaining index", err)
	}
	return nil
}

func appendHistory(ctx context.Context, ex execer, entry model.HistoryEntry) (int64, error) {
	var tones any
	if len(entry.Signature) > 0 {
		raw, err := json.Marshal([]int(entry.Signature))
		if err != nil {
			return 0, fmt.Errorf("failed to encode tones: %w", err)
		}
		tones = string(raw)
	}
	res, err := ex.ExecContext(ctx,
		`INSERT INTO history (timestamp, name, tones) VALUES (?, ?, ?)`,
		entry.Timestamp.Format(time.RFC3339Nano), entry.Name, tones)
	if err != nil {
		return 0, wrap("append history", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrap("read history id", err)
	}
	return id, nil
}

// Tx groups the draw-path mutations of one call.
type Tx struct {
	tx *sql.Tx
}

// Begin starts a transaction for the draw path.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrap("begin transaction", err)
	}
	return &Tx{tx: tx}, nil
}

// DeleteRemaining removes an index from the remaining set.
func (t *Tx) DeleteRemaining(ctx context.Context, index int) error {
	return deleteRemaining(ctx, t.tx, index)
}

// InsertRemaining adds an index to the remaining set if absent.
func (t *Tx) InsertRemaining(ctx context.Context, index int) error {
	return insertRemaining(ctx, t.tx, index)
}

// AppendHistory records an accepted draw and returns its id.
func (t *Tx) AppendHistory(ctx context.Context, entry model.HistoryEntry) (int64, error) {
	return appendHistory(ctx, t.tx, entry)
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return wrap("commit transaction", err)
	}
	return nil
}

// Rollback aborts the transaction.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// DeleteRemaining removes an index from the remaining set.
func (s *Store) DeleteRemaining(ctx context.Context, index int) error {
	return deleteRemaining(ctx, s.db, index)
}

// InsertRemaining adds an index to the remaining set if absent.
func (s *Store) InsertRemaining(ctx context.Context, index int) error {
	return insertRemaining(ctx, s.db, index)
}

// AppendHistory records an accepted draw and returns its id.
func (s *Store) AppendHistory(ctx context.Context, entry model.HistoryEntry) (int64, error) {
	return appendHistory(ctx, s.db, entry)
}

// ReplaceRemaining atomically swaps the remaining set for indices.
func (s *Store) ReplaceRemaining(ctx context.Context, indices []int) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("begin replace", err)
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM remaining_indices`); err != nil {
		return wrap("clear remaining indices", err)
	}
	if len(indices) > 0 {
		stmt, perr := tx.PrepareContext(ctx, `INSERT INTO remaining_indices (idx) VALUES (?)`)
		if perr != nil {
			err = wrap("prepare remaining insert", perr)
			return err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, idx := range indices {
			if _, err = stmt.ExecContext(ctx, idx); err != nil {
				return wrap("insert remaining index", err)
			}
		}
	}
	if err = tx.Commit(); err != nil {
		return wrap("commit replace", err)
	}
	return nil
}

// ListRemaining returns every remaining index.
func (s *Store) ListRemaining(ctx context.Context) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT idx FROM remaining_indices`)
	if err != nil {
		return nil, wrap("list remaining indices", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []int
	for rows.Next() {
		var idx int
		if err := rows.Scan(&idx); err != nil {
			return nil, wrap("scan remaining index", err)
		}
		result = append(result, idx)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list remaining indices", err)
	}
	return result, nil
}

// ListHistory returns accepted draws in insertion order.
func (s *Store) ListHistory(ctx context.Context) ([]model.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, timestamp, name, tones FROM history ORDER BY id ASC`)
	if err != nil {
		return nil, wrap("list history", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.HistoryEntry
	for rows.Next() {
		entry, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list history", err)
	}
	return result, nil
}

// PopLastHistory deletes and returns the newest history entry.
func (s *Store) PopLastHistory(ctx context.Context) (entry model.HistoryEntry, found bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.HistoryEntry{}, false, wrap("begin pop history", err)
	}
	defer func() {
		if err != nil || !found {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	row := tx.QueryRowContext(ctx, `SELECT id, timestamp, name, tones FROM history ORDER BY id DESC LIMIT 1`)
	entry, err = scanHistory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.HistoryEntry{}, false, nil
	}
	if err != nil {
		return model.HistoryEntry{}, false, err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM history WHERE id = ?`, entry.ID); err != nil {
		return model.HistoryEntry{}, false, wrap("delete history", err)
	}
	if err = tx.Commit(); err != nil {
		return model.HistoryEntry{}, false, wrap("commit pop history", err)
	}
	return entry, true, nil
}

// DeleteHistory removes a history entry by id.
func (s *Store) DeleteHistory(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "history", id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanHistory(row scanner) (model.HistoryEntry, error) {
	var entry model.HistoryEntry
	var ts string
	var tones sql.NullString
	if err := row.Scan(&entry.ID, &ts, &entry.Name, &tones); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entry, err
		}
		return entry, wrap("scan history", err)
	}
	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return entry, fmt.Errorf("failed to parse history timestamp %q: %w", ts, err)
	}
	entry.Timestamp = parsed
	if tones.Valid && tones.String != "" {
		var sig []int
		if err := json.Unmarshal([]byte(tones.String), &sig); err != nil {
			return entry, fmt.Errorf("failed to decode tones %q: %w", tones.String, err)
		}
		if len(sig) > 0 {
			entry.Signature = model.Signature(sig)
		}
	}
	return entry, nil
}

// AppendFavorite records a favorite name.
func (s *Store) AppendFavorite(ctx context.Context, entry model.LedgerEntry) (int64, error) {
	return s.appendLedger(ctx, "favorites", entry)
}

// ListFavorites returns favorites oldest first.
func (s *Store) ListFavorites(ctx context.Context) ([]model.LedgerEntry, error) {
	return s.listLedger(ctx, "favorites", "ASC")
}

// DeleteFavorite removes a favorite by id.
func (s *Store) DeleteFavorite(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "favorites", id)
}

// AppendExcluded records a permanently excluded name.
func (s *Store) AppendExcluded(ctx context.Context, entry model.LedgerEntry) (int64, error) {
	return s.appendLedger(ctx, "excluded", entry)
}

// ListExcluded returns exclusions newest first.
func (s *Store) ListExcluded(ctx context.Context) ([]model.LedgerEntry, error) {
	return s.listLedger(ctx, "excluded", "DESC")
}

// GetExcluded looks up one exclusion.
func (s *Store) GetExcluded(ctx context.Context, id int64) (model.LedgerEntry, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, timestamp, name FROM excluded WHERE id = ?`, id)
	entry, err := scanLedger(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.LedgerEntry{}, false, nil
	}
	if err != nil {
		return model.LedgerEntry{}, false, err
	}
	return entry, true, nil
}

// DeleteExcluded removes an exclusion by id.
func (s *Store) DeleteExcluded(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "excluded", id)
}

// ClearLedgers empties history, favorites and excluded in one transaction.
func (s *Store) ClearLedgers(ctx context.Context) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("begin clear ledgers", err)
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()
	for _, table := range []string{"history", "favorites", "excluded"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return wrap("clear "+table, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return wrap("commit clear ledgers", err)
	}
	return nil
}

func (s *Store) appendLedger(ctx context.Context, table string, entry model.LedgerEntry) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO "+table+" (timestamp, name) VALUES (?, ?)",
		entry.Timestamp.Format(time.RFC3339Nano), entry.Name)
	if err != nil {
		return 0, wrap("append "+table, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrap("read "+table+" id", err)
	}
	return id, nil
}

func (s *Store) listLedger(ctx context.Context, table, order string) ([]model.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, timestamp, name FROM "+table+" ORDER BY id "+order)
	if err != nil {
		return nil, wrap("list "+table, err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.LedgerEntry
	for rows.Next() {
		entry, err := scanLedger(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list "+table, err)
	}
	return result, nil
}

func scanLedger(row scanner) (model.LedgerEntry, error) {
	var entry model.LedgerEntry
	var ts string
	if err := row.Scan(&entry.ID, &ts, &entry.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entry, err
		}
		return entry, wrap("scan ledger entry", err)
	}
	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return entry, fmt.Errorf("failed to parse ledger timestamp %q: %w", ts, err)
	}
	entry.Timestamp = parsed
	return entry, nil
}

func (s *Store) deleteByID(ctx context.Context, table string, id int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id); err != nil {
		return wrap("delete from "+table, err)
	}
	return nil
}

// GetConfig returns the raw JSON stored under key.
func (s *Store) GetConfig(ctx context.Context, key string) (string, bool, error) {
	var value sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrap("read config "+key, err)
	}
	return value.String, value.Valid, nil
}

// SetConfig upserts the raw JSON value for key.
func (s *Store) SetConfig(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO config (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return wrap("write config "+key, err)
	}
	return nil
}

// LoadJSON decodes the value under key into v. It reports false when the key is absent.
func (s *Store) LoadJSON(ctx context.Context, key string, v any) (bool, error) {
	raw, ok, err := s.GetConfig(ctx, key)
	if err != nil || !ok || raw == "" {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("failed to decode config %s: %w", key, err)
	}
	return true, nil
}

// SaveJSON encodes v and stores it under key.
func (s *Store) SaveJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode config %s: %w", key, err)
	}
	return s.SetConfig(ctx, key, string(raw))
}
