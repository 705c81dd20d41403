package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/libratbag/ratbag-go/pkg/model"
)

// SQLiteJournal stores commits in an SQLite database.
type SQLiteJournal struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteJournal opens or creates the journal at dbPath.
// Use ":memory:" for an in-memory database.
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: an in-memory database is per connection.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		PRAGMA foreign_keys = ON;
		PRAGMA journal_mode = WAL;
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	j := &SQLiteJournal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return j, nil
}

func (j *SQLiteJournal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS commits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sysname TEXT NOT NULL,
		committed_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS commit_profiles (
		commit_id INTEGER NOT NULL REFERENCES commits(id) ON DELETE CASCADE,
		profile_index INTEGER NOT NULL,
		state_json TEXT NOT NULL,
		PRIMARY KEY (commit_id, profile_index)
	);

	CREATE INDEX IF NOT EXISTS idx_commits_sysname ON commits(sysname);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// Begin inserts the entry inside a database transaction.
func (j *SQLiteJournal) Begin(ctx context.Context, cs *model.Changeset) (Tx, error) {
	j.mu.Lock()
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		j.mu.Unlock()
		return nil, err
	}
	stx := &sqliteTx{tx: tx, unlock: j.mu.Unlock}

	res, err := tx.ExecContext(ctx, `INSERT INTO commits (sysname, committed_at) VALUES (?, ?)`,
		cs.Device.Sysname, time.Now().UTC())
	if err != nil {
		_ = stx.Rollback()
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		_ = stx.Rollback()
		return nil, err
	}

	for _, p := range cs.Profiles {
		data, err := json.Marshal(p)
		if err != nil {
			_ = stx.Rollback()
			return nil, err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO commit_profiles (commit_id, profile_index, state_json)
			VALUES (?, ?, ?)
		`, id, p.Index, string(data))
		if err != nil {
			_ = stx.Rollback()
			return nil, err
		}
	}
	return stx, nil
}

// Entries returns the commits of sysname, oldest first.
func (j *SQLiteJournal) Entries(ctx context.Context, sysname string) ([]Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	rows, err := j.db.QueryContext(ctx, `
		SELECT c.id, c.committed_at, p.state_json
		FROM commits c JOIN commit_profiles p ON p.commit_id = c.id
		WHERE c.sysname = ?
		ORDER BY c.id, p.profile_index
	`, sysname)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var id int64
		var at time.Time
		var state string
		if err := rows.Scan(&id, &at, &state); err != nil {
			return nil, err
		}
		var p model.ProfileState
		if err := json.Unmarshal([]byte(state), &p); err != nil {
			return nil, fmt.Errorf("commit %d: %w", id, err)
		}
		if n := len(entries); n == 0 || entries[n-1].ID != id {
			entries = append(entries, Entry{ID: id, Sysname: sysname, CommittedAt: at})
		}
		last := &entries[len(entries)-1]
		last.Profiles = append(last.Profiles, p)
	}
	return entries, rows.Err()
}

// Prune deletes all but the newest keep commits of sysname.
func (j *SQLiteJournal) Prune(ctx context.Context, sysname string, keep int) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	res, err := j.db.ExecContext(ctx, `
		DELETE FROM commits WHERE sysname = ? AND id NOT IN (
			SELECT id FROM commits WHERE sysname = ? ORDER BY id DESC LIMIT ?
		)
	`, sysname, sysname, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type sqliteTx struct {
	tx     *sql.Tx
	unlock func()
	done   bool
}

func (t *sqliteTx) Commit() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	defer t.unlock()
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	defer t.unlock()
	return t.tx.Rollback()
}
