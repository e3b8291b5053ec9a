package infra

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	// Ensure sqlcipher driver is registered.
	_ "github.com/mutecomm/go-sqlcipher/v4"
	"github.com/pkg/errors"

	"github.com/eliteGoblin/focusd/actmon/internal/domain"
)

const journalDBName = "journal.db"

// EncryptedJournal implements domain.Journal on a SQLCipher database.
// Each row is one enforcement: who was terminated, how, and what else was swept.
type EncryptedJournal struct {
	db     *sql.DB
	dbPath string
}

// OpenJournal opens the journal in dataDir, creating the key file on first use.
func OpenJournal(dataDir string) (*EncryptedJournal, error) {
	key, err := EnsureKey(NewFileKeyProvider(dataDir))
	if err != nil {
		return nil, errors.Wrap(err, "journal key")
	}
	return NewEncryptedJournal(dataDir, key)
}

// NewEncryptedJournal opens (or creates) the journal database keyed with key.
func NewEncryptedJournal(dataDir string, key []byte) (*EncryptedJournal, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, errors.Wrap(err, "create journal directory")
	}

	dbPath := filepath.Join(dataDir, journalDBName)
	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, hex.EncodeToString(key))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open journal database")
	}

	// A wrong key only shows up on first access.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "connect journal database")
	}

	j := &EncryptedJournal{db: db, dbPath: dbPath}
	if err := j.createTables(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create journal tables")
	}
	return j, nil
}

func (j *EncryptedJournal) createTables() error {
	_, err := j.db.Exec(`
	CREATE TABLE IF NOT EXISTS enforcements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		target TEXT NOT NULL,
		pid INTEGER NOT NULL,
		method TEXT NOT NULL,
		swept_count INTEGER NOT NULL DEFAULT 0,
		error_count INTEGER NOT NULL DEFAULT 0,
		errors TEXT NOT NULL DEFAULT '',
		executed_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_enforcements_executed_at ON enforcements (executed_at);
	`)
	return err
}

// Record appends one termination outcome.
func (j *EncryptedJournal) Record(ctx context.Context, outcome domain.TerminationOutcome) error {
	msgs := make([]string, 0, len(outcome.Errors))
	for _, e := range outcome.Errors {
		msgs = append(msgs, e.Error())
	}

	executedAt := outcome.ExecutedAt
	if executedAt.IsZero() {
		executedAt = time.Now()
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO enforcements (target, pid, method, swept_count, error_count, errors, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		outcome.Target, outcome.PID, string(outcome.Method), outcome.SweptCount,
		len(outcome.Errors), strings.Join(msgs, "\n"), executedAt.UnixMilli(),
	)
	return errors.Wrap(err, "insert enforcement")
}

// Recent returns up to limit entries, newest first. limit <= 0 means all.
func (j *EncryptedJournal) Recent(ctx context.Context, limit int) ([]domain.JournalEntry, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, target, pid, method, swept_count, error_count, executed_at
		FROM enforcements ORDER BY executed_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query enforcements")
	}
	defer rows.Close()

	var entries []domain.JournalEntry
	for rows.Next() {
		var e domain.JournalEntry
		var method string
		var executedAt int64
		if err := rows.Scan(&e.ID, &e.Target, &e.PID, &method, &e.SweptCount, &e.ErrorCount, &executedAt); err != nil {
			return nil, errors.Wrap(err, "scan enforcement")
		}
		e.Method = domain.TerminationMethod(method)
		e.ExecutedAt = time.UnixMilli(executedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Path returns the database file path.
func (j *EncryptedJournal) Path() string {
	return j.dbPath
}

// Close releases the database connection.
func (j *EncryptedJournal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

var _ domain.Journal = (*EncryptedJournal)(nil)
