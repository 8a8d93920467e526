// Package storage persists small per-charge-code local flags, read back on
// the next load of the same charge to bias which terminal screen is shown.
package storage

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var ErrClosed = errors.New("storage closed")

// Flags is the per-charge-code local record.
type Flags struct {
	IsOAuthPayment bool
}

// Store reads and writes per-charge flags.
type Store interface {
	// Flags returns the stored flags for a charge code; the bool reports
	// whether a record exists.
	Flags(code string) (Flags, bool, error)
	PutFlags(code string, f Flags) error
	Close() error
}

// SQLiteStore is a sqlite-backed Store.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and initializes) a sqlite-backed store at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS charge_flags (
		code TEXT PRIMARY KEY,
		is_oauth_payment INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL
	)`)
	return err
}

func (s *SQLiteStore) Flags(code string) (Flags, bool, error) {
	var oauth int
	err := s.db.QueryRow(
		`SELECT is_oauth_payment FROM charge_flags WHERE code = ?`, code,
	).Scan(&oauth)
	if errors.Is(err, sql.ErrNoRows) {
		return Flags{}, false, nil
	}
	if err != nil {
		return Flags{}, false, err
	}
	return Flags{IsOAuthPayment: oauth != 0}, true, nil
}

func (s *SQLiteStore) PutFlags(code string, f Flags) error {
	oauth := 0
	if f.IsOAuthPayment {
		oauth = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO charge_flags (code, is_oauth_payment, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(code) DO UPDATE SET
		   is_oauth_payment = excluded.is_oauth_payment,
		   updated_at = excluded.updated_at`,
		code, oauth, time.Now().Unix(),
	)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
