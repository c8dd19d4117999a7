package credstore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/five82/hotend/internal/ultimaker"
)

// Store persists printer credentials in a local SQLite database, keyed by
// the printer's system GUID. It implements ultimaker.CredentialStore.
type Store struct {
	db        *sql.DB
	closeOnce sync.Once
}

var _ ultimaker.CredentialStore = (*Store)(nil)

// migrations run in order exactly once each; PRAGMA user_version tracks how
// far a database has come. Append only.
var migrations = []string{
	`CREATE TABLE credentials (
		printer_guid   TEXT PRIMARY KEY,
		credential_id  TEXT NOT NULL,
		credential_key TEXT NOT NULL,
		updated_at     INTEGER NOT NULL
	);`,
}

// Open opens the credential database at path, creating the file and its
// directory as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open credential db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := applyMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func applyMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for i := version; i < len(migrations); i++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d;", i+1)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("bump schema version to %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", i+1, err)
		}
	}
	return nil
}

// Load returns the stored pair for a printer, if any.
func (s *Store) Load(deviceID string) (ultimaker.Credentials, bool, error) {
	var creds ultimaker.Credentials
	err := s.db.QueryRow(
		`SELECT credential_id, credential_key FROM credentials WHERE printer_guid = ?;`,
		deviceID,
	).Scan(&creds.ID, &creds.Key)
	if errors.Is(err, sql.ErrNoRows) {
		return ultimaker.Credentials{}, false, nil
	}
	if err != nil {
		return ultimaker.Credentials{}, false, fmt.Errorf("load credentials for %s: %w", deviceID, err)
	}
	return creds, true, nil
}

// Save stores or replaces the pair for a printer.
func (s *Store) Save(deviceID string, creds ultimaker.Credentials) error {
	if deviceID == "" {
		return fmt.Errorf("device id required")
	}
	_, err := s.db.Exec(`
		INSERT INTO credentials (printer_guid, credential_id, credential_key, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(printer_guid) DO UPDATE SET
			credential_id  = excluded.credential_id,
			credential_key = excluded.credential_key,
			updated_at     = excluded.updated_at;`,
		deviceID, creds.ID, creds.Key, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("save credentials for %s: %w", deviceID, err)
	}
	return nil
}

// Delete removes the pair for a printer. Unknown printers are a no-op.
func (s *Store) Delete(deviceID string) error {
	if _, err := s.db.Exec(`DELETE FROM credentials WHERE printer_guid = ?;`, deviceID); err != nil {
		return fmt.Errorf("delete credentials for %s: %w", deviceID, err)
	}
	return nil
}

// Close releases the database handle. Safe to call more than once.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.db.Close()
	})
	return err
}
