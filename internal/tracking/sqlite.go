package tracking

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/catherinevee/tenantcleaner/internal/models"
)

// SQLiteStore persists tracker records in a local SQLite database
type SQLiteStore struct {
	conn *sql.DB
}

// DefaultDatabasePath returns the default location of the tracker database
func DefaultDatabasePath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".tenantcleaner", "tracker.db")
}

// NewSQLiteStore opens (creating if necessary) the tracker database at path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer at a time; the tracker serializes access anyway.
	conn.SetMaxOpenConns(1)

	store := &SQLiteStore{conn: conn}
	if err := store.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tracked_items (
		item_type  TEXT NOT NULL,
		identifier TEXT NOT NULL,
		created    TIMESTAMP NOT NULL,
		PRIMARY KEY (item_type, identifier)
	);
	CREATE INDEX IF NOT EXISTS idx_tracked_items_type ON tracked_items(item_type);
	`
	_, err := s.conn.Exec(schema)
	return err
}

func (s *SQLiteStore) Insert(key models.Key, created time.Time) error {
	_, err := s.conn.Exec(
		`INSERT INTO tracked_items (item_type, identifier, created) VALUES (?, ?, ?)`,
		key.Type.String(), key.ID.String(), created.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(key models.Key) error {
	_, err := s.conn.Exec(
		`DELETE FROM tracked_items WHERE item_type = ? AND identifier = ?`,
		key.Type.String(), key.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Created(key models.Key) (time.Time, bool, error) {
	var created time.Time
	err := s.conn.QueryRow(
		`SELECT created FROM tracked_items WHERE item_type = ? AND identifier = ?`,
		key.Type.String(), key.ID.String(),
	).Scan(&created)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read record: %w", err)
	}
	return created, true, nil
}

func (s *SQLiteStore) Identifiers(filter *models.ItemType) ([]models.Identifier, error) {
	query := `SELECT identifier FROM tracked_items`
	args := []interface{}{}
	if filter != nil {
		query += ` WHERE item_type = ?`
		args = append(args, filter.String())
	}

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list identifiers: %w", err)
	}
	defer rows.Close()

	var ids []models.Identifier
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan identifier: %w", err)
		}
		ids = append(ids, models.Identifier(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list identifiers: %w", err)
	}
	return ids, nil
}

func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
