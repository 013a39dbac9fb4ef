package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/chatrelay/internal/domain"
	"github.com/ashureev/chatrelay/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db    *sql.DB
	retry shared.RetryPolicy
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db, retry: shared.DefaultRetryPolicy}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp, id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Append inserts one entry.
func (s *SQLiteStore) Append(ctx context.Context, entry *domain.ChatEntry) error {
	if err := validateEntry(entry); err != nil {
		return err
	}

	query := `INSERT INTO messages (user, content, timestamp) VALUES (?, ?, ?)`
	err := shared.RetryOnConflict(ctx, s.retry, "append", func() error {
		_, err := s.db.ExecContext(ctx, query, string(entry.Author), entry.Text, entry.CreatedAt.UnixNano())
		return err
	})
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListAll returns all entries oldest first.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]domain.ChatEntry, error) {
	query := `SELECT user, content, timestamp FROM messages ORDER BY timestamp ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close message rows", "error", closeErr)
		}
	}()

	entries := []domain.ChatEntry{}
	for rows.Next() {
		var entry domain.ChatEntry
		var author string
		var ts int64
		if err := rows.Scan(&author, &entry.Text, &ts); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		entry.Author = domain.Author(author)
		entry.CreatedAt = time.Unix(0, ts)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return entries, nil
}

// ClearAll deletes every entry.
// Retries with exponential backoff on SQLITE_BUSY.
func (s *SQLiteStore) ClearAll(ctx context.Context) (int64, error) {
	var deleted int64
	err := shared.RetryOnConflict(ctx, s.retry, "clear", func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM messages`)
		if err != nil {
			return err
		}
		deleted, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("clear messages: %w", err)
	}
	return deleted, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
