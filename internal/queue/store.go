package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"corral/internal/config"
)

// Store manages queue and conflict persistence backed by SQLite.
type Store struct {
	db       *sql.DB
	path     string
	maxItems int

	syncTrigger func()
}

// Open initializes or connects to the queue database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.QueueDBPath()
	// Pragmas go in the DSN so the driver applies them to every pooled
	// connection, not just the one a db.Exec would run on.
	dsn := dbPath +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(ON)" +
		"&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	store := &Store{db: db, path: dbPath, maxItems: cfg.Queue.MaxItems}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// SetSyncTrigger installs the best-effort callback invoked after a successful
// enqueue to request a background sync pass. The callback must not block;
// failures inside it are the callback's own concern and never surface to
// Enqueue callers.
func (s *Store) SetSyncTrigger(fn func()) {
	s.syncTrigger = fn
}

func (s *Store) requestSync() {
	trigger := s.syncTrigger
	if trigger == nil {
		return
	}
	go func() {
		defer func() { _ = recover() }()
		trigger()
	}()
}

const itemColumns = "id, item_type, payload, status, created_at, processed_at, retries, error_message, optimistic_id, base_version, farm_id"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id           int64
		itemType     string
		payloadRaw   string
		statusStr    string
		createdRaw   sql.NullString
		processedRaw sql.NullString
		retries      int
		errorMessage sql.NullString
		optimisticID string
		baseRaw      sql.NullString
		farmID       sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&itemType,
		&payloadRaw,
		&statusStr,
		&createdRaw,
		&processedRaw,
		&retries,
		&errorMessage,
		&optimisticID,
		&baseRaw,
		&farmID,
	); err != nil {
		return nil, err
	}

	payload, err := DecodePayload(ItemType(itemType), []byte(payloadRaw))
	if err != nil {
		return nil, err
	}

	item := &Item{
		ID:           id,
		Type:         ItemType(itemType),
		Payload:      payload,
		Status:       Status(statusStr),
		Retries:      retries,
		ErrorMessage: errorMessage.String,
		OptimisticID: optimisticID,
		FarmID:       farmID.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if processedRaw.Valid {
		if processed, err := parseTimeString(processedRaw.String); err == nil {
			item.ProcessedAt = &processed
		}
	}
	if baseRaw.Valid {
		if base, err := parseTimeString(baseRaw.String); err == nil {
			item.BaseVersion = &base
		}
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}
