package metadatastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/smartcom/smartcom-go/pkg/models"
)

// SQLiteStore provides SQLite-based persistence for the checkout journal
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a new SQLite-based storage instance.
// dbPath ":memory:" opens a private in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Format: file:path?param=value
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	} else {
		// Writes are serialized by SQLite anyway
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// WAL for files; in-memory databases report "memory"
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to check journal mode: %w", err)
	}
	if journalMode != "wal" && journalMode != "delete" && journalMode != "memory" {
		db.Close()
		return nil, fmt.Errorf("unexpected journal mode: got %s", journalMode)
	}

	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// retryOnBusy retries a database operation if it fails due to SQLITE_BUSY
// This provides an additional safety net on top of the busy_timeout pragma
func (s *SQLiteStore) retryOnBusy(operation func() error, maxRetries int) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if strings.Contains(err.Error(), "SQLITE_BUSY") {
			// Exponential backoff: 10ms, 20ms, 40ms, 80ms, 160ms
			backoff := time.Duration(10*(1<<uint(i))) * time.Millisecond
			time.Sleep(backoff)
			continue
		}
		return err
	}
	return fmt.Errorf("operation failed after %d retries: %w", maxRetries, err)
}

// initSchema creates the database schema if it doesn't exist.
// Timestamps are unix milliseconds so range scans compare numerically.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS checkouts (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		client_id INTEGER NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		cart_items TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_checkouts_status_created ON checkouts(status, created_at);
	CREATE INDEX IF NOT EXISTS idx_checkouts_order_id ON checkouts(order_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// BeginCheckout records a pending checkout. CreatedAt and UpdatedAt are set
// when zero.
func (s *SQLiteStore) BeginCheckout(ctx context.Context, record *models.CheckoutRecord) error {
	if record.ID == "" || record.OrderID == "" {
		return fmt.Errorf("checkout record requires id and order id")
	}
	now := s.now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	record.Status = models.CheckoutPending

	items := record.CartItems
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal cart items: %w", err)
	}

	query := `
		INSERT INTO checkouts (id, order_id, client_id, status, error, created_at, updated_at, cart_items)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	err = s.retryOnBusy(func() error {
		_, err := s.db.ExecContext(ctx, query,
			record.ID,
			record.OrderID,
			record.ClientID,
			string(record.Status),
			record.Error,
			record.CreatedAt.UnixMilli(),
			record.UpdatedAt.UnixMilli(),
			string(data),
		)
		return err
	}, 5)
	if err != nil {
		return fmt.Errorf("failed to save checkout: %w", err)
	}
	return nil
}

// CompleteCheckout marks a checkout committed
func (s *SQLiteStore) CompleteCheckout(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, models.CheckoutCommitted, "")
}

// FailCheckout marks a checkout failed
func (s *SQLiteStore) FailCheckout(ctx context.Context, id, reason string) error {
	return s.setStatus(ctx, id, models.CheckoutFailed, reason)
}

func (s *SQLiteStore) setStatus(ctx context.Context, id string, status models.CheckoutStatus, reason string) error {
	query := `UPDATE checkouts SET status = ?, error = ?, updated_at = ? WHERE id = ?`

	var affected int64
	err := s.retryOnBusy(func() error {
		res, err := s.db.ExecContext(ctx, query, string(status), reason, s.now().UTC().UnixMilli(), id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	}, 5)
	if err != nil {
		return fmt.Errorf("failed to update checkout: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// GetCheckout retrieves a checkout record by ID
func (s *SQLiteStore) GetCheckout(ctx context.Context, id string) (*models.CheckoutRecord, error) {
	query := `
		SELECT id, order_id, client_id, status, error, created_at, updated_at, cart_items
		FROM checkouts WHERE id = ?
	`
	record, err := scanCheckout(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkout: %w", err)
	}
	return record, nil
}

// ListPending lists pending checkouts created before cutoff, oldest first
func (s *SQLiteStore) ListPending(ctx context.Context, cutoff time.Time) ([]*models.CheckoutRecord, error) {
	query := `
		SELECT id, order_id, client_id, status, error, created_at, updated_at, cart_items
		FROM checkouts
		WHERE status = ? AND created_at < ?
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, string(models.CheckoutPending), cutoff.UTC().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to list pending checkouts: %w", err)
	}
	defer rows.Close()

	records := make([]*models.CheckoutRecord, 0)
	for rows.Next() {
		record, err := scanCheckout(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read checkout: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list pending checkouts: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheckout(row rowScanner) (*models.CheckoutRecord, error) {
	var (
		record             models.CheckoutRecord
		status, items      string
		reason             sql.NullString
		created, updatedAt int64
	)
	if err := row.Scan(&record.ID, &record.OrderID, &record.ClientID, &status, &reason, &created, &updatedAt, &items); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(items), &record.CartItems); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart items: %w", err)
	}
	record.Status = models.CheckoutStatus(status)
	record.Error = reason.String
	record.CreatedAt = time.UnixMilli(created).UTC()
	record.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &record, nil
}
