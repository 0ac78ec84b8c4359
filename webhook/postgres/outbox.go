package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/marcelsud/payment-webhooks/webhook"
)

/* PostgreSQL implementation of webhook.Outbox
 * Holds envelopes whose dispatch failed until the relay publishes them
 */

//go:embed migrations/001_webhook_outbox.sql
var schema string

var ErrNotFound = errors.New("not found")

type Outbox struct {
	DB *sql.DB
}

// NewOutbox opens the database with the default pool (25, 5, 5 min)
func NewOutbox(connectionString string) (*Outbox, error) {
	return NewOutboxWithPoolConfig(connectionString, 25, 5, 5)
}

// NewOutboxWithPoolConfig opens the database with a custom pool
// maxOpenConns: maximum simultaneous connections (0 = unlimited)
// maxIdleConns: maximum idle connections kept in the pool
// maxLifeMinutes: maximum minutes a connection may be reused
func NewOutboxWithPoolConfig(connectionString string, maxOpenConns, maxIdleConns, maxLifeMinutes int) (*Outbox, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if maxIdleConns > 0 {
		db.SetMaxIdleConns(maxIdleConns)
	}
	if maxLifeMinutes > 0 {
		db.SetConnMaxLifetime(time.Duration(maxLifeMinutes) * time.Minute)
	}

	return &Outbox{
		DB: db,
	}, nil
}

// EnsureSchema creates the outbox table and its index
func (o *Outbox) EnsureSchema(ctx context.Context) error {
	if _, err := o.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating outbox schema: %w", err)
	}
	return nil
}

// Park stores an entry, parking the same envelope twice is a no-op
func (o *Outbox) Park(ctx context.Context, entry webhook.OutboxEntry) error {
	query := `
		INSERT INTO webhook_outbox (id, subject, msg_key, payload, status, attempts, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := o.DB.ExecContext(ctx, query,
		entry.ID,
		entry.Subject,
		entry.Key,
		entry.Payload,
		entry.Status.String(),
		entry.Attempts,
		entry.LastError,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("parking envelope %s: %w", entry.ID, err)
	}

	return nil
}

// FindPending returns the oldest pending entries first
func (o *Outbox) FindPending(ctx context.Context, limit int) ([]webhook.OutboxEntry, error) {
	query := `
		SELECT id, subject, msg_key, payload, status, attempts, last_error, created_at, updated_at
		FROM webhook_outbox
		WHERE status = $1
		ORDER BY created_at, id
		LIMIT $2
	`

	rows, err := o.DB.QueryContext(ctx, query, webhook.Pending.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("selecting pending entries: %w", err)
	}
	defer rows.Close()

	var entries []webhook.OutboxEntry

	for rows.Next() {
		var (
			e      webhook.OutboxEntry
			status string
		)
		err := rows.Scan(&e.ID, &e.Subject, &e.Key, &e.Payload, &status, &e.Attempts, &e.LastError, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		e.Status = webhook.NewStatus(status)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}

	return entries, nil
}

// CountPending returns the outbox backlog
func (o *Outbox) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := o.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM webhook_outbox WHERE status = $1", webhook.Pending.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting pending entries: %w", err)
	}
	return n, nil
}

// MarkPublished moves an entry to its final state
func (o *Outbox) MarkPublished(ctx context.Context, id string) error {
	query := `
		UPDATE webhook_outbox
		SET status = $1, updated_at = $2
		WHERE id = $3
	`
	return o.update(ctx, "marking published", query, webhook.Published.String(), time.Now().UTC(), id)
}

// RecordAttempt counts one more failed publish
func (o *Outbox) RecordAttempt(ctx context.Context, id string, reason string) error {
	query := `
		UPDATE webhook_outbox
		SET attempts = attempts + 1, last_error = $1, updated_at = $2
		WHERE id = $3
	`
	return o.update(ctx, "recording attempt", query, reason, time.Now().UTC(), id)
}

// MarkFailed gives up on an entry: it counts the last attempt and leaves the pending set
func (o *Outbox) MarkFailed(ctx context.Context, id string, reason string) error {
	query := `
		UPDATE webhook_outbox
		SET status = $1, attempts = attempts + 1, last_error = $2, updated_at = $3
		WHERE id = $4
	`
	return o.update(ctx, "marking failed", query, webhook.Failed.String(), reason, time.Now().UTC(), id)
}

// DeletePublished removes published entries last updated before the given time
func (o *Outbox) DeletePublished(ctx context.Context, before time.Time) (int64, error) {
	result, err := o.DB.ExecContext(ctx,
		"DELETE FROM webhook_outbox WHERE status = $1 AND updated_at < $2",
		webhook.Published.String(), before,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting published entries: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	return n, nil
}

// Close closes the database connection
func (o *Outbox) Close(ctx context.Context) error {
	if o.DB != nil {
		return o.DB.Close()
	}
	return nil
}

func (o *Outbox) update(ctx context.Context, op, query string, args ...interface{}) error {
	result, err := o.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}
