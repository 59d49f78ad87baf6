// Package sqlstore persists audit events through database/sql. Statements use
// $n placeholders and epoch-millisecond times so they run on PostgreSQL and SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	audit "refunds/pkg/platform/audit"
	txcontext "refunds/pkg/platform/tx"
)

const Schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id              TEXT   PRIMARY KEY,
	category        TEXT   NOT NULL,
	occurred_at     BIGINT NOT NULL,
	action          TEXT   NOT NULL,
	merchant_id     TEXT   NOT NULL,
	subject         TEXT   NOT NULL DEFAULT '',
	method          TEXT   NOT NULL DEFAULT '',
	decision        TEXT   NOT NULL DEFAULT '',
	reason          TEXT   NOT NULL DEFAULT '',
	violation_codes TEXT   NOT NULL DEFAULT '[]',
	evaluation_id   TEXT   NOT NULL DEFAULT '',
	request_id      TEXT   NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS audit_events_merchant_idx ON audit_events (merchant_id, occurred_at);
`

const selectColumns = `id, category, occurred_at, action, merchant_id, subject, method,
	decision, reason, violation_codes, evaluation_id, request_id`

// Store implements audit.Store. Appends are idempotent on the event id, so a
// consumer replaying a topic does not duplicate rows.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate audit events: %w", err)
	}
	return nil
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// execer joins the caller's transaction when one is in ctx.
func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	event.Normalize(time.Now())
	codes := event.ViolationCodes
	if codes == nil {
		codes = []string{}
	}
	codesJSON, err := json.Marshal(codes)
	if err != nil {
		return fmt.Errorf("marshal violation codes: %w", err)
	}

	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO audit_events (`+selectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING`,
		event.ID.String(),
		string(event.Category),
		event.Timestamp.UnixMilli(),
		string(event.Action),
		event.MerchantID,
		event.Subject,
		event.Method,
		event.Decision,
		event.Reason,
		string(codesJSON),
		event.EvaluationID,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByMerchant returns a merchant's events, oldest first.
func (s *Store) ListByMerchant(ctx context.Context, merchantID string) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM audit_events WHERE merchant_id = $1 ORDER BY occurred_at, id`,
		merchantID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListRecent returns the newest limit events across merchants.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM audit_events ORDER BY occurred_at DESC, id LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			event      audit.Event
			id         string
			category   string
			action     string
			occurredAt int64
			codes      string
		)
		if err := rows.Scan(&id, &category, &occurredAt, &action, &event.MerchantID, &event.Subject,
			&event.Method, &event.Decision, &event.Reason, &codes, &event.EvaluationID, &event.RequestID); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("audit event id %q: %w", id, err)
		}
		event.ID = parsed
		event.Category = audit.EventCategory(category)
		event.Action = audit.AuditEvent(action)
		event.Timestamp = time.UnixMilli(occurredAt).UTC()
		if err := json.Unmarshal([]byte(codes), &event.ViolationCodes); err != nil {
			return nil, fmt.Errorf("audit event %s violation codes: %w", id, err)
		}
		if len(event.ViolationCodes) == 0 {
			event.ViolationCodes = nil
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
