package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"incentive-token/internal/domain"
	"incentive-token/internal/observability"
	"incentive-token/internal/storage"
)

// EventLog implements storage.EventLog using ClickHouse.
type EventLog struct {
	conn *Conn
}

// NewEventLog creates a new EventLog.
func NewEventLog(conn *Conn) *EventLog {
	return &EventLog{conn: conn}
}

// Compile-time interface check.
var _ storage.EventLog = (*EventLog)(nil)

const selectEventColumns = `
	SELECT event_id, seq, kind, caller, account, sender, recipient,
	       amount, memo, metadata, uri, mint_id, logical_time
	FROM ledger_events FINAL
`

// Append adds an event. Returns ErrDuplicateKey if the event ID exists.
func (s *EventLog) Append(ctx context.Context, e *domain.Event) error {
	return s.AppendBulk(ctx, []*domain.Event{e})
}

// AppendBulk adds multiple events. Fails entire batch on duplicate.
// ClickHouse does not enforce uniqueness, so duplicates are checked before insert.
func (s *EventLog) AppendBulk(ctx context.Context, events []*domain.Event) (err error) {
	if len(events) == 0 {
		return nil
	}

	start := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "append_events", time.Since(start).Seconds(), err)
	}()

	// Check for intra-batch duplicates
	ids := make([]string, 0, len(events))
	seen := make(map[string]struct{}, len(events))
	for _, e := range events {
		if e == nil || e.ID == "" || !e.Kind.IsValid() {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[e.ID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[e.ID] = struct{}{}
		ids = append(ids, e.ID)
	}

	// Check for duplicates against existing rows
	var count uint64
	if err := s.conn.QueryRow(ctx,
		`SELECT count() FROM ledger_events WHERE event_id IN (?)`, ids,
	).Scan(&count); err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if count > 0 {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO ledger_events (
			event_id, seq, kind, caller, account, sender, recipient,
			amount, memo, metadata, uri, mint_id, logical_time
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		err = batch.Append(
			e.ID, e.Seq, string(e.Kind),
			string(e.Caller), string(e.Account), string(e.Sender), string(e.Recipient),
			e.Amount, e.Memo, e.Metadata, e.URI, e.MintID, e.LogicalTime,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByAccount retrieves events touching the account, ordered by Seq ASC.
func (s *EventLog) GetByAccount(ctx context.Context, account domain.Account) ([]*domain.Event, error) {
	a := string(account)
	rows, err := s.conn.Query(ctx, selectEventColumns+`
		WHERE caller = ? OR account = ? OR sender = ? OR recipient = ?
		ORDER BY seq ASC
	`, a, a, a, a)
	if err != nil {
		return nil, fmt.Errorf("query by account: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetByKind retrieves events of one operation kind, ordered by Seq ASC.
func (s *EventLog) GetByKind(ctx context.Context, kind domain.Operation) ([]*domain.Event, error) {
	rows, err := s.conn.Query(ctx, selectEventColumns+`
		WHERE kind = ?
		ORDER BY seq ASC
	`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query by kind: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetAll retrieves all events, ordered by Seq ASC.
func (s *EventLog) GetAll(ctx context.Context) ([]*domain.Event, error) {
	rows, err := s.conn.Query(ctx, selectEventColumns+`
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query all: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// scanEvents scans rows into Event slice.
func scanEvents(rows driver.Rows) ([]*domain.Event, error) {
	result := make([]*domain.Event, 0)
	for rows.Next() {
		var (
			e                                   domain.Event
			kind, caller, account, sender, recp string
		)
		err := rows.Scan(
			&e.ID, &e.Seq, &kind, &caller, &account, &sender, &recp,
			&e.Amount, &e.Memo, &e.Metadata, &e.URI, &e.MintID, &e.LogicalTime,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Kind = domain.Operation(kind)
		e.Caller = domain.Account(caller)
		e.Account = domain.Account(account)
		e.Sender = domain.Account(sender)
		e.Recipient = domain.Account(recp)
		result = append(result, &e)
	}
	return result, rows.Err()
}
