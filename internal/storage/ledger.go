package storage

import (
	"context"

	"incentive-token/internal/domain"
)

// StateStore persists ledger state. Every Apply is one atomic unit.
type StateStore interface {
	// Load returns the persisted state. Returns ErrNotFound if the store was never initialized.
	Load(ctx context.Context) (*domain.Snapshot, error)

	// Init writes the genesis snapshot. Returns ErrDuplicateKey if already initialized.
	Init(ctx context.Context, s *domain.Snapshot) error

	// Apply writes one operation's delta. Either all of it is persisted or none.
	Apply(ctx context.Context, d *domain.Delta) error
}

// EventLog provides access to the append-only ledger_events log.
type EventLog interface {
	// Append adds an event. Returns ErrDuplicateKey if the event ID exists.
	Append(ctx context.Context, e *domain.Event) error

	// AppendBulk adds multiple events. Fails entire batch on any duplicate.
	AppendBulk(ctx context.Context, events []*domain.Event) error

	// GetByAccount retrieves events where the account is caller, subject, sender or recipient,
	// ordered by Seq ASC.
	GetByAccount(ctx context.Context, account domain.Account) ([]*domain.Event, error)

	// GetByKind retrieves events of one operation kind, ordered by Seq ASC.
	GetByKind(ctx context.Context, kind domain.Operation) ([]*domain.Event, error)

	// GetAll retrieves all events, ordered by Seq ASC.
	GetAll(ctx context.Context) ([]*domain.Event, error)
}
