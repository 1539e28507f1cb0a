// Package ledger implements the single-asset token state machine: balances,
// the minter registry, the append-only mint record log and the admin
// configuration. Every operation validates in a fixed order, and a failed
// operation leaves state untouched.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"incentive-token/internal/domain"
	"incentive-token/internal/storage"
)

// Limits, in characters.
const (
	MaxMetadataLen = 500
	MaxMemoLen     = 34
	MaxURILen      = 256
)

// Default token metadata.
const (
	DefaultName     = "IncentiveToken"
	DefaultSymbol   = "ITK"
	DefaultDecimals = 6
)

// Observer receives events for committed operations, in commit order.
// OnEvent is called while the ledger lock is held and must not block.
type Observer interface {
	OnEvent(e domain.Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(e domain.Event)

// OnEvent calls f.
func (f ObserverFunc) OnEvent(e domain.Event) {
	f(e)
}

// Genesis describes the initial ledger state.
type Genesis struct {
	Admin    domain.Account // initial admin, also seeded as minter
	Sentinel domain.Account // forbidden recipient; defaults to Admin
	Name     string
	Symbol   string
	Decimals int
	URI      *string
}

// DefaultGenesis returns the default token metadata with the given admin.
func DefaultGenesis(admin domain.Account) Genesis {
	return Genesis{
		Admin:    admin,
		Sentinel: admin,
		Name:     DefaultName,
		Symbol:   DefaultSymbol,
		Decimals: DefaultDecimals,
	}
}

// Snapshot builds the initial state described by g.
func (g Genesis) Snapshot() *domain.Snapshot {
	sentinel := g.Sentinel
	if sentinel.IsZero() {
		sentinel = g.Admin
	}
	s := domain.NewSnapshot(domain.LedgerConfig{
		Admin:    g.Admin,
		Sentinel: sentinel,
		Token: domain.TokenInfo{
			Name:     g.Name,
			Symbol:   g.Symbol,
			Decimals: g.Decimals,
			URI:      g.URI,
		},
	})
	s.Minters[g.Admin] = true
	return s.Clone()
}

// Options contains configuration for creating a Ledger.
type Options struct {
	Store     storage.StateStore // optional durable store
	Clock     Clock              // Default: SystemClock
	Observers []Observer
	Logger    *log.Logger
}

// Ledger is the single owned aggregate holding all token state. All methods
// are safe for concurrent use; one lock serializes every operation together
// with its durable commit.
type Ledger struct {
	mu        sync.RWMutex
	state     *domain.Snapshot
	store     storage.StateStore
	clock     Clock
	observers []Observer
	logger    *log.Logger
}

// New creates an in-memory ledger from the genesis description. opts.Store is
// ignored: a durable store is only bound through Open, which initializes it.
func New(g Genesis, opts Options) *Ledger {
	opts.Store = nil
	return Restore(g.Snapshot(), opts)
}

// Restore creates a ledger from a previously captured snapshot. When
// opts.Store is set it must already hold that snapshot.
func Restore(s *domain.Snapshot, opts Options) *Ledger {
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Ledger{
		state:     s.Clone(),
		store:     opts.Store,
		clock:     clock,
		observers: opts.Observers,
		logger:    logger,
	}
}

// Open resumes the ledger persisted in opts.Store, or initializes the store
// with the genesis state when it is empty.
func Open(ctx context.Context, g Genesis, opts Options) (*Ledger, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("open ledger: %w", storage.ErrInvalidInput)
	}

	snap, err := opts.Store.Load(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		snap = g.Snapshot()
		if err := opts.Store.Init(ctx, snap); err != nil {
			return nil, fmt.Errorf("init ledger store: %w", err)
		}
		l := Restore(snap, opts)
		l.logger.Printf("Initialized ledger: admin=%s token=%s", g.Admin, g.Symbol)
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load ledger state: %w", err)
	}

	l := Restore(snap, opts)
	l.logger.Printf("Resumed ledger: supply=%d mints=%d ops=%d",
		snap.Config.TotalSupply, snap.Config.MintCounter, snap.Config.OpCounter)
	return l, nil
}

// Snapshot returns a deep copy of the full ledger state.
func (l *Ledger) Snapshot() *domain.Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Clone()
}

// commit persists the delta, then applies it in memory and notifies
// observers. Must be called with l.mu held for writing. A store failure
// leaves in-memory state unchanged.
func (l *Ledger) commit(ctx context.Context, d *domain.Delta, e domain.Event) error {
	d.Config.OpCounter = l.state.Config.OpCounter + 1

	if l.store != nil {
		if err := l.store.Apply(ctx, d); err != nil {
			return fmt.Errorf("commit %s: %w", d.Op, err)
		}
	}

	d.ApplyTo(l.state)

	e.ID = uuid.NewString()
	e.Seq = d.Config.OpCounter
	e.Kind = d.Op
	for _, o := range l.observers {
		o.OnEvent(e)
	}
	return nil
}

// newDelta starts a delta carrying the current configuration row.
func (l *Ledger) newDelta(op domain.Operation) *domain.Delta {
	cfg := l.state.Config
	if cfg.Token.URI != nil {
		uri := *cfg.Token.URI
		cfg.Token.URI = &uri
	}
	return &domain.Delta{
		Op:     op,
		Config: cfg,
	}
}
