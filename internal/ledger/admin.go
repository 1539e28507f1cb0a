package ledger

import (
	"context"
	"unicode/utf8"

	"incentive-token/internal/domain"
)

// SetAdmin replaces the administrator. The new admin is accepted as-is.
func (l *Ledger) SetAdmin(ctx context.Context, caller, newAdmin domain.Account) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.state.Config.Admin {
		return ErrUnauthorized
	}

	d := l.newDelta(domain.OpSetAdmin)
	d.Config.Admin = newAdmin
	return l.commit(ctx, d, domain.Event{
		Caller:      caller,
		Account:     newAdmin,
		LogicalTime: l.clock.Now(),
	})
}

// Pause blocks mint, transfer and burn. Pausing a paused ledger succeeds.
func (l *Ledger) Pause(ctx context.Context, caller domain.Account) error {
	return l.setPaused(ctx, caller, true)
}

// Unpause clears the pause flag. Unpausing a running ledger succeeds.
func (l *Ledger) Unpause(ctx context.Context, caller domain.Account) error {
	return l.setPaused(ctx, caller, false)
}

func (l *Ledger) setPaused(ctx context.Context, caller domain.Account, paused bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.state.Config.Admin {
		return ErrUnauthorized
	}

	op := domain.OpUnpause
	if paused {
		op = domain.OpPause
	}

	d := l.newDelta(op)
	d.Config.Paused = paused
	return l.commit(ctx, d, domain.Event{
		Caller:      caller,
		LogicalTime: l.clock.Now(),
	})
}

// AddMinter grants the minter role. Any existing registry entry, including a
// revoked one, makes the call fail with ErrAlreadyRegistered, so a revoked
// minter can never be re-added.
func (l *Ledger) AddMinter(ctx context.Context, caller, account domain.Account) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.state.Config.Admin {
		return ErrUnauthorized
	}
	if _, exists := l.state.Minters[account]; exists {
		return ErrAlreadyRegistered
	}

	d := l.newDelta(domain.OpAddMinter)
	d.Minter = &domain.MinterEntry{Account: account, Active: true}
	return l.commit(ctx, d, domain.Event{
		Caller:      caller,
		Account:     account,
		LogicalTime: l.clock.Now(),
	})
}

// RemoveMinter writes a false registry entry, whether or not one existed.
func (l *Ledger) RemoveMinter(ctx context.Context, caller, account domain.Account) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.state.Config.Admin {
		return ErrUnauthorized
	}

	d := l.newDelta(domain.OpRemoveMinter)
	d.Minter = &domain.MinterEntry{Account: account, Active: false}
	return l.commit(ctx, d, domain.Event{
		Caller:      caller,
		Account:     account,
		LogicalTime: l.clock.Now(),
	})
}

// SetTokenURI replaces the token URI. A nil uri clears it.
func (l *Ledger) SetTokenURI(ctx context.Context, caller domain.Account, uri *string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.state.Config.Admin {
		return ErrUnauthorized
	}
	if uri != nil && utf8.RuneCountInString(*uri) > MaxURILen {
		return ErrInvalidURI
	}

	var stored *string
	if uri != nil {
		v := *uri
		stored = &v
	}

	d := l.newDelta(domain.OpSetTokenURI)
	d.Config.Token.URI = stored
	return l.commit(ctx, d, domain.Event{
		Caller:      caller,
		URI:         stored,
		LogicalTime: l.clock.Now(),
	})
}
