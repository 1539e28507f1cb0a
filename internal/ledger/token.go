package ledger

import (
	"context"
	"math"
	"unicode/utf8"

	"incentive-token/internal/domain"
)

// Mint credits amount to recipient and appends a mint record.
// Checks, in order: paused, caller is an active minter, amount > 0,
// recipient is not the sentinel, metadata length.
func (l *Ledger) Mint(ctx context.Context, caller domain.Account, amount int64, recipient domain.Account, metadata string) (domain.MintRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cfg := l.state.Config
	if cfg.Paused {
		return domain.MintRecord{}, ErrMintPaused
	}
	if !l.state.Minters[caller] {
		return domain.MintRecord{}, ErrInvalidMinter
	}
	if amount <= 0 {
		return domain.MintRecord{}, ErrInvalidAmount
	}
	if recipient == cfg.Sentinel {
		return domain.MintRecord{}, ErrInvalidRecipient
	}
	if utf8.RuneCountInString(metadata) > MaxMetadataLen {
		return domain.MintRecord{}, ErrMetadataTooLong
	}
	// Every balance is bounded by the supply, so this also guards the credit.
	if amount > math.MaxInt64-cfg.TotalSupply {
		return domain.MintRecord{}, ErrInvalidAmount
	}

	record := domain.MintRecord{
		ID:          cfg.MintCounter + 1,
		Amount:      amount,
		Recipient:   recipient,
		Metadata:    metadata,
		LogicalTime: l.clock.Now(),
	}

	d := l.newDelta(domain.OpMint)
	d.Balances = map[domain.Account]int64{
		recipient: l.state.Balances[recipient] + amount,
	}
	d.Record = &record
	d.Config.TotalSupply += amount
	d.Config.MintCounter = record.ID

	err := l.commit(ctx, d, domain.Event{
		Caller:      caller,
		Recipient:   recipient,
		Amount:      amount,
		Metadata:    metadata,
		MintID:      record.ID,
		LogicalTime: record.LogicalTime,
	})
	if err != nil {
		return domain.MintRecord{}, err
	}
	return record, nil
}

// Transfer moves amount from sender to recipient. Only the sender may
// initiate it. The memo is passed to observers and not kept in ledger state.
// Checks, in order: paused, caller == sender, amount > 0, recipient is not
// the sentinel, memo length, sender balance.
func (l *Ledger) Transfer(ctx context.Context, caller domain.Account, amount int64, sender, recipient domain.Account, memo *string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state.Config.Paused {
		return ErrTransferPaused
	}
	if caller != sender {
		return ErrUnauthorized
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if recipient == l.state.Config.Sentinel {
		return ErrInvalidRecipient
	}
	if memo != nil && utf8.RuneCountInString(*memo) > MaxMemoLen {
		return ErrInvalidMemo
	}
	senderBalance := l.state.Balances[sender]
	if senderBalance < amount {
		return ErrInsufficientBalance
	}

	d := l.newDelta(domain.OpTransfer)
	if sender == recipient {
		d.Balances = map[domain.Account]int64{sender: senderBalance}
	} else {
		d.Balances = map[domain.Account]int64{
			sender:    senderBalance - amount,
			recipient: l.state.Balances[recipient] + amount,
		}
	}

	var memoCopy *string
	if memo != nil {
		m := *memo
		memoCopy = &m
	}

	return l.commit(ctx, d, domain.Event{
		Caller:      caller,
		Sender:      sender,
		Recipient:   recipient,
		Amount:      amount,
		Memo:        memoCopy,
		LogicalTime: l.clock.Now(),
	})
}

// Burn destroys amount from the caller's own balance.
// Checks, in order: paused, amount > 0, caller balance.
func (l *Ledger) Burn(ctx context.Context, caller domain.Account, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state.Config.Paused {
		return ErrBurnPaused
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	balance := l.state.Balances[caller]
	if balance < amount {
		return ErrInsufficientBalance
	}

	d := l.newDelta(domain.OpBurn)
	d.Balances = map[domain.Account]int64{
		caller: balance - amount,
	}
	d.Config.TotalSupply -= amount

	return l.commit(ctx, d, domain.Event{
		Caller:      caller,
		Sender:      caller,
		Amount:      amount,
		LogicalTime: l.clock.Now(),
	})
}
