package ledger

import "incentive-token/internal/domain"

// Read-only accessors. They never fail; absent entries read as zero values.

// Name returns the token display name.
func (l *Ledger) Name() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Config.Token.Name
}

// Symbol returns the token ticker symbol.
func (l *Ledger) Symbol() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Config.Token.Symbol
}

// Decimals returns the display exponent. It plays no part in arithmetic.
func (l *Ledger) Decimals() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Config.Token.Decimals
}

// TokenURI returns a copy of the token URI, or nil when unset.
func (l *Ledger) TokenURI() *string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.state.Config.Token.URI == nil {
		return nil
	}
	uri := *l.state.Config.Token.URI
	return &uri
}

// TokenInfo returns all display metadata at once.
func (l *Ledger) TokenInfo() domain.TokenInfo {
	l.mu.RLock()
	info := l.state.Config.Token
	l.mu.RUnlock()
	if info.URI != nil {
		uri := *info.URI
		info.URI = &uri
	}
	return info
}

func (l *Ledger) TotalSupply() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Config.TotalSupply
}

// BalanceOf returns 0 for accounts the ledger has never seen.
func (l *Ledger) BalanceOf(account domain.Account) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Balances[account]
}

func (l *Ledger) IsPaused() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Config.Paused
}

// IsMinter reports whether account currently holds the minter role.
func (l *Ledger) IsMinter(account domain.Account) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Minters[account]
}

// MintRecord returns the record with the given sequence id.
func (l *Ledger) MintRecord(id uint64) (domain.MintRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.state.MintRecords[id]
	return r, ok
}

func (l *Ledger) Admin() domain.Account {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Config.Admin
}

// Sentinel returns the identity that can never receive funds.
func (l *Ledger) Sentinel() domain.Account {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Config.Sentinel
}

// MintCounter returns the highest allocated mint sequence id.
func (l *Ledger) MintCounter() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Config.MintCounter
}

// Config returns a copy of the configuration row.
func (l *Ledger) Config() domain.LedgerConfig {
	l.mu.RLock()
	cfg := l.state.Config
	l.mu.RUnlock()
	if cfg.Token.URI != nil {
		uri := *cfg.Token.URI
		cfg.Token.URI = &uri
	}
	return cfg
}
