package api

import (
	"incentive-token/internal/domain"
	"incentive-token/internal/ledger"
)

// TokenView is the JSON form of token metadata and ledger configuration.
type TokenView struct {
	Name        string  `json:"name"`
	Symbol      string  `json:"symbol"`
	Decimals    int     `json:"decimals"`
	URI         *string `json:"uri"`
	TotalSupply int64   `json:"total_supply"`
	Paused      bool    `json:"paused"`
	Admin       string  `json:"admin"`
	MintCounter uint64  `json:"mint_counter"`
}

// NewTokenView builds the token view from the configuration row.
func NewTokenView(cfg domain.LedgerConfig) TokenView {
	return TokenView{
		Name:        cfg.Token.Name,
		Symbol:      cfg.Token.Symbol,
		Decimals:    cfg.Token.Decimals,
		URI:         cfg.Token.URI,
		TotalSupply: cfg.TotalSupply,
		Paused:      cfg.Paused,
		Admin:       string(cfg.Admin),
		MintCounter: cfg.MintCounter,
	}
}

// MintRecordView is the JSON form of a mint record.
type MintRecordView struct {
	ID          uint64 `json:"id"`
	Amount      int64  `json:"amount"`
	Recipient   string `json:"recipient"`
	Metadata    string `json:"metadata"`
	LogicalTime int64  `json:"logical_time"`
}

// NewMintRecordView converts a mint record.
func NewMintRecordView(r domain.MintRecord) MintRecordView {
	return MintRecordView{
		ID:          r.ID,
		Amount:      r.Amount,
		Recipient:   string(r.Recipient),
		Metadata:    r.Metadata,
		LogicalTime: r.LogicalTime,
	}
}

// EventView is the JSON form of a ledger event.
type EventView struct {
	ID          string  `json:"id"`
	Seq         uint64  `json:"seq"`
	Kind        string  `json:"kind"`
	Caller      string  `json:"caller"`
	Account     string  `json:"account,omitempty"`
	Sender      string  `json:"sender,omitempty"`
	Recipient   string  `json:"recipient,omitempty"`
	Amount      int64   `json:"amount,omitempty"`
	Memo        *string `json:"memo,omitempty"`
	Metadata    string  `json:"metadata,omitempty"`
	URI         *string `json:"uri,omitempty"`
	MintID      uint64  `json:"mint_id,omitempty"`
	LogicalTime int64   `json:"logical_time"`
}

// NewEventView converts a ledger event.
func NewEventView(e *domain.Event) EventView {
	return EventView{
		ID:          e.ID,
		Seq:         e.Seq,
		Kind:        string(e.Kind),
		Caller:      string(e.Caller),
		Account:     string(e.Account),
		Sender:      string(e.Sender),
		Recipient:   string(e.Recipient),
		Amount:      e.Amount,
		Memo:        e.Memo,
		Metadata:    e.Metadata,
		URI:         e.URI,
		MintID:      e.MintID,
		LogicalTime: e.LogicalTime,
	}
}

// AuditView is the JSON form of an audit report.
type AuditView struct {
	OK                bool     `json:"ok"`
	TotalSupply       int64    `json:"total_supply"`
	BalanceSum        int64    `json:"balance_sum"`
	Accounts          int      `json:"accounts"`
	Holders           int      `json:"holders"`
	MintCounter       uint64   `json:"mint_counter"`
	NegativeBalances  []string `json:"negative_balances,omitempty"`
	MissingRecords    []uint64 `json:"missing_records,omitempty"`
	UnexpectedRecords []uint64 `json:"unexpected_records,omitempty"`
}

// NewAuditView converts an audit report.
func NewAuditView(r *ledger.AuditReport) AuditView {
	v := AuditView{
		OK:                r.OK(),
		TotalSupply:       r.TotalSupply,
		BalanceSum:        r.BalanceSum,
		Accounts:          r.Accounts,
		Holders:           r.Holders,
		MintCounter:       r.MintCounter,
		MissingRecords:    r.MissingRecords,
		UnexpectedRecords: r.UnexpectedRecords,
	}
	for _, a := range r.NegativeBalances {
		v.NegativeBalances = append(v.NegativeBalances, string(a))
	}
	return v
}

type mintRequest struct {
	Amount    int64  `json:"amount"`
	Recipient string `json:"recipient"`
	Metadata  string `json:"metadata"`
}

type transferRequest struct {
	Amount    int64   `json:"amount"`
	Sender    string  `json:"sender"`
	Recipient string  `json:"recipient"`
	Memo      *string `json:"memo"`
}

type burnRequest struct {
	Amount int64 `json:"amount"`
}

type adminRequest struct {
	Admin string `json:"admin"`
}

type minterRequest struct {
	Account string `json:"account"`
}

type uriRequest struct {
	URI *string `json:"uri"`
}
