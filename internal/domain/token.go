package domain

// TokenInfo is display metadata. Decimals is never applied arithmetically.
type TokenInfo struct {
	Name     string
	Symbol   string
	Decimals int
	URI      *string // nullable
}

// LedgerConfig is the singleton configuration row of the ledger.
type LedgerConfig struct {
	Admin       Account
	Sentinel    Account
	Paused      bool
	Token       TokenInfo
	TotalSupply int64
	MintCounter uint64 // highest sequence id allocated so far
	OpCounter   uint64 // committed mutating operations, numbers events
}
