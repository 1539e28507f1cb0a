package domain

// MintRecord is the immutable audit entry written once per successful mint.
// Corresponds to mint_records table in PostgreSQL.
type MintRecord struct {
	ID          uint64  // sequence id, starts at 1
	Amount      int64   // minted amount in base units
	Recipient   Account // credited account
	Metadata    string  // free-text reason, at most 500 characters
	LogicalTime int64   // time supplied by the ledger clock
}
