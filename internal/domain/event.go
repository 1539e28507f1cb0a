package domain

// Operation names a ledger operation.
type Operation string

// Operation values.
const (
	OpSetAdmin     Operation = "SET_ADMIN"
	OpPause        Operation = "PAUSE"
	OpUnpause      Operation = "UNPAUSE"
	OpAddMinter    Operation = "ADD_MINTER"
	OpRemoveMinter Operation = "REMOVE_MINTER"
	OpSetTokenURI  Operation = "SET_TOKEN_URI"
	OpMint         Operation = "MINT"
	OpTransfer     Operation = "TRANSFER"
	OpBurn         Operation = "BURN"
)

// IsValid returns true if the operation is a known value.
func (o Operation) IsValid() bool {
	switch o {
	case OpSetAdmin, OpPause, OpUnpause, OpAddMinter, OpRemoveMinter,
		OpSetTokenURI, OpMint, OpTransfer, OpBurn:
		return true
	}
	return false
}

// Event describes a committed operation for external log collaborators.
// Corresponds to ledger_events table in ClickHouse.
type Event struct {
	ID          string    // uuid
	Seq         uint64    // ledger-wide commit order, starts at 1
	Kind        Operation // operation that produced the event
	Caller      Account
	Account     Account  // subject of admin operations (new admin, minter)
	Sender      Account  // transfer sender / burner
	Recipient   Account  // mint or transfer recipient
	Amount      int64    // zero for admin operations
	Memo        *string  // transfer memo (nullable)
	Metadata    string   // mint metadata
	URI         *string  // new token uri for SET_TOKEN_URI
	MintID      uint64   // mint sequence id, zero otherwise
	LogicalTime int64    // ledger clock at commit
}
