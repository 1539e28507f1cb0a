package domain

// Delta is the complete state change produced by one successful operation.
// Stores must apply it as a single unit.
//
// Balances and Minter hold absolute post-operation values. Config always
// carries the full post-operation configuration row.
type Delta struct {
	Op       Operation
	Balances map[Account]int64
	Minter   *MinterEntry
	Record   *MintRecord
	Config   LedgerConfig
}

// MinterEntry is a single minter registry row.
type MinterEntry struct {
	Account Account
	Active  bool
}

// ApplyTo writes the delta into a snapshot.
func (d *Delta) ApplyTo(s *Snapshot) {
	for acct, bal := range d.Balances {
		s.Balances[acct] = bal
	}
	if d.Minter != nil {
		s.Minters[d.Minter.Account] = d.Minter.Active
	}
	if d.Record != nil {
		s.MintRecords[d.Record.ID] = *d.Record
	}
	s.Config = d.Config
	s.Config.Token.URI = cloneString(d.Config.Token.URI)
}
