package domain

// Snapshot is a full copy of ledger state.
type Snapshot struct {
	Config      LedgerConfig
	Balances    map[Account]int64
	Minters     map[Account]bool
	MintRecords map[uint64]MintRecord
}

// NewSnapshot returns an empty snapshot with initialized tables.
func NewSnapshot(cfg LedgerConfig) *Snapshot {
	return &Snapshot{
		Config:      cfg,
		Balances:    make(map[Account]int64),
		Minters:     make(map[Account]bool),
		MintRecords: make(map[uint64]MintRecord),
	}
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	c := NewSnapshot(s.Config)
	c.Config.Token.URI = cloneString(s.Config.Token.URI)
	for k, v := range s.Balances {
		c.Balances[k] = v
	}
	for k, v := range s.Minters {
		c.Minters[k] = v
	}
	for k, v := range s.MintRecords {
		c.MintRecords[k] = v
	}
	return c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
