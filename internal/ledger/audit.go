package ledger

import (
	"sort"

	"incentive-token/internal/domain"
)

// AuditReport is the result of checking ledger invariants against state.
type AuditReport struct {
	TotalSupply       int64            // recorded total supply
	BalanceSum        int64            // sum of all balances
	Accounts          int              // accounts with a balance entry
	Holders           int              // accounts with a positive balance
	MintCounter       uint64           // highest allocated sequence id
	NegativeBalances  []domain.Account // accounts below zero, sorted
	MissingRecords    []uint64         // ids in 1..MintCounter without a record
	UnexpectedRecords []uint64         // ids above MintCounter
}

// OK reports whether every invariant holds.
func (r *AuditReport) OK() bool {
	return r.Conserved() &&
		len(r.NegativeBalances) == 0 &&
		len(r.MissingRecords) == 0 &&
		len(r.UnexpectedRecords) == 0
}

// Conserved reports whether the balances add up to the total supply.
func (r *AuditReport) Conserved() bool {
	return r.BalanceSum == r.TotalSupply
}

// Audit recomputes conservation, non-negativity and mint sequence continuity.
func (l *Ledger) Audit() *AuditReport {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return AuditSnapshot(l.state)
}

// AuditSnapshot runs the ledger audit against a detached snapshot.
func AuditSnapshot(s *domain.Snapshot) *AuditReport {
	r := &AuditReport{
		TotalSupply: s.Config.TotalSupply,
		Accounts:    len(s.Balances),
		MintCounter: s.Config.MintCounter,
	}

	for acct, bal := range s.Balances {
		r.BalanceSum += bal
		if bal < 0 {
			r.NegativeBalances = append(r.NegativeBalances, acct)
		}
		if bal > 0 {
			r.Holders++
		}
	}
	sort.Slice(r.NegativeBalances, func(i, j int) bool {
		return r.NegativeBalances[i] < r.NegativeBalances[j]
	})

	for id := uint64(1); id <= s.Config.MintCounter; id++ {
		if _, ok := s.MintRecords[id]; !ok {
			r.MissingRecords = append(r.MissingRecords, id)
		}
	}
	for id := range s.MintRecords {
		if id == 0 || id > s.Config.MintCounter {
			r.UnexpectedRecords = append(r.UnexpectedRecords, id)
		}
	}
	sort.Slice(r.UnexpectedRecords, func(i, j int) bool {
		return r.UnexpectedRecords[i] < r.UnexpectedRecords[j]
	})

	return r
}
