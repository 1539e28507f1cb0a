package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"incentive-token/internal/domain"
)

func TestAudit_CleanLedger(t *testing.T) {
	l := newTestLedger(t)
	fund(t, l, alice, 300)
	fund(t, l, carol, 200)

	r := l.Audit()
	assert.True(t, r.OK())
	assert.Equal(t, int64(500), r.TotalSupply)
	assert.Equal(t, int64(500), r.BalanceSum)
	assert.Equal(t, 2, r.Holders)
	assert.Equal(t, uint64(2), r.MintCounter)
}

func TestAuditSnapshot_DetectsCorruption(t *testing.T) {
	s := DefaultGenesis(deployer).Snapshot()
	s.Balances[alice] = 100
	s.Balances[carol] = -20
	s.Balances["zero"] = 0
	s.Config.TotalSupply = 100
	s.Config.MintCounter = 3
	s.MintRecords[1] = domain.MintRecord{ID: 1, Amount: 100, Recipient: alice}
	s.MintRecords[3] = domain.MintRecord{ID: 3, Amount: 1, Recipient: alice}
	s.MintRecords[7] = domain.MintRecord{ID: 7, Amount: 1, Recipient: alice}

	r := AuditSnapshot(s)
	assert.False(t, r.OK())
	assert.False(t, r.Conserved())
	assert.Equal(t, int64(80), r.BalanceSum)
	assert.Equal(t, 3, r.Accounts)
	assert.Equal(t, 1, r.Holders)
	assert.Equal(t, []domain.Account{carol}, r.NegativeBalances)
	assert.Equal(t, []uint64{2}, r.MissingRecords)
	assert.Equal(t, []uint64{7}, r.UnexpectedRecords)
}
