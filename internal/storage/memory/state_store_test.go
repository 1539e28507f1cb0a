package memory

import (
	"context"
	"errors"
	"testing"

	"incentive-token/internal/domain"
	"incentive-token/internal/storage"
)

func genesisSnapshot() *domain.Snapshot {
	s := domain.NewSnapshot(domain.LedgerConfig{
		Admin:    "deployer",
		Sentinel: "deployer",
		Token:    domain.TokenInfo{Name: "IncentiveToken", Symbol: "ITK", Decimals: 6},
	})
	s.Minters["deployer"] = true
	return s
}

func TestStateStore_LoadBeforeInit(t *testing.T) {
	store := NewStateStore()

	_, err := store.Load(context.Background())
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStateStore_InitAndLoad(t *testing.T) {
	store := NewStateStore()
	ctx := context.Background()

	if err := store.Init(ctx, genesisSnapshot()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	snap, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if snap.Config.Admin != "deployer" {
		t.Errorf("Admin mismatch: got %s, want deployer", snap.Config.Admin)
	}
	if !snap.Minters["deployer"] {
		t.Error("deployer should be seeded as minter")
	}
}

func TestStateStore_InitTwice(t *testing.T) {
	store := NewStateStore()
	ctx := context.Background()

	if err := store.Init(ctx, genesisSnapshot()); err != nil {
		t.Fatalf("First init failed: %v", err)
	}

	err := store.Init(ctx, genesisSnapshot())
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestStateStore_Apply(t *testing.T) {
	store := NewStateStore()
	ctx := context.Background()

	if err := store.Init(ctx, genesisSnapshot()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	cfg := genesisSnapshot().Config
	cfg.TotalSupply = 1000
	cfg.MintCounter = 1
	cfg.OpCounter = 1

	delta := &domain.Delta{
		Op:       domain.OpMint,
		Balances: map[domain.Account]int64{"alice": 1000},
		Record:   &domain.MintRecord{ID: 1, Amount: 1000, Recipient: "alice", Metadata: "m", LogicalTime: 42},
		Config:   cfg,
	}
	if err := store.Apply(ctx, delta); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	snap, _ := store.Load(ctx)
	if snap.Balances["alice"] != 1000 {
		t.Errorf("Balance mismatch: got %d, want 1000", snap.Balances["alice"])
	}
	if snap.Config.TotalSupply != 1000 {
		t.Errorf("TotalSupply mismatch: got %d, want 1000", snap.Config.TotalSupply)
	}
	if snap.MintRecords[1].LogicalTime != 42 {
		t.Errorf("LogicalTime mismatch: got %d, want 42", snap.MintRecords[1].LogicalTime)
	}
	if store.Applied() != 1 {
		t.Errorf("Applied mismatch: got %d, want 1", store.Applied())
	}

	// Same record id again must be rejected without touching balances
	delta.Balances = map[domain.Account]int64{"alice": 5}
	delta.Config.OpCounter = 2
	err := store.Apply(ctx, delta)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	snap, _ = store.Load(ctx)
	if snap.Balances["alice"] != 1000 {
		t.Errorf("Balance changed by rejected delta: got %d", snap.Balances["alice"])
	}
}

func TestStateStore_ApplyConflict(t *testing.T) {
	store := NewStateStore()
	ctx := context.Background()

	if err := store.Init(ctx, genesisSnapshot()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	cfg := genesisSnapshot().Config
	cfg.Paused = true
	cfg.OpCounter = 3 // stored counter is 0

	err := store.Apply(ctx, &domain.Delta{Op: domain.OpPause, Config: cfg})
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("Expected ErrConflict, got %v", err)
	}

	snap, _ := store.Load(ctx)
	if snap.Config.Paused {
		t.Error("Conflicting delta should not be applied")
	}
}

func TestStateStore_ApplyBeforeInit(t *testing.T) {
	store := NewStateStore()

	err := store.Apply(context.Background(), &domain.Delta{Op: domain.OpPause})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStateStore_InvalidInput(t *testing.T) {
	store := NewStateStore()
	ctx := context.Background()

	if err := store.Init(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil snapshot, got %v", err)
	}
	if err := store.Apply(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil delta, got %v", err)
	}
}

func TestStateStore_ReturnsCopy(t *testing.T) {
	store := NewStateStore()
	ctx := context.Background()

	if err := store.Init(ctx, genesisSnapshot()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	snap, _ := store.Load(ctx)
	snap.Balances["mallory"] = 1 << 40
	snap.Config.Admin = "mallory"

	again, _ := store.Load(ctx)
	if _, ok := again.Balances["mallory"]; ok {
		t.Error("Store should return copy, not reference")
	}
	if again.Config.Admin != "deployer" {
		t.Error("Store config should not be mutated through a loaded snapshot")
	}
}
