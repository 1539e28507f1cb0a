package memory

import (
	"context"
	"errors"
	"testing"

	"incentive-token/internal/domain"
	"incentive-token/internal/storage"
)

func TestEventLog_AppendAndGetAll(t *testing.T) {
	log := NewEventLog()
	ctx := context.Background()

	// Appended out of order, read back by Seq
	events := []*domain.Event{
		{ID: "e2", Seq: 2, Kind: domain.OpTransfer, Caller: "alice", Sender: "alice", Recipient: "bob", Amount: 10},
		{ID: "e1", Seq: 1, Kind: domain.OpMint, Caller: "deployer", Recipient: "alice", Amount: 100, MintID: 1},
	}
	for _, e := range events {
		if err := log.Append(ctx, e); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	all, err := log.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(all))
	}
	if all[0].ID != "e1" || all[1].ID != "e2" {
		t.Errorf("Events not ordered by Seq: %s, %s", all[0].ID, all[1].ID)
	}
}

func TestEventLog_GetByAccount(t *testing.T) {
	log := NewEventLog()
	ctx := context.Background()

	memo := "rent"
	_ = log.Append(ctx, &domain.Event{ID: "e1", Seq: 1, Kind: domain.OpMint, Caller: "deployer", Recipient: "alice", Amount: 100})
	_ = log.Append(ctx, &domain.Event{ID: "e2", Seq: 2, Kind: domain.OpTransfer, Caller: "alice", Sender: "alice", Recipient: "carol", Amount: 40, Memo: &memo})
	_ = log.Append(ctx, &domain.Event{ID: "e3", Seq: 3, Kind: domain.OpAddMinter, Caller: "deployer", Account: "bob"})

	carol, _ := log.GetByAccount(ctx, "carol")
	if len(carol) != 1 || carol[0].ID != "e2" {
		t.Fatalf("Expected only e2 for carol, got %d events", len(carol))
	}
	if carol[0].Memo == nil || *carol[0].Memo != "rent" {
		t.Error("Memo should be kept in the event log")
	}

	alice, _ := log.GetByAccount(ctx, "alice")
	if len(alice) != 2 {
		t.Errorf("Expected 2 events for alice, got %d", len(alice))
	}

	bob, _ := log.GetByAccount(ctx, "bob")
	if len(bob) != 1 || bob[0].Kind != domain.OpAddMinter {
		t.Errorf("Expected ADD_MINTER event for bob, got %v", bob)
	}
}

func TestEventLog_GetByKind(t *testing.T) {
	log := NewEventLog()
	ctx := context.Background()

	_ = log.Append(ctx, &domain.Event{ID: "e1", Seq: 1, Kind: domain.OpPause})
	_ = log.Append(ctx, &domain.Event{ID: "e2", Seq: 2, Kind: domain.OpUnpause})
	_ = log.Append(ctx, &domain.Event{ID: "e3", Seq: 3, Kind: domain.OpPause})

	paused, _ := log.GetByKind(ctx, domain.OpPause)
	if len(paused) != 2 {
		t.Errorf("Expected 2 PAUSE events, got %d", len(paused))
	}

	burns, _ := log.GetByKind(ctx, domain.OpBurn)
	if len(burns) != 0 {
		t.Errorf("Expected no BURN events, got %d", len(burns))
	}
}

func TestEventLog_Duplicate(t *testing.T) {
	log := NewEventLog()
	ctx := context.Background()

	if err := log.Append(ctx, &domain.Event{ID: "e1", Seq: 1}); err != nil {
		t.Fatalf("First append failed: %v", err)
	}

	err := log.Append(ctx, &domain.Event{ID: "e1", Seq: 2})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestEventLog_AppendBulkAtomic(t *testing.T) {
	log := NewEventLog()
	ctx := context.Background()

	_ = log.Append(ctx, &domain.Event{ID: "e1", Seq: 1})

	// e1 already exists, so nothing in the batch may be written
	err := log.AppendBulk(ctx, []*domain.Event{
		{ID: "e2", Seq: 2},
		{ID: "e1", Seq: 3},
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}

	all, _ := log.GetAll(ctx)
	if len(all) != 1 {
		t.Errorf("Batch should be rejected entirely, got %d events", len(all))
	}

	// Intra-batch duplicate
	err = log.AppendBulk(ctx, []*domain.Event{{ID: "e4", Seq: 4}, {ID: "e4", Seq: 5}})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey for intra-batch duplicate, got %v", err)
	}
}

func TestEventLog_InvalidInput(t *testing.T) {
	log := NewEventLog()
	ctx := context.Background()

	if err := log.Append(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}
	if err := log.Append(ctx, &domain.Event{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty ID, got %v", err)
	}
}

func TestEventLog_ReturnsCopy(t *testing.T) {
	log := NewEventLog()
	ctx := context.Background()

	memo := "original"
	e := &domain.Event{ID: "e1", Seq: 1, Memo: &memo}
	_ = log.Append(ctx, e)

	memo = "changed"

	all, _ := log.GetAll(ctx)
	if *all[0].Memo != "original" {
		t.Error("Log should store copy, not reference")
	}
}
