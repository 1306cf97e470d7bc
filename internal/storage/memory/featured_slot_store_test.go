package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"listrank/internal/domain"
	"listrank/internal/storage"
)

var slotEpoch = time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)

func testSlot(id string, startOffset, endOffset time.Duration) *domain.FeaturedSlot {
	return &domain.FeaturedSlot{
		ID:       id,
		ListID:   "list-" + id,
		Position: "home_hero",
		StartsAt: slotEpoch.Add(startOffset),
		EndsAt:   slotEpoch.Add(endOffset),
	}
}

func TestFeaturedSlotStore_InsertAndGet(t *testing.T) {
	store := NewFeaturedSlotStore()
	ctx := context.Background()

	slot := testSlot("s1", 0, 24*time.Hour)
	slot.Impressions = 500
	if err := store.Insert(ctx, slot); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "s1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.ListID != "list-s1" || got.Impressions != 500 {
		t.Errorf("slot mismatch: %+v", got)
	}
}

func TestFeaturedSlotStore_NotFound(t *testing.T) {
	store := NewFeaturedSlotStore()

	_, err := store.GetByID(context.Background(), "nonexistent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestFeaturedSlotStore_ActiveAt_Boundaries(t *testing.T) {
	store := NewFeaturedSlotStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testSlot("s1", 0, 24*time.Hour)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Start inclusive.
	got, err := store.ActiveAt(ctx, slotEpoch)
	if err != nil {
		t.Fatalf("ActiveAt failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("at start: got %d slots, want 1", len(got))
	}

	// End exclusive.
	got, err = store.ActiveAt(ctx, slotEpoch.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("ActiveAt failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("at end: got %d slots, want 0", len(got))
	}
}

func TestFeaturedSlotStore_InRange_Overlap(t *testing.T) {
	store := NewFeaturedSlotStore()
	ctx := context.Background()

	// Ends exactly at the range start: outside.
	if err := store.Insert(ctx, testSlot("before", -48*time.Hour, 0)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	// Straddles the range start: inside.
	if err := store.Insert(ctx, testSlot("straddle", -24*time.Hour, 12*time.Hour)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	// Fully inside.
	if err := store.Insert(ctx, testSlot("inside", 6*time.Hour, 18*time.Hour)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	// Starts exactly at the range end: outside.
	if err := store.Insert(ctx, testSlot("after", 24*time.Hour, 48*time.Hour)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.InRange(ctx, slotEpoch, slotEpoch.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("InRange failed: %v", err)
	}
	want := []string{"straddle", "inside"} // starts_at ascending
	if len(got) != len(want) {
		ids := make([]string, len(got))
		for i, s := range got {
			ids[i] = s.ID
		}
		t.Fatalf("got %v, want %v", ids, want)
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("position %d: got %s, want %s", i, got[i].ID, want[i])
		}
	}
}

func TestFeaturedSlotStore_BaselineWriteOnce(t *testing.T) {
	store := NewFeaturedSlotStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testSlot("s1", 0, 24*time.Hour)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	first := 50.0
	if err := store.UpsertScoreSnapshot(ctx, "s1", &first, nil); err != nil {
		t.Fatalf("UpsertScoreSnapshot failed: %v", err)
	}
	second := 99.0
	if err := store.UpsertScoreSnapshot(ctx, "s1", &second, nil); err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "s1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.BaselineScore == nil || *got.BaselineScore != 50 {
		t.Errorf("BaselineScore = %v, want the first captured value 50", got.BaselineScore)
	}
}

func TestFeaturedSlotStore_PeakOnlyRises(t *testing.T) {
	store := NewFeaturedSlotStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testSlot("s1", 0, 24*time.Hour)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	for _, v := range []float64{40, 80, 60} {
		peak := v
		if err := store.UpsertScoreSnapshot(ctx, "s1", nil, &peak); err != nil {
			t.Fatalf("UpsertScoreSnapshot failed: %v", err)
		}
	}

	got, err := store.GetByID(ctx, "s1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.PeakScore == nil || *got.PeakScore != 80 {
		t.Errorf("PeakScore = %v, want the high-water mark 80", got.PeakScore)
	}
}

func TestFeaturedSlotStore_SnapshotNilPointersNoOp(t *testing.T) {
	store := NewFeaturedSlotStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testSlot("s1", 0, 24*time.Hour)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.UpsertScoreSnapshot(ctx, "s1", nil, nil); err != nil {
		t.Fatalf("UpsertScoreSnapshot failed: %v", err)
	}

	got, err := store.GetByID(ctx, "s1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.BaselineScore != nil || got.PeakScore != nil {
		t.Errorf("snapshot fields set by a nil write: %+v", got)
	}
}

func TestFeaturedSlotStore_SnapshotUnknownSlot(t *testing.T) {
	store := NewFeaturedSlotStore()

	score := 1.0
	err := store.UpsertScoreSnapshot(context.Background(), "nonexistent", &score, nil)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
