package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"listrank/internal/domain"
	"listrank/internal/storage"
)

func TestCreatorRankStore_UpsertReplaces(t *testing.T) {
	store := NewCreatorRankStore()
	ctx := context.Background()

	first := &domain.CreatorRank{
		UserID:         "c1",
		InfluenceScore: 10,
		MomentumScore:  1,
		ComputedAt:     time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := store.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	second := &domain.CreatorRank{
		UserID:         "c1",
		InfluenceScore: 20,
		MomentumScore:  5,
		ComputedAt:     time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
	}
	if err := store.Upsert(ctx, second); err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}

	got, err := store.GetByIDs(ctx, []string{"c1"})
	if err != nil {
		t.Fatalf("GetByIDs failed: %v", err)
	}
	r, ok := got["c1"]
	if !ok {
		t.Fatal("c1 missing from result")
	}
	if r.InfluenceScore != 20 || r.MomentumScore != 5 {
		t.Errorf("rank = %+v, want the replaced snapshot", r)
	}
}

func TestCreatorRankStore_GetByIDs_SkipsMissing(t *testing.T) {
	store := NewCreatorRankStore()
	ctx := context.Background()

	if err := store.Upsert(ctx, &domain.CreatorRank{UserID: "c1", MomentumScore: 1}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := store.GetByIDs(ctx, []string{"c1", "ghost"})
	if err != nil {
		t.Fatalf("GetByIDs failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d ranks, want 1", len(got))
	}
	if _, ok := got["ghost"]; ok {
		t.Error("ghost has no snapshot but appears in the result")
	}
}

func TestCreatorRankStore_TopByMomentum(t *testing.T) {
	store := NewCreatorRankStore()
	ctx := context.Background()

	for _, r := range []domain.CreatorRank{
		{UserID: "slow", MomentumScore: 1},
		{UserID: "beta", MomentumScore: 8},
		{UserID: "alpha", MomentumScore: 8},
		{UserID: "surge", MomentumScore: 12},
	} {
		rankCopy := r
		if err := store.Upsert(ctx, &rankCopy); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	got, err := store.TopByMomentum(ctx, 3)
	if err != nil {
		t.Fatalf("TopByMomentum failed: %v", err)
	}
	want := []string{"surge", "alpha", "beta"}
	if len(got) != len(want) {
		t.Fatalf("got %d ranks, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].UserID != want[i] {
			t.Errorf("position %d: got %s, want %s", i, got[i].UserID, want[i])
		}
	}
}

func TestCreatorRankStore_InvalidInput(t *testing.T) {
	store := NewCreatorRankStore()

	err := store.Upsert(context.Background(), &domain.CreatorRank{})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
