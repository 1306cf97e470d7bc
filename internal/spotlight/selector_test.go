package spotlight

import (
	"context"
	"math"
	"testing"
	"time"

	"listrank/internal/discovery"
	"listrank/internal/domain"
	"listrank/internal/storage/memory"
)

type fixture struct {
	lists      *memory.ListStore
	creators   *memory.CreatorStore
	ranks      *memory.CreatorRankStore
	engagement *memory.EngagementStore
}

func newFixture() *fixture {
	lists := memory.NewListStore()
	return &fixture{
		lists:      lists,
		creators:   memory.NewCreatorStore(lists),
		ranks:      memory.NewCreatorRankStore(),
		engagement: memory.NewEngagementStore(),
	}
}

func (f *fixture) selector() *Selector {
	d := discovery.NewEngine(f.lists, f.creators, f.ranks, f.engagement, nil)
	return NewSelector(d, f.engagement, f.lists)
}

func (f *fixture) addCreator(t *testing.T, id, category string) {
	t.Helper()
	err := f.creators.Insert(context.Background(), &domain.Creator{
		ID: id, Username: "user-" + id, Role: domain.RoleCurator,
	})
	if err != nil {
		t.Fatalf("Insert creator %s failed: %v", id, err)
	}
	f.addList(t, &domain.List{
		ID:        id + "-list",
		Category:  category,
		CreatorID: id,
	})
}

func (f *fixture) addList(t *testing.T, l *domain.List) {
	t.Helper()
	l.IsActive = true
	l.IsPublic = true
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	}
	if err := f.lists.Insert(context.Background(), l); err != nil {
		t.Fatalf("Insert list %s failed: %v", l.ID, err)
	}
}

func (f *fixture) save(t *testing.T, userID, category string) {
	t.Helper()
	err := f.engagement.RecordEvent(context.Background(), &domain.EngagementEvent{
		ListID:       "some-list",
		UserID:       userID,
		ListCategory: category,
		Kind:         domain.EventSave,
		OccurredAt:   time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("RecordEvent failed: %v", err)
	}
}

func (f *fixture) rank(t *testing.T, userID string, influence, momentum float64) {
	t.Helper()
	err := f.ranks.Upsert(context.Background(), &domain.CreatorRank{
		UserID:         userID,
		InfluenceScore: influence,
		MomentumScore:  momentum,
		ComputedAt:     time.Date(2026, 8, 18, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Upsert rank %s failed: %v", userID, err)
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSpotlight_EmptyCatalog(t *testing.T) {
	f := newFixture()

	sp, err := f.selector().Spotlight(context.Background(), "viewer")
	if err != nil {
		t.Fatalf("Spotlight failed: %v", err)
	}
	if sp != nil {
		t.Fatalf("expected nil spotlight on empty catalog, got %+v", sp)
	}
}

func TestSpotlight_RisingFallback(t *testing.T) {
	f := newFixture()
	f.addCreator(t, "slow", "art")
	f.addCreator(t, "surging", "travel")
	f.rank(t, "slow", 3, 2)
	f.rank(t, "surging", 1, 5)

	// The viewer has no saves, likes or created lists: no taste signal.
	sp, err := f.selector().Spotlight(context.Background(), "viewer")
	if err != nil {
		t.Fatalf("Spotlight failed: %v", err)
	}
	if sp == nil {
		t.Fatal("expected a rising-creator fallback, got nil")
	}
	if !sp.IsRisingFallback {
		t.Error("IsRisingFallback = false, want true")
	}
	if sp.Creator.ID != "surging" {
		t.Errorf("picked %s, want the highest-momentum creator", sp.Creator.ID)
	}
	if sp.Explanation != "rising creator this week" {
		t.Errorf("Explanation = %q", sp.Explanation)
	}
	if !almostEqual(sp.Score, 1.0) {
		t.Errorf("Score = %v, want the normalized momentum 1.0", sp.Score)
	}
}

func TestSpotlight_RisingFallbackTieBreaksByID(t *testing.T) {
	f := newFixture()
	f.addCreator(t, "beta", "art")
	f.addCreator(t, "alpha", "travel")

	sp, err := f.selector().Spotlight(context.Background(), "viewer")
	if err != nil {
		t.Fatalf("Spotlight failed: %v", err)
	}
	if sp == nil || sp.Creator.ID != "alpha" {
		t.Fatalf("got %+v, want alpha on a momentum tie", sp)
	}
}

func TestSpotlight_AffinityWeightedPick(t *testing.T) {
	f := newFixture()
	f.addCreator(t, "match", "art")
	f.addCreator(t, "other", "food")
	f.rank(t, "match", 10, 10)
	f.rank(t, "other", 10, 10)
	f.save(t, "viewer", "art")

	sp, err := f.selector().Spotlight(context.Background(), "viewer")
	if err != nil {
		t.Fatalf("Spotlight failed: %v", err)
	}
	if sp == nil {
		t.Fatal("expected a spotlight, got nil")
	}
	if sp.IsRisingFallback {
		t.Error("IsRisingFallback = true for a user with history")
	}
	if sp.Creator.ID != "match" {
		t.Errorf("picked %s, want the affinity match", sp.Creator.ID)
	}
	// 0.5*1.0 affinity + 0.2*1.0 influence + 0.2*1.0 momentum + 0.1*0.1
	// neutral behavior.
	if !almostEqual(sp.Score, 0.91) {
		t.Errorf("Score = %v, want 0.91", sp.Score)
	}
	if sp.Category != "art" {
		t.Errorf("Category = %q, want art", sp.Category)
	}
	if sp.Explanation != "because you saved 1 art items" {
		t.Errorf("Explanation = %q", sp.Explanation)
	}
}

func TestSpotlight_TieBreaksByCreatorID(t *testing.T) {
	f := newFixture()
	f.addCreator(t, "bravo", "art")
	f.addCreator(t, "alpha", "art")
	f.save(t, "viewer", "art")

	sp, err := f.selector().Spotlight(context.Background(), "viewer")
	if err != nil {
		t.Fatalf("Spotlight failed: %v", err)
	}
	if sp == nil || sp.Creator.ID != "alpha" {
		t.Fatalf("got %+v, want alpha on a score tie", sp)
	}
}

func TestSpotlight_ExplanationBothClauses(t *testing.T) {
	f := newFixture()
	f.addCreator(t, "c1", "art")
	f.save(t, "viewer", "art")
	f.save(t, "viewer", "art")
	f.save(t, "viewer", "art")
	f.addList(t, &domain.List{ID: "mine-1", Category: "art", CreatorID: "viewer"})
	f.addList(t, &domain.List{ID: "mine-2", Category: "art", CreatorID: "viewer"})

	sp, err := f.selector().Spotlight(context.Background(), "viewer")
	if err != nil {
		t.Fatalf("Spotlight failed: %v", err)
	}
	want := "because you saved 3 art items and created 2 art lists"
	if sp == nil || sp.Explanation != want {
		t.Fatalf("Explanation = %q, want %q", sp.Explanation, want)
	}
}

func TestSpotlight_ExplanationCreatedOnly(t *testing.T) {
	f := newFixture()
	f.addCreator(t, "c1", "travel")
	f.addList(t, &domain.List{ID: "mine-1", Category: "travel", CreatorID: "viewer"})
	f.addList(t, &domain.List{ID: "mine-2", Category: "travel", CreatorID: "viewer"})

	sp, err := f.selector().Spotlight(context.Background(), "viewer")
	if err != nil {
		t.Fatalf("Spotlight failed: %v", err)
	}
	want := "because you created 2 travel lists"
	if sp == nil || sp.Explanation != want {
		t.Fatalf("Explanation = %q, want %q", sp.Explanation, want)
	}
}

func TestSpotlight_ExplanationGenericFallback(t *testing.T) {
	f := newFixture()
	// The viewer's taste is food, but the only candidate curates art: no
	// category-specific clause applies.
	f.addCreator(t, "c1", "art")
	f.save(t, "viewer", "food")

	sp, err := f.selector().Spotlight(context.Background(), "viewer")
	if err != nil {
		t.Fatalf("Spotlight failed: %v", err)
	}
	want := "because you're active in art"
	if sp == nil || sp.Explanation != want {
		t.Fatalf("Explanation = %q, want %q", sp.Explanation, want)
	}
}
