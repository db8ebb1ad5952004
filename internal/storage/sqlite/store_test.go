package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dotcommander/fireverse/internal/domain/episode"
	"github.com/dotcommander/fireverse/internal/state"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "fireverse.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestOpenInMemory(t *testing.T) {
	store, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	defer store.Close()

	arcs, err := store.LoadArcs(context.Background())
	if err != nil || len(arcs) != 0 {
		t.Fatalf("LoadArcs() = %v, %v", arcs, err)
	}
}

func TestReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fireverse.db")
	ctx := context.Background()

	first, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.SaveArcs(ctx, map[string]*episode.ArcMemory{"a": episode.NewArcMemory("a", 3)}); err != nil {
		t.Fatal(err)
	}
	first.Close()

	second, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	arcs, err := second.LoadArcs(ctx)
	if err != nil || arcs["a"] == nil || arcs["a"].TotalEpisodes != 3 {
		t.Fatalf("LoadArcs() after reopen = %v, %v", arcs, err)
	}
}

func TestArcsRoundTrip(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	arcs := map[string]*episode.ArcMemory{
		"ash-veil": {
			ArcID:                "ash-veil",
			TotalEpisodes:        10,
			CompletedEpisodes:    4,
			CurrentProgressStage: episode.StageBuildup,
			EscalationLevel:      0.33339999,
		},
	}
	if err := store.SaveArcs(ctx, arcs); err != nil {
		t.Fatalf("SaveArcs() error = %v", err)
	}

	loaded, err := store.LoadArcs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	got := loaded["ash-veil"]
	if got == nil || got.CompletedEpisodes != 4 || got.CurrentProgressStage != episode.StageBuildup {
		t.Fatalf("loaded arc = %+v", got)
	}
	if got.EscalationLevel != 0.3334 {
		t.Errorf("EscalationLevel = %v, want 0.3334", got.EscalationLevel)
	}

	// Saving replaces the whole set.
	if err := store.SaveArcs(ctx, map[string]*episode.ArcMemory{}); err != nil {
		t.Fatal(err)
	}
	if loaded, _ := store.LoadArcs(ctx); len(loaded) != 0 {
		t.Errorf("arcs after empty save = %v", loaded)
	}
}

func TestTrackerRoundTripPerWorld(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	tr := episode.NewCreatureTracker()
	tr.CreaturesUsed["ember"] = 3
	tr.CreaturesUsed["ash"] = 3
	tr.MainEpisodeAssignments["ember"] = []int{1, 3}
	tr.MainEpisodeAssignments["ash"] = []int{2}
	tr.BackgroundAppearances["ember"] = []int{2}
	tr.BackgroundAppearances["ash"] = []int{1, 3}

	if err := store.SaveTracker(ctx, "ember wastes", tr); err != nil {
		t.Fatalf("SaveTracker() error = %v", err)
	}

	loaded, err := store.LoadTracker(ctx, "ember wastes")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Uses("ember") != 3 {
		t.Errorf("Uses(ember) = %d", loaded.Uses("ember"))
	}
	if got := loaded.MainAssignments("ember"); len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("MainAssignments(ember) = %v, want [1 3]", got)
	}
	if got := loaded.Backgrounds("ash"); len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("Backgrounds(ash) = %v, want [1 3]", got)
	}

	other, err := store.LoadTracker(ctx, "glass marsh")
	if err != nil || len(other.CreaturesUsed) != 0 {
		t.Errorf("other world = %+v, %v; want fresh", other, err)
	}

	// A second save replaces rather than appends.
	tr.MainEpisodeAssignments["ember"] = []int{1, 3, 4}
	if err := store.SaveTracker(ctx, "ember wastes", tr); err != nil {
		t.Fatal(err)
	}
	loaded, _ = store.LoadTracker(ctx, "ember wastes")
	if got := loaded.MainAssignments("ember"); len(got) != 3 {
		t.Errorf("MainAssignments(ember) after resave = %v", got)
	}
}

func TestSilhouettesRoundTrip(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	var hints []episode.SilhouetteHint
	hints, _ = state.RecordHint(hints, "Glass Marsh", "hooked tail", 1)
	hints, _ = state.RecordHint(hints, "Ash Veil", "antlered shape", 2)
	hints = append(hints, episode.SilhouetteHint{ArcName: "Quiet", SilhouetteName: "none yet"})

	if err := store.SaveSilhouettes(ctx, hints); err != nil {
		t.Fatalf("SaveSilhouettes() error = %v", err)
	}
	loaded, err := store.LoadSilhouettes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 3 {
		t.Fatalf("len = %d, want 3", len(loaded))
	}
	if loaded[0].ArcName != "Glass Marsh" || loaded[1].ArcName != "Ash Veil" {
		t.Errorf("order not kept: %+v", loaded)
	}
	if loaded[1].LastEpisodeSeen == nil || *loaded[1].LastEpisodeSeen != 2 {
		t.Errorf("LastEpisodeSeen = %v", loaded[1].LastEpisodeSeen)
	}
	if loaded[2].LastEpisodeSeen != nil {
		t.Errorf("expected nil LastEpisodeSeen, got %d", *loaded[2].LastEpisodeSeen)
	}
}

func TestNilStoreNotConfigured(t *testing.T) {
	var store *Store
	if _, err := store.LoadArcs(context.Background()); err == nil {
		t.Fatal("expected error from nil store")
	}
}

func TestCanceledContext(t *testing.T) {
	store := openTempStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.SaveArcs(ctx, nil); err == nil {
		t.Fatal("expected context error")
	}
}

func TestLoadArcsRepairsStoredRows(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	_, err := store.sqlDB.ExecContext(ctx,
		`INSERT INTO arcs (arc_id, total_episodes, completed_episodes, current_progress_stage, escalation_level, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		"Ash Veil", 5, 9, "weird", 3.5, "2026-03-01T12:00:00Z")
	if err != nil {
		t.Fatal(err)
	}

	arcs, err := store.LoadArcs(ctx)
	if err != nil {
		t.Fatalf("LoadArcs() error = %v", err)
	}
	got := arcs["Ash Veil"]
	if got == nil || got.CompletedEpisodes != 5 || got.CurrentProgressStage != episode.StageIntro || got.EscalationLevel != 1 {
		t.Errorf("LoadArcs() = %+v, want clamped row", got)
	}
}

func TestSaveSnapshot(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	tracker := episode.NewCreatureTracker()
	tracker.CreaturesUsed["cinder hound"] = 1
	tracker.MainEpisodeAssignments["cinder hound"] = []int{1}
	seen := 1
	snap := state.Snapshot{
		Arcs:        map[string]*episode.ArcMemory{"Ash Veil": {ArcID: "Ash Veil", TotalEpisodes: 10, CompletedEpisodes: 1}},
		World:       "ember wastes",
		Tracker:     tracker,
		Silhouettes: []episode.SilhouetteHint{{ArcName: "Ash Veil", SilhouetteName: "the veiled one", HintCount: 1, LastEpisodeSeen: &seen}},
	}
	if err := store.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	arcs, err := store.LoadArcs(ctx)
	if err != nil || arcs["Ash Veil"] == nil || arcs["Ash Veil"].CompletedEpisodes != 1 {
		t.Errorf("LoadArcs() = %v, %v", arcs, err)
	}
	loaded, err := store.LoadTracker(ctx, "ember wastes")
	if err != nil || loaded.CreaturesUsed["cinder hound"] != 1 {
		t.Errorf("LoadTracker() = %+v, %v", loaded, err)
	}
	hints, err := store.LoadSilhouettes(ctx)
	if err != nil || len(hints) != 1 || hints[0].HintCount != 1 {
		t.Errorf("LoadSilhouettes() = %+v, %v", hints, err)
	}
}

func TestSaveSnapshotRollsBack(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	tracker := episode.NewCreatureTracker()
	tracker.CreaturesUsed["cinder hound"] = 1
	// Two keys naming the same arc ID collide on the primary key, after the
	// tracker and hints were already written inside the transaction.
	snap := state.Snapshot{
		Arcs: map[string]*episode.ArcMemory{
			"a": {ArcID: "Ash Veil", TotalEpisodes: 10, CompletedEpisodes: 1},
			"b": {ArcID: "Ash Veil", TotalEpisodes: 10, CompletedEpisodes: 2},
		},
		World:       "ember wastes",
		Tracker:     tracker,
		Silhouettes: []episode.SilhouetteHint{{ArcName: "Ash Veil", SilhouetteName: "the veiled one", HintCount: 1}},
	}
	if err := store.SaveSnapshot(ctx, snap); err == nil {
		t.Fatal("SaveSnapshot() succeeded, want primary key error")
	}

	loaded, err := store.LoadTracker(ctx, "ember wastes")
	if err != nil || len(loaded.CreaturesUsed) != 0 {
		t.Errorf("tracker after rollback = %+v, %v; want empty", loaded, err)
	}
	hints, err := store.LoadSilhouettes(ctx)
	if err != nil || len(hints) != 0 {
		t.Errorf("hints after rollback = %+v, %v; want empty", hints, err)
	}
}
