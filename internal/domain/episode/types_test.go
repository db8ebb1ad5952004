package episode

import "testing"

func TestStageOrder(t *testing.T) {
	for i, st := range StageOrder {
		if st.Index() != i {
			t.Errorf("%s.Index() = %d, want %d", st, st.Index(), i)
		}
	}
	if Stage("climax").Valid() {
		t.Error("unknown stage should not be valid")
	}
}

func TestParseStage(t *testing.T) {
	tests := []struct {
		in   string
		want Stage
	}{
		{"finale", StageFinale},
		{" Buildup ", StageBuildup},
		{"", StageIntro},
		{"climax", StageIntro},
	}
	for _, tt := range tests {
		if got := ParseStage(tt.in); got != tt.want {
			t.Errorf("ParseStage(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestTrackerAccessorsDoNotInsert(t *testing.T) {
	tr := NewCreatureTracker()
	if got := tr.MainAssignments("ember"); len(got) != 0 {
		t.Fatalf("expected empty history, got %v", got)
	}
	_ = tr.Backgrounds("ember")
	_ = tr.Uses("ember")
	if len(tr.MainEpisodeAssignments) != 0 || len(tr.BackgroundAppearances) != 0 || len(tr.CreaturesUsed) != 0 {
		t.Fatal("read accessors must not mutate the tracker")
	}

	tr.MainEpisodeAssignments["ember"] = []int{1}
	hist := tr.MainAssignments("ember")
	hist[0] = 99
	if tr.MainEpisodeAssignments["ember"][0] != 1 {
		t.Fatal("MainAssignments should return a copy")
	}
}

func TestNilTrackerIsFresh(t *testing.T) {
	var tr *CreatureTracker
	if tr.Uses("x") != 0 || tr.MainCount("x") != 0 || tr.MainAssignments("x") != nil {
		t.Fatal("nil tracker should read as empty")
	}
}

func TestNormalize(t *testing.T) {
	tr := &CreatureTracker{}
	tr.Normalize()
	tr.CreaturesUsed["a"]++
	tr.MainEpisodeAssignments["a"] = append(tr.MainEpisodeAssignments["a"], 1)
	tr.BackgroundAppearances["a"] = append(tr.BackgroundAppearances["a"], 2)
}

func TestArcDefinitionWorldName(t *testing.T) {
	if got := (ArcDefinition{Name: "Ash"}).WorldName(); got != "Ash" {
		t.Errorf("WorldName() = %q, want Ash", got)
	}
	if got := (ArcDefinition{Name: "Ash", World: "cinder"}).WorldName(); got != "cinder" {
		t.Errorf("WorldName() = %q, want cinder", got)
	}
}
