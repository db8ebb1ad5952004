package episode

// CreatureTracker records how often each creature of a world has appeared.
type CreatureTracker struct {
	CreaturesUsed          map[string]int   `json:"creatures_used"`
	MainEpisodeAssignments map[string][]int `json:"main_episode_assignments"`
	BackgroundAppearances  map[string][]int `json:"background_appearances"`
}

func NewCreatureTracker() *CreatureTracker {
	return &CreatureTracker{
		CreaturesUsed:          make(map[string]int),
		MainEpisodeAssignments: make(map[string][]int),
		BackgroundAppearances:  make(map[string][]int),
	}
}

// Normalize replaces nil maps so a tracker decoded from partial state can be
// mutated safely.
func (t *CreatureTracker) Normalize() {
	if t.CreaturesUsed == nil {
		t.CreaturesUsed = make(map[string]int)
	}
	if t.MainEpisodeAssignments == nil {
		t.MainEpisodeAssignments = make(map[string][]int)
	}
	if t.BackgroundAppearances == nil {
		t.BackgroundAppearances = make(map[string][]int)
	}
}

// Uses returns the cumulative appearance count of a creature.
func (t *CreatureTracker) Uses(name string) int {
	if t == nil {
		return 0
	}
	return t.CreaturesUsed[name]
}

// MainAssignments returns a copy of the episodes where the creature was main.
// It never inserts into the tracker.
func (t *CreatureTracker) MainAssignments(name string) []int {
	if t == nil {
		return nil
	}
	return append([]int(nil), t.MainEpisodeAssignments[name]...)
}

// Backgrounds returns a copy of the episodes where the creature was background.
func (t *CreatureTracker) Backgrounds(name string) []int {
	if t == nil {
		return nil
	}
	return append([]int(nil), t.BackgroundAppearances[name]...)
}

// MainCount is len(MainAssignments(name)) without the copy.
func (t *CreatureTracker) MainCount(name string) int {
	if t == nil {
		return 0
	}
	return len(t.MainEpisodeAssignments[name])
}

// SilhouetteHint counts how often an enemy silhouette has been teased in an arc.
type SilhouetteHint struct {
	ArcName         string `json:"arc_name"`
	SilhouetteName  string `json:"silhouette_name"`
	HintCount       int    `json:"hint_count"`
	LastEpisodeSeen *int   `json:"last_episode_seen"`
}
