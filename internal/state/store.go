// Package state persists what the planner remembers between invocations:
// arc memory, one creature tracker per world and silhouette hint counts.
package state

import (
	"context"
	"math"
	"sort"

	"github.com/dotcommander/fireverse/internal/domain/episode"
)

// Store loads and saves planner state. Loads never fail on missing or
// unreadable records; they return fresh state instead.
type Store interface {
	LoadArcs(ctx context.Context) (map[string]*episode.ArcMemory, error)
	SaveArcs(ctx context.Context, arcs map[string]*episode.ArcMemory) error
	LoadTracker(ctx context.Context, world string) (*episode.CreatureTracker, error)
	SaveTracker(ctx context.Context, world string, tracker *episode.CreatureTracker) error
	LoadSilhouettes(ctx context.Context) ([]episode.SilhouetteHint, error)
	SaveSilhouettes(ctx context.Context, hints []episode.SilhouetteHint) error
	// SaveSnapshot persists everything one generated episode touched.
	SaveSnapshot(ctx context.Context, snap Snapshot) error
}

// Snapshot is the state written back after planning one episode.
type Snapshot struct {
	Arcs        map[string]*episode.ArcMemory
	World       string
	Tracker     *episode.CreatureTracker
	Silhouettes []episode.SilhouetteHint
}

// RecordHint counts one more tease of silhouette in arc at episodeNumber.
// It returns the updated list and a copy of the touched entry.
func RecordHint(hints []episode.SilhouetteHint, arcName, silhouette string, episodeNumber int) ([]episode.SilhouetteHint, episode.SilhouetteHint) {
	idx := -1
	for i := range hints {
		if hints[i].ArcName == arcName && hints[i].SilhouetteName == silhouette {
			idx = i
			break
		}
	}
	if idx < 0 {
		hints = append(hints, episode.SilhouetteHint{ArcName: arcName, SilhouetteName: silhouette})
		idx = len(hints) - 1
	}

	seen := episodeNumber
	hints[idx].HintCount++
	hints[idx].LastEpisodeSeen = &seen

	entry := hints[idx]
	last := seen
	entry.LastEpisodeSeen = &last
	return hints, entry
}

// HintCount returns how often silhouette has been teased in arc.
func HintCount(hints []episode.SilhouetteHint, arcName, silhouette string) int {
	for _, h := range hints {
		if h.ArcName == arcName && h.SilhouetteName == silhouette {
			return h.HintCount
		}
	}
	return 0
}

// RoundEscalation rounds an escalation level to four decimals for storage.
func RoundEscalation(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// RepairArc brings a decoded arc back inside its invariants.
func RepairArc(arc *episode.ArcMemory) {
	arc.TotalEpisodes = max(arc.TotalEpisodes, 0)
	arc.CompletedEpisodes = min(max(arc.CompletedEpisodes, 0), arc.TotalEpisodes)
	arc.CurrentProgressStage = episode.ParseStage(string(arc.CurrentProgressStage))
	if math.IsNaN(arc.EscalationLevel) || arc.EscalationLevel < 0 {
		arc.EscalationLevel = 0
	}
	if arc.EscalationLevel > 1 {
		arc.EscalationLevel = 1
	}
}

// sortedArcs returns the arcs ordered by ID so saved files are stable.
func sortedArcs(arcs map[string]*episode.ArcMemory) []episode.ArcMemory {
	ids := make([]string, 0, len(arcs))
	for id, arc := range arcs {
		if arc != nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	out := make([]episode.ArcMemory, 0, len(ids))
	for _, id := range ids {
		arc := *arcs[id]
		if arc.ArcID == "" {
			arc.ArcID = id
		}
		arc.EscalationLevel = RoundEscalation(arc.EscalationLevel)
		out = append(out, arc)
	}
	return out
}
