package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/dotcommander/fireverse/internal/domain/episode"
	"github.com/dotcommander/fireverse/internal/rotation"
	"github.com/dotcommander/fireverse/internal/storage"
)

// ArcStatus is the progress of one catalog arc.
type ArcStatus struct {
	Name              string
	World             string
	TotalEpisodes     int
	CompletedEpisodes int
	Stage             episode.Stage
	EscalationLevel   float64
	Started           bool
	// MinMain and MaxMain are the fewest and most main assignments of any
	// creature in the arc's pool.
	MinMain int
	MaxMain int
	// Written counts the episode directories present in the output root.
	Written int
}

// Status joins every catalog arc with its stored memory. Arcs never
// generated report zero progress.
func (e *Engine) Status(ctx context.Context) ([]ArcStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	arcs, err := e.store.LoadArcs(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading arcs: %w", err)
	}

	trackers := make(map[string]*episode.CreatureTracker)
	out := make([]ArcStatus, 0, len(e.catalog.Arcs))
	for _, def := range e.catalog.Arcs {
		st := ArcStatus{
			Name:          def.Name,
			World:         def.WorldName(),
			TotalEpisodes: def.EpisodeCount,
			Stage:         episode.StageIntro,
		}
		if mem, ok := arcs[def.Name]; ok {
			st.Started = true
			st.TotalEpisodes = mem.TotalEpisodes
			st.CompletedEpisodes = mem.CompletedEpisodes
			st.Stage = mem.CurrentProgressStage
			st.EscalationLevel = mem.EscalationLevel
		}

		tracker, ok := trackers[st.World]
		if !ok {
			tracker, err = e.store.LoadTracker(ctx, st.World)
			if err != nil {
				return nil, fmt.Errorf("loading tracker for %s: %w", st.World, err)
			}
			trackers[st.World] = tracker
		}
		st.MinMain, st.MaxMain = rotation.Spread(tracker, e.catalog.Creatures(def))

		if st.Written, err = e.writtenEpisodes(ctx, def.Name); err != nil {
			return nil, err
		}

		out = append(out, st)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (e *Engine) writtenEpisodes(ctx context.Context, arcName string) (int, error) {
	if e.output == nil {
		return 0, nil
	}
	dirs, err := e.output.List(ctx, filepath.Join(storage.ArcDir(arcName), storage.EpisodeGlob))
	if err != nil {
		return 0, fmt.Errorf("listing episodes of %s: %w", arcName, err)
	}
	return len(dirs), nil
}
