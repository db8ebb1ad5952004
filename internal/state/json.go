package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"

	"github.com/dotcommander/fireverse/internal/domain/episode"
	"github.com/dotcommander/fireverse/internal/storage"
)

const (
	arcsFile        = "arcs.json"
	trackerFile     = "creature_tracker.json"
	silhouettesFile = "enemy_silhouettes.json"
)

type arcsDocument struct {
	Arcs []episode.ArcMemory `json:"arcs"`
}

// JSONStore keeps planner state as indented JSON files in a Storage.
type JSONStore struct {
	storage storage.Storage
	logger  *slog.Logger
}

type Option func(*JSONStore)

func WithLogger(logger *slog.Logger) Option {
	return func(s *JSONStore) {
		s.logger = logger
	}
}

func NewJSONStore(st storage.Storage, opts ...Option) *JSONStore {
	s := &JSONStore{
		storage: st,
		logger:  slog.Default().With("component", "json_store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TrackerPath is the file holding the tracker of world. The empty world
// uses the single shared tracker file.
func TrackerPath(world string) string {
	if world == "" {
		return trackerFile
	}
	return path.Join("trackers", storage.SafeName(world)+".json")
}

// load decodes file into v. It reports false when the file is missing or
// malformed, in which case the caller starts fresh.
func (s *JSONStore) load(ctx context.Context, file string, v any) bool {
	if !s.storage.Exists(ctx, file) {
		return false
	}
	data, err := s.storage.Load(ctx, file)
	if err != nil {
		s.logger.Warn("Unreadable state file, starting fresh", "file", file, "error", err)
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.logger.Warn("Malformed state file, starting fresh", "file", file, "error", err)
		return false
	}
	return true
}

func (s *JSONStore) save(ctx context.Context, file string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", file, err)
	}
	if err := s.storage.Save(ctx, file, append(data, '\n')); err != nil {
		return fmt.Errorf("saving %s: %w", file, err)
	}
	return nil
}

func (s *JSONStore) LoadArcs(ctx context.Context) (map[string]*episode.ArcMemory, error) {
	arcs := make(map[string]*episode.ArcMemory)

	var doc arcsDocument
	if !s.load(ctx, arcsFile, &doc) {
		return arcs, nil
	}
	for i := range doc.Arcs {
		arc := doc.Arcs[i]
		if arc.ArcID == "" {
			s.logger.Warn("Skipping arc without id", "file", arcsFile, "index", i)
			continue
		}
		RepairArc(&arc)
		arcs[arc.ArcID] = &arc
	}
	return arcs, nil
}

func (s *JSONStore) SaveArcs(ctx context.Context, arcs map[string]*episode.ArcMemory) error {
	return s.save(ctx, arcsFile, arcsDocument{Arcs: sortedArcs(arcs)})
}

func (s *JSONStore) LoadTracker(ctx context.Context, world string) (*episode.CreatureTracker, error) {
	tracker := episode.NewCreatureTracker()
	if !s.load(ctx, TrackerPath(world), tracker) {
		return episode.NewCreatureTracker(), nil
	}
	tracker.Normalize()
	return tracker, nil
}

func (s *JSONStore) SaveTracker(ctx context.Context, world string, tracker *episode.CreatureTracker) error {
	if tracker == nil {
		tracker = episode.NewCreatureTracker()
	}
	tracker.Normalize()
	return s.save(ctx, TrackerPath(world), tracker)
}

func (s *JSONStore) LoadSilhouettes(ctx context.Context) ([]episode.SilhouetteHint, error) {
	var hints []episode.SilhouetteHint
	if !s.load(ctx, silhouettesFile, &hints) {
		return []episode.SilhouetteHint{}, nil
	}
	if hints == nil {
		hints = []episode.SilhouetteHint{}
	}
	return hints, nil
}

func (s *JSONStore) SaveSilhouettes(ctx context.Context, hints []episode.SilhouetteHint) error {
	if hints == nil {
		hints = []episode.SilhouetteHint{}
	}
	return s.save(ctx, silhouettesFile, hints)
}

// SaveSnapshot writes the tracker and hints before the arcs, so a save cut
// short never leaves an arc advanced past its recorded creatures.
func (s *JSONStore) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	if err := s.SaveTracker(ctx, snap.World, snap.Tracker); err != nil {
		return err
	}
	if err := s.SaveSilhouettes(ctx, snap.Silhouettes); err != nil {
		return err
	}
	return s.SaveArcs(ctx, snap.Arcs)
}
