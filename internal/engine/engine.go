// Package engine runs the episode pipeline: load state, plan progression and
// creatures, render prompts, persist state and write the episode artifacts.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dotcommander/fireverse/internal/config"
	"github.com/dotcommander/fireverse/internal/core"
	"github.com/dotcommander/fireverse/internal/director"
	"github.com/dotcommander/fireverse/internal/domain/episode"
	"github.com/dotcommander/fireverse/internal/progression"
	"github.com/dotcommander/fireverse/internal/prompt"
	"github.com/dotcommander/fireverse/internal/rotation"
	"github.com/dotcommander/fireverse/internal/state"
	"github.com/dotcommander/fireverse/internal/storage"
	"github.com/dotcommander/fireverse/internal/world"
)

// Artifact file names written into each episode directory.
const (
	RecordFile  = "record.json"
	PromptFile  = "prompt.txt"
	EpisodeFile = "episode.md"
)

type Engine struct {
	catalog      *world.Catalog
	store        state.Store
	renderer     *prompt.Renderer
	output       storage.Storage
	validator    *world.Validator
	director     map[string]any
	recentWindow int
	logger       *slog.Logger
	now          func() time.Time
	closer       func() error

	// mu guards the load, mutate and save section of Generate.
	mu sync.Mutex
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRecentWindow sets the main-creature cooldown in episodes.
func WithRecentWindow(window int) Option {
	return func(e *Engine) {
		if window > 0 {
			e.recentWindow = window
		}
	}
}

// WithDirector sets director overrides applied to every arc before the
// arc's own overrides.
func WithDirector(raw map[string]any) Option {
	return func(e *Engine) {
		e.director = raw
	}
}

func WithValidator(v *world.Validator) Option {
	return func(e *Engine) {
		e.validator = v
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func New(catalog *world.Catalog, store state.Store, renderer *prompt.Renderer, output storage.Storage, opts ...Option) *Engine {
	e := &Engine{
		catalog:      catalog,
		store:        store,
		renderer:     renderer,
		output:       output,
		recentWindow: rotation.DefaultRecentWindow,
		logger:       slog.Default().With("component", "engine"),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.validator == nil {
		e.validator = world.NewValidator(config.DefaultLimits())
	}
	return e
}

// Close releases the state store when it holds resources.
func (e *Engine) Close() error {
	if e.closer == nil {
		return nil
	}
	return e.closer()
}

// Settings returns the director settings an arc is planned with.
func (e *Engine) Settings(def episode.ArcDefinition) director.Settings {
	return director.Merge(director.FromMap(e.director), def.Director)
}

// Generate plans one episode of arcName. An episodeNumber of 0 plans the
// episode after the last completed one; any other number plans that episode
// using the arc's stored escalation.
func (e *Engine) Generate(ctx context.Context, arcName string, episodeNumber int) (*episode.EpisodeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	def, err := e.catalog.Find(arcName)
	if err != nil {
		return nil, core.NewStepError("load", arcName, episodeNumber, err)
	}
	pool := e.catalog.Creatures(def)
	if err := e.validator.Arc(def, pool); err != nil {
		return nil, core.NewStepError("validate", def.Name, episodeNumber, err)
	}
	if err := e.validator.Episode(def, episodeNumber); err != nil {
		return nil, core.NewStepError("validate", def.Name, episodeNumber, err)
	}

	record, sheet, err := e.plan(ctx, def, pool, episodeNumber)
	if err != nil {
		return nil, err
	}

	if err := e.writeArtifacts(ctx, def, record, sheet); err != nil {
		return nil, core.NewStepError("render", def.Name, record.EpisodeNumber, err)
	}

	e.logger.Info("Generated episode",
		"arc", def.Name,
		"episode", record.EpisodeNumber,
		"stage", record.ProgressionStage,
		"escalation", record.EscalationLevel,
		"main", record.Creatures.Main != nil)
	return record, nil
}

// plan runs the stateful part of Generate under the engine lock. Nothing is
// saved unless every step before persisting succeeded.
func (e *Engine) plan(ctx context.Context, def episode.ArcDefinition, pool []string, requested int) (*episode.EpisodeRecord, string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	arcs, err := e.store.LoadArcs(ctx)
	if err != nil {
		return nil, "", core.NewStepError("load", def.Name, requested, fmt.Errorf("loading arcs: %w", err))
	}
	memory, ok := arcs[def.Name]
	if !ok {
		memory = episode.NewArcMemory(def.Name, def.EpisodeCount)
		arcs[def.Name] = memory
		e.logger.Info("Starting arc", "arc", def.Name, "episodes", def.EpisodeCount)
	}
	if requested == 0 && memory.Finished() {
		e.logger.Warn("Arc already complete, replanning final episode", "arc", def.Name, "episodes", memory.TotalEpisodes)
	}

	settings := e.Settings(def)
	epNum := requested
	var prog episode.ArcProgression
	switch {
	case requested == 0:
		epNum, prog = progression.Advance(memory, &settings)
	case requested > memory.CompletedEpisodes:
		prog = progression.Compute(requested, memory.TotalEpisodes, &settings, memory.EscalationLevel)
		progression.Apply(memory, requested, prog)
	default:
		// Replanning a completed episode leaves the arc where it is.
		prog = progression.Compute(requested, memory.TotalEpisodes, &settings, memory.EscalationLevel)
		e.logger.Debug("Replanning completed episode", "arc", def.Name, "episode", requested, "completed", memory.CompletedEpisodes)
	}

	tracker, err := e.store.LoadTracker(ctx, def.WorldName())
	if err != nil {
		return nil, "", core.NewStepError("load", def.Name, epNum, fmt.Errorf("loading tracker: %w", err))
	}
	sel := rotation.Select(pool, epNum, e.recentWindow, tracker)
	if err := e.validator.Selection(def.Name, epNum, pool, sel); err != nil {
		return nil, "", core.NewStepError("validate", def.Name, epNum, err)
	}

	hints, err := e.store.LoadSilhouettes(ctx)
	if err != nil {
		return nil, "", core.NewStepError("load", def.Name, epNum, fmt.Errorf("loading silhouettes: %w", err))
	}
	hints, hint := state.RecordHint(hints, def.Name, def.EnemySilhouette, epNum)

	data := prompt.Data{
		Arc:         def,
		Episode:     epNum,
		Progression: prog,
		Main:        sel.MainPtr(),
		Background:  sel.Background,
		Scenes:      prompt.SceneStructure(def, prog),
		Director:    settings,
		HintCount:   hint.HintCount,
	}
	data.Prompts, err = e.renderer.Render(data)
	if err != nil {
		return nil, "", core.NewStepError("plan", def.Name, epNum, err)
	}
	sheet, err := e.renderer.RenderEpisode(data)
	if err != nil {
		return nil, "", core.NewStepError("plan", def.Name, epNum, err)
	}

	record := &episode.EpisodeRecord{
		ID:               uuid.NewString(),
		ArcID:            memory.ArcID,
		EpisodeNumber:    epNum,
		ProgressionStage: prog.Stage,
		PositionRatio:    prog.PositionRatio,
		EscalationLevel:  prog.EscalationLevel,
		Scene: episode.SceneSignals{
			Intensity:               prog.SceneIntensity,
			DisturbanceFrequency:    prog.DisturbanceFrequency,
			EnemySilhouettePresence: prog.SilhouettePresence,
		},
		Narration: episode.NarrationSignals{Tension: prog.NarrationTension},
		Ending:    episode.EndingSignals{CliffhangerStrength: prog.CliffhangerStrength},
		Creatures: episode.CreaturePlan{Main: sel.MainPtr(), Background: sel.Background},
		Arc: episode.ArcSummary{
			Name:            def.Name,
			EnvironmentType: def.EnvironmentType,
			Tone:            def.Tone,
			EnemySilhouette: def.EnemySilhouette,
		},
		Director:        settings.Map(),
		Scenes:          data.Scenes,
		Prompts:         data.Prompts,
		SilhouetteHints: hint.HintCount,
		GeneratedAt:     e.now().UTC(),
	}

	snapshot := state.Snapshot{
		Arcs:        arcs,
		World:       def.WorldName(),
		Tracker:     tracker,
		Silhouettes: hints,
	}
	if err := e.store.SaveSnapshot(ctx, snapshot); err != nil {
		return nil, "", core.NewStepError("persist", def.Name, epNum, fmt.Errorf("saving state: %w", err))
	}

	return record, sheet, nil
}

func (e *Engine) writeArtifacts(ctx context.Context, def episode.ArcDefinition, record *episode.EpisodeRecord, sheet string) error {
	if e.output == nil {
		return nil
	}
	dir := storage.EpisodeDir(def.Name, record.EpisodeNumber)

	recordJSON, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}
	promptText := record.Prompts.System + "\n\n" + record.Prompts.User + "\n"
	episodeMD := append(storage.EpisodeMetadata(record.ID, def.Name, record.EpisodeNumber, record.GeneratedAt), sheet...)
	episodeMD = append(episodeMD, '\n')

	files := map[string][]byte{
		RecordFile:  append(recordJSON, '\n'),
		PromptFile:  []byte(promptText),
		EpisodeFile: episodeMD,
	}

	g, gctx := errgroup.WithContext(ctx)
	for name, content := range files {
		g.Go(func() error {
			if err := e.output.Save(gctx, filepath.Join(dir, name), content); err != nil {
				return fmt.Errorf("writing %s: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}
