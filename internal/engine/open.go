package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dotcommander/fireverse/internal/config"
	"github.com/dotcommander/fireverse/internal/prompt"
	"github.com/dotcommander/fireverse/internal/state"
	"github.com/dotcommander/fireverse/internal/storage"
	"github.com/dotcommander/fireverse/internal/storage/sqlite"
	"github.com/dotcommander/fireverse/internal/world"
)

// Open builds an engine from configuration: the world catalog, the state
// store selected by storage.backend, the prompt renderer and the output
// directory. The caller must Close the engine.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	catalog, err := world.Load(cfg.Paths.WorldFile)
	if err != nil {
		return nil, fmt.Errorf("loading world catalog: %w", err)
	}

	renderer, err := prompt.NewRenderer(cfg.Paths.PromptsDir,
		prompt.WithLogger(logger.With("component", "prompt_renderer")))
	if err != nil {
		return nil, fmt.Errorf("loading prompt templates: %w", err)
	}

	var store state.Store
	var closer func() error
	switch cfg.Storage.Backend {
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		store, closer = db, db.Close
	default:
		store = state.NewJSONStore(storage.NewFileSystem(cfg.Paths.StateDir),
			state.WithLogger(logger.With("component", "json_store")))
	}

	e := New(catalog, store, renderer, storage.NewFileSystem(cfg.Paths.OutputDir),
		WithLogger(logger.With("component", "engine")),
		WithRecentWindow(cfg.Rotation.RecentWindow),
		WithDirector(cfg.Director),
		WithValidator(world.NewValidator(cfg.Limits)),
	)
	e.closer = closer
	return e, nil
}
