// Package sqlite keeps planner state in a single SQLite database as an
// alternative to the JSON files.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dotcommander/fireverse/internal/core"
	"github.com/dotcommander/fireverse/internal/domain/episode"
	"github.com/dotcommander/fireverse/internal/state"
	"github.com/dotcommander/fireverse/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

const timeFormat = time.RFC3339Nano

const (
	roleMain       = "main"
	roleBackground = "background"
)

// Store implements state.Store on SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := ":memory:"
	if path != dsn {
		cleanPath := filepath.Clean(path)
		if err := os.MkdirAll(filepath.Dir(cleanPath), 0755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
		dsn = cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// :memory: databases live per connection
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return core.ErrNotConfigured
	}
	return nil
}

func (s *Store) LoadArcs(ctx context.Context) (map[string]*episode.ArcMemory, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, `SELECT arc_id, total_episodes, completed_episodes, current_progress_stage, escalation_level FROM arcs`)
	if err != nil {
		return nil, fmt.Errorf("query arcs: %w", err)
	}
	defer rows.Close()

	arcs := make(map[string]*episode.ArcMemory)
	for rows.Next() {
		var arc episode.ArcMemory
		var stage string
		if err := rows.Scan(&arc.ArcID, &arc.TotalEpisodes, &arc.CompletedEpisodes, &stage, &arc.EscalationLevel); err != nil {
			return nil, fmt.Errorf("scan arc: %w", err)
		}
		arc.CurrentProgressStage = episode.Stage(stage)
		state.RepairArc(&arc)
		arcs[arc.ArcID] = &arc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate arcs: %w", err)
	}
	return arcs, nil
}

// SaveArcs replaces the stored arcs with arcs.
func (s *Store) SaveArcs(ctx context.Context, arcs map[string]*episode.ArcMemory) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	return s.inTx(ctx, "save arcs", func(tx *sql.Tx) error {
		return saveArcs(ctx, tx, arcs)
	})
}

func saveArcs(ctx context.Context, tx *sql.Tx, arcs map[string]*episode.ArcMemory) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM arcs`); err != nil {
		return err
	}
	now := time.Now().UTC().Format(timeFormat)
	for id, arc := range arcs {
		if arc == nil {
			continue
		}
		if arc.ArcID != "" {
			id = arc.ArcID
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO arcs (arc_id, total_episodes, completed_episodes, current_progress_stage, escalation_level, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			id, arc.TotalEpisodes, arc.CompletedEpisodes, string(arc.CurrentProgressStage), state.RoundEscalation(arc.EscalationLevel), now,
		)
		if err != nil {
			return fmt.Errorf("insert arc %s: %w", id, err)
		}
	}
	return nil
}

func (s *Store) LoadTracker(ctx context.Context, world string) (*episode.CreatureTracker, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	tracker := episode.NewCreatureTracker()
	if err := s.loadUsage(ctx, world, tracker); err != nil {
		return nil, err
	}
	if err := s.loadAssignments(ctx, world, tracker); err != nil {
		return nil, err
	}
	return tracker, nil
}

// Each query drains and closes its rows before the next one starts; the pool
// holds a single connection.
func (s *Store) loadUsage(ctx context.Context, world string, tracker *episode.CreatureTracker) error {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT creature, uses FROM creature_usage WHERE world = ?`, world)
	if err != nil {
		return fmt.Errorf("query creature usage: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var uses int
		if err := rows.Scan(&name, &uses); err != nil {
			return fmt.Errorf("scan creature usage: %w", err)
		}
		tracker.CreaturesUsed[name] = uses
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate creature usage: %w", err)
	}
	return nil
}

func (s *Store) loadAssignments(ctx context.Context, world string, tracker *episode.CreatureTracker) error {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT creature, role, episode_number FROM creature_assignments WHERE world = ? ORDER BY creature, role, seq`, world)
	if err != nil {
		return fmt.Errorf("query creature assignments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, role string
		var ep int
		if err := rows.Scan(&name, &role, &ep); err != nil {
			return fmt.Errorf("scan creature assignment: %w", err)
		}
		switch role {
		case roleMain:
			tracker.MainEpisodeAssignments[name] = append(tracker.MainEpisodeAssignments[name], ep)
		case roleBackground:
			tracker.BackgroundAppearances[name] = append(tracker.BackgroundAppearances[name], ep)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate creature assignments: %w", err)
	}
	return nil
}

// SaveTracker replaces the stored tracker of world.
func (s *Store) SaveTracker(ctx context.Context, world string, tracker *episode.CreatureTracker) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.inTx(ctx, "save tracker", func(tx *sql.Tx) error {
		return saveTracker(ctx, tx, world, tracker)
	})
}

func saveTracker(ctx context.Context, tx *sql.Tx, world string, tracker *episode.CreatureTracker) error {
	if tracker == nil {
		tracker = episode.NewCreatureTracker()
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM creature_usage WHERE world = ?`, world); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM creature_assignments WHERE world = ?`, world); err != nil {
		return err
	}

	for name, uses := range tracker.CreaturesUsed {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO creature_usage (world, creature, uses) VALUES (?, ?, ?)`, world, name, uses); err != nil {
			return fmt.Errorf("insert usage %s: %w", name, err)
		}
	}
	if err := insertAssignments(ctx, tx, world, roleMain, tracker.MainEpisodeAssignments); err != nil {
		return err
	}
	return insertAssignments(ctx, tx, world, roleBackground, tracker.BackgroundAppearances)
}

func insertAssignments(ctx context.Context, tx *sql.Tx, world, role string, history map[string][]int) error {
	for name, episodes := range history {
		for seq, ep := range episodes {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO creature_assignments (world, creature, role, seq, episode_number) VALUES (?, ?, ?, ?, ?)`,
				world, name, role, seq, ep); err != nil {
				return fmt.Errorf("insert %s assignment %s: %w", role, name, err)
			}
		}
	}
	return nil
}

func (s *Store) LoadSilhouettes(ctx context.Context) ([]episode.SilhouetteHint, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT arc_name, silhouette_name, hint_count, last_episode_seen FROM silhouette_hints ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query silhouette hints: %w", err)
	}
	defer rows.Close()

	hints := []episode.SilhouetteHint{}
	for rows.Next() {
		var h episode.SilhouetteHint
		var last sql.NullInt64
		if err := rows.Scan(&h.ArcName, &h.SilhouetteName, &h.HintCount, &last); err != nil {
			return nil, fmt.Errorf("scan silhouette hint: %w", err)
		}
		if last.Valid {
			ep := int(last.Int64)
			h.LastEpisodeSeen = &ep
		}
		hints = append(hints, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate silhouette hints: %w", err)
	}
	return hints, nil
}

// SaveSilhouettes replaces the stored hints, keeping their order.
func (s *Store) SaveSilhouettes(ctx context.Context, hints []episode.SilhouetteHint) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	return s.inTx(ctx, "save silhouettes", func(tx *sql.Tx) error {
		return saveSilhouettes(ctx, tx, hints)
	})
}

func saveSilhouettes(ctx context.Context, tx *sql.Tx, hints []episode.SilhouetteHint) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM silhouette_hints`); err != nil {
		return err
	}
	for i, h := range hints {
		var last sql.NullInt64
		if h.LastEpisodeSeen != nil {
			last = sql.NullInt64{Int64: int64(*h.LastEpisodeSeen), Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO silhouette_hints (arc_name, silhouette_name, position, hint_count, last_episode_seen) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT (arc_name, silhouette_name) DO UPDATE SET hint_count = excluded.hint_count, last_episode_seen = excluded.last_episode_seen`,
			h.ArcName, h.SilhouetteName, i, h.HintCount, last); err != nil {
			return fmt.Errorf("insert silhouette hint %s/%s: %w", h.ArcName, h.SilhouetteName, err)
		}
	}
	return nil
}

// SaveSnapshot writes tracker, hints and arcs in one transaction.
func (s *Store) SaveSnapshot(ctx context.Context, snap state.Snapshot) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	return s.inTx(ctx, "save snapshot", func(tx *sql.Tx) error {
		if err := saveTracker(ctx, tx, snap.World, snap.Tracker); err != nil {
			return err
		}
		if err := saveSilhouettes(ctx, tx, snap.Silhouettes); err != nil {
			return err
		}
		return saveArcs(ctx, tx, snap.Arcs)
	})
}

func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}

var _ state.Store = (*Store)(nil)
