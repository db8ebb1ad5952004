package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/log"

	"github.com/dotcommander/fireverse/internal/config"
	"github.com/dotcommander/fireverse/internal/core"
	"github.com/dotcommander/fireverse/internal/engine"
	"github.com/dotcommander/fireverse/internal/prompt"
	"github.com/dotcommander/fireverse/internal/storage"
	"github.com/dotcommander/fireverse/internal/world"
)

const usage = `Usage: fireverse [-config path] <command> [flags]

Commands:
  generate -arc NAME [-episode N]   plan and write an episode
  arcs                              list catalog arcs
  status                            show arc progress
  validate                          check the world file
  schema                            print the episode record JSON schema
  init                              write the default config file
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if core.IsTerminal(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("fireverse", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := global.String("config", "", "config file path")
	if err := global.Parse(args); err != nil {
		return err
	}

	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return errors.New("no command given")
	}
	command, cmdArgs := rest[0], rest[1:]

	if command == "init" {
		return runInit(*configPath, stdout)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Logging.Level, stderr)
	slog.SetDefault(logger)

	switch command {
	case "generate":
		return runGenerate(ctx, cfg, logger, cmdArgs, stdout, stderr)
	case "arcs":
		return runArcs(cfg, stdout)
	case "status":
		return runStatus(ctx, cfg, logger, stdout)
	case "validate":
		return runValidate(cfg, stdout)
	case "schema":
		return runSchema(stdout)
	default:
		global.Usage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

// newLogger returns a slog logger writing through a charmbracelet/log handler.
func newLogger(level string, w io.Writer) *slog.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	handler := log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          "fireverse",
		ReportTimestamp: true,
	})
	return slog.New(handler)
}

func runInit(configPath string, stdout io.Writer) error {
	if configPath == "" {
		configPath = config.DefaultPath()
	}
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s", configPath)
	}
	cfg := config.Default()
	if err := config.Save(&cfg, configPath); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Fprintf(stdout, "Wrote %s\n", configPath)
	return nil
}

func runGenerate(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	arcName := fs.String("arc", "", "arc name (case-insensitive)")
	episodeNumber := fs.Int("episode", 0, "episode number; 0 plans the next episode")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*arcName) == "" {
		return fmt.Errorf("%w: -arc is required", core.ErrInvalidInput)
	}

	e, err := engine.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer e.Close()

	rec, err := e.Generate(ctx, *arcName, *episodeNumber)
	if err != nil {
		return err
	}

	lead := "None"
	if rec.Creatures.Main != nil {
		lead = *rec.Creatures.Main
	}
	fmt.Fprintf(stdout, "%s episode %d: %s (escalation %.4f), main creature %s\n",
		rec.Arc.Name, rec.EpisodeNumber, rec.ProgressionStage, rec.EscalationLevel, lead)
	fmt.Fprintf(stdout, "Wrote %s\n", storage.EpisodePath(cfg.Paths.OutputDir, rec.Arc.Name, rec.EpisodeNumber))
	return nil
}

func runArcs(cfg *config.Config, stdout io.Writer) error {
	catalog, err := world.Load(cfg.Paths.WorldFile)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ARC\tWORLD\tEPISODES\tTONE\tSILHOUETTE")
	for _, name := range catalog.ArcNames() {
		def, err := catalog.Find(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", def.Name, def.WorldName(), def.EpisodeCount, def.Tone, def.EnemySilhouette)
	}
	return tw.Flush()
}

func runStatus(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) error {
	e, err := engine.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer e.Close()

	statuses, err := e.Status(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ARC\tWORLD\tPROGRESS\tSTAGE\tESCALATION\tMAIN SPREAD\tWRITTEN")
	for _, st := range statuses {
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s\t%.4f\t%d..%d\t%d\n",
			st.Name, st.World, st.CompletedEpisodes, st.TotalEpisodes, st.Stage, st.EscalationLevel, st.MinMain, st.MaxMain, st.Written)
	}
	return tw.Flush()
}

func runValidate(cfg *config.Config, stdout io.Writer) error {
	catalog, err := world.Load(cfg.Paths.WorldFile)
	if err != nil {
		return err
	}
	if err := world.NewValidator(cfg.Limits).Catalog(catalog); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "World catalog OK: %d arcs, %d worlds\n", len(catalog.Arcs), len(catalog.Worlds))
	return nil
}

func runSchema(stdout io.Writer) error {
	data, err := prompt.SchemaJSON()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, string(data))
	return err
}
