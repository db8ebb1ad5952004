package prompt

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/dotcommander/fireverse/internal/director"
	"github.com/dotcommander/fireverse/internal/domain/episode"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const (
	systemTemplate  = "system.tmpl"
	userTemplate    = "user.tmpl"
	episodeTemplate = "episode.tmpl"
)

var templateNames = []string{systemTemplate, userTemplate, episodeTemplate}

// Data is everything a template can reference.
type Data struct {
	Arc         episode.ArcDefinition
	Episode     int
	Progression episode.ArcProgression
	Main        *string
	Background  []string
	Scenes      []episode.ScenePlan
	Director    director.Settings
	HintCount   int
	Prompts     episode.Prompts
}

// Renderer executes the prompt templates.
type Renderer struct {
	templates *template.Template
	logger    *slog.Logger
}

type Option func(*Renderer)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		r.logger = logger
	}
}

var funcs = template.FuncMap{
	"orNone":     orNone,
	"joinOrNone": joinOrNone,
	"toJSON":     toJSON,
	"fixed":      func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"pct":        func(v float64) string { return fmt.Sprintf("%.0f%%", v*100) },
	"inc":        func(i int) int { return i + 1 },
}

// NewRenderer loads the built-in templates, replacing any that have a file
// of the same name in promptsDir. An empty promptsDir uses the built-ins only.
func NewRenderer(promptsDir string, opts ...Option) (*Renderer, error) {
	r := &Renderer{
		logger: slog.Default().With("component", "prompt_renderer"),
	}
	for _, opt := range opts {
		opt(r)
	}

	tmpl, err := template.New("prompts").Funcs(funcs).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing built-in templates: %w", err)
	}

	if promptsDir != "" {
		for _, name := range templateNames {
			path := filepath.Join(promptsDir, name)
			content, err := os.ReadFile(path)
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("reading template %s: %w", path, err)
			}
			if _, err := tmpl.New(name).Parse(string(content)); err != nil {
				return nil, fmt.Errorf("parsing template %s: %w", path, err)
			}
			r.logger.Debug("Using prompt override", "template", name, "path", path)
		}
	}

	r.templates = tmpl
	return r, nil
}

func (r *Renderer) execute(name string, data Data) (string, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("executing %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Render produces the system and user prompt blocks.
func (r *Renderer) Render(data Data) (episode.Prompts, error) {
	system, err := r.execute(systemTemplate, data)
	if err != nil {
		return episode.Prompts{}, err
	}
	user, err := r.execute(userTemplate, data)
	if err != nil {
		return episode.Prompts{}, err
	}
	return episode.Prompts{System: system, User: user}, nil
}

// RenderEpisode produces the markdown episode sheet. data.Prompts should
// already hold the output of Render.
func (r *Renderer) RenderEpisode(data Data) (string, error) {
	return r.execute(episodeTemplate, data)
}

func orNone(v any) string {
	switch s := v.(type) {
	case *string:
		if s != nil && *s != "" {
			return *s
		}
	case string:
		if s != "" {
			return s
		}
	}
	return "None"
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, ", ")
}

func toJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
