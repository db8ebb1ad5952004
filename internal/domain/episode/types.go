package episode

import (
	"strings"
	"time"
)

// Stage is one of the five ordered narrative phases of an arc.
type Stage string

const (
	StageIntro       Stage = "intro"
	StageBuildup     Stage = "buildup"
	StageEscalation  Stage = "escalation"
	StageInstability Stage = "instability"
	StageFinale      Stage = "finale"
)

// StageOrder lists every stage from first to last.
var StageOrder = []Stage{StageIntro, StageBuildup, StageEscalation, StageInstability, StageFinale}

// Index returns the position of the stage in StageOrder, or -1 when unknown.
func (s Stage) Index() int {
	for i, st := range StageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

func (s Stage) Valid() bool {
	return s.Index() >= 0
}

func (s Stage) String() string {
	return string(s)
}

// ParseStage maps a persisted stage label back to a Stage. Unknown labels
// fall back to StageIntro.
func ParseStage(label string) Stage {
	st := Stage(strings.ToLower(strings.TrimSpace(label)))
	if !st.Valid() {
		return StageIntro
	}
	return st
}

// ArcMemory is the persisted memory for a story arc
type ArcMemory struct {
	ArcID                string  `json:"arc_id"`
	TotalEpisodes        int     `json:"total_episodes"`
	CompletedEpisodes    int     `json:"completed_episodes"`
	CurrentProgressStage Stage   `json:"current_progress_stage"`
	EscalationLevel      float64 `json:"escalation_level"`
}

// NewArcMemory creates memory for a freshly planned arc.
func NewArcMemory(arcID string, totalEpisodes int) *ArcMemory {
	return &ArcMemory{
		ArcID:                arcID,
		TotalEpisodes:        totalEpisodes,
		CurrentProgressStage: StageIntro,
	}
}

// Finished reports whether every planned episode has been generated.
func (a *ArcMemory) Finished() bool {
	return a.CompletedEpisodes >= a.TotalEpisodes
}

// ArcProgression holds the signals computed for a single episode.
type ArcProgression struct {
	Stage                Stage   `json:"stage"`
	PositionRatio        float64 `json:"position_ratio"`
	SceneIntensity       float64 `json:"scene_intensity"`
	NarrationTension     float64 `json:"narration_tension"`
	DisturbanceFrequency float64 `json:"disturbance_frequency"`
	CliffhangerStrength  float64 `json:"cliffhanger_strength"`
	SilhouettePresence   float64 `json:"silhouette_presence"`
	EscalationLevel      float64 `json:"escalation_level"`
}

// ArcDefinition is the static metadata of an arc. It is never mutated by
// the planner.
type ArcDefinition struct {
	Name            string         `yaml:"arc_name" json:"arc_name" validate:"required,notblank"`
	World           string         `yaml:"world" json:"world"`
	EnvironmentType string         `yaml:"environment_type" json:"environment_type"`
	Tone            string         `yaml:"tone" json:"tone"`
	EnemySilhouette string         `yaml:"enemy_silhouette" json:"enemy_silhouette" validate:"required,notblank"`
	EpisodeCount    int            `yaml:"episode_count" json:"episode_count" validate:"min=1"`
	Creatures       []string       `yaml:"creatures" json:"creatures"`
	Director        map[string]any `yaml:"director,omitempty" json:"director,omitempty"`
}

// WorldName returns the world the arc belongs to, defaulting to the arc name.
func (d ArcDefinition) WorldName() string {
	if d.World != "" {
		return d.World
	}
	return d.Name
}

// ScenePlan is one abstract planning slot of an episode.
type ScenePlan struct {
	Name string `json:"name"`
	Goal string `json:"goal"`
}

// SceneSignals groups the signals that shape individual scenes.
type SceneSignals struct {
	Intensity               float64 `json:"intensity" jsonschema:"minimum=0,maximum=1" jsonschema_description:"How hard individual scenes push"`
	DisturbanceFrequency    float64 `json:"disturbance_frequency" jsonschema:"minimum=0,maximum=1" jsonschema_description:"How often creature activity interrupts the scene"`
	EnemySilhouettePresence float64 `json:"enemy_silhouette_presence" jsonschema:"minimum=0,maximum=1" jsonschema_description:"How visible the enemy silhouette is"`
}

type NarrationSignals struct {
	Tension float64 `json:"tension" jsonschema:"minimum=0,maximum=1"`
}

type EndingSignals struct {
	CliffhangerStrength float64 `json:"cliffhanger_strength" jsonschema:"minimum=0,maximum=1"`
}

// CreaturePlan is the creature selection attached to an episode record.
type CreaturePlan struct {
	Main       *string  `json:"main_creature" jsonschema_description:"Creature leading the episode, null when the pool is empty"`
	Background []string `json:"background_creatures" jsonschema_description:"Every other pool creature in pool order"`
}

// ArcSummary is the slice of static arc metadata copied into a record.
type ArcSummary struct {
	Name            string `json:"arc_name"`
	EnvironmentType string `json:"environment_type"`
	Tone            string `json:"tone"`
	EnemySilhouette string `json:"enemy_silhouette"`
}

// Prompts are the rendered prompt blocks for downstream generation tools.
type Prompts struct {
	System string `json:"system_prompt"`
	User   string `json:"user_prompt"`
}

// EpisodeRecord is the final merged output for one generated episode.
type EpisodeRecord struct {
	ID               string           `json:"id" jsonschema:"format=uuid"`
	ArcID            string           `json:"arc_id"`
	EpisodeNumber    int              `json:"episode_number" jsonschema:"minimum=1"`
	ProgressionStage Stage            `json:"progression_stage" jsonschema:"enum=intro,enum=buildup,enum=escalation,enum=instability,enum=finale"`
	PositionRatio    float64          `json:"position_ratio" jsonschema:"minimum=0,maximum=1"`
	EscalationLevel  float64          `json:"escalation_level" jsonschema:"minimum=0,maximum=1" jsonschema_description:"Arc escalation after this episode"`
	Scene            SceneSignals     `json:"scene"`
	Narration        NarrationSignals `json:"narration"`
	Ending           EndingSignals    `json:"ending"`
	Creatures        CreaturePlan     `json:"creatures"`
	Arc              ArcSummary       `json:"arc"`
	Director         map[string]any   `json:"director" jsonschema_description:"Director settings the episode was planned with"`
	Scenes           []ScenePlan      `json:"scenes"`
	Prompts          Prompts          `json:"prompts"`
	SilhouetteHints  int              `json:"silhouette_hints" jsonschema_description:"Times the arc's enemy silhouette has been hinted so far"`
	GeneratedAt      time.Time        `json:"generated_at"`
}
