// Package progression maps an episode's position inside a planned arc to a
// narrative stage and a set of intensity signals.
//
// The model is deterministic: the same episode, arc length, director
// settings and prior escalation always produce the same progression. The
// only value threaded between episodes is the escalation level.
package progression

import (
	"math"

	"github.com/dotcommander/fireverse/internal/director"
	"github.com/dotcommander/fireverse/internal/domain/episode"
)

// Stage boundaries on the position ratio. Each stage is left-closed and
// right-open; finale also includes 1.0.
const (
	buildupStart     = 0.20
	escalationStart  = 0.40
	instabilityStart = 0.65
	finaleStart      = 0.90
)

var stageModifiers = map[episode.Stage]float64{
	episode.StageIntro:       0.10,
	episode.StageBuildup:     0.30,
	episode.StageEscalation:  0.55,
	episode.StageInstability: 0.75,
	episode.StageFinale:      0.95,
}

// Clamp saturates v to [0,1]. NaN clamps to 0.
func Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// PositionRatio returns the fractional position of an episode in the arc
// after clamping both inputs to safe ranges.
func PositionRatio(episodeNumber, totalEpisodes int) float64 {
	total := max(totalEpisodes, 1)
	ep := min(max(episodeNumber, 1), total)
	if total == 1 {
		return 1.0
	}
	return float64(ep-1) / float64(total-1)
}

// DetectStage returns the stage for an episode along with its position ratio.
func DetectStage(episodeNumber, totalEpisodes int) (episode.Stage, float64) {
	ratio := PositionRatio(episodeNumber, totalEpisodes)
	return StageForRatio(ratio), ratio
}

func StageForRatio(ratio float64) episode.Stage {
	switch {
	case ratio < buildupStart:
		return episode.StageIntro
	case ratio < escalationStart:
		return episode.StageBuildup
	case ratio < instabilityStart:
		return episode.StageEscalation
	case ratio < finaleStart:
		return episode.StageInstability
	default:
		return episode.StageFinale
	}
}

// StageModifier returns the monotonic intensity weight of a stage. Unknown
// stages weigh as intro.
func StageModifier(stage episode.Stage) float64 {
	if mod, ok := stageModifiers[stage]; ok {
		return mod
	}
	return stageModifiers[episode.StageIntro]
}

// Compute derives the progression of one episode. It combines the position
// ratio (structure), the stage modifier (milestone weight) and the prior
// escalation level (continuity). A nil settings value uses the defaults.
//
// Every product is converted explicitly so the compiler cannot fuse it into
// a multiply-add; the results stay bit-identical across architectures.
func Compute(episodeNumber, totalEpisodes int, settings *director.Settings, priorEscalation float64) episode.ArcProgression {
	stage, ratio := DetectStage(episodeNumber, totalEpisodes)
	mod := StageModifier(stage)

	escalation := Clamp(float64(priorEscalation*0.4) + float64(ratio*0.35) + float64(mod*0.25))

	scene := Clamp(0.25 + float64(mod*0.45) + float64(ratio*0.30))
	tension := Clamp(0.20 + float64(mod*0.40) + float64(escalation*0.25))
	disturbance := Clamp(0.15 + float64(ratio*0.35) + float64(mod*0.30))
	cliffhanger := Clamp(0.10 + float64(ratio*0.45) + float64(mod*0.35))

	// Director sets the base; progression adds automatic growth on top.
	silhouette := Clamp(settings.SilhouetteBase() + float64(ratio*0.40) + float64(mod*0.30))

	return episode.ArcProgression{
		Stage:                stage,
		PositionRatio:        ratio,
		SceneIntensity:       scene,
		NarrationTension:     tension,
		DisturbanceFrequency: disturbance,
		CliffhangerStrength:  cliffhanger,
		SilhouettePresence:   silhouette,
		EscalationLevel:      escalation,
	}
}

// Advance computes the next episode of an arc and writes the result back
// into the arc memory: completed episodes grow by one (saturating at the
// planned total) and stage and escalation are overwritten. It returns the
// episode number that was planned.
func Advance(arc *episode.ArcMemory, settings *director.Settings) (int, episode.ArcProgression) {
	next := arc.CompletedEpisodes + 1
	prog := Compute(next, arc.TotalEpisodes, settings, arc.EscalationLevel)
	Apply(arc, next, prog)
	return next, prog
}

// Apply records a computed progression for episodeNumber in the arc memory.
// Completed episodes never decrease and never exceed the planned total.
func Apply(arc *episode.ArcMemory, episodeNumber int, prog episode.ArcProgression) {
	limit := max(arc.TotalEpisodes, 0)
	arc.CompletedEpisodes = min(max(arc.CompletedEpisodes, episodeNumber), limit)
	arc.CurrentProgressStage = prog.Stage
	arc.EscalationLevel = prog.EscalationLevel
}
