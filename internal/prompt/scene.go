// Package prompt turns a planned episode into the scene skeleton and text
// blocks handed to downstream generation tools.
package prompt

import (
	"fmt"

	"github.com/dotcommander/fireverse/internal/domain/episode"
)

// Scene slot names, in episode order.
const (
	SceneOpening      = "opening"
	SceneEscalation   = "escalation"
	SceneTurningPoint = "turning_point"
	SceneCooldown     = "cooldown"
)

// SceneStructure returns the four planning slots of an episode. Goals
// reference the arc's environment and tone and sharpen as the arc moves
// toward its finale.
func SceneStructure(arc episode.ArcDefinition, prog episode.ArcProgression) []episode.ScenePlan {
	environment := orDefault(arc.EnvironmentType, "unspecified")
	tone := orDefault(arc.Tone, "neutral")

	escalation := "Increase pressure with creature activity and silhouette hints."
	turning := "Reveal strategic clue that changes character expectations."
	cooldown := "End with unresolved tension to carry forward arc momentum."

	switch prog.Stage {
	case episode.StageEscalation, episode.StageInstability:
		escalation = "Increase pressure with open creature activity and clearer silhouette sightings."
	case episode.StageFinale:
		escalation = "Bring the enemy silhouette into direct view as creature activity peaks."
		turning = "Reveal the truth behind the silhouette and force a final choice."
		cooldown = "Resolve the immediate threat while leaving one question open."
	}

	return []episode.ScenePlan{
		{Name: SceneOpening, Goal: fmt.Sprintf("Establish %s atmosphere with %s tone.", environment, tone)},
		{Name: SceneEscalation, Goal: escalation},
		{Name: SceneTurningPoint, Goal: turning},
		{Name: SceneCooldown, Goal: cooldown},
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
