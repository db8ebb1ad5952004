// Package director holds the director configuration that shapes episode
// tone. Settings arrive as a loose flat mapping (YAML, JSON, CLI) and are
// merged onto documented defaults once, at the boundary.
package director

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	KeyPacingStyle          = "pacing_style"
	KeyHookIntensity        = "hook_intensity"
	KeyMysteryLevel         = "mystery_level"
	KeyChaosScaling         = "chaos_scaling"
	KeyWarningLightStyle    = "warning_light_style"
	KeySilhouetteVisibility = "silhouette_visibility"
)

// DefaultSilhouetteVisibility is the base silhouette presence when the
// director does not set one.
const DefaultSilhouetteVisibility = 0.2

// Named silhouette levels accepted in place of a number.
var silhouetteLevels = map[string]float64{
	"none":   0.0,
	"low":    0.1,
	"subtle": 0.2,
	"medium": 0.35,
	"high":   0.5,
	"full":   0.8,
}

type Settings struct {
	PacingStyle          string  `yaml:"pacing_style" json:"pacing_style" validate:"oneof=fast cinematic slow"`
	HookIntensity        string  `yaml:"hook_intensity" json:"hook_intensity" validate:"oneof=medium hard"`
	MysteryLevel         string  `yaml:"mystery_level" json:"mystery_level" validate:"oneof=low medium high"`
	ChaosScaling         bool    `yaml:"chaos_scaling" json:"chaos_scaling"`
	WarningLightStyle    string  `yaml:"warning_light_style" json:"warning_light_style"`
	SilhouetteVisibility float64 `yaml:"silhouette_visibility" json:"silhouette_visibility" validate:"min=0,max=1"`
}

func Defaults() Settings {
	return Settings{
		PacingStyle:          "cinematic",
		HookIntensity:        "hard",
		MysteryLevel:         "high",
		ChaosScaling:         true,
		WarningLightStyle:    "red pulse",
		SilhouetteVisibility: DefaultSilhouetteVisibility,
	}
}

// SilhouetteBase returns the director-controlled base silhouette presence.
// A nil receiver yields the default.
func (s *Settings) SilhouetteBase() float64 {
	if s == nil || math.IsNaN(s.SilhouetteVisibility) {
		return DefaultSilhouetteVisibility
	}
	return s.SilhouetteVisibility
}

var validate = validator.New()

// Validate checks enumerated fields and the silhouette range. The planner
// itself never calls it; it is for callers that want strict settings.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("director settings: %w", err)
	}
	return nil
}

// FromMap merges a loose mapping onto the defaults.
func FromMap(raw map[string]any) Settings {
	return Merge(Defaults(), raw)
}

// Merge applies recognized keys of raw on top of base. Unknown keys and
// values of the wrong type or outside the enumerated domain are ignored.
func Merge(base Settings, raw map[string]any) Settings {
	s := base
	for key, value := range raw {
		switch strings.ToLower(strings.TrimSpace(key)) {
		case KeyPacingStyle:
			s.PacingStyle = pickEnum(key, value, s.PacingStyle, "fast", "cinematic", "slow")
		case KeyHookIntensity:
			s.HookIntensity = pickEnum(key, value, s.HookIntensity, "medium", "hard")
		case KeyMysteryLevel:
			s.MysteryLevel = pickEnum(key, value, s.MysteryLevel, "low", "medium", "high")
		case KeyChaosScaling:
			if b, ok := toBool(value); ok {
				s.ChaosScaling = b
			}
		case KeyWarningLightStyle:
			if str, ok := value.(string); ok {
				s.WarningLightStyle = str
			}
		case KeySilhouetteVisibility:
			if f, ok := silhouetteValue(value); ok {
				s.SilhouetteVisibility = f
			} else {
				slog.Debug("Ignoring silhouette visibility", "value", value)
			}
		}
	}
	return s
}

// Map returns the settings as a flat mapping, the shape stored in episode
// records.
func (s Settings) Map() map[string]any {
	return map[string]any{
		KeyPacingStyle:          s.PacingStyle,
		KeyHookIntensity:        s.HookIntensity,
		KeyMysteryLevel:         s.MysteryLevel,
		KeyChaosScaling:         s.ChaosScaling,
		KeyWarningLightStyle:    s.WarningLightStyle,
		KeySilhouetteVisibility: s.SilhouetteVisibility,
	}
}

func pickEnum(key string, value any, current string, allowed ...string) string {
	str, ok := value.(string)
	if !ok {
		return current
	}
	str = strings.ToLower(strings.TrimSpace(str))
	for _, a := range allowed {
		if str == a {
			return a
		}
	}
	slog.Debug("Ignoring director value outside domain", "key", key, "value", str)
	return current
}

func toBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return b, err == nil
	}
	return false, false
}

func silhouetteValue(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, !math.IsNaN(v)
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		name := strings.ToLower(strings.TrimSpace(v))
		if f, ok := silhouetteLevels[name]; ok {
			return f, true
		}
		f, err := strconv.ParseFloat(name, 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
