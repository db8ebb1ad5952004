package director

import (
	"strings"
	"testing"
)

func TestFromMapDefaults(t *testing.T) {
	for _, raw := range []map[string]any{nil, {}, {"unknown_key": 42}} {
		if got := FromMap(raw); got != Defaults() {
			t.Errorf("FromMap(%v) = %+v, want defaults", raw, got)
		}
	}
}

func TestFromMapOverrides(t *testing.T) {
	tests := []struct {
		name  string
		raw   map[string]any
		check func(Settings) bool
	}{
		{"pacing", map[string]any{"pacing_style": "fast"}, func(s Settings) bool { return s.PacingStyle == "fast" }},
		{"pacing case", map[string]any{"pacing_style": " SLOW "}, func(s Settings) bool { return s.PacingStyle == "slow" }},
		{"pacing out of domain", map[string]any{"pacing_style": "glacial"}, func(s Settings) bool { return s.PacingStyle == "cinematic" }},
		{"hook", map[string]any{"hook_intensity": "medium"}, func(s Settings) bool { return s.HookIntensity == "medium" }},
		{"mystery", map[string]any{"mystery_level": "low"}, func(s Settings) bool { return s.MysteryLevel == "low" }},
		{"chaos bool", map[string]any{"chaos_scaling": false}, func(s Settings) bool { return !s.ChaosScaling }},
		{"chaos string", map[string]any{"chaos_scaling": "false"}, func(s Settings) bool { return !s.ChaosScaling }},
		{"chaos wrong type", map[string]any{"chaos_scaling": 3}, func(s Settings) bool { return s.ChaosScaling }},
		{"warning light", map[string]any{"warning_light_style": "amber strobe"}, func(s Settings) bool { return s.WarningLightStyle == "amber strobe" }},
		{"silhouette float", map[string]any{"silhouette_visibility": 0.1}, func(s Settings) bool { return s.SilhouetteVisibility == 0.1 }},
		{"silhouette int", map[string]any{"silhouette_visibility": 1}, func(s Settings) bool { return s.SilhouetteVisibility == 1 }},
		{"silhouette named", map[string]any{"silhouette_visibility": "medium"}, func(s Settings) bool { return s.SilhouetteVisibility == 0.35 }},
		{"silhouette numeric string", map[string]any{"silhouette_visibility": "0.45"}, func(s Settings) bool { return s.SilhouetteVisibility == 0.45 }},
		{"silhouette negative kept", map[string]any{"silhouette_visibility": -0.5}, func(s Settings) bool { return s.SilhouetteVisibility == -0.5 }},
		{"silhouette garbage", map[string]any{"silhouette_visibility": "bright"}, func(s Settings) bool { return s.SilhouetteVisibility == DefaultSilhouetteVisibility }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromMap(tt.raw)
			if !tt.check(got) {
				t.Errorf("FromMap(%v) = %+v", tt.raw, got)
			}
		})
	}
}

func TestSilhouetteBase(t *testing.T) {
	var s *Settings
	if s.SilhouetteBase() != DefaultSilhouetteVisibility {
		t.Error("nil settings should use the default base")
	}
	custom := Settings{SilhouetteVisibility: 0.6}
	if custom.SilhouetteBase() != 0.6 {
		t.Errorf("SilhouetteBase() = %v, want 0.6", custom.SilhouetteBase())
	}
}

func TestValidate(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	bad := Defaults()
	bad.PacingStyle = "glacial"
	err := bad.Validate()
	if err == nil || !strings.Contains(err.Error(), "PacingStyle") {
		t.Fatalf("expected PacingStyle error, got %v", err)
	}
	bad = Defaults()
	bad.SilhouetteVisibility = 1.5
	if err := bad.Validate(); err == nil {
		t.Fatal("expected range error for silhouette visibility")
	}
}

func TestMapRoundTrip(t *testing.T) {
	s := FromMap(map[string]any{"pacing_style": "slow", "silhouette_visibility": "high"})
	if got := FromMap(s.Map()); got != s {
		t.Errorf("FromMap(Map()) = %+v, want %+v", got, s)
	}
}
