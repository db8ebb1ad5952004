package world

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dotcommander/fireverse/internal/config"
	"github.com/dotcommander/fireverse/internal/core"
	"github.com/dotcommander/fireverse/internal/domain/episode"
	"github.com/dotcommander/fireverse/internal/rotation"
)

// Rule identifiers reported in core.ValidationError.Rule.
const (
	RuleArcName          = "arc_name_required"
	RuleSilhouette       = "silhouette_required"
	RuleEpisodeCount     = "episode_count_range"
	RulePoolSize         = "creature_pool_size"
	RuleUniqueArc        = "unique_arc_name"
	RuleEpisodeNumber    = "episode_number_range"
	RuleMainCreature     = "main_creature_count"
	RuleUnknownWorldPool = "world_pool_defined"
)

var fieldRules = map[string]string{
	"Name":            RuleArcName,
	"EnemySilhouette": RuleSilhouette,
	"EpisodeCount":    RuleEpisodeCount,
}

// Validator enforces the world-data rules that the planning core leaves to
// its callers.
type Validator struct {
	limits   config.Limits
	validate *validator.Validate
}

func NewValidator(limits config.Limits) *Validator {
	if limits.MaxPool == 0 {
		limits = config.DefaultLimits()
	}
	v := validator.New()
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return &Validator{limits: limits, validate: v}
}

// Arc checks one arc definition against its creature pool.
func (v *Validator) Arc(def episode.ArcDefinition, pool []string) error {
	var errs []error

	if err := v.validate.Struct(def); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validating arc %q: %w", def.Name, err)
		}
		for _, fe := range fieldErrs {
			rule, ok := fieldRules[fe.StructField()]
			if !ok {
				rule = fe.Tag()
			}
			errs = append(errs, core.NewValidationError(def.Name, 0, rule, fe.Field(),
				fmt.Sprintf("failed %q check", fe.Tag()), fe.Value()))
		}
	}

	if def.EpisodeCount > v.limits.MaxEpisodes {
		errs = append(errs, core.NewValidationError(def.Name, 0, RuleEpisodeCount, "episode_count",
			fmt.Sprintf("episode count %d exceeds %d", def.EpisodeCount, v.limits.MaxEpisodes), def.EpisodeCount))
	}

	if n := len(pool); n < v.limits.MinPool || n > v.limits.MaxPool {
		errs = append(errs, core.NewValidationError(def.Name, 0, RulePoolSize, "creatures",
			fmt.Sprintf("pool has %d creatures, want %d..%d", n, v.limits.MinPool, v.limits.MaxPool), n))
	}

	return errors.Join(errs...)
}

// Catalog checks every arc of c plus the cross-arc rules.
func (v *Validator) Catalog(c *Catalog) error {
	var errs []error
	seen := make(map[string]bool, len(c.Arcs))

	for _, def := range c.Arcs {
		key := strings.ToLower(strings.TrimSpace(def.Name))
		if seen[key] {
			errs = append(errs, core.NewValidationError(def.Name, 0, RuleUniqueArc, "arc_name",
				"arc name is used more than once", def.Name))
		}
		seen[key] = true

		if len(def.Creatures) == 0 {
			if _, ok := c.Worlds[def.WorldName()]; !ok {
				errs = append(errs, core.NewValidationError(def.Name, 0, RuleUnknownWorldPool, "world",
					fmt.Sprintf("world %q has no creature pool", def.WorldName()), def.WorldName()))
				continue
			}
		}
		if err := v.Arc(def, c.Creatures(def)); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Episode rejects episode numbers the planner cannot interpret. Zero means
// "next episode"; numbers past the end are clamped by the planner.
func (v *Validator) Episode(def episode.ArcDefinition, episodeNumber int) error {
	if episodeNumber < 0 {
		verr := core.NewValidationError(def.Name, episodeNumber, RuleEpisodeNumber, "episode",
			"episode number must not be negative", episodeNumber)
		return fmt.Errorf("%w: %w", core.ErrInvalidEpisode, verr)
	}
	return nil
}

// Selection checks that a non-empty pool produced exactly one main creature
// that is not also in the background.
func (v *Validator) Selection(arcName string, episodeNumber int, pool []string, sel rotation.Selection) error {
	fail := func(msg string) error {
		return core.NewValidationError(arcName, episodeNumber, RuleMainCreature, "main_creature", msg, sel.Main)
	}

	if len(pool) == 0 {
		if sel.HasMain {
			return fail("empty pool produced a main creature")
		}
		return nil
	}
	if !sel.HasMain {
		return fail("expected exactly one main creature, got none")
	}
	if !slices.Contains(pool, sel.Main) {
		return fail(fmt.Sprintf("main creature %q is not in the pool", sel.Main))
	}
	if slices.Contains(sel.Background, sel.Main) {
		return fail(fmt.Sprintf("main creature %q also appears in the background", sel.Main))
	}
	return nil
}
