package schema

import (
	"sort"
	"strings"

	"fitcoach/programgen/internal/domain"
)

// Fragment is the category-specific part of a workout template schema.
type Fragment struct {
	Category     domain.WorkoutCategory
	ScoringTypes []string
	Guidance     string   // merged into the description field of the composed schema
	Keywords     []string // matched against phase focus areas and goals
}

var (
	// Fragments maps every supported category to its schema fragment.
	Fragments = map[domain.WorkoutCategory]Fragment{
		domain.CategoryStrength: {
			Category:     domain.CategoryStrength,
			ScoringTypes: []string{"load", "reps", "sets_reps"},
			Guidance:     "Strength sessions list each lift with sets, reps, load guidance (%1RM or RPE) and rest.",
			Keywords:     []string{"strength", "lift", "squat", "deadlift", "bench", "press"},
		},
		domain.CategoryHypertrophy: {
			Category:     domain.CategoryHypertrophy,
			ScoringTypes: []string{"sets_reps", "volume"},
			Guidance:     "Hypertrophy sessions group exercises by muscle with 8-15 rep ranges, tempo and target RIR.",
			Keywords:     []string{"hypertrophy", "muscle", "bodybuilding", "mass", "size"},
		},
		domain.CategoryPowerlifting: {
			Category:     domain.CategoryPowerlifting,
			ScoringTypes: []string{"load", "rpe"},
			Guidance:     "Powerlifting sessions prescribe competition lifts with top sets, back-off sets and RPE caps.",
			Keywords:     []string{"powerlifting", "1rm", "meet", "max"},
		},
		domain.CategoryEndurance: {
			Category:     domain.CategoryEndurance,
			ScoringTypes: []string{"distance", "time"},
			Guidance:     "Endurance sessions give duration or distance with heart-rate or pace zones per segment.",
			Keywords:     []string{"endurance", "aerobic", "marathon", "run", "base", "distance"},
		},
		domain.CategoryCardio: {
			Category:     domain.CategoryCardio,
			ScoringTypes: []string{"time", "calories", "distance"},
			Guidance:     "Cardio sessions name the modality, total time and target effort.",
			Keywords:     []string{"cardio", "conditioning", "fat loss", "weight loss", "cycling", "rowing"},
		},
		domain.CategoryHIIT: {
			Category:     domain.CategoryHIIT,
			ScoringTypes: []string{"rounds", "time", "reps"},
			Guidance:     "HIIT sessions specify work and rest intervals, rounds and the movements per interval.",
			Keywords:     []string{"hiit", "interval", "metcon", "tabata", "sprint"},
		},
		domain.CategoryFunctional: {
			Category:     domain.CategoryFunctional,
			ScoringTypes: []string{"rounds", "time", "reps"},
			Guidance:     "Functional sessions combine compound movements, carries and bodyweight work as circuits.",
			Keywords:     []string{"functional", "crossfit", "athletic", "circuit", "kettlebell"},
		},
		domain.CategoryMobility: {
			Category:     domain.CategoryMobility,
			ScoringTypes: []string{"completion", "time"},
			Guidance:     "Mobility sessions list drills with hold times or repetitions per side.",
			Keywords:     []string{"mobility", "flexibility", "range of motion", "stretch"},
		},
		domain.CategoryYoga: {
			Category:     domain.CategoryYoga,
			ScoringTypes: []string{"completion", "time"},
			Guidance:     "Yoga sessions describe the flow, key poses and breath cues.",
			Keywords:     []string{"yoga", "pilates", "breath"},
		},
		domain.CategoryRecovery: {
			Category:     domain.CategoryRecovery,
			ScoringTypes: []string{"completion"},
			Guidance:     "Recovery sessions are low intensity: easy movement, soft tissue work, light walking.",
			Keywords:     []string{"recovery", "deload", "active rest", "taper"},
		},
		domain.CategoryRest: {
			Category:     domain.CategoryRest,
			ScoringTypes: []string{"completion"},
			Guidance:     "Rest days carry a single rest template with a short note.",
		},
		domain.CategoryGeneral: {
			Category:     domain.CategoryGeneral,
			ScoringTypes: []string{"completion", "time", "reps"},
			Guidance:     "Describe the session in plain language with warm-up, main work and cool-down.",
		},
	}
)

// Lookup returns the fragment for category, falling back to the general fragment.
func Lookup(category domain.WorkoutCategory) Fragment {
	if f, ok := Fragments[category]; ok {
		return f
	}
	return Fragments[domain.CategoryGeneral]
}

// ResolveCategory maps free text returned by the generation service onto a known category.
func ResolveCategory(raw string) domain.WorkoutCategory {
	c := domain.WorkoutCategory(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := Fragments[c]; ok {
		return c
	}
	switch c {
	case "rest day", "off", "rest_day":
		return domain.CategoryRest
	case "interval", "intervals", "metcon":
		return domain.CategoryHIIT
	case "run", "running", "aerobic":
		return domain.CategoryEndurance
	}
	return domain.CategoryGeneral
}

// CategoriesFor selects the categories whose keywords match any of the hints.
// The result is sorted, always contains rest, and contains general when nothing else matched.
func CategoriesFor(hints ...[]string) []domain.WorkoutCategory {
	set := map[domain.WorkoutCategory]bool{domain.CategoryRest: true}
	for _, list := range hints {
		for _, h := range list {
			h = strings.ToLower(h)
			for c, f := range Fragments {
				for _, kw := range f.Keywords {
					if strings.Contains(h, kw) {
						set[c] = true
						break
					}
				}
			}
		}
	}
	if len(set) == 1 {
		set[domain.CategoryGeneral] = true
	}
	out := make([]domain.WorkoutCategory, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
