// Package schema builds the response schemas sent with every generation call.
//
// Workout templates are composed at call time: a common base (day, name, category,
// description, scoring, duration) is merged with the fragments of the categories a phase
// targets. Unknown categories resolve to the general fragment. None of the schemas here
// offer a clarification or follow-up question branch; runs are non-interactive.
package schema

import (
	"sort"
	"strings"

	"fitcoach/programgen/internal/domain"

	"google.golang.org/genai"
)

func str(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: desc}
}

func integer(desc string, min, max float64) *genai.Schema {
	return &genai.Schema{Type: genai.TypeInteger, Description: desc, Minimum: genai.Ptr(min), Maximum: genai.Ptr(max)}
}

func number(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeNumber, Description: desc, Minimum: genai.Ptr(0.0), Maximum: genai.Ptr(1.0)}
}

func stringList(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Description: desc, Items: &genai.Schema{Type: genai.TypeString}}
}

func object(props map[string]*genai.Schema, required ...string) *genai.Schema {
	order := make([]string, 0, len(props))
	for k := range props {
		order = append(order, k)
	}
	sort.Strings(order)
	return &genai.Schema{Type: genai.TypeObject, Properties: props, Required: required, PropertyOrdering: order}
}

// Phases is the schema of the phase structurer response.
func Phases(totalDays int) *genai.Schema {
	phase := object(map[string]*genai.Schema{
		"name":        str("Short phase name"),
		"description": str("What the phase develops and how"),
		"startDay":    integer("First day of the phase, 1-indexed", 1, float64(totalDays)),
		"endDay":      integer("Last day of the phase, inclusive", 1, float64(totalDays)),
		"focusAreas":  stringList("Training focus areas of the phase"),
	}, "name", "description", "startDay", "endDay", "focusAreas")

	return object(map[string]*genai.Schema{
		"programName": str("Name of the whole program"),
		"phases": {
			Type:        genai.TypeArray,
			Description: "Contiguous phases covering every day from 1 to the last program day",
			Items:       phase,
			MinItems:    genai.Ptr[int64](1),
		},
	}, "programName", "phases")
}

// WorkoutTemplate composes the base template schema with the fragments of categories.
func WorkoutTemplate(startDay, endDay int, categories []domain.WorkoutCategory) *genai.Schema {
	var enum, guidance []string
	scoring := map[string]bool{}
	seen := map[domain.WorkoutCategory]bool{}
	for _, c := range categories {
		f := Lookup(c)
		if seen[f.Category] {
			continue
		}
		seen[f.Category] = true
		enum = append(enum, string(f.Category))
		guidance = append(guidance, f.Guidance)
		for _, s := range f.ScoringTypes {
			scoring[s] = true
		}
	}
	if len(enum) == 0 {
		f := Lookup(domain.CategoryGeneral)
		enum = append(enum, string(f.Category))
		guidance = append(guidance, f.Guidance)
		for _, s := range f.ScoringTypes {
			scoring[s] = true
		}
	}
	scoringEnum := make([]string, 0, len(scoring))
	for s := range scoring {
		scoringEnum = append(scoringEnum, s)
	}
	sort.Strings(scoringEnum)

	return object(map[string]*genai.Schema{
		"dayNumber": integer("Absolute program day", float64(startDay), float64(endDay)),
		"name":      str("Session name"),
		"category":  {Type: genai.TypeString, Enum: enum},
		"description": str("Natural-language session content. " +
			strings.Join(guidance, " ")),
		"scoringType":       {Type: genai.TypeString, Enum: scoringEnum},
		"estimatedDuration": integer("Minutes", 0, 240),
	}, "dayNumber", "name", "category", "description", "scoringType", "estimatedDuration")
}

// PhaseWorkouts is the schema of one phase generator response.
func PhaseWorkouts(phase domain.Phase, categories []domain.WorkoutCategory) *genai.Schema {
	return object(map[string]*genai.Schema{
		"workouts": {
			Type:        genai.TypeArray,
			Description: "Workout templates for every training day of the phase; several templates may share a day",
			Items:       WorkoutTemplate(phase.StartDay, phase.EndDay, categories),
		},
	}, "workouts")
}

// SingleWorkout is the schema used when one template is regenerated.
func SingleWorkout(dayNumber int, categories []domain.WorkoutCategory) *genai.Schema {
	return object(map[string]*genai.Schema{
		"workout": WorkoutTemplate(dayNumber, dayNumber, categories),
	}, "workout")
}

// Prune asks for day numbers and a rationale only, never template bodies.
func Prune() *genai.Schema {
	return object(map[string]*genai.Schema{
		"removeDays": {
			Type:        genai.TypeArray,
			Description: "Day numbers whose templates are removed",
			Items:       &genai.Schema{Type: genai.TypeInteger},
		},
		"rationale": str("Why these days were chosen"),
	}, "removeDays", "rationale")
}

// Normalize is the schema of the normalizer review.
func Normalize() *genai.Schema {
	issue := object(map[string]*genai.Schema{
		"type":        str("Issue type"),
		"severity":    {Type: genai.TypeString, Enum: []string{string(domain.SeverityError), string(domain.SeverityWarning)}},
		"field":       str("Field path, e.g. phases[1].name"),
		"description": str("What is wrong"),
		"corrected":   {Type: genai.TypeBoolean},
	}, "type", "severity", "field", "description", "corrected")

	phase := object(map[string]*genai.Schema{
		"id":          str("Phase id, unchanged"),
		"name":        str("Phase name"),
		"description": str("Phase description"),
		"focusAreas":  stringList("Focus areas"),
	}, "id", "name", "description", "focusAreas")

	program := object(map[string]*genai.Schema{
		"name":        str("Program name"),
		"workoutsRef": str("Storage reference, returned exactly as received"),
		"phases":      {Type: genai.TypeArray, Items: phase},
	}, "name", "workoutsRef", "phases")

	return object(map[string]*genai.Schema{
		"isValid":    {Type: genai.TypeBoolean},
		"confidence": number("0 to 1"),
		"issues":     {Type: genai.TypeArray, Items: issue},
		"program":    program,
	}, "isValid", "confidence", "issues", "program")
}

// Summary is the schema of the summary generator response.
func Summary() *genai.Schema {
	return object(map[string]*genai.Schema{
		"summary": str("Natural-language description of the program for later search"),
	}, "summary")
}
