package domain

import (
	"errors"
	"sort"
	"time"
)

// WorkoutStatus type for template lifecycle
type WorkoutStatus string

const (
	WorkoutPending     WorkoutStatus = "pending"
	WorkoutCompleted   WorkoutStatus = "completed"
	WorkoutSkipped     WorkoutStatus = "skipped"
	WorkoutRegenerated WorkoutStatus = "regenerated"
)

// WorkoutCategory selects the schema fragment a template is generated against.
type WorkoutCategory string

const (
	CategoryStrength     WorkoutCategory = "strength"
	CategoryHypertrophy  WorkoutCategory = "hypertrophy"
	CategoryPowerlifting WorkoutCategory = "powerlifting"
	CategoryEndurance    WorkoutCategory = "endurance"
	CategoryCardio       WorkoutCategory = "cardio"
	CategoryHIIT         WorkoutCategory = "hiit"
	CategoryFunctional   WorkoutCategory = "functional"
	CategoryMobility     WorkoutCategory = "mobility"
	CategoryYoga         WorkoutCategory = "yoga"
	CategoryRecovery     WorkoutCategory = "recovery"
	CategoryRest         WorkoutCategory = "rest"
	CategoryGeneral      WorkoutCategory = "general" // fallback for anything unrecognized
)

// Current blob layout: natural-language templates in a flat array.
// Version 1 (structured exercise lists) is not supported.
const WorkoutPlanSchemaVersion = 2

var ErrUnsupportedPlanVersion = errors.New("workout plan schema version is not supported")

// WorkoutTemplate is a prescribed, not-yet-performed unit of training tied to one day.
type WorkoutTemplate struct {
	ID                string          `bson:"id" json:"id"`
	GroupID           string          `bson:"groupId" json:"groupId"` // shared by all templates of a day
	DayNumber         int             `bson:"dayNumber" json:"dayNumber"`
	PhaseID           string          `bson:"phaseId" json:"phaseId"`
	Name              string          `bson:"name" json:"name"`
	Category          WorkoutCategory `bson:"category" json:"category"`
	Description       string          `bson:"description" json:"description"`
	ScoringType       string          `bson:"scoringType" json:"scoringType"`
	EstimatedDuration int             `bson:"estimatedDuration" json:"estimatedDuration"` // minutes
	Status            WorkoutStatus   `bson:"status" json:"status"`
	ScheduledDate     *time.Time      `bson:"scheduledDate,omitempty" json:"scheduledDate,omitempty"`
}

// IsRest reports whether the template prescribes rest rather than training.
func (w WorkoutTemplate) IsRest() bool {
	return w.Category == CategoryRest
}

// WorkoutPlan is the detail blob stored in object storage.
type WorkoutPlan struct {
	ProgramID     string            `json:"programId"`
	OwnerID       string            `json:"ownerId"`
	SchemaVersion int               `json:"schemaVersion"`
	Templates     []WorkoutTemplate `json:"templates"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// CheckVersion rejects blobs written in an older layout.
func (p *WorkoutPlan) CheckVersion() error {
	if p.SchemaVersion != WorkoutPlanSchemaVersion {
		return ErrUnsupportedPlanVersion
	}
	return nil
}

// TrainingDays returns the sorted distinct day numbers carrying at least one non-rest template.
func TrainingDays(templates []WorkoutTemplate) []int {
	seen := make(map[int]bool)
	var days []int
	for _, t := range templates {
		if t.IsRest() || t.Status == WorkoutRegenerated || seen[t.DayNumber] {
			continue
		}
		seen[t.DayNumber] = true
		days = append(days, t.DayNumber)
	}
	sort.Ints(days)
	return days
}

// CountWorkouts returns the number of non-rest, non-regenerated templates.
func CountWorkouts(templates []WorkoutTemplate) int {
	n := 0
	for _, t := range templates {
		if t.IsRest() || t.Status == WorkoutRegenerated {
			continue
		}
		n++
	}
	return n
}
