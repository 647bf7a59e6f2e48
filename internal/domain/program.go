// internal/domain/program.go
package domain

import (
	"time"
)

// ProgramStatus tracks the lifecycle of a generated program.
type ProgramStatus string

const (
	ProgramActive    ProgramStatus = "active"
	ProgramPaused    ProgramStatus = "paused"
	ProgramCompleted ProgramStatus = "completed"
	ProgramArchived  ProgramStatus = "archived"
)

// Program is the metadata document for a multi-week training program.
// The per-day workout templates live in object storage; WorkoutsRef points at that blob
// and the document never embeds template bodies.
type Program struct {
	ID                   string        `bson:"_id" json:"id"`
	OwnerID              string        `bson:"ownerId" json:"ownerId"`
	CoachID              string        `bson:"coachId" json:"coachId"`
	ConversationID       string        `bson:"conversationId,omitempty" json:"conversationId,omitempty"`
	Name                 string        `bson:"name" json:"name"`
	Status               ProgramStatus `bson:"status" json:"status"`
	StartDate            time.Time     `bson:"startDate" json:"startDate"` // civil date, midnight UTC
	TimeZone             string        `bson:"timeZone" json:"timeZone"`   // owner's IANA zone
	TotalDays            int           `bson:"totalDays" json:"totalDays"`
	CurrentDay           int           `bson:"currentDay" json:"currentDay"` // 1-indexed
	PausedDuration       int           `bson:"pausedDuration" json:"pausedDuration"` // whole days, never decreases
	PausedAt             *time.Time    `bson:"pausedAt,omitempty" json:"pausedAt,omitempty"`
	TrainingFrequency    int           `bson:"trainingFrequency" json:"trainingFrequency"` // days per week
	Phases               []Phase       `bson:"phases" json:"phases"`
	TrainingGoals        []string      `bson:"trainingGoals" json:"trainingGoals"`
	EquipmentConstraints []string      `bson:"equipmentConstraints" json:"equipmentConstraints"`
	TotalWorkouts        int           `bson:"totalWorkouts" json:"totalWorkouts"`
	CompletedWorkouts    int           `bson:"completedWorkouts" json:"completedWorkouts"`
	AdherenceRate        float64       `bson:"adherenceRate" json:"adherenceRate"`
	WorkoutsRef          string        `bson:"workoutsRef" json:"workoutsRef"`
	Summary              string        `bson:"summary,omitempty" json:"summary,omitempty"`
	Confidence           float64       `bson:"confidence" json:"confidence"`
	CreatedAt            time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// Phase is a contiguous, inclusive day range of a program sharing a training focus.
type Phase struct {
	ID                string   `bson:"id" json:"id"`
	Name              string   `bson:"name" json:"name"`
	Description       string   `bson:"description" json:"description"`
	StartDay          int      `bson:"startDay" json:"startDay"`
	EndDay            int      `bson:"endDay" json:"endDay"`
	DurationDays      int      `bson:"durationDays" json:"durationDays"`
	FocusAreas        []string `bson:"focusAreas" json:"focusAreas"`
	EstimatedWorkouts int      `bson:"estimatedWorkouts" json:"estimatedWorkouts"` // advisory only
}

// Contains reports whether day falls inside the phase.
func (p Phase) Contains(day int) bool {
	return day >= p.StartDay && day <= p.EndDay
}

// UpdateAdherence recomputes the adherence rate from the workout counters.
func (p *Program) UpdateAdherence() {
	if p.TotalWorkouts <= 0 {
		p.AdherenceRate = 0
		return
	}
	p.AdherenceRate = float64(p.CompletedWorkouts) / float64(p.TotalWorkouts)
}
