package pipeline

import (
	"fitcoach/programgen/internal/domain"
)

// Draft is the program under construction. It is owned by a single run and only the
// sequential steps after fan-in mutate it.
type Draft struct {
	Program     *domain.Program
	Templates   []domain.WorkoutTemplate
	Confidences []float64 // one per generation-backed step
}

// TrainingDays lists the draft's current training days.
func (d *Draft) TrainingDays() []int {
	return domain.TrainingDays(d.Templates)
}

// lightweightProgram is the phase-level view sent to the normalizer; template bodies are left out.
type lightweightProgram struct {
	Name              string             `json:"name"`
	WorkoutsRef       string             `json:"workoutsRef"`
	TotalDays         int                `json:"totalDays"`
	TrainingFrequency int                `json:"trainingFrequency"`
	TrainingDays      int                `json:"trainingDays"`
	Phases            []lightweightPhase `json:"phases"`
}

type lightweightPhase struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	StartDay          int      `json:"startDay"`
	EndDay            int      `json:"endDay"`
	FocusAreas        []string `json:"focusAreas"`
	EstimatedWorkouts int      `json:"estimatedWorkouts"`
	Workouts          int      `json:"workouts"`
}

func (d *Draft) lightweight() lightweightProgram {
	p := d.Program
	lw := lightweightProgram{
		Name:              p.Name,
		WorkoutsRef:       p.WorkoutsRef,
		TotalDays:         p.TotalDays,
		TrainingFrequency: p.TrainingFrequency,
		TrainingDays:      len(d.TrainingDays()),
	}
	counts := map[string]int{}
	for _, t := range d.Templates {
		if !t.IsRest() {
			counts[t.PhaseID]++
		}
	}
	for _, ph := range p.Phases {
		lw.Phases = append(lw.Phases, lightweightPhase{
			ID:                ph.ID,
			Name:              ph.Name,
			Description:       ph.Description,
			StartDay:          ph.StartDay,
			EndDay:            ph.EndDay,
			FocusAreas:        ph.FocusAreas,
			EstimatedWorkouts: ph.EstimatedWorkouts,
			Workouts:          counts[ph.ID],
		})
	}
	return lw
}
