package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"fitcoach/programgen/internal/domain"
	"fitcoach/programgen/internal/generation"
	"fitcoach/programgen/internal/respparse"
	"fitcoach/programgen/internal/schema"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const droppedPenalty = 0.1

// workoutDraft is a template as returned by the generation service. Exercises only shows up in
// the old structured format, which is rejected.
type workoutDraft struct {
	DayNumber         int             `json:"dayNumber"`
	Name              string          `json:"name"`
	Category          string          `json:"category"`
	Description       string          `json:"description"`
	ScoringType       string          `json:"scoringType"`
	EstimatedDuration int             `json:"estimatedDuration"`
	Exercises         json.RawMessage `json:"exercises,omitempty"`
}

type phaseWorkoutsResponse struct {
	Workouts []workoutDraft `json:"workouts"`
}

type singleWorkoutResponse struct {
	Workout workoutDraft `json:"workout"`
}

// PhaseOutput is the result of one phase generation call.
type PhaseOutput struct {
	PhaseID    string
	Templates  []domain.WorkoutTemplate
	Dropped    int
	Confidence float64
}

// Generator writes the workout templates of one phase at a time. Calls share no state,
// so every phase of a program can be generated concurrently.
type Generator struct {
	gen    generation.Service
	logger *zap.Logger
}

func NewGenerator(gen generation.Service, logger *zap.Logger) *Generator {
	return &Generator{gen: gen, logger: logger}
}

// GeneratePhase produces the templates for phase. Re-running it for the same phase replaces
// the previous output; nothing is merged.
func (g *Generator) GeneratePhase(ctx context.Context, req *Requirements, phase domain.Phase, phases []domain.Phase) (PhaseOutput, error) {
	categories := schema.CategoriesFor(phase.FocusAreas, req.Goals())
	raw, err := g.gen.Generate(ctx, generation.Request{
		Step:   generation.StepWorkouts,
		System: systemPrompt(req.Coach()),
		Prompt: phasePrompt(req, phase, phases),
		Schema: schema.PhaseWorkouts(phase, categories),
	})
	if err != nil {
		return PhaseOutput{}, stepError(StageGenerate, fmt.Errorf("phase %s: %w", phase.ID, err))
	}
	var resp phaseWorkoutsResponse
	res, err := respparse.Parse(raw, &resp)
	if err != nil {
		return PhaseOutput{}, stepError(StageGenerate, fmt.Errorf("phase %s: %w", phase.ID, err))
	}

	out := PhaseOutput{PhaseID: phase.ID, Confidence: res.Confidence}
	groups := map[int]string{}
	for _, w := range resp.Workouts {
		if isLegacy(w) {
			return PhaseOutput{}, stepError(StageGenerate, fmt.Errorf("phase %s day %d: %w", phase.ID, w.DayNumber, ErrLegacyFormat))
		}
		if !phase.Contains(w.DayNumber) {
			out.Dropped++
			continue
		}
		gid, ok := groups[w.DayNumber]
		if !ok {
			gid = uuid.NewString()
			groups[w.DayNumber] = gid
		}
		out.Templates = append(out.Templates, toTemplate(w, phase.ID, gid))
	}
	if out.Dropped > 0 {
		out.Confidence -= droppedPenalty
		g.logger.Warn("dropped templates outside the phase range",
			zap.String("phaseId", phase.ID), zap.Int("dropped", out.Dropped))
	}
	return out, nil
}

// RegenerateTemplate asks for a replacement of one template on the same day.
func (g *Generator) RegenerateTemplate(ctx context.Context, program *domain.Program, coach domain.CoachProfile, phase domain.Phase, old domain.WorkoutTemplate, reason string) (domain.WorkoutTemplate, error) {
	categories := schema.CategoriesFor(phase.FocusAreas, program.TrainingGoals)
	raw, err := g.gen.Generate(ctx, generation.Request{
		Step:   generation.StepRegenerate,
		System: systemPrompt(coach),
		Prompt: regeneratePrompt(program, phase, old, reason),
		Schema: schema.SingleWorkout(old.DayNumber, categories),
	})
	if err != nil {
		return domain.WorkoutTemplate{}, stepError(StageRegenerate, err)
	}
	var resp singleWorkoutResponse
	if _, err := respparse.Parse(raw, &resp); err != nil {
		return domain.WorkoutTemplate{}, stepError(StageRegenerate, err)
	}
	if isLegacy(resp.Workout) {
		return domain.WorkoutTemplate{}, stepError(StageRegenerate, ErrLegacyFormat)
	}
	// the replacement always lands on the original day and group
	resp.Workout.DayNumber = old.DayNumber
	return toTemplate(resp.Workout, old.PhaseID, old.GroupID), nil
}

func isLegacy(w workoutDraft) bool {
	ex := strings.TrimSpace(string(w.Exercises))
	return ex != "" && ex != "null" && ex != "[]" && strings.TrimSpace(w.Description) == ""
}

func toTemplate(w workoutDraft, phaseID, groupID string) domain.WorkoutTemplate {
	return domain.WorkoutTemplate{
		ID:                uuid.NewString(),
		GroupID:           groupID,
		DayNumber:         w.DayNumber,
		PhaseID:           phaseID,
		Name:              strings.TrimSpace(w.Name),
		Category:          schema.ResolveCategory(w.Category),
		Description:       strings.TrimSpace(w.Description),
		ScoringType:       w.ScoringType,
		EstimatedDuration: w.EstimatedDuration,
		Status:            domain.WorkoutPending,
	}
}
