package pipeline

import (
	"context"
	"fmt"
	"strings"

	"fitcoach/programgen/internal/domain"
	"fitcoach/programgen/internal/generation"
	"fitcoach/programgen/internal/respparse"
	"fitcoach/programgen/internal/schema"

	"go.uber.org/zap"
)

type summaryResponse struct {
	Summary string `json:"summary"`
}

// Summarizer describes the finalized program in natural language for the vector index.
type Summarizer struct {
	gen    generation.Service
	logger *zap.Logger
}

func NewSummarizer(gen generation.Service, logger *zap.Logger) *Summarizer {
	return &Summarizer{gen: gen, logger: logger}
}

// Summarize returns the summary text. An empty answer falls back to a generated description.
func (s *Summarizer) Summarize(ctx context.Context, coach domain.CoachProfile, d *Draft) (string, error) {
	raw, err := s.gen.Generate(ctx, generation.Request{
		Step:   generation.StepSummary,
		System: systemPrompt(coach),
		Prompt: summaryPrompt(d),
		Schema: schema.Summary(),
	})
	if err != nil {
		return "", stepError(StageSummarize, err)
	}
	var resp summaryResponse
	if _, err := respparse.Parse(raw, &resp); err != nil {
		return "", stepError(StageSummarize, err)
	}
	text := strings.TrimSpace(resp.Summary)
	if text == "" {
		s.logger.Warn("empty summary, using fallback", zap.String("programId", d.Program.ID))
		text = FallbackSummary(d.Program)
	}
	return text, nil
}

// FallbackSummary builds a plain description from the program metadata.
func FallbackSummary(p *domain.Program) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: a %d-day program with %d training days per week and %d workouts.",
		p.Name, p.TotalDays, p.TrainingFrequency, p.TotalWorkouts)
	if len(p.TrainingGoals) > 0 {
		fmt.Fprintf(&b, " Goals: %s.", strings.Join(p.TrainingGoals, ", "))
	}
	names := make([]string, len(p.Phases))
	for i, ph := range p.Phases {
		names[i] = ph.Name
	}
	if len(names) > 0 {
		fmt.Fprintf(&b, " Phases: %s.", strings.Join(names, ", "))
	}
	return b.String()
}
