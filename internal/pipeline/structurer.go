package pipeline

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"fitcoach/programgen/internal/domain"
	"fitcoach/programgen/internal/generation"
	"fitcoach/programgen/internal/respparse"
	"fitcoach/programgen/internal/schema"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	minPhaseDays       = 2
	rescaledConfidence = 0.8
)

// Structure is the phase decomposition of a program.
type Structure struct {
	Name       string
	Phases     []domain.Phase
	Rescaled   bool
	Confidence float64
}

type phaseDraft struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	StartDay    int      `json:"startDay"`
	EndDay      int      `json:"endDay"`
	FocusAreas  []string `json:"focusAreas"`
}

type structureResponse struct {
	ProgramName string       `json:"programName"`
	Phases      []phaseDraft `json:"phases"`
}

// Structurer decomposes the program duration into contiguous phases.
type Structurer struct {
	gen    generation.Service
	logger *zap.Logger
}

func NewStructurer(gen generation.Service, logger *zap.Logger) *Structurer {
	return &Structurer{gen: gen, logger: logger}
}

// Structure issues one generation call and returns phases covering exactly [1, totalDays].
func (s *Structurer) Structure(ctx context.Context, req *Requirements) (Structure, error) {
	raw, err := s.gen.Generate(ctx, generation.Request{
		Step:   generation.StepStructure,
		System: systemPrompt(req.Coach()),
		Prompt: structurePrompt(req),
		Schema: schema.Phases(req.TotalDays()),
	})
	if err != nil {
		return Structure{}, stepError(StageStructure, err)
	}
	var resp structureResponse
	res, err := respparse.Parse(raw, &resp)
	if err != nil {
		return Structure{}, stepError(StageStructure, err)
	}
	if len(resp.Phases) == 0 {
		return Structure{}, stepError(StageStructure, ErrNoPhases)
	}

	phases, rescaled := FitPhases(resp.Phases, req.TotalDays())
	EstimateWorkouts(phases, req.TotalDays(), req.TrainingFrequency())

	out := Structure{
		Name:       strings.TrimSpace(resp.ProgramName),
		Phases:     phases,
		Rescaled:   rescaled,
		Confidence: res.Confidence,
	}
	if rescaled {
		out.Confidence = math.Min(out.Confidence, rescaledConfidence)
		s.logger.Warn("phase structure rescaled to cover the program",
			zap.String("requirementsId", req.ID()), zap.Int("phases", len(phases)))
	}
	if out.Name == "" {
		out.Name = fmt.Sprintf("%d-Week Program", int(math.Ceil(float64(req.TotalDays())/7)))
	}
	return out, nil
}

// FitPhases sorts the drafted phases and, when they do not exactly tile [1, totalDays] with
// phases of at least two days, rescales their lengths proportionally (largest remainder).
func FitPhases(drafts []phaseDraft, totalDays int) ([]domain.Phase, bool) {
	sorted := append([]phaseDraft(nil), drafts...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartDay < sorted[j].StartDay })

	rescaled := !tiles(sorted, totalDays)
	if rescaled {
		maxPhases := totalDays / minPhaseDays
		if len(sorted) > maxPhases {
			sorted = sorted[:maxPhases]
		}
		weights := make([]int, len(sorted))
		for i, d := range sorted {
			weights[i] = d.EndDay - d.StartDay + 1
			if weights[i] < 1 {
				weights[i] = 1
			}
		}
		lengths := apportion(weights, totalDays, minPhaseDays)
		start := 1
		for i := range sorted {
			sorted[i].StartDay = start
			sorted[i].EndDay = start + lengths[i] - 1
			start += lengths[i]
		}
	}

	phases := make([]domain.Phase, len(sorted))
	for i, d := range sorted {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			name = fmt.Sprintf("Phase %d", i+1)
		}
		phases[i] = domain.Phase{
			ID:           uuid.NewString(),
			Name:         name,
			Description:  strings.TrimSpace(d.Description),
			StartDay:     d.StartDay,
			EndDay:       d.EndDay,
			DurationDays: d.EndDay - d.StartDay + 1,
			FocusAreas:   d.FocusAreas,
		}
	}
	return phases, rescaled
}

func tiles(sorted []phaseDraft, totalDays int) bool {
	next := 1
	for _, d := range sorted {
		if d.StartDay != next || d.EndDay-d.StartDay+1 < minPhaseDays {
			return false
		}
		next = d.EndDay + 1
	}
	return next == totalDays+1
}

// apportion splits total into len(weights) parts proportional to weights, each at least floor.
// Requires total >= floor*len(weights).
func apportion(weights []int, total, floor int) []int {
	n := len(weights)
	out := make([]int, n)
	sum := 0
	for _, w := range weights {
		sum += w
	}
	free := total - floor*n
	type rem struct {
		i    int
		frac float64
	}
	rems := make([]rem, n)
	used := 0
	for i, w := range weights {
		q := float64(free) * float64(w) / float64(sum)
		out[i] = floor + int(math.Floor(q))
		used += int(math.Floor(q))
		rems[i] = rem{i, q - math.Floor(q)}
	}
	sort.SliceStable(rems, func(a, b int) bool { return rems[a].frac > rems[b].frac })
	for k := 0; k < free-used; k++ {
		out[rems[k%n].i]++
	}
	return out
}

// EstimateWorkouts sets each phase's advisory workout count. Every phase starts from the guideline
// floor(durationDays/7) x frequency; the weeks lost to flooring are handed out round-robin by
// leftover days so the estimates sum to floor(totalDays/7) x frequency.
func EstimateWorkouts(phases []domain.Phase, totalDays, frequency int) {
	total := (totalDays / 7) * frequency
	assigned := 0
	for i := range phases {
		phases[i].EstimatedWorkouts = (phases[i].DurationDays / 7) * frequency
		assigned += phases[i].EstimatedWorkouts
	}
	if len(phases) == 0 || assigned >= total {
		return
	}
	order := make([]int, len(phases))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return phases[order[a]].DurationDays%7 > phases[order[b]].DurationDays%7
	})
	for k := 0; assigned < total; k++ {
		phases[order[k%len(order)]].EstimatedWorkouts++
		assigned++
	}
}
