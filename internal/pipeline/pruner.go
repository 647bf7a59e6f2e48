package pipeline

import (
	"context"
	"sort"
	"strings"

	"fitcoach/programgen/internal/calendar"
	"fitcoach/programgen/internal/domain"
	"fitcoach/programgen/internal/generation"
	"fitcoach/programgen/internal/respparse"
	"fitcoach/programgen/internal/schema"

	"go.uber.org/zap"
)

type pruneResponse struct {
	RemoveDays []int  `json:"removeDays"`
	Rationale  string `json:"rationale"`
}

// PruneResult reports which training days were removed.
type PruneResult struct {
	Removed    []int
	Rationale  string
	Reconciled bool // the model's selection had to be corrected
	Confidence float64
}

// Pruner removes surplus training days from an over-dense draft.
type Pruner struct {
	gen    generation.Service
	logger *zap.Logger
}

func NewPruner(gen generation.Service, logger *zap.Logger) *Pruner {
	return &Pruner{gen: gen, logger: logger}
}

// Prune asks for the days to drop, reconciles the answer so exactly target training days
// remain, and removes every template on the dropped days.
func (p *Pruner) Prune(ctx context.Context, coach domain.CoachProfile, d *Draft, target int) (PruneResult, error) {
	days := d.TrainingDays()
	if target < 0 || len(days) <= target {
		return PruneResult{Confidence: respparse.CleanConfidence}, nil
	}

	dayPhase := make(map[int]string, len(days))
	byPhase := map[string][]int{}
	for _, day := range days {
		if ph, ok := calendar.PhaseForDay(d.Program.Phases, day); ok {
			dayPhase[day] = ph.ID
			byPhase[ph.ID] = append(byPhase[ph.ID], day)
		}
	}

	raw, err := p.gen.Generate(ctx, generation.Request{
		Step:   generation.StepPrune,
		System: systemPrompt(coach),
		Prompt: prunePrompt(d.Program.Phases, byPhase, len(days), target),
		Schema: schema.Prune(),
	})
	if err != nil {
		return PruneResult{}, stepError(StagePrune, err)
	}
	var resp pruneResponse
	res, err := respparse.Parse(raw, &resp)
	if err != nil {
		return PruneResult{}, stepError(StagePrune, err)
	}

	removed, reconciled := Reconcile(days, dayPhase, resp.RemoveDays, len(days)-target)
	drop := make(map[int]bool, len(removed))
	for _, day := range removed {
		drop[day] = true
	}
	kept := d.Templates[:0:0]
	for _, t := range d.Templates {
		if !drop[t.DayNumber] {
			kept = append(kept, t)
		}
	}
	d.Templates = kept

	if reconciled {
		p.logger.Warn("prune selection reconciled",
			zap.Ints("requested", resp.RemoveDays), zap.Ints("removed", removed))
	}
	p.logger.Info("training days pruned",
		zap.Int("from", len(days)), zap.Int("to", target), zap.String("rationale", strings.TrimSpace(resp.Rationale)))

	return PruneResult{
		Removed:    removed,
		Rationale:  strings.TrimSpace(resp.Rationale),
		Reconciled: reconciled,
		Confidence: res.Confidence,
	}, nil
}

// Reconcile turns a model selection into exactly need distinct days taken from training.
// Picks that are not training days are ignored, duplicates are collapsed, extra picks are cut
// from the end, and a shortfall is filled from the densest week, preferring days whose phase
// keeps at least one other training day. dayPhase maps a training day to its phase id.
func Reconcile(training []int, dayPhase map[int]string, picks []int, need int) ([]int, bool) {
	if need <= 0 {
		return nil, len(picks) > 0
	}
	if need > len(training) {
		need = len(training)
	}
	isTraining := make(map[int]bool, len(training))
	for _, day := range training {
		isTraining[day] = true
	}

	chosen := map[int]bool{}
	var out []int
	reconciled := false
	for _, day := range picks {
		if !isTraining[day] || chosen[day] {
			reconciled = true
			continue
		}
		if len(out) == need {
			reconciled = true
			break
		}
		chosen[day] = true
		out = append(out, day)
	}

	if len(out) < need {
		reconciled = true
		weekLoad := map[int]int{}
		phaseLoad := map[string]int{}
		for _, day := range training {
			if !chosen[day] {
				weekLoad[(day-1)/7]++
				phaseLoad[dayPhase[day]]++
			}
		}
		for len(out) < need {
			best := -1
			for _, day := range training {
				if chosen[day] {
					continue
				}
				if best < 0 || fillsBetter(day, best, weekLoad, phaseLoad, dayPhase) {
					best = day
				}
			}
			chosen[best] = true
			out = append(out, best)
			weekLoad[(best-1)/7]--
			phaseLoad[dayPhase[best]]--
		}
	}
	sort.Ints(out)
	return out, reconciled
}

// fillsBetter orders shortfall candidates: keep phases populated, then densest week, then latest day.
func fillsBetter(a, b int, weekLoad map[int]int, phaseLoad map[string]int, dayPhase map[int]string) bool {
	aKeeps, bKeeps := phaseLoad[dayPhase[a]] > 1, phaseLoad[dayPhase[b]] > 1
	if aKeeps != bKeeps {
		return aKeeps
	}
	wa, wb := weekLoad[(a-1)/7], weekLoad[(b-1)/7]
	if wa != wb {
		return wa > wb
	}
	return a > b
}
