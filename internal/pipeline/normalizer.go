package pipeline

import (
	"context"
	"fmt"
	"strings"

	"fitcoach/programgen/internal/calendar"
	"fitcoach/programgen/internal/domain"
	"fitcoach/programgen/internal/generation"
	"fitcoach/programgen/internal/respparse"
	"fitcoach/programgen/internal/schema"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type normalizeResponse struct {
	IsValid    bool                        `json:"isValid"`
	Confidence float64                     `json:"confidence"`
	Issues     []domain.NormalizationIssue `json:"issues"`
	Program    struct {
		Name        string `json:"name"`
		WorkoutsRef string `json:"workoutsRef"`
		Phases      []struct {
			ID          string   `json:"id"`
			Name        string   `json:"name"`
			Description string   `json:"description"`
			FocusAreas  []string `json:"focusAreas"`
		} `json:"phases"`
	} `json:"program"`
}

// NormalizeResult is the normalizer's verdict on the draft.
type NormalizeResult struct {
	IsValid    bool
	Confidence float64
	Issues     []domain.NormalizationIssue // local repairs first, then the review's findings
}

// BlockingIssues returns the issues left uncorrected with error severity.
func (r NormalizeResult) BlockingIssues() []domain.NormalizationIssue {
	var out []domain.NormalizationIssue
	for _, is := range r.Issues {
		if is.Blocking() {
			out = append(out, is)
		}
	}
	return out
}

// Normalizer repairs structural defects. Deterministic fixes are applied locally; one review
// call over the phase metadata may then rename or redescribe phases. The storage reference
// is never taken from the review.
type Normalizer struct {
	gen    generation.Service
	logger *zap.Logger
}

func NewNormalizer(gen generation.Service, logger *zap.Logger) *Normalizer {
	return &Normalizer{gen: gen, logger: logger}
}

func (n *Normalizer) Normalize(ctx context.Context, coach domain.CoachProfile, d *Draft) (NormalizeResult, error) {
	ref := d.Program.WorkoutsRef

	// 1. Local repairs
	issues := RepairDraft(d)

	// 2. Review
	raw, err := n.gen.Generate(ctx, generation.Request{
		Step:   generation.StepNormalize,
		System: systemPrompt(coach),
		Prompt: normalizePrompt(d.lightweight()),
		Schema: schema.Normalize(),
	})
	if err != nil {
		return NormalizeResult{}, stepError(StageNormalize, err)
	}
	var resp normalizeResponse
	res, err := respparse.Parse(raw, &resp)
	if err != nil {
		return NormalizeResult{}, stepError(StageNormalize, err)
	}

	// 3. Merge names, descriptions and focus areas by phase id
	if name := strings.TrimSpace(resp.Program.Name); name != "" {
		d.Program.Name = name
	}
	byID := make(map[string]int, len(d.Program.Phases))
	for i, ph := range d.Program.Phases {
		byID[ph.ID] = i
	}
	for _, rp := range resp.Program.Phases {
		i, ok := byID[rp.ID]
		if !ok {
			continue
		}
		ph := &d.Program.Phases[i]
		if v := strings.TrimSpace(rp.Name); v != "" {
			ph.Name = v
		}
		if v := strings.TrimSpace(rp.Description); v != "" {
			ph.Description = v
		}
		if len(rp.FocusAreas) > 0 {
			ph.FocusAreas = rp.FocusAreas
		}
	}
	if resp.Program.WorkoutsRef != "" && resp.Program.WorkoutsRef != ref {
		issues = append(issues, domain.NormalizationIssue{
			Type:        IssueStorageReference,
			Severity:    domain.SeverityWarning,
			Field:       "workoutsRef",
			Description: "review returned a different storage reference; the original was kept",
			Corrected:   true,
		})
	}
	issues = append(issues, resp.Issues...)

	conf := clampUnit(resp.Confidence)
	if res.Repaired && res.Confidence < conf {
		conf = res.Confidence
	}
	d.Confidences = append(d.Confidences, conf)

	n.logger.Info("draft normalized",
		zap.String("programId", d.Program.ID),
		zap.Bool("isValid", resp.IsValid),
		zap.Int("issues", len(issues)),
		zap.Float64("confidence", conf))
	return NormalizeResult{IsValid: resp.IsValid, Confidence: conf, Issues: issues}, nil
}

// RepairDraft applies the deterministic fixes and reports each as a corrected issue.
func RepairDraft(d *Draft) []domain.NormalizationIssue {
	var issues []domain.NormalizationIssue
	fixed := func(typ, field, format string, args ...any) {
		issues = append(issues, domain.NormalizationIssue{
			Type: typ, Severity: domain.SeverityWarning, Field: field,
			Description: fmt.Sprintf(format, args...), Corrected: true,
		})
	}

	for i := range d.Program.Phases {
		ph := &d.Program.Phases[i]
		field := fmt.Sprintf("phases[%d]", i)
		if ph.ID == "" {
			ph.ID = uuid.NewString()
			fixed(IssueMissingField, field+".id", "phase id assigned")
		}
		if strings.TrimSpace(ph.Name) == "" {
			ph.Name = fmt.Sprintf("Phase %d", i+1)
			fixed(IssueMissingField, field+".name", "phase name defaulted")
		}
		if want := ph.EndDay - ph.StartDay + 1; ph.DurationDays != want {
			fixed(IssuePhaseDuration, field+".durationDays", "duration %d set to %d", ph.DurationDays, want)
			ph.DurationDays = want
		}
	}

	groups := map[int]string{}
	for _, t := range d.Templates {
		if _, ok := groups[t.DayNumber]; !ok && t.GroupID != "" {
			groups[t.DayNumber] = t.GroupID
		}
	}
	for i := range d.Templates {
		t := &d.Templates[i]
		field := fmt.Sprintf("templates[%d]", i)
		if t.ID == "" {
			t.ID = uuid.NewString()
			fixed(IssueMissingField, field+".id", "template id assigned")
		}
		gid, ok := groups[t.DayNumber]
		if !ok {
			gid = uuid.NewString()
			groups[t.DayNumber] = gid
		}
		if t.GroupID != gid {
			t.GroupID = gid
			fixed(IssueGroupMismatch, field+".groupId", "day %d templates regrouped", t.DayNumber)
		}
		if owner, ok := calendar.PhaseForDay(d.Program.Phases, t.DayNumber); ok && t.PhaseID != owner.ID {
			t.PhaseID = owner.ID
			fixed(IssuePhaseMismatch, field+".phaseId", "day %d moved to phase %s", t.DayNumber, owner.Name)
		}
		if t.Category == "" {
			t.Category = domain.CategoryGeneral
			fixed(IssueMissingField, field+".category", "category defaulted to %s", domain.CategoryGeneral)
		}
		if strings.TrimSpace(t.Name) == "" {
			t.Name = fmt.Sprintf("Day %d %s", t.DayNumber, t.Category)
			fixed(IssueMissingField, field+".name", "template name defaulted")
		}
		if t.Status == "" {
			t.Status = domain.WorkoutPending
			fixed(IssueMissingField, field+".status", "status defaulted to %s", domain.WorkoutPending)
		}
	}
	return issues
}
