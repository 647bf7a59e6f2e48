package pipeline

import (
	"fmt"
	"math"

	"fitcoach/programgen/internal/calendar"
	"fitcoach/programgen/internal/domain"
)

const warningPenalty = 0.05

// Issue types reported by the validator.
const (
	IssueNoPhases         = "no_phases"
	IssuePhaseOrder       = "phase_order"
	IssuePhaseCoverage    = "phase_coverage"
	IssuePhaseTooShort    = "phase_too_short"
	IssuePhaseDuration    = "phase_duration"
	IssueTotalDays        = "total_days_mismatch"
	IssueDayOutOfRange    = "day_out_of_range"
	IssueEmptyPhase       = "phase_without_training"
	IssueUnplannedPhase   = "phase_without_templates"
	IssueExcessTraining   = "excess_training_days"
	IssuePhaseMismatch    = "phase_mismatch"
	IssueGroupMismatch    = "group_mismatch"
	IssueMissingField     = "missing_field"
	IssueStorageReference = "storage_reference"
)

// Validator is the authoritative gate over a draft. It makes no external calls.
type Validator struct {
	PruneTolerance     float64 // prune when training days exceed the target by more than this share
	NormalizeThreshold float64 // normalize when confidence drops below this
}

// Validate runs the checks in order: phase coverage, day coverage, training-day count,
// required fields, confidence.
func (v Validator) Validate(d *Draft) domain.ValidationResult {
	p := d.Program
	var issues []domain.NormalizationIssue
	add := func(typ string, sev domain.Severity, field, format string, args ...any) {
		issues = append(issues, domain.NormalizationIssue{
			Type: typ, Severity: sev, Field: field, Description: fmt.Sprintf(format, args...),
		})
	}
	normalize := false

	// (a) phase coverage and contiguity
	if len(p.Phases) == 0 {
		add(IssueNoPhases, domain.SeverityError, "phases", "program has no phases")
	}
	next := 1
	for i, ph := range p.Phases {
		field := fmt.Sprintf("phases[%d]", i)
		if i > 0 && ph.StartDay <= p.Phases[i-1].StartDay {
			add(IssuePhaseOrder, domain.SeverityError, field+".startDay", "phase starts on day %d, not after the previous phase", ph.StartDay)
		}
		if ph.StartDay != next {
			add(IssuePhaseCoverage, domain.SeverityError, field+".startDay", "phase starts on day %d, expected %d", ph.StartDay, next)
		}
		if ph.StartDay >= ph.EndDay {
			add(IssuePhaseTooShort, domain.SeverityError, field+".endDay", "phase ends on day %d, not after its start day %d", ph.EndDay, ph.StartDay)
		}
		if ph.DurationDays != ph.EndDay-ph.StartDay+1 {
			add(IssuePhaseDuration, domain.SeverityWarning, field+".durationDays", "duration %d does not match days %d-%d", ph.DurationDays, ph.StartDay, ph.EndDay)
			normalize = true
		}
		next = ph.EndDay + 1
	}
	if n := len(p.Phases); n > 0 && p.Phases[n-1].EndDay != p.TotalDays {
		add(IssueTotalDays, domain.SeverityError, fmt.Sprintf("phases[%d].endDay", n-1),
			"last phase ends on day %d but the program has %d days", p.Phases[n-1].EndDay, p.TotalDays)
	}

	// (b) days: templates inside the program, grouped per day, attached to the right phase.
	// Days without templates are rest days, but a phase must carry at least one template,
	// training or rest, to count as planned.
	dayGroup := map[int]string{}
	trainingByPhase := map[string]int{}
	templatesByPhase := map[string]int{}
	for i, t := range d.Templates {
		field := fmt.Sprintf("templates[%d]", i)
		if t.DayNumber < 1 || t.DayNumber > p.TotalDays {
			add(IssueDayOutOfRange, domain.SeverityError, field+".dayNumber", "day %d is outside 1-%d", t.DayNumber, p.TotalDays)
			continue
		}
		owner, ok := calendar.PhaseForDay(p.Phases, t.DayNumber)
		if ok && t.PhaseID != owner.ID {
			add(IssuePhaseMismatch, domain.SeverityWarning, field+".phaseId", "day %d belongs to phase %s", t.DayNumber, owner.ID)
			normalize = true
		}
		if g, seen := dayGroup[t.DayNumber]; !seen {
			dayGroup[t.DayNumber] = t.GroupID
		} else if g != t.GroupID {
			add(IssueGroupMismatch, domain.SeverityWarning, field+".groupId", "templates of day %d do not share a group", t.DayNumber)
			normalize = true
		}
		if ok {
			templatesByPhase[owner.ID]++
		}
		if ok && !t.IsRest() && t.Status != domain.WorkoutRegenerated {
			trainingByPhase[owner.ID]++
		}
	}
	for i, ph := range p.Phases {
		switch {
		case templatesByPhase[ph.ID] == 0:
			add(IssueUnplannedPhase, domain.SeverityError, fmt.Sprintf("phases[%d]", i), "phase %q has no templates for days %d-%d", ph.Name, ph.StartDay, ph.EndDay)
		case trainingByPhase[ph.ID] == 0:
			add(IssueEmptyPhase, domain.SeverityWarning, fmt.Sprintf("phases[%d]", i), "phase %q has no training days", ph.Name)
		}
	}

	// (c) training days against the requested frequency
	training := len(d.TrainingDays())
	target := TargetTrainingDays(p.TotalDays, p.TrainingFrequency)
	shouldPrune := float64(training) > float64(target)*(1+v.PruneTolerance)
	if shouldPrune {
		add(IssueExcessTraining, domain.SeverityWarning, "templates", "%d training days exceed the target of %d", training, target)
	}

	// (d) required fields
	if p.WorkoutsRef == "" {
		add(IssueStorageReference, domain.SeverityError, "workoutsRef", "storage reference is missing")
	}
	for i, ph := range p.Phases {
		if ph.ID == "" {
			add(IssueMissingField, domain.SeverityError, fmt.Sprintf("phases[%d].id", i), "phase id is missing")
			normalize = true
		}
		if ph.Name == "" {
			add(IssueMissingField, domain.SeverityError, fmt.Sprintf("phases[%d].name", i), "phase name is missing")
			normalize = true
		}
	}
	for i, t := range d.Templates {
		for _, f := range missingTemplateFields(t) {
			add(IssueMissingField, domain.SeverityError, fmt.Sprintf("templates[%d].%s", i, f), "%s is missing", f)
			normalize = true
		}
	}

	// (e) confidence
	warnings := 0
	valid := true
	for _, is := range issues {
		switch is.Severity {
		case domain.SeverityWarning:
			warnings++
		case domain.SeverityError:
			valid = false
		}
	}
	confidence := clampUnit(mean(d.Confidences) - warningPenalty*float64(warnings))
	if confidence < v.NormalizeThreshold {
		normalize = true
	}

	return domain.ValidationResult{
		IsValid:         valid,
		ShouldPrune:     shouldPrune,
		ShouldNormalize: normalize,
		Issues:          issues,
		Confidence:      confidence,
		TrainingDays:    training,
		TargetDays:      target,
	}
}

func missingTemplateFields(t domain.WorkoutTemplate) []string {
	var out []string
	if t.ID == "" {
		out = append(out, "id")
	}
	if t.GroupID == "" {
		out = append(out, "groupId")
	}
	if t.PhaseID == "" {
		out = append(out, "phaseId")
	}
	if t.Name == "" {
		out = append(out, "name")
	}
	if t.Category == "" {
		out = append(out, "category")
	}
	if t.Description == "" && !t.IsRest() {
		out = append(out, "description")
	}
	if t.Status == "" {
		out = append(out, "status")
	}
	return out
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 1
	}
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

func clampUnit(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
