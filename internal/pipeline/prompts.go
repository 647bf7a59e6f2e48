package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"fitcoach/programgen/internal/domain"
)

// personas selects the coaching voice by profile persona key.
var personas = map[string]string{
	"default":    "You are an experienced strength and conditioning coach.",
	"motivator":  "You are an upbeat coach who keeps instructions short and encouraging.",
	"technician": "You are a detail-oriented coach who emphasises technique and progression.",
	"endurance":  "You are an endurance coach who thinks in zones, volume and recovery.",
}

const unattended = "This request runs unattended: never ask questions or request clarification. " +
	"Make reasonable assumptions and answer with JSON that matches the response schema."

func systemPrompt(coach domain.CoachProfile) string {
	voice, ok := personas[coach.PersonaKey]
	if !ok {
		voice = personas["default"]
	}
	var b strings.Builder
	b.WriteString(voice)
	if coach.DisplayName != "" {
		fmt.Fprintf(&b, " Your name is %s.", coach.DisplayName)
	}
	if coach.Methodology != "" {
		fmt.Fprintf(&b, " Your methodology: %s.", coach.Methodology)
	}
	b.WriteString(" ")
	b.WriteString(unattended)
	return b.String()
}

// brief is the compact description of the requirements every step may see.
func brief(req *Requirements) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Requirements %s: %d days, %d training days per week.", req.ID(), req.TotalDays(), req.TrainingFrequency())
	if g := req.Goals(); len(g) > 0 {
		fmt.Fprintf(&b, " Goals: %s.", strings.Join(g, ", "))
	}
	if e := req.Equipment(); len(e) > 0 {
		fmt.Fprintf(&b, " Equipment: %s.", strings.Join(e, ", "))
	}
	if req.Experience() != "" {
		fmt.Fprintf(&b, " Experience: %s.", req.Experience())
	}
	if req.Methodology() != "" {
		fmt.Fprintf(&b, " Methodology: %s.", req.Methodology())
	}
	return b.String()
}

func structurePrompt(req *Requirements) string {
	var b strings.Builder
	b.WriteString("Design the phase structure of a training program.\n")
	b.WriteString(brief(req))
	fmt.Fprintf(&b, "\nSplit days 1 to %d into contiguous phases (usually 3 to 5). "+
		"The first phase starts on day 1, each phase starts the day after the previous one ends, "+
		"and the last phase ends on day %d. Every phase lasts at least 2 days.", req.TotalDays(), req.TotalDays())
	if ctx := req.ContextExcerpt(); ctx != "" {
		b.WriteString("\nHistory:\n")
		b.WriteString(ctx)
	}
	return b.String()
}

func phasePrompt(req *Requirements, phase domain.Phase, phases []domain.Phase) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write the workouts for phase %q (days %d to %d).\n", phase.Name, phase.StartDay, phase.EndDay)
	b.WriteString(brief(req))
	if phase.Description != "" {
		fmt.Fprintf(&b, "\nPhase goal: %s", phase.Description)
	}
	if len(phase.FocusAreas) > 0 {
		fmt.Fprintf(&b, "\nFocus: %s.", strings.Join(phase.FocusAreas, ", "))
	}
	fmt.Fprintf(&b, "\nPlan about %d workouts, %d training days per week. Use absolute day numbers between %d and %d. "+
		"Several templates on the same day are allowed. Describe each session in natural language.",
		phase.EstimatedWorkouts, req.TrainingFrequency(), phase.StartDay, phase.EndDay)
	b.WriteString("\nWhole program for context:")
	for _, p := range phases {
		fmt.Fprintf(&b, "\n- %s: days %d-%d", p.Name, p.StartDay, p.EndDay)
	}
	return b.String()
}

func prunePrompt(phases []domain.Phase, byPhase map[string][]int, current, target int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The program has %d training days but the athlete asked for %d. "+
		"Choose exactly %d day numbers to remove. Return day numbers and a rationale only.\n",
		current, target, current-target)
	for _, p := range phases {
		days, ok := byPhase[p.ID]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "Phase %s %q (days %d-%d) training days: %s\n", p.ID, p.Name, p.StartDay, p.EndDay, joinInts(days))
	}
	b.WriteString("Prefer removing days that leave fewer than one rest day between sessions.")
	return b.String()
}

func normalizePrompt(lw lightweightProgram) string {
	body, _ := json.MarshalIndent(lw, "", "  ")
	return "Review this program for structural defects: inconsistent phase names, descriptions that do not match " +
		"focus areas, unclear wording. Correct what you can and report every issue with a corrected flag. " +
		"Keep phase ids and workoutsRef exactly as given.\n" + string(body)
}

func summaryPrompt(d *Draft) string {
	p := d.Program
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize this program in 3 to 5 sentences for later search.\nName: %s\n%d days, %d training days per week, %d workouts.\n",
		p.Name, p.TotalDays, p.TrainingFrequency, p.TotalWorkouts)
	if len(p.TrainingGoals) > 0 {
		fmt.Fprintf(&b, "Goals: %s\n", strings.Join(p.TrainingGoals, ", "))
	}
	for _, ph := range p.Phases {
		fmt.Fprintf(&b, "Phase %s (days %d-%d): %s Focus: %s\n",
			ph.Name, ph.StartDay, ph.EndDay, ph.Description, strings.Join(ph.FocusAreas, ", "))
	}
	return b.String()
}

func regeneratePrompt(p *domain.Program, phase domain.Phase, old domain.WorkoutTemplate, reason string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Replace the workout on day %d of program %q, phase %q.\n", old.DayNumber, p.Name, phase.Name)
	fmt.Fprintf(&b, "Current workout: %s (%s). %s\n", old.Name, old.Category, old.Description)
	if reason != "" {
		fmt.Fprintf(&b, "Reason for the change: %s\n", reason)
	}
	if len(p.EquipmentConstraints) > 0 {
		fmt.Fprintf(&b, "Equipment: %s\n", strings.Join(p.EquipmentConstraints, ", "))
	}
	b.WriteString("Keep the phase focus: " + strings.Join(phase.FocusAreas, ", "))
	return b.String()
}

func joinInts(v []int) string {
	s := make([]string, len(v))
	for i, n := range v {
		s[i] = fmt.Sprint(n)
	}
	return strings.Join(s, ", ")
}
