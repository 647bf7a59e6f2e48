package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fitcoach/programgen/internal/calendar"
	"fitcoach/programgen/internal/domain"
	"fitcoach/programgen/internal/pipeline"
	"fitcoach/programgen/internal/repository"
	"fitcoach/programgen/internal/storage"

	"go.uber.org/zap"
)

// --- Error Definitions ---
var (
	ErrProgramNotFound  = errors.New("program not found")
	ErrProgramNotActive = errors.New("program is not active")
	ErrProgramNotPaused = errors.New("program is not paused")
	ErrWorkoutNotFound  = errors.New("workout not found")
	ErrWorkoutClosed    = errors.New("workout already has an outcome")
	ErrInvalidOutcome   = errors.New("outcome must be completed or skipped")
	ErrPlanUnavailable  = errors.New("workout plan could not be loaded")
)

// ProgramDetails is a program with its execution state recomputed for now.
type ProgramDetails struct {
	*domain.Program
	ProgressPercent float64       `json:"progressPercent"`
	ScheduledEnd    time.Time     `json:"scheduledEnd"`
	CurrentPhase    *domain.Phase `json:"currentPhase,omitempty"`
	WorkoutsURL     string        `json:"workoutsUrl,omitempty"` // temporary link to the detail blob
}

// DayWorkouts lists what is scheduled on one program day.
type DayWorkouts struct {
	ProgramID string                   `json:"programId"`
	DayNumber int                      `json:"dayNumber"`
	Date      time.Time                `json:"date"`
	Phase     *domain.Phase            `json:"phase,omitempty"`
	RestDay   bool                     `json:"restDay"`
	Workouts  []domain.WorkoutTemplate `json:"workouts"`
}

// WorkoutRegenerator replaces a single template.
type WorkoutRegenerator interface {
	RegenerateTemplate(ctx context.Context, program *domain.Program, coach domain.CoachProfile, phase domain.Phase, old domain.WorkoutTemplate, reason string) (domain.WorkoutTemplate, error)
}

// ProgramService runs generated programs day by day.
type ProgramService interface {
	GetProgram(ctx context.Context, ownerID, programID string) (*ProgramDetails, error)
	ListPrograms(ctx context.Context, ownerID string, limit int64) ([]domain.Program, error)
	TodaysWorkouts(ctx context.Context, ownerID, programID string) (*DayWorkouts, error)
	Pause(ctx context.Context, ownerID, programID string) (*domain.Program, error)
	Resume(ctx context.Context, ownerID, programID string) (*domain.Program, error)
	RecordWorkoutOutcome(ctx context.Context, ownerID, programID, workoutID string, outcome domain.WorkoutStatus) (*domain.WorkoutTemplate, error)
	RegenerateWorkout(ctx context.Context, ownerID, programID, workoutID, reason string) (*domain.WorkoutTemplate, error)
	SyncCurrentDays(ctx context.Context) (int, error)
}

// --- Service Implementation ---

type programService struct {
	programs    repository.ProgramRepository
	profiles    repository.CoachProfileRepository
	objects     storage.ObjectStore
	regenerator WorkoutRegenerator
	now         func() time.Time
	logger      *zap.Logger
}

// NewProgramService creates a new instance of programService.
func NewProgramService(
	programs repository.ProgramRepository,
	profiles repository.CoachProfileRepository,
	objects storage.ObjectStore,
	regenerator WorkoutRegenerator,
	logger *zap.Logger,
) ProgramService {
	return &programService{
		programs:    programs,
		profiles:    profiles,
		objects:     objects,
		regenerator: regenerator,
		now:         time.Now,
		logger:      logger,
	}
}

func (s *programService) getProgram(ctx context.Context, ownerID, programID string) (*domain.Program, error) {
	p, err := s.programs.GetByID(ctx, ownerID, programID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProgramNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *programService) loadPlan(ctx context.Context, p *domain.Program) (*domain.WorkoutPlan, error) {
	var plan domain.WorkoutPlan
	if err := s.objects.GetJSON(ctx, p.WorkoutsRef, &plan); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlanUnavailable, err)
	}
	if err := plan.CheckVersion(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlanUnavailable, err)
	}
	return &plan, nil
}

func (s *programService) savePlan(ctx context.Context, p *domain.Program, plan *domain.WorkoutPlan) error {
	plan.UpdatedAt = s.now().UTC()
	return s.objects.PutJSON(ctx, p.WorkoutsRef, plan)
}

// updateAfterPlan writes the program document once its plan blob was saved. When the document
// write fails the blob goes back to prev, so a retry sees the templates as they were.
func (s *programService) updateAfterPlan(ctx context.Context, p *domain.Program, plan *domain.WorkoutPlan, prev []domain.WorkoutTemplate) error {
	err := s.programs.Update(ctx, p)
	if err == nil {
		return nil
	}
	plan.Templates = prev
	if rerr := s.savePlan(ctx, p, plan); rerr != nil {
		s.logger.Error("failed to restore workout plan",
			zap.String("programId", p.ID), zap.NamedError("updateError", err), zap.Error(rerr))
	}
	return err
}

func snapshot(templates []domain.WorkoutTemplate) []domain.WorkoutTemplate {
	return append([]domain.WorkoutTemplate(nil), templates...)
}

// dayAt is the program day at t; a paused program stays on the day it was paused.
func dayAt(p *domain.Program, t time.Time) int {
	if p.PausedAt != nil {
		t = *p.PausedAt
	}
	return calendar.CurrentDay(p.StartDate, p.PausedDuration, p.TotalDays, calendar.LoadLocation(p.TimeZone), t)
}

// GetProgram returns the program with its current day recomputed.
func (s *programService) GetProgram(ctx context.Context, ownerID, programID string) (*ProgramDetails, error) {
	p, err := s.getProgram(ctx, ownerID, programID)
	if err != nil {
		return nil, err
	}
	if p.Status == domain.ProgramActive || p.Status == domain.ProgramPaused {
		p.CurrentDay = dayAt(p, s.now())
	}
	details := &ProgramDetails{
		Program:         p,
		ProgressPercent: calendar.ProgressPercent(p.CurrentDay, p.TotalDays),
		ScheduledEnd:    calendar.ScheduledDate(p.StartDate, p.TotalDays, p.PausedDuration),
	}
	if ph, ok := calendar.PhaseForDay(p.Phases, p.CurrentDay); ok {
		details.CurrentPhase = &ph
	}
	url, err := s.objects.GeneratePresignedDownloadURL(ctx, p.WorkoutsRef, storage.DefaultPresignedURLExpiry)
	if err != nil {
		s.logger.Warn("workouts link unavailable", zap.String("programId", p.ID), zap.Error(err))
	} else {
		details.WorkoutsURL = url
	}
	return details, nil
}

func (s *programService) ListPrograms(ctx context.Context, ownerID string, limit int64) ([]domain.Program, error) {
	if ownerID == "" {
		return nil, errors.New("owner ID is required")
	}
	return s.programs.ListByOwner(ctx, ownerID, limit)
}

// TodaysWorkouts returns the open templates of the current day. A day without training is a rest day.
func (s *programService) TodaysWorkouts(ctx context.Context, ownerID, programID string) (*DayWorkouts, error) {
	p, err := s.getProgram(ctx, ownerID, programID)
	if err != nil {
		return nil, err
	}
	plan, err := s.loadPlan(ctx, p)
	if err != nil {
		return nil, err
	}

	day := dayAt(p, s.now())
	out := &DayWorkouts{
		ProgramID: p.ID,
		DayNumber: day,
		Date:      calendar.ScheduledDate(p.StartDate, day, p.PausedDuration),
		Workouts:  []domain.WorkoutTemplate{},
		RestDay:   true,
	}
	if ph, ok := calendar.PhaseForDay(p.Phases, day); ok {
		out.Phase = &ph
	}
	for _, t := range plan.Templates {
		if t.DayNumber != day || t.Status == domain.WorkoutRegenerated {
			continue
		}
		out.Workouts = append(out.Workouts, t)
		if !t.IsRest() {
			out.RestDay = false
		}
	}
	return out, nil
}

// Pause freezes the program on its current day.
func (s *programService) Pause(ctx context.Context, ownerID, programID string) (*domain.Program, error) {
	p, err := s.getProgram(ctx, ownerID, programID)
	if err != nil {
		return nil, err
	}
	if p.Status != domain.ProgramActive {
		return nil, ErrProgramNotActive
	}
	now := s.now()
	p.CurrentDay = dayAt(p, now)
	p.Status = domain.ProgramPaused
	p.PausedAt = &now
	if err := s.programs.Update(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("program paused", zap.String("programId", p.ID), zap.Int("day", p.CurrentDay))
	return p, nil
}

// Resume adds the whole days spent paused and moves every scheduled date by the same amount.
func (s *programService) Resume(ctx context.Context, ownerID, programID string) (*domain.Program, error) {
	p, err := s.getProgram(ctx, ownerID, programID)
	if err != nil {
		return nil, err
	}
	if p.Status != domain.ProgramPaused || p.PausedAt == nil {
		return nil, ErrProgramNotPaused
	}

	now := s.now()
	days := calendar.PauseDuration(*p.PausedAt, now, calendar.LoadLocation(p.TimeZone))
	p.PausedDuration += days
	p.PausedAt = nil
	p.Status = domain.ProgramActive

	p.CurrentDay = dayAt(p, now)
	if days > 0 {
		plan, err := s.loadPlan(ctx, p)
		if err != nil {
			return nil, err
		}
		prev := snapshot(plan.Templates)
		for i := range plan.Templates {
			sd := calendar.ScheduledDate(p.StartDate, plan.Templates[i].DayNumber, p.PausedDuration)
			plan.Templates[i].ScheduledDate = &sd
		}
		if err := s.savePlan(ctx, p, plan); err != nil {
			return nil, err
		}
		if err := s.updateAfterPlan(ctx, p, plan, prev); err != nil {
			return nil, err
		}
	} else if err := s.programs.Update(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("program resumed",
		zap.String("programId", p.ID), zap.Int("pausedDays", days), zap.Int("pausedDuration", p.PausedDuration))
	return p, nil
}

// RecordWorkoutOutcome closes a pending template as completed or skipped.
func (s *programService) RecordWorkoutOutcome(ctx context.Context, ownerID, programID, workoutID string, outcome domain.WorkoutStatus) (*domain.WorkoutTemplate, error) {
	// 1. Validate Inputs
	if outcome != domain.WorkoutCompleted && outcome != domain.WorkoutSkipped {
		return nil, ErrInvalidOutcome
	}
	p, err := s.getProgram(ctx, ownerID, programID)
	if err != nil {
		return nil, err
	}
	if p.Status != domain.ProgramActive {
		return nil, ErrProgramNotActive
	}

	// 2. Find the template
	plan, err := s.loadPlan(ctx, p)
	if err != nil {
		return nil, err
	}
	idx := findTemplate(plan.Templates, workoutID)
	if idx < 0 {
		return nil, ErrWorkoutNotFound
	}
	t := &plan.Templates[idx]
	if t.Status != domain.WorkoutPending {
		return nil, ErrWorkoutClosed
	}

	// 3. Update blob, then counters
	prev := snapshot(plan.Templates)
	t.Status = outcome
	out := *t
	if err := s.savePlan(ctx, p, plan); err != nil {
		return nil, err
	}
	if outcome == domain.WorkoutCompleted && !out.IsRest() {
		p.CompletedWorkouts++
	}
	p.UpdateAdherence()
	if err := s.updateAfterPlan(ctx, p, plan, prev); err != nil {
		return nil, err
	}
	return &out, nil
}

// RegenerateWorkout asks for a replacement of one pending template. The old template stays in
// the plan marked regenerated and no longer counts.
func (s *programService) RegenerateWorkout(ctx context.Context, ownerID, programID, workoutID, reason string) (*domain.WorkoutTemplate, error) {
	p, err := s.getProgram(ctx, ownerID, programID)
	if err != nil {
		return nil, err
	}
	if p.Status != domain.ProgramActive && p.Status != domain.ProgramPaused {
		return nil, ErrProgramNotActive
	}
	plan, err := s.loadPlan(ctx, p)
	if err != nil {
		return nil, err
	}
	idx := findTemplate(plan.Templates, workoutID)
	if idx < 0 {
		return nil, ErrWorkoutNotFound
	}
	old := plan.Templates[idx]
	if old.Status != domain.WorkoutPending {
		return nil, ErrWorkoutClosed
	}
	phase, ok := calendar.PhaseForDay(p.Phases, old.DayNumber)
	if !ok {
		return nil, ErrWorkoutNotFound
	}

	var coach domain.CoachProfile
	if profile, err := s.profiles.GetByOwnerAndCoach(ctx, p.OwnerID, p.CoachID); err == nil {
		coach = *profile
	} else {
		s.logger.Warn("coach profile unavailable, using default voice", zap.String("programId", p.ID), zap.Error(err))
	}

	fresh, err := s.regenerator.RegenerateTemplate(ctx, p, coach, phase, old, reason)
	if err != nil {
		return nil, err
	}
	sd := calendar.ScheduledDate(p.StartDate, fresh.DayNumber, p.PausedDuration)
	fresh.ScheduledDate = &sd

	prev := snapshot(plan.Templates)
	plan.Templates[idx].Status = domain.WorkoutRegenerated
	plan.Templates = append(plan.Templates, fresh)
	if err := s.savePlan(ctx, p, plan); err != nil {
		return nil, err
	}
	p.TotalWorkouts = domain.CountWorkouts(plan.Templates)
	p.UpdateAdherence()
	if err := s.updateAfterPlan(ctx, p, plan, prev); err != nil {
		return nil, err
	}
	s.logger.Info("workout regenerated",
		zap.String("programId", p.ID), zap.String("old", old.ID), zap.String("new", fresh.ID), zap.Int("day", fresh.DayNumber))
	return &fresh, nil
}

// SyncCurrentDays advances every active program to today and completes the ones past their end.
// It returns the number of programs updated.
func (s *programService) SyncCurrentDays(ctx context.Context) (int, error) {
	active, err := s.programs.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	now := s.now()
	updated := 0
	var firstErr error
	for i := range active {
		p := &active[i]
		elapsed := calendar.Elapsed(p.StartDate, p.PausedDuration, calendar.LoadLocation(p.TimeZone), now)
		day := dayAt(p, now)
		status := p.Status
		if elapsed > p.TotalDays {
			status = domain.ProgramCompleted
		}
		if day == p.CurrentDay && status == p.Status {
			continue
		}
		p.CurrentDay = day
		p.Status = status
		if err := s.programs.Update(ctx, p); err != nil {
			s.logger.Error("failed to sync program day", zap.String("programId", p.ID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		updated++
	}
	return updated, firstErr
}

func findTemplate(templates []domain.WorkoutTemplate, id string) int {
	for i, t := range templates {
		if t.ID == id {
			return i
		}
	}
	return -1
}

var _ WorkoutRegenerator = (*pipeline.Generator)(nil)
