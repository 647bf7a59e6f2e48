package service

import (
	"context"
	"sort"
	"sync"

	"fitcoach/programgen/internal/domain"
	"fitcoach/programgen/internal/repository"
)

type fakePrograms struct {
	mu        sync.Mutex
	programs  map[string]domain.Program
	updateErr error
	updates   int
}

func newFakePrograms(ps ...domain.Program) *fakePrograms {
	f := &fakePrograms{programs: map[string]domain.Program{}}
	for _, p := range ps {
		f.programs[p.ID] = p
	}
	return f
}

func (f *fakePrograms) Create(ctx context.Context, p *domain.Program) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.programs[p.ID] = *p
	return nil
}

func (f *fakePrograms) GetByID(ctx context.Context, ownerID, programID string) (*domain.Program, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.programs[programID]
	if !ok || p.OwnerID != ownerID {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (f *fakePrograms) ListByOwner(ctx context.Context, ownerID string, limit int64) ([]domain.Program, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Program
	for _, p := range f.programs {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakePrograms) ListActive(ctx context.Context) ([]domain.Program, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Program
	for _, p := range f.programs {
		if p.Status == domain.ProgramActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakePrograms) Update(ctx context.Context, p *domain.Program) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.programs[p.ID]; !ok {
		return repository.ErrNotFound
	}
	f.programs[p.ID] = *p
	f.updates++
	return nil
}

func (f *fakePrograms) get(id string) domain.Program {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.programs[id]
}

type fakeProfiles struct {
	profiles map[string]domain.CoachProfile
}

func newFakeProfiles(ps ...domain.CoachProfile) *fakeProfiles {
	f := &fakeProfiles{profiles: map[string]domain.CoachProfile{}}
	for _, p := range ps {
		f.profiles[p.OwnerID+"/"+p.CoachID] = p
	}
	return f
}

func (f *fakeProfiles) GetByOwnerAndCoach(ctx context.Context, ownerID, coachID string) (*domain.CoachProfile, error) {
	p, ok := f.profiles[ownerID+"/"+coachID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (f *fakeProfiles) Upsert(ctx context.Context, p *domain.CoachProfile) error {
	f.profiles[p.OwnerID+"/"+p.CoachID] = *p
	return nil
}

// fakeRuns keeps every saved version of each run.
type fakeRuns struct {
	mu      sync.Mutex
	runs    map[string]domain.GenerationRun
	history map[string][]domain.GenerationRun
}

func newFakeRuns() *fakeRuns {
	return &fakeRuns{runs: map[string]domain.GenerationRun{}, history: map[string][]domain.GenerationRun{}}
}

func (f *fakeRuns) Create(ctx context.Context, run *domain.GenerationRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.runs[run.ID]; ok {
		return repository.ErrDuplicateKey
	}
	f.runs[run.ID] = *run
	f.history[run.ID] = append(f.history[run.ID], *run)
	return nil
}

func (f *fakeRuns) GetByID(ctx context.Context, runID string) (*domain.GenerationRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[runID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &run, nil
}

func (f *fakeRuns) Update(ctx context.Context, run *domain.GenerationRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.runs[run.ID]; !ok {
		return repository.ErrNotFound
	}
	f.runs[run.ID] = *run
	f.history[run.ID] = append(f.history[run.ID], *run)
	return nil
}

func (f *fakeRuns) stages(runID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, r := range f.history[runID] {
		if r.Stage != "" && (len(out) == 0 || out[len(out)-1] != r.Stage) {
			out = append(out, r.Stage)
		}
	}
	return out
}

func (f *fakeRuns) count(status domain.RunStatus) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.runs {
		if r.Status == status {
			n++
		}
	}
	return n
}

type fakeRegenerator struct {
	reason string
	err    error
}

func (f *fakeRegenerator) RegenerateTemplate(ctx context.Context, p *domain.Program, coach domain.CoachProfile, phase domain.Phase, old domain.WorkoutTemplate, reason string) (domain.WorkoutTemplate, error) {
	f.reason = reason
	if f.err != nil {
		return domain.WorkoutTemplate{}, f.err
	}
	return domain.WorkoutTemplate{
		ID:          "fresh",
		GroupID:     old.GroupID,
		DayNumber:   old.DayNumber,
		PhaseID:     phase.ID,
		Name:        "Replacement",
		Category:    domain.CategoryMobility,
		Description: "Easy flow",
		Status:      domain.WorkoutPending,
	}, nil
}
