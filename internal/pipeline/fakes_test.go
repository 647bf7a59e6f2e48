package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"fitcoach/programgen/internal/domain"
	"fitcoach/programgen/internal/generation"
	"fitcoach/programgen/internal/repository"
	"fitcoach/programgen/internal/vectorindex"
)

// fakeGen answers generation calls with a responder per step and records every request.
type fakeGen struct {
	mu        sync.Mutex
	requests  []generation.Request
	responses map[generation.Step]func(generation.Request) (string, error)
}

func newFakeGen() *fakeGen {
	return &fakeGen{responses: map[generation.Step]func(generation.Request) (string, error){}}
}

func (f *fakeGen) on(step generation.Step, fn func(generation.Request) (string, error)) *fakeGen {
	f.responses[step] = fn
	return f
}

func (f *fakeGen) Generate(ctx context.Context, req generation.Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	fn := f.responses[req.Step]
	f.mu.Unlock()
	if fn == nil {
		return "", fmt.Errorf("no response for step %s", req.Step)
	}
	return fn(req)
}

func (f *fakeGen) calls(step generation.Step) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.Step == step {
			n++
		}
	}
	return n
}

func fixed(body string) func(generation.Request) (string, error) {
	return func(generation.Request) (string, error) { return body, nil }
}

var phaseRange = regexp.MustCompile(`days (\d+) to (\d+)`)

// weeklyWorkouts answers a phase call with one template on each day whose weekday offset
// (0-6 from day 1) is listed.
func weeklyWorkouts(offsets ...int) func(generation.Request) (string, error) {
	return func(req generation.Request) (string, error) {
		start, end := promptRange(req.Prompt)
		return workoutsJSON(start, end, offsets, false), nil
	}
}

func promptRange(prompt string) (int, int) {
	m := phaseRange.FindStringSubmatch(prompt)
	if m == nil {
		return 0, -1
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	return start, end
}

func workoutsJSON(start, end int, offsets []int, trailingCommas bool) string {
	on := map[int]bool{}
	for _, o := range offsets {
		on[o] = true
	}
	var items []string
	for day := start; day <= end; day++ {
		if !on[(day-1)%7] {
			continue
		}
		items = append(items, fmt.Sprintf(`{"dayNumber": %d, "name": "Session %d", "category": "strength", `+
			`"description": "Squat 5x5, bench 5x5, row 3x8.", "scoringType": "weight", "estimatedDuration": 60}`, day, day))
	}
	sep := ""
	if trailingCommas {
		sep = ","
	}
	return "```json\n{\"workouts\": [" + strings.Join(items, ", ") + sep + "]" + sep + "}\n```"
}

func structureJSON(name string, ranges ...[2]int) string {
	var phases []string
	for i, r := range ranges {
		phases = append(phases, fmt.Sprintf(`{"name": "Block %d", "description": "Block %d work", "startDay": %d, "endDay": %d, "focusAreas": ["strength"]}`,
			i+1, i+1, r[0], r[1]))
	}
	return fmt.Sprintf(`{"programName": %q, "phases": [%s]}`, name, strings.Join(phases, ", "))
}

// lightweightFrom extracts the program view embedded in a normalize prompt.
func lightweightFrom(prompt string) lightweightProgram {
	var lw lightweightProgram
	if i := strings.Index(prompt, "{"); i >= 0 {
		_ = json.Unmarshal([]byte(prompt[i:]), &lw)
	}
	return lw
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

type fakePrograms struct {
	mu        sync.Mutex
	programs  map[string]domain.Program
	createErr error
}

func newFakePrograms() *fakePrograms {
	return &fakePrograms{programs: map[string]domain.Program{}}
}

func (f *fakePrograms) Create(ctx context.Context, p *domain.Program) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
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
	return out, nil
}

func (f *fakePrograms) Update(ctx context.Context, p *domain.Program) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.programs[p.ID]; !ok {
		return repository.ErrNotFound
	}
	f.programs[p.ID] = *p
	return nil
}

type fakeIndex struct {
	mu      sync.Mutex
	records []vectorindex.Record
	err     error
}

func (f *fakeIndex) Upsert(ctx context.Context, rec vectorindex.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, ownerID, query string, limit int) ([]vectorindex.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []vectorindex.Match
	for _, r := range f.records {
		if r.OwnerID == ownerID {
			out = append(out, vectorindex.Match{Record: r, Score: 1})
		}
	}
	return out, nil
}

var testCoach = domain.CoachProfile{
	ID: "profile-1", OwnerID: "owner-1", CoachID: "coach-1",
	DisplayName: "Sam", PersonaKey: "technician", TimeZone: "Europe/Berlin",
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
