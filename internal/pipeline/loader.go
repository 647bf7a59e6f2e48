package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"fitcoach/programgen/internal/calendar"
	"fitcoach/programgen/internal/domain"
	"fitcoach/programgen/internal/repository"
	"fitcoach/programgen/internal/vectorindex"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultTotalDays = 28
	MinTotalDays     = 7
	MaxTotalDays     = 365
	DefaultFrequency = 3

	daysPerMonth   = 30
	recentPrograms = 3
	relatedResults = 3
)

// Trigger is an asynchronous generation request. Nothing is sent back to the requester.
type Trigger struct {
	OwnerID        string                `json:"ownerId"`
	CoachID        string                `json:"coachId"`
	ConversationID string                `json:"conversationId"`
	Requirements   domain.RequirementBag `json:"requirements"`
}

// Requirements is the write-once bundle produced by the loader. Later steps hold a pointer
// and read it through accessors; nothing can change it after Load returns.
type Requirements struct {
	id             string
	ownerID        string
	coachID        string
	conversationID string
	coach          domain.CoachProfile
	totalDays      int
	frequency      int
	goals          []string
	equipment      []string
	experience     string
	methodology    string
	startDate      time.Time
	contextExcerpt string
}

func (r *Requirements) ID() string                  { return r.id }
func (r *Requirements) OwnerID() string             { return r.ownerID }
func (r *Requirements) CoachID() string             { return r.coachID }
func (r *Requirements) ConversationID() string      { return r.conversationID }
func (r *Requirements) Coach() domain.CoachProfile  { return r.coach }
func (r *Requirements) TotalDays() int              { return r.totalDays }
func (r *Requirements) TrainingFrequency() int      { return r.frequency }
func (r *Requirements) Goals() []string             { return append([]string(nil), r.goals...) }
func (r *Requirements) Equipment() []string         { return append([]string(nil), r.equipment...) }
func (r *Requirements) Experience() string          { return r.experience }
func (r *Requirements) Methodology() string         { return r.methodology }
func (r *Requirements) StartDate() time.Time        { return r.startDate }
func (r *Requirements) ContextExcerpt() string      { return r.contextExcerpt }
func (r *Requirements) Location() *time.Location    { return calendar.LoadLocation(r.coach.TimeZone) }
func (r *Requirements) TargetTrainingDays() int     { return TargetTrainingDays(r.totalDays, r.frequency) }
func (r *Requirements) EstimatedTotalWorkouts() int { return (r.totalDays / 7) * r.frequency }

// Loader resolves the coach profile and assembles the requirements bundle.
type Loader struct {
	profiles     repository.CoachProfileRepository
	programs     repository.ProgramRepository
	index        vectorindex.Index // optional
	excerptLimit int
	now          func() time.Time
	logger       *zap.Logger
}

func NewLoader(profiles repository.CoachProfileRepository, programs repository.ProgramRepository, index vectorindex.Index, excerptLimit int, logger *zap.Logger) *Loader {
	return &Loader{
		profiles:     profiles,
		programs:     programs,
		index:        index,
		excerptLimit: excerptLimit,
		now:          time.Now,
		logger:       logger,
	}
}

// Load builds the bundle. A missing coach profile aborts the run with ConfigurationMissing.
func (l *Loader) Load(ctx context.Context, trig Trigger) (*Requirements, error) {
	if trig.OwnerID == "" || trig.CoachID == "" {
		return nil, &RunError{Kind: KindConfigurationMissing, Step: StageLoad, Err: errors.New("owner and coach ids are required")}
	}

	// 1. Coach profile
	profile, err := l.profiles.GetByOwnerAndCoach(ctx, trig.OwnerID, trig.CoachID)
	if err != nil {
		kind := KindStepFailed
		if errors.Is(err, repository.ErrNotFound) {
			kind = KindConfigurationMissing
		}
		return nil, &RunError{Kind: kind, Step: StageLoad, Err: fmt.Errorf("coach profile %s/%s: %w", trig.OwnerID, trig.CoachID, err)}
	}

	// 2. Structured parameters
	bag := trig.Requirements
	req := &Requirements{
		id:             uuid.NewString(),
		ownerID:        trig.OwnerID,
		coachID:        trig.CoachID,
		conversationID: trig.ConversationID,
		coach:          *profile,
		totalDays:      ParseTotalDays(first(bag, durationKeys...)),
		frequency:      ParseFrequency(first(bag, "trainingFrequency", "frequency", "daysPerWeek")),
		goals:          ParseList(first(bag, "goals", "trainingGoals")),
		equipment:      ParseList(first(bag, "equipment", "equipmentConstraints")),
		experience:     asString(first(bag, "experience", "experienceLevel")),
		methodology:    asString(first(bag, "methodology")),
	}
	if first(bag, durationKeys...) == nil {
		if n, ok := asNumber(bag["durationWeeks"]); ok {
			req.totalDays = clamp(int(math.Round(n*7)), MinTotalDays, MaxTotalDays)
		}
	}
	if req.methodology == "" {
		req.methodology = profile.Methodology
	}
	req.startDate = calendar.CivilDate(l.now(), req.Location())
	if s := asString(bag["startDate"]); s != "" {
		if d, err := time.Parse("2006-01-02", s); err == nil {
			req.startDate = d
		}
	}

	// 3. Historical context, best effort
	req.contextExcerpt = l.historicalContext(ctx, req)

	l.logger.Info("requirements loaded",
		zap.String("requirementsId", req.id),
		zap.String("ownerId", req.ownerID),
		zap.Int("totalDays", req.totalDays),
		zap.Int("trainingFrequency", req.frequency))
	return req, nil
}

func (l *Loader) historicalContext(ctx context.Context, req *Requirements) string {
	var lines []string
	if l.programs != nil {
		recent, err := l.programs.ListByOwner(ctx, req.ownerID, recentPrograms)
		if err != nil {
			l.logger.Warn("recent programs unavailable", zap.String("ownerId", req.ownerID), zap.Error(err))
		}
		for _, p := range recent {
			lines = append(lines, fmt.Sprintf("Previous program %q: %d days, %d/week, status %s, adherence %.0f%%.",
				p.Name, p.TotalDays, p.TrainingFrequency, p.Status, p.AdherenceRate*100))
		}
	}
	if l.index != nil {
		query := strings.Join(append(req.Goals(), req.methodology), " ")
		matches, err := l.index.Search(ctx, req.ownerID, query, relatedResults)
		if err != nil {
			l.logger.Warn("semantic context unavailable", zap.String("ownerId", req.ownerID), zap.Error(err))
		}
		for _, m := range matches {
			lines = append(lines, "Related: "+m.Text)
		}
	}
	return truncateRunes(strings.Join(lines, "\n"), l.excerptLimit)
}

var durationKeys = []string{"duration", "programDuration", "totalDays"}

var (
	durationPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*-?\s*(days?|d|weeks?|wks?|w|months?|mos?|m)?\b`)
	numberPattern   = regexp.MustCompile(`\d+`)
)

// ParseTotalDays converts a duration value into days: weeks x7, months x30, bare numbers are days.
// The result is clamped to [7, 365]; a missing or unreadable value yields 28.
func ParseTotalDays(v any) int {
	if v == nil {
		return DefaultTotalDays
	}
	if n, ok := asNumber(v); ok {
		return clamp(int(math.Round(n)), MinTotalDays, MaxTotalDays)
	}
	s, ok := v.(string)
	if !ok {
		return DefaultTotalDays
	}
	m := durationPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return DefaultTotalDays
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return DefaultTotalDays
	}
	unit := strings.ToLower(m[2])
	switch {
	case strings.HasPrefix(unit, "w"):
		n *= 7
	case strings.HasPrefix(unit, "m"):
		n *= daysPerMonth
	}
	return clamp(int(math.Round(n)), MinTotalDays, MaxTotalDays)
}

// ParseFrequency reads days per week, clamped to [1, 7] with a default of 3.
func ParseFrequency(v any) int {
	if v == nil {
		return DefaultFrequency
	}
	if n, ok := asNumber(v); ok {
		return clamp(int(math.Round(n)), 1, 7)
	}
	if s, ok := v.(string); ok {
		if m := numberPattern.FindString(s); m != "" {
			n, _ := strconv.Atoi(m)
			return clamp(n, 1, 7)
		}
	}
	return DefaultFrequency
}

// ParseList accepts a comma separated string or a list.
func ParseList(v any) []string {
	var raw []string
	switch t := v.(type) {
	case string:
		raw = strings.Split(t, ",")
	case []string:
		raw = t
	case []any:
		for _, e := range t {
			raw = append(raw, asString(e))
		}
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// TargetTrainingDays is frequency x ceil(totalDays/7).
func TargetTrainingDays(totalDays, frequency int) int {
	return frequency * int(math.Ceil(float64(totalDays)/7))
}

func first(bag domain.RequirementBag, keys ...string) any {
	for _, k := range keys {
		if v, ok := bag[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(v)
	}
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
