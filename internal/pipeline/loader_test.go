package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"fitcoach/programgen/internal/domain"
	"fitcoach/programgen/internal/vectorindex"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseTotalDays(t *testing.T) {
	tests := []struct {
		in   any
		want int
	}{
		{nil, DefaultTotalDays},
		{42, 42},
		{30.4, 30},
		{json.Number("21"), 21},
		{"56", 56},
		{"6 weeks", 42},
		{"1 week", 7},
		{"3 months", 90},
		{"45 days", 45},
		{"about 8 wks", 56},
		{"12-week", 84},
		{"3-month program", 90},
		{"a 4 - week block", 28},
		{"2", MinTotalDays},
		{"5 years", MinTotalDays},
		{"24 months", MaxTotalDays},
		{"soon", DefaultTotalDays},
		{true, DefaultTotalDays},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseTotalDays(tt.in), "%v", tt.in)
	}
}

func TestParseFrequency(t *testing.T) {
	tests := []struct {
		in   any
		want int
	}{
		{nil, DefaultFrequency},
		{4, 4},
		{0, 1},
		{12, 7},
		{"5 days a week", 5},
		{"often", DefaultFrequency},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseFrequency(tt.in), "%v", tt.in)
	}
}

func TestParseList(t *testing.T) {
	assert.Equal(t, []string{"strength", "fat loss"}, ParseList("strength, fat loss,"))
	assert.Equal(t, []string{"barbell", "3"}, ParseList([]any{"barbell", 3, ""}))
	assert.Empty(t, ParseList(nil))
}

func TestTargetTrainingDays(t *testing.T) {
	assert.Equal(t, 24, TargetTrainingDays(42, 4))
	assert.Equal(t, 18, TargetTrainingDays(42, 3))
	assert.Equal(t, 15, TargetTrainingDays(30, 3))
}

func TestLoad(t *testing.T) {
	programs := newFakePrograms()
	programs.programs["old"] = domain.Program{ID: "old", OwnerID: testCoach.OwnerID, Name: "Spring Block", TotalDays: 28, TrainingFrequency: 3, Status: domain.ProgramCompleted}
	index := &fakeIndex{records: []vectorindex.Record{{ID: "old", OwnerID: testCoach.OwnerID, Text: "Four weeks of squat focus."}}}

	l := NewLoader(newFakeProfiles(testCoach), programs, index, 1000, zap.NewNop())
	l.now = fixedClock(time.Date(2026, 10, 19, 23, 30, 0, 0, time.UTC))

	req, err := l.Load(context.Background(), Trigger{
		OwnerID: testCoach.OwnerID,
		CoachID: testCoach.CoachID,
		Requirements: domain.RequirementBag{
			"durationWeeks":     8,
			"frequency":         "4x per week",
			"trainingGoals":     []any{"strength"},
			"equipment":         "barbell, bands",
			"experienceLevel":   "intermediate",
			"irrelevantKeyHere": "ignored",
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, req.ID())
	assert.Equal(t, 56, req.TotalDays())
	assert.Equal(t, 4, req.TrainingFrequency())
	assert.Equal(t, []string{"strength"}, req.Goals())
	assert.Equal(t, []string{"barbell", "bands"}, req.Equipment())
	assert.Equal(t, "intermediate", req.Experience())
	assert.Equal(t, 32, req.TargetTrainingDays())
	assert.Contains(t, req.ContextExcerpt(), "Spring Block")
	assert.Contains(t, req.ContextExcerpt(), "squat focus")
	assert.Equal(t, time.UTC, req.StartDate().Location())

	// accessors hand out copies
	goals := req.Goals()
	goals[0] = "changed"
	assert.Equal(t, []string{"strength"}, req.Goals())
}

func TestLoadTruncatesContext(t *testing.T) {
	index := &fakeIndex{records: []vectorindex.Record{{OwnerID: testCoach.OwnerID, Text: "long history of training blocks"}}}
	l := NewLoader(newFakeProfiles(testCoach), nil, index, 10, zap.NewNop())
	req, err := l.Load(context.Background(), Trigger{OwnerID: testCoach.OwnerID, CoachID: testCoach.CoachID})
	require.NoError(t, err)
	assert.Len(t, []rune(req.ContextExcerpt()), 10)
	assert.Equal(t, DefaultTotalDays, req.TotalDays())
	assert.Equal(t, DefaultFrequency, req.TrainingFrequency())
}

func TestLoadConfigurationMissing(t *testing.T) {
	l := NewLoader(newFakeProfiles(), nil, nil, 100, zap.NewNop())

	_, err := l.Load(context.Background(), Trigger{OwnerID: "o", CoachID: "c"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfigurationMissing))

	_, err = l.Load(context.Background(), Trigger{OwnerID: "o"})
	assert.Equal(t, KindConfigurationMissing, KindOf(err))
}

func TestLoadExplicitStartDate(t *testing.T) {
	l := NewLoader(newFakeProfiles(testCoach), nil, nil, 100, zap.NewNop())
	req, err := l.Load(context.Background(), Trigger{
		OwnerID: testCoach.OwnerID, CoachID: testCoach.CoachID,
		Requirements: domain.RequirementBag{"startDate": "2026-11-02"},
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC), req.StartDate())
}
