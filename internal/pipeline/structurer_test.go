package pipeline

import (
	"context"
	"testing"

	"fitcoach/programgen/internal/domain"
	"fitcoach/programgen/internal/generation"
	"fitcoach/programgen/internal/respparse"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func requireTiles(t *testing.T, phases []domain.Phase, totalDays int) {
	t.Helper()
	require.NotEmpty(t, phases)
	assert.Equal(t, 1, phases[0].StartDay)
	assert.Equal(t, totalDays, phases[len(phases)-1].EndDay)
	for i, p := range phases {
		assert.GreaterOrEqual(t, p.DurationDays, minPhaseDays)
		assert.Equal(t, p.EndDay-p.StartDay+1, p.DurationDays)
		assert.NotEmpty(t, p.ID)
		if i > 0 {
			assert.Equal(t, phases[i-1].EndDay+1, p.StartDay)
		}
	}
}

func TestFitPhasesKeepsExactTiling(t *testing.T) {
	drafts := []phaseDraft{
		{Name: "Peak", StartDay: 29, EndDay: 42},
		{Name: "Base", StartDay: 1, EndDay: 14},
		{Name: "Build", StartDay: 15, EndDay: 28},
	}
	phases, rescaled := FitPhases(drafts, 42)
	assert.False(t, rescaled)
	requireTiles(t, phases, 42)
	assert.Equal(t, []string{"Base", "Build", "Peak"}, []string{phases[0].Name, phases[1].Name, phases[2].Name})
}

func TestFitPhasesRescales(t *testing.T) {
	tests := []struct {
		name      string
		drafts    []phaseDraft
		totalDays int
	}{
		{"short of total", []phaseDraft{{StartDay: 1, EndDay: 10}, {StartDay: 11, EndDay: 20}}, 28},
		{"past total", []phaseDraft{{StartDay: 1, EndDay: 30}, {StartDay: 31, EndDay: 60}}, 42},
		{"overlapping", []phaseDraft{{StartDay: 1, EndDay: 20}, {StartDay: 10, EndDay: 28}}, 28},
		{"inverted", []phaseDraft{{StartDay: 10, EndDay: 1}, {StartDay: 11, EndDay: 28}}, 28},
		{"too many phases", []phaseDraft{{StartDay: 1, EndDay: 1}, {StartDay: 2, EndDay: 2}, {StartDay: 3, EndDay: 3},
			{StartDay: 4, EndDay: 4}, {StartDay: 5, EndDay: 7}}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phases, rescaled := FitPhases(tt.drafts, tt.totalDays)
			assert.True(t, rescaled)
			requireTiles(t, phases, tt.totalDays)
		})
	}
}

func TestEstimateWorkoutsSumsToGuideline(t *testing.T) {
	for total := MinTotalDays; total <= MaxTotalDays; total++ {
		for freq := 1; freq <= 7; freq++ {
			weights := make([]phaseDraft, 3)
			for i := range weights {
				weights[i] = phaseDraft{StartDay: 1, EndDay: i + 1}
			}
			phases, _ := FitPhases(weights, total)
			EstimateWorkouts(phases, total, freq)

			sum := 0
			for _, p := range phases {
				assert.GreaterOrEqual(t, p.EstimatedWorkouts, (p.DurationDays/7)*freq)
				sum += p.EstimatedWorkouts
			}
			want := (total / 7) * freq
			if sum < want-1 || sum > want+1 {
				t.Fatalf("total %d freq %d: estimates sum to %d, want %d", total, freq, sum, want)
			}
		}
	}
}

func TestStructure(t *testing.T) {
	req := &Requirements{id: "r1", totalDays: 42, frequency: 4, coach: testCoach}

	t.Run("clean", func(t *testing.T) {
		gen := newFakeGen().on(generation.StepStructure, fixed(threeBlocks))
		st, err := NewStructurer(gen, zap.NewNop()).Structure(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "Six Week Strength", st.Name)
		assert.False(t, st.Rescaled)
		assert.Equal(t, respparse.CleanConfidence, st.Confidence)
		requireTiles(t, st.Phases, 42)
		for _, p := range st.Phases {
			assert.Equal(t, 8, p.EstimatedWorkouts)
		}
		require.Len(t, gen.requests, 1)
		assert.NotNil(t, gen.requests[0].Schema)
	})

	t.Run("rescaled lowers confidence", func(t *testing.T) {
		gen := newFakeGen().on(generation.StepStructure, fixed(structureJSON("", [2]int{1, 10}, [2]int{11, 20})))
		st, err := NewStructurer(gen, zap.NewNop()).Structure(context.Background(), req)
		require.NoError(t, err)
		assert.True(t, st.Rescaled)
		assert.LessOrEqual(t, st.Confidence, rescaledConfidence)
		assert.Equal(t, "6-Week Program", st.Name)
		requireTiles(t, st.Phases, 42)
	})

	t.Run("no phases", func(t *testing.T) {
		gen := newFakeGen().on(generation.StepStructure, fixed(`{"programName": "Empty", "phases": []}`))
		_, err := NewStructurer(gen, zap.NewNop()).Structure(context.Background(), req)
		require.Error(t, err)
		assert.Equal(t, KindGenerationUnparseable, KindOf(err))
	})
}
