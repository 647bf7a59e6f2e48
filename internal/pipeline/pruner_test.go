package pipeline

import (
	"context"
	"math/rand"
	"testing"

	"fitcoach/programgen/internal/domain"
	"fitcoach/programgen/internal/generation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReconcile(t *testing.T) {
	training := []int{1, 2, 3, 4, 5, 8, 9, 10, 11, 12}
	dayPhase := map[int]string{}
	for _, d := range training {
		dayPhase[d] = "a"
		if d > 7 {
			dayPhase[d] = "b"
		}
	}

	tests := []struct {
		name       string
		picks      []int
		need       int
		want       []int
		reconciled bool
	}{
		{"exact", []int{2, 4, 9, 11}, 4, []int{2, 4, 9, 11}, false},
		{"unknown and duplicate days ignored", []int{2, 6, 2, 99, 9}, 2, []int{2, 9}, true},
		{"extra picks cut", []int{1, 2, 3, 4, 5}, 3, []int{1, 2, 3}, true},
		{"shortfall filled", nil, 2, []int{5, 12}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reconciled := Reconcile(training, dayPhase, tt.picks, tt.need)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.reconciled, reconciled)
		})
	}
}

func TestReconcileShortfallKeepsPhasesPopulated(t *testing.T) {
	training := []int{1, 8, 9, 10, 11}
	dayPhase := map[int]string{1: "a", 8: "b", 9: "b", 10: "b", 11: "b"}
	got, _ := Reconcile(training, dayPhase, nil, 3)
	assert.NotContains(t, got, 1)
	assert.Len(t, got, 3)
}

func TestReconcileProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		var training []int
		dayPhase := map[int]string{}
		for day := 1; day <= 84; day++ {
			if rng.Intn(3) > 0 {
				training = append(training, day)
				dayPhase[day] = string(rune('a' + (day-1)/28))
			}
		}
		if len(training) < 2 {
			continue
		}
		target := rng.Intn(len(training) - 1)
		var picks []int
		for n := rng.Intn(len(training) + 5); n > 0; n-- {
			picks = append(picks, rng.Intn(90))
		}

		removed, _ := Reconcile(training, dayPhase, picks, len(training)-target)
		require.Len(t, removed, len(training)-target)
		seen := map[int]bool{}
		for _, d := range removed {
			require.Contains(t, training, d)
			require.False(t, seen[d], "day %d removed twice", d)
			seen[d] = true
		}
	}
}

func TestPruneLeavesExactlyTarget(t *testing.T) {
	d := draftOf(42, 3, []domain.Phase{phase("a", 1, 21), phase("b", 22, 42)}, 0, 1, 2, 3, 4)
	// a rest marker on a training day goes with it
	rest := template(2, "a")
	rest.Category = domain.CategoryRest
	d.Templates = append(d.Templates, rest)
	original := map[int]bool{}
	for _, day := range d.TrainingDays() {
		original[day] = true
	}

	gen := newFakeGen().on(generation.StepPrune, fixed(`{"removeDays": [2, 3, 41, 2], "rationale": "spread sessions"}`))
	res, err := NewPruner(gen, zap.NewNop()).Prune(context.Background(), testCoach, d, 18)
	require.NoError(t, err)

	assert.True(t, res.Reconciled)
	assert.Len(t, res.Removed, 12)
	assert.Subset(t, res.Removed, []int{2, 3})
	for _, day := range res.Removed {
		assert.True(t, original[day], "day %d was not a training day", day)
	}
	assert.Len(t, d.TrainingDays(), 18)
	for _, tpl := range d.Templates {
		assert.NotContains(t, res.Removed, tpl.DayNumber)
	}
	assert.Equal(t, "spread sessions", res.Rationale)
}

func TestPruneNothingToDo(t *testing.T) {
	d := draftOf(14, 3, []domain.Phase{phase("a", 1, 7), phase("b", 8, 14)}, 0, 2, 4)
	gen := newFakeGen()
	res, err := NewPruner(gen, zap.NewNop()).Prune(context.Background(), testCoach, d, 6)
	require.NoError(t, err)
	assert.Empty(t, res.Removed)
	assert.Zero(t, gen.calls(generation.StepPrune))
}

func TestPruneUnparseable(t *testing.T) {
	d := draftOf(14, 1, []domain.Phase{phase("a", 1, 7), phase("b", 8, 14)}, 0, 2, 4)
	gen := newFakeGen().on(generation.StepPrune, fixed("remove a couple of days please"))
	_, err := NewPruner(gen, zap.NewNop()).Prune(context.Background(), testCoach, d, 2)
	require.Error(t, err)
	assert.Equal(t, KindGenerationUnparseable, KindOf(err))
	assert.Len(t, d.TrainingDays(), 6)
}
