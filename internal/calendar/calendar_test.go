package calendar

import (
	"testing"
	"time"
	_ "time/tzdata"

	"fitcoach/programgen/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestEndDate(t *testing.T) {
	start := date(2026, time.March, 1)
	assert.Equal(t, date(2026, time.April, 11), EndDate(start, 42))
	assert.Equal(t, start, EndDate(start, 1))
}

func TestScheduledDateStrictlyIncreasing(t *testing.T) {
	start := date(2026, time.October, 20)
	for _, paused := range []int{0, 3, 17} {
		prev := ScheduledDate(start, 1, paused)
		for d := 2; d <= 365; d++ {
			cur := ScheduledDate(start, d, paused)
			require.True(t, cur.After(prev), "day %d paused %d", d, paused)
			prev = cur
		}
	}
	assert.Equal(t, date(2026, time.October, 25), ScheduledDate(start, 3, 3))
}

func TestCurrentDay(t *testing.T) {
	start := date(2026, time.March, 1)
	tests := []struct {
		name   string
		now    time.Time
		paused int
		loc    string
		want   int
	}{
		{name: "first day", now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), want: 1},
		{name: "before start clamps to 1", now: time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC), want: 1},
		{name: "tenth day", now: time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC), want: 10},
		{name: "pause shifts back", now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), paused: 4, want: 6},
		{name: "after end clamps", now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC), want: 42},
		// 2026-03-10 03:00 UTC is still 2026-03-09 in New York.
		{name: "owner zone", now: time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC), loc: "America/New_York", want: 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CurrentDay(start, tt.paused, 42, LoadLocation(tt.loc), tt.now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCurrentDayNonDecreasing(t *testing.T) {
	start := date(2026, time.January, 5)
	loc := LoadLocation("Europe/Berlin")
	prev := 0
	for h := 0; h < 24*120; h += 5 {
		now := start.Add(-48 * time.Hour).Add(time.Duration(h) * time.Hour)
		cur := CurrentDay(start, 2, 90, loc, now)
		require.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestPausePairWithSameNetDurationLeavesCurrentDay(t *testing.T) {
	start := date(2026, time.January, 5)
	now := date(2026, time.February, 1).Add(10 * time.Hour)

	// Paused for three days, then another pause of zero days.
	net := PauseDuration(date(2026, 1, 10).Add(8*time.Hour), date(2026, 1, 13).Add(20*time.Hour), time.UTC)
	require.Equal(t, 3, net)
	zero := PauseDuration(date(2026, 1, 20).Add(8*time.Hour), date(2026, 1, 20).Add(22*time.Hour), time.UTC)
	require.Equal(t, 0, zero)

	assert.Equal(t, CurrentDay(start, 3, 60, time.UTC, now), CurrentDay(start, net+zero, 60, time.UTC, now))
}

func TestPauseDurationNeverNegative(t *testing.T) {
	assert.Equal(t, 0, PauseDuration(date(2026, 5, 2), date(2026, 5, 1), time.UTC))
}

func TestPhaseForDay(t *testing.T) {
	phases := []domain.Phase{
		{ID: "a", StartDay: 1, EndDay: 14},
		{ID: "b", StartDay: 15, EndDay: 28},
	}
	p, ok := PhaseForDay(phases, 15)
	require.True(t, ok)
	assert.Equal(t, "b", p.ID)

	_, ok = PhaseForDay(phases, 29)
	assert.False(t, ok)
}

func TestProgressPercent(t *testing.T) {
	assert.Equal(t, 50.0, ProgressPercent(21, 42))
	assert.Equal(t, 33.3, ProgressPercent(1, 3))
	assert.Equal(t, 100.0, ProgressPercent(50, 42))
	assert.Equal(t, 0.0, ProgressPercent(5, 0))
}
