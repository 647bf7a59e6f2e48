// Package calendar holds the date arithmetic used when programs are generated and executed.
// Dates are civil dates represented as midnight UTC; nothing here performs I/O or reads the clock.
package calendar

import (
	"math"
	"time"

	"fitcoach/programgen/internal/domain"
)

const day = 24 * time.Hour

// LoadLocation resolves an IANA zone name, falling back to UTC for empty or unknown names.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CivilDate returns the calendar date of t as observed in loc, as midnight UTC.
func CivilDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole civil days from a to b (negative when b is earlier).
func DaysBetween(a, b time.Time) int {
	a = CivilDate(a, time.UTC)
	b = CivilDate(b, time.UTC)
	return int(math.Round(b.Sub(a).Hours() / 24))
}

// EndDate returns the civil date of the last program day.
func EndDate(start time.Time, totalDays int) time.Time {
	if totalDays < 1 {
		totalDays = 1
	}
	return CivilDate(start, time.UTC).Add(time.Duration(totalDays-1) * day)
}

// ScheduledDate returns the date a program day falls on once pausedDays have been served.
func ScheduledDate(start time.Time, dayNumber, pausedDays int) time.Time {
	if pausedDays < 0 {
		pausedDays = 0
	}
	return CivilDate(start, time.UTC).AddDate(0, 0, dayNumber-1+pausedDays)
}

// CurrentDay is the 1-indexed program day for "now" in the owner's zone, clamped to [1, totalDays].
func CurrentDay(start time.Time, pausedDays, totalDays int, loc *time.Location, now time.Time) int {
	if totalDays < 1 {
		return 1
	}
	today := CivilDate(now, loc)
	d := DaysBetween(start, today) - pausedDays + 1
	return clamp(d, 1, totalDays)
}

// Elapsed is CurrentDay without the upper clamp; a result above totalDays means the program has run out.
func Elapsed(start time.Time, pausedDays int, loc *time.Location, now time.Time) int {
	return DaysBetween(start, CivilDate(now, loc)) - pausedDays + 1
}

// PauseDuration counts whole civil days between pausing and resuming in loc.
func PauseDuration(pausedAt, resumedAt time.Time, loc *time.Location) int {
	n := DaysBetween(CivilDate(pausedAt, loc), CivilDate(resumedAt, loc))
	if n < 0 {
		return 0
	}
	return n
}

// PhaseForDay finds the phase whose range contains day.
func PhaseForDay(phases []domain.Phase, dayNumber int) (domain.Phase, bool) {
	for _, p := range phases {
		if p.Contains(dayNumber) {
			return p, true
		}
	}
	return domain.Phase{}, false
}

// ProgressPercent is the share of the program reached by currentDay, rounded to one decimal.
func ProgressPercent(currentDay, totalDays int) float64 {
	if totalDays <= 0 {
		return 0
	}
	pct := float64(clamp(currentDay, 0, totalDays)) / float64(totalDays) * 100
	return math.Round(pct*10) / 10
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
