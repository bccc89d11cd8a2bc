// Package timewindow converts locally-entered, timezone-labeled time
// windows into absolute UTC instant ranges.
//
// Daylight-saving transitions make some local times nonexistent
// (spring-forward gap) and others ambiguous (fall-back overlap). The
// normalizer never guesses: such times come back tagged with both
// candidate instants and the caller must get a human to pick one.
package timewindow

import (
	"fmt"
	"time"

	"github.com/coastal-eats/shiftsync/pkg/core/model"
)

// Resolution tags the outcome of normalizing a single local time.
type Resolution string

const (
	// Resolved means the local time maps to exactly one UTC instant.
	Resolved Resolution = "resolved"
	// Ambiguous means the local time occurs twice (fall-back overlap).
	Ambiguous Resolution = "ambiguous"
	// Nonexistent means the local time never occurs (spring-forward gap).
	Nonexistent Resolution = "nonexistent"
)

// Instant is the result of mapping one local wall-clock time to UTC.
// For Ambiguous and Nonexistent results Candidates holds both plausible
// instants (earlier offset first).
type Instant struct {
	Resolution Resolution
	UTC        time.Time
	Candidates []time.Time
}

// Window is a normalized availability or shift window for one specific
// date. The window is usable for constraint comparison only when both
// endpoints resolved.
type Window struct {
	StartUTC time.Time
	EndUTC   time.Time

	Start Instant
	End   Instant
}

// IsResolved reports whether both endpoints mapped to unique instants.
func (w Window) IsResolved() bool {
	return w.Start.Resolution == Resolved && w.End.Resolution == Resolved
}

// Contains reports whether the given UTC range is fully inside the window.
// An unresolved window contains nothing.
func (w Window) Contains(start, end time.Time) bool {
	if !w.IsResolved() {
		return false
	}
	return !w.StartUTC.After(start) && !w.EndUTC.Before(end)
}

// NormalizeLocal maps a local wall-clock time on a specific date in the
// named IANA timezone to UTC.
//
// The mapping is computed by trying every UTC offset in force during that
// local day and keeping the offsets under which the wall clock reads back
// exactly as entered:
//   - one match  → Resolved
//   - two matches → Ambiguous (fall-back overlap), both candidates returned
//   - no matches  → Nonexistent (spring-forward gap), the instants either
//     side of the gap returned as candidates
func NormalizeLocal(date time.Time, hour, minute int, tzName string) (Instant, error) {
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return Instant{}, fmt.Errorf("unknown timezone %q: %w", tzName, err)
	}

	year, month, day := date.Year(), date.Month(), date.Day()

	// Collect the distinct UTC offsets in force over this local day.
	// Sampling the surrounding 48 hours catches any single DST transition.
	offsets := make(map[int]bool)
	sample := time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Add(-24 * time.Hour)
	for i := 0; i < 16; i++ {
		_, off := sample.In(loc).Zone()
		offsets[off] = true
		sample = sample.Add(6 * time.Hour)
	}

	naive := time.Date(year, month, day, hour, minute, 0, 0, time.UTC)

	var matches []time.Time
	var candidates []time.Time
	for off := range offsets {
		utc := naive.Add(-time.Duration(off) * time.Second)
		candidates = append(candidates, utc)
		back := utc.In(loc)
		if back.Year() == year && back.Month() == month && back.Day() == day &&
			back.Hour() == hour && back.Minute() == minute {
			matches = append(matches, utc)
		}
	}
	sortInstants(matches)
	sortInstants(candidates)

	switch len(matches) {
	case 1:
		return Instant{Resolution: Resolved, UTC: matches[0]}, nil
	case 0:
		return Instant{Resolution: Nonexistent, Candidates: candidates}, nil
	default:
		return Instant{Resolution: Ambiguous, Candidates: matches}, nil
	}
}

// NormalizeWindow maps a local start/end wall-clock window on the given
// date to a UTC range. End times at or before the start are treated as
// crossing local midnight into the next day.
func NormalizeWindow(date time.Time, startHour, startMin, endHour, endMin int, tzName string) (Window, error) {
	start, err := NormalizeLocal(date, startHour, startMin, tzName)
	if err != nil {
		return Window{}, err
	}

	endDate := date
	if endHour < startHour || (endHour == startHour && endMin <= startMin) {
		endDate = date.AddDate(0, 0, 1)
	}
	end, err := NormalizeLocal(endDate, endHour, endMin, tzName)
	if err != nil {
		return Window{}, err
	}

	w := Window{Start: start, End: end}
	if w.IsResolved() {
		w.StartUTC = start.UTC
		w.EndUTC = end.UTC
	}
	return w, nil
}

// ExpandAvailability normalizes an availability window for a specific
// target date. Weekly windows expand to the target date when the weekday
// matches; one-off windows apply only on their own date.
//
// Returns (window, applies, error). A day-off marker applies but yields a
// zero window. An unresolved window is returned as-is so callers can
// surface an AmbiguousTimeError rather than silently defaulting.
func ExpandAvailability(av model.AvailabilityWindow, targetDate time.Time) (Window, bool, error) {
	switch av.Recurrence {
	case model.RecurrenceOneOff:
		if av.SpecificDate != targetDate.Format("2006-01-02") {
			return Window{}, false, nil
		}
	case model.RecurrenceWeekly:
		if mondayWeekday(targetDate) != av.DayOfWeek {
			return Window{}, false, nil
		}
	default:
		return Window{}, false, fmt.Errorf("unknown recurrence %q", av.Recurrence)
	}

	if av.IsUnavailableDay() {
		return Window{}, true, nil
	}

	startHour, startMin, err := parseClock(av.StartTime)
	if err != nil {
		return Window{}, false, fmt.Errorf("availability %s start: %w", av.ID, err)
	}
	endHour, endMin, err := parseClock(av.EndTime)
	if err != nil {
		return Window{}, false, fmt.Errorf("availability %s end: %w", av.ID, err)
	}

	w, err := NormalizeWindow(targetDate, startHour, startMin, endHour, endMin, av.Timezone)
	if err != nil {
		return Window{}, false, err
	}
	return w, true, nil
}

// LocalDate returns the calendar date of a UTC instant in the named zone,
// truncated to midnight UTC of that local date. Used for grouping shifts
// by the location's calendar day.
func LocalDate(instant time.Time, tzName string) (time.Time, error) {
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return time.Time{}, fmt.Errorf("unknown timezone %q: %w", tzName, err)
	}
	local := instant.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC), nil
}

// mondayWeekday converts Go's Sunday-based weekday to the 0=Monday
// convention used by availability windows.
func mondayWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func parseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

func sortInstants(ts []time.Time) {
	for i := 1; i < len(ts); i++ {
		for j := i; j > 0 && ts[j].Before(ts[j-1]); j-- {
			ts[j], ts[j-1] = ts[j-1], ts[j]
		}
	}
}
