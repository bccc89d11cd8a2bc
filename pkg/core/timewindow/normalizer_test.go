package timewindow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coastal-eats/shiftsync/pkg/core/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNormalizeLocal_ResolvedSummer(t *testing.T) {
	// July in Los Angeles is PDT (UTC-7): 09:00 local is 16:00 UTC.
	instant, err := NormalizeLocal(date(2026, time.July, 15), 9, 0, "America/Los_Angeles")
	require.NoError(t, err)

	assert.Equal(t, Resolved, instant.Resolution)
	assert.Equal(t, time.Date(2026, time.July, 15, 16, 0, 0, 0, time.UTC), instant.UTC)
}

func TestNormalizeLocal_ResolvedWinter(t *testing.T) {
	// January is PST (UTC-8): the same wall clock maps an hour later.
	instant, err := NormalizeLocal(date(2026, time.January, 15), 9, 0, "America/Los_Angeles")
	require.NoError(t, err)

	assert.Equal(t, Resolved, instant.Resolution)
	assert.Equal(t, time.Date(2026, time.January, 15, 17, 0, 0, 0, time.UTC), instant.UTC)
}

func TestNormalizeLocal_SpringForwardGap(t *testing.T) {
	// 2026-03-08 02:30 never happens in Los Angeles; clocks jump 02:00→03:00.
	instant, err := NormalizeLocal(date(2026, time.March, 8), 2, 30, "America/Los_Angeles")
	require.NoError(t, err)

	assert.Equal(t, Nonexistent, instant.Resolution)
	assert.True(t, instant.UTC.IsZero())
	require.Len(t, instant.Candidates, 2)
	assert.True(t, instant.Candidates[0].Before(instant.Candidates[1]))
}

func TestNormalizeLocal_FallBackOverlap(t *testing.T) {
	// 2026-11-01 01:30 happens twice in Los Angeles: once at UTC-7, once
	// at UTC-8. Both candidates must come back, earlier instant first.
	instant, err := NormalizeLocal(date(2026, time.November, 1), 1, 30, "America/Los_Angeles")
	require.NoError(t, err)

	assert.Equal(t, Ambiguous, instant.Resolution)
	require.Len(t, instant.Candidates, 2)
	assert.Equal(t, time.Date(2026, time.November, 1, 8, 30, 0, 0, time.UTC), instant.Candidates[0])
	assert.Equal(t, time.Date(2026, time.November, 1, 9, 30, 0, 0, time.UTC), instant.Candidates[1])
}

func TestNormalizeLocal_UnknownTimezone(t *testing.T) {
	_, err := NormalizeLocal(date(2026, time.July, 15), 9, 0, "Mars/Olympus_Mons")
	assert.Error(t, err)
}

func TestNormalizeWindow_SameDay(t *testing.T) {
	// A 09:00–17:00 Los Angeles window in July ends at midnight UTC.
	w, err := NormalizeWindow(date(2026, time.July, 15), 9, 0, 17, 0, "America/Los_Angeles")
	require.NoError(t, err)

	require.True(t, w.IsResolved())
	assert.Equal(t, time.Date(2026, time.July, 15, 16, 0, 0, 0, time.UTC), w.StartUTC)
	assert.Equal(t, time.Date(2026, time.July, 16, 0, 0, 0, 0, time.UTC), w.EndUTC)
}

func TestNormalizeWindow_CrossesMidnight(t *testing.T) {
	// End at or before start means the window runs into the next local day.
	w, err := NormalizeWindow(date(2026, time.July, 15), 22, 0, 6, 0, "America/Los_Angeles")
	require.NoError(t, err)

	require.True(t, w.IsResolved())
	assert.Equal(t, time.Date(2026, time.July, 16, 5, 0, 0, 0, time.UTC), w.StartUTC)
	assert.Equal(t, time.Date(2026, time.July, 16, 13, 0, 0, 0, time.UTC), w.EndUTC)
	assert.True(t, w.EndUTC.After(w.StartUTC))
}

func TestNormalizeWindow_UnresolvedContainsNothing(t *testing.T) {
	w, err := NormalizeWindow(date(2026, time.March, 8), 2, 30, 10, 0, "America/Los_Angeles")
	require.NoError(t, err)

	assert.False(t, w.IsResolved())
	assert.False(t, w.Contains(
		time.Date(2026, time.March, 8, 12, 0, 0, 0, time.UTC),
		time.Date(2026, time.March, 8, 14, 0, 0, 0, time.UTC)))
}

func TestWindowContains(t *testing.T) {
	w, err := NormalizeWindow(date(2026, time.July, 15), 9, 0, 17, 0, "America/Los_Angeles")
	require.NoError(t, err)

	// Fully inside.
	assert.True(t, w.Contains(
		time.Date(2026, time.July, 15, 17, 0, 0, 0, time.UTC),
		time.Date(2026, time.July, 15, 21, 0, 0, 0, time.UTC)))
	// Starts before the window opens.
	assert.False(t, w.Contains(
		time.Date(2026, time.July, 15, 15, 0, 0, 0, time.UTC),
		time.Date(2026, time.July, 15, 21, 0, 0, 0, time.UTC)))
	// Runs past the window close.
	assert.False(t, w.Contains(
		time.Date(2026, time.July, 15, 17, 0, 0, 0, time.UTC),
		time.Date(2026, time.July, 16, 1, 0, 0, 0, time.UTC)))
}

func TestExpandAvailability_WeeklyMatchesWeekday(t *testing.T) {
	av := model.AvailabilityWindow{
		Recurrence: model.RecurrenceWeekly,
		DayOfWeek:  2, // Wednesday
		StartTime:  "09:00",
		EndTime:    "17:00",
		Timezone:   "America/Los_Angeles",
	}

	// 2026-07-15 is a Wednesday.
	w, applies, err := ExpandAvailability(av, date(2026, time.July, 15))
	require.NoError(t, err)
	require.True(t, applies)
	assert.Equal(t, time.Date(2026, time.July, 15, 16, 0, 0, 0, time.UTC), w.StartUTC)

	// Thursday does not apply.
	_, applies, err = ExpandAvailability(av, date(2026, time.July, 16))
	require.NoError(t, err)
	assert.False(t, applies)
}

func TestExpandAvailability_OneOff(t *testing.T) {
	av := model.AvailabilityWindow{
		Recurrence:   model.RecurrenceOneOff,
		SpecificDate: "2026-07-15",
		StartTime:    "10:00",
		EndTime:      "14:00",
		Timezone:     "America/Los_Angeles",
	}

	_, applies, err := ExpandAvailability(av, date(2026, time.July, 15))
	require.NoError(t, err)
	assert.True(t, applies)

	_, applies, err = ExpandAvailability(av, date(2026, time.July, 16))
	require.NoError(t, err)
	assert.False(t, applies)
}

func TestExpandAvailability_DayOffMarker(t *testing.T) {
	av := model.AvailabilityWindow{
		Recurrence:   model.RecurrenceOneOff,
		SpecificDate: "2026-07-15",
		Timezone:     "America/Los_Angeles",
	}

	w, applies, err := ExpandAvailability(av, date(2026, time.July, 15))
	require.NoError(t, err)
	assert.True(t, applies)
	assert.False(t, w.IsResolved())
}

func TestLocalDate(t *testing.T) {
	// 02:00 UTC on July 16 is still July 15 in Los Angeles.
	d, err := LocalDate(time.Date(2026, time.July, 16, 2, 0, 0, 0, time.UTC), "America/Los_Angeles")
	require.NoError(t, err)
	assert.Equal(t, date(2026, time.July, 15), d)

	d, err = LocalDate(time.Date(2026, time.July, 16, 12, 0, 0, 0, time.UTC), "America/Los_Angeles")
	require.NoError(t, err)
	assert.Equal(t, date(2026, time.July, 16), d)
}

func TestMondayWeekday(t *testing.T) {
	assert.Equal(t, 0, mondayWeekday(date(2026, time.July, 13))) // Monday
	assert.Equal(t, 2, mondayWeekday(date(2026, time.July, 15))) // Wednesday
	assert.Equal(t, 6, mondayWeekday(date(2026, time.July, 19))) // Sunday
}
