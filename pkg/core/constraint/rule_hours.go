package constraint

import (
	"fmt"

	"github.com/coastal-eats/shiftsync/pkg/core/timewindow"
)

// DailyHoursRule limits hours worked on the shift's calendar day, in the
// shift location's timezone. Exceeding the warning threshold emits a
// warning; exceeding the hard limit blocks the assignment.
type DailyHoursRule struct {
	warnHours float64
	hardHours float64
}

// NewDailyHoursRule creates the daily-hours rule with the given warning
// and hard thresholds.
func NewDailyHoursRule(warnHours, hardHours float64) *DailyHoursRule {
	return &DailyHoursRule{warnHours: warnHours, hardHours: hardHours}
}

func (r *DailyHoursRule) ID() string {
	return RuleDailyHours
}

func (r *DailyHoursRule) Check(snap *Snapshot, w WorkerData) Outcome {
	shiftDate, err := timewindow.LocalDate(snap.Shift.StartUTC, snap.Location.Timezone)
	if err != nil {
		return block(r.ID(), fmt.Sprintf("cannot resolve shift date: %v", err))
	}

	total := snap.Shift.DurationHours()
	for _, existing := range snap.otherAssignments(w) {
		date, err := timewindow.LocalDate(existing.Shift.StartUTC, snap.Location.Timezone)
		if err != nil {
			continue
		}
		if date.Equal(shiftDate) {
			total += existing.Shift.DurationHours()
		}
	}

	switch {
	case total > r.hardHours:
		return block(r.ID(), fmt.Sprintf(
			"assigning this %.1fh shift would give %s %.1f hours in a single day, exceeding the %.0f-hour daily limit",
			snap.Shift.DurationHours(), w.Worker.FullName(), total, r.hardHours))
	case total > r.warnHours:
		return warn(r.ID(), fmt.Sprintf(
			"%s will have %.1f hours on this day, exceeding the %.0f-hour guideline",
			w.Worker.FullName(), total, r.warnHours))
	}
	return pass(r.ID())
}

// WeeklyHoursRule limits hours across the ISO week (Monday–Sunday in the
// shift location's timezone). Reaching the warning threshold warns;
// reaching the hard limit blocks unless the caller supplies an override
// token covering this rule.
type WeeklyHoursRule struct {
	warnHours float64
	hardHours float64
}

// NewWeeklyHoursRule creates the weekly-hours rule with the given warning
// and hard thresholds.
func NewWeeklyHoursRule(warnHours, hardHours float64) *WeeklyHoursRule {
	return &WeeklyHoursRule{warnHours: warnHours, hardHours: hardHours}
}

func (r *WeeklyHoursRule) ID() string {
	return RuleWeeklyHours
}

func (r *WeeklyHoursRule) Check(snap *Snapshot, w WorkerData) Outcome {
	current, err := committedWeeklyHours(snap, w)
	if err != nil {
		return block(r.ID(), fmt.Sprintf("cannot resolve week boundaries: %v", err))
	}
	projected := current + snap.Shift.DurationHours()

	switch {
	case projected >= r.hardHours:
		return overrideRequired(r.ID(), fmt.Sprintf(
			"%s already has %.1f hours this week; adding this %.1fh shift would reach %.1f hours, at or above the %.0f-hour limit",
			w.Worker.FullName(), current, snap.Shift.DurationHours(), projected, r.hardHours))
	case projected >= r.warnHours:
		return warn(r.ID(), fmt.Sprintf(
			"%s will have %.1f hours this week, approaching the %.0f-hour overtime threshold",
			w.Worker.FullName(), projected, r.hardHours))
	}
	return pass(r.ID())
}

// committedWeeklyHours sums the worker's active assignment hours inside
// the ISO week (local Monday 00:00 through the following Monday) that
// contains the candidate shift.
func committedWeeklyHours(snap *Snapshot, w WorkerData) (float64, error) {
	shiftDate, err := timewindow.LocalDate(snap.Shift.StartUTC, snap.Location.Timezone)
	if err != nil {
		return 0, err
	}
	monday := shiftDate.AddDate(0, 0, -mondayWeekday(shiftDate))
	nextMonday := monday.AddDate(0, 0, 7)

	var total float64
	for _, existing := range snap.otherAssignments(w) {
		date, err := timewindow.LocalDate(existing.Shift.StartUTC, snap.Location.Timezone)
		if err != nil {
			continue
		}
		if !date.Before(monday) && date.Before(nextMonday) {
			total += existing.Shift.DurationHours()
		}
	}
	return total, nil
}
