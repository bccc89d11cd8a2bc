package constraint

import (
	"fmt"
	"time"

	"github.com/coastal-eats/shiftsync/pkg/core/model"
	"github.com/coastal-eats/shiftsync/pkg/core/timewindow"
)

var weekdayNames = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// AvailabilityRule verifies the shift's UTC range is fully contained in at
// least one of the worker's normalized availability windows for the
// shift's local date.
//
// One-off windows take precedence over weekly windows for the same date.
// A window that normalizes to an ambiguous or nonexistent local time
// (DST edge) is treated as unresolved: the rule fails hard and reports the
// ambiguity instead of guessing an instant.
type AvailabilityRule struct{}

// NewAvailabilityRule creates the availability rule.
func NewAvailabilityRule() *AvailabilityRule {
	return &AvailabilityRule{}
}

func (r *AvailabilityRule) ID() string {
	return RuleAvailability
}

func (r *AvailabilityRule) Check(snap *Snapshot, w WorkerData) Outcome {
	shiftDate, err := timewindow.LocalDate(snap.Shift.StartUTC, snap.Location.Timezone)
	if err != nil {
		return block(r.ID(), fmt.Sprintf("cannot resolve shift date: %v", err))
	}

	window, found, outcome := r.selectWindow(snap, w, shiftDate)
	if outcome != nil {
		return *outcome
	}
	if !found {
		weekday := weekdayNames[mondayWeekday(shiftDate)]
		return block(r.ID(), fmt.Sprintf(
			"%s has not set availability for %ss",
			w.Worker.FullName(), weekday))
	}

	if window.Contains(snap.Shift.StartUTC, snap.Shift.EndUTC) {
		return pass(r.ID())
	}
	return block(r.ID(), fmt.Sprintf(
		"%s's availability does not cover this shift (%s – %s UTC)",
		w.Worker.FullName(),
		snap.Shift.StartUTC.Format("15:04"),
		snap.Shift.EndUTC.Format("15:04")))
}

// selectWindow picks the availability window governing the shift date,
// applying one-off precedence and surfacing day-off markers and DST edges
// as hard outcomes.
func (r *AvailabilityRule) selectWindow(snap *Snapshot, w WorkerData, shiftDate time.Time) (timewindow.Window, bool, *Outcome) {
	var weekly *model.AvailabilityWindow

	for i := range w.Availability {
		av := w.Availability[i]
		if av.Recurrence == model.RecurrenceWeekly {
			if mondayWeekday(shiftDate) == av.DayOfWeek && weekly == nil {
				weekly = &w.Availability[i]
			}
			continue
		}
		if av.SpecificDate != shiftDate.Format("2006-01-02") {
			continue
		}
		// One-off entry for this exact date wins outright.
		return r.normalize(snap, w, av, shiftDate)
	}

	if weekly == nil {
		return timewindow.Window{}, false, nil
	}
	return r.normalize(snap, w, *weekly, shiftDate)
}

func (r *AvailabilityRule) normalize(snap *Snapshot, w WorkerData, av model.AvailabilityWindow, shiftDate time.Time) (timewindow.Window, bool, *Outcome) {
	if av.IsUnavailableDay() {
		out := block(r.ID(), fmt.Sprintf(
			"%s has marked %s as unavailable",
			w.Worker.FullName(), shiftDate.Format("2006-01-02")))
		return timewindow.Window{}, true, &out
	}

	window, applies, err := timewindow.ExpandAvailability(av, shiftDate)
	if err != nil {
		out := block(r.ID(), fmt.Sprintf("cannot normalize availability: %v", err))
		return timewindow.Window{}, true, &out
	}
	if !applies {
		return timewindow.Window{}, false, nil
	}
	if !window.IsResolved() {
		out := block(r.ID(), fmt.Sprintf(
			"%s's availability window %s–%s %s falls on a daylight-saving transition and needs confirmation",
			w.Worker.FullName(), av.StartTime, av.EndTime, av.Timezone))
		out.Ambiguous = true
		return timewindow.Window{}, true, &out
	}
	return window, true, nil
}

func mondayWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
