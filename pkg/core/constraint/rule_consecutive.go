package constraint

import (
	"fmt"

	"github.com/coastal-eats/shiftsync/pkg/core/timewindow"
)

// ConsecutiveDaysRule counts consecutive worked days leading up to the
// candidate shift. Any shift of any duration counts as a worked day. The
// warning day emits a warning; the override day blocks unless the caller
// supplies an override token covering this rule.
type ConsecutiveDaysRule struct {
	warnDay     int
	overrideDay int
}

// NewConsecutiveDaysRule creates the consecutive-days rule. warnDay and
// overrideDay are the run lengths (candidate day included) at which each
// severity triggers.
func NewConsecutiveDaysRule(warnDay, overrideDay int) *ConsecutiveDaysRule {
	return &ConsecutiveDaysRule{warnDay: warnDay, overrideDay: overrideDay}
}

func (r *ConsecutiveDaysRule) ID() string {
	return RuleConsecutiveDays
}

func (r *ConsecutiveDaysRule) Check(snap *Snapshot, w WorkerData) Outcome {
	shiftDate, err := timewindow.LocalDate(snap.Shift.StartUTC, snap.Location.Timezone)
	if err != nil {
		return block(r.ID(), fmt.Sprintf("cannot resolve shift date: %v", err))
	}

	// Worked days in the shift location's calendar.
	worked := make(map[string]bool)
	for _, existing := range snap.otherAssignments(w) {
		date, err := timewindow.LocalDate(existing.Shift.StartUTC, snap.Location.Timezone)
		if err != nil {
			continue
		}
		worked[date.Format("2006-01-02")] = true
	}

	// Walk backwards from the day before the shift.
	before := 0
	day := shiftDate.AddDate(0, 0, -1)
	for i := 0; i < r.overrideDay; i++ {
		if !worked[day.Format("2006-01-02")] {
			break
		}
		before++
		day = day.AddDate(0, 0, -1)
	}

	run := before + 1
	switch {
	case run >= r.overrideDay:
		return overrideRequired(r.ID(), fmt.Sprintf(
			"%s has worked %d consecutive days; this would be day %d, which requires a documented manager override",
			w.Worker.FullName(), before, run))
	case run >= r.warnDay:
		return warn(r.ID(), fmt.Sprintf(
			"%s has worked %d consecutive days; this would be day %d",
			w.Worker.FullName(), before, run))
	}
	return pass(r.ID())
}
