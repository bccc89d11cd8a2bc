package constraint

import (
	"fmt"
	"time"
)

// MinimumRestRule enforces the minimum rest period between consecutive
// shifts, in both directions: a previous shift ending too recently before
// the candidate starts, or a later shift starting too soon after the
// candidate ends.
type MinimumRestRule struct {
	minRest time.Duration
}

// NewMinimumRestRule creates the rest-period rule with the given minimum
// gap in hours.
func NewMinimumRestRule(minRestHours int) *MinimumRestRule {
	return &MinimumRestRule{minRest: time.Duration(minRestHours) * time.Hour}
}

func (r *MinimumRestRule) ID() string {
	return RuleMinimumRest
}

func (r *MinimumRestRule) Check(snap *Snapshot, w WorkerData) Outcome {
	for _, existing := range snap.otherAssignments(w) {
		// Previous shift ending inside the rest window before the start.
		if !existing.Shift.EndUTC.After(snap.Shift.StartUTC) {
			gap := snap.Shift.StartUTC.Sub(existing.Shift.EndUTC)
			if gap < r.minRest {
				return block(r.ID(), fmt.Sprintf(
					"%s would only have %.1f hours of rest after their shift at %s; the minimum is %.0f hours",
					w.Worker.FullName(), gap.Hours(), existing.Location.Name, r.minRest.Hours()))
			}
		}
		// Later shift starting inside the rest window after the end.
		if !existing.Shift.StartUTC.Before(snap.Shift.EndUTC) {
			gap := existing.Shift.StartUTC.Sub(snap.Shift.EndUTC)
			if gap < r.minRest {
				return block(r.ID(), fmt.Sprintf(
					"%s has a shift at %s starting only %.1f hours after this one would end; the minimum rest is %.0f hours",
					w.Worker.FullName(), existing.Location.Name, gap.Hours(), r.minRest.Hours()))
			}
		}
	}
	return pass(r.ID())
}
