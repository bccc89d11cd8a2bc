package constraint

import "fmt"

// DoubleBookingRule rejects the candidate when any existing active
// assignment for the worker overlaps the candidate's instant range, at any
// location. Overlap is [start, end) against [start, end).
type DoubleBookingRule struct{}

// NewDoubleBookingRule creates the double-booking rule.
func NewDoubleBookingRule() *DoubleBookingRule {
	return &DoubleBookingRule{}
}

func (r *DoubleBookingRule) ID() string {
	return RuleDoubleBooking
}

func (r *DoubleBookingRule) Check(snap *Snapshot, w WorkerData) Outcome {
	for _, existing := range snap.otherAssignments(w) {
		if existing.Shift.Overlaps(snap.Shift.StartUTC, snap.Shift.EndUTC) {
			return block(r.ID(), fmt.Sprintf(
				"%s is already assigned at %s from %s to %s UTC, which overlaps this shift",
				w.Worker.FullName(),
				existing.Location.Name,
				existing.Shift.StartUTC.Format("15:04"),
				existing.Shift.EndUTC.Format("15:04")))
		}
	}
	return pass(r.ID())
}
