package constraint

import (
	"time"

	"github.com/google/uuid"

	"github.com/coastal-eats/shiftsync/pkg/core/model"
)

// AssignedShift pairs an active assignment with its shift and the shift's
// location, so rules can compare instant ranges without further reads.
type AssignedShift struct {
	Assignment model.Assignment
	Shift      model.Shift
	Location   model.Location
}

// WorkerData is everything the rule chain needs to know about one worker,
// read as of the snapshot instant.
type WorkerData struct {
	Worker         model.Worker
	Certifications []model.Certification
	Availability   []model.AvailabilityWindow

	// Assignments holds only ASSIGNED/SWAP_PENDING assignments.
	Assignments []AssignedShift
}

// HasActiveCertification reports whether the worker holds an active
// certification at the given location.
func (w WorkerData) HasActiveCertification(locationID uuid.UUID) bool {
	for _, c := range w.Certifications {
		if c.LocationID == locationID && c.IsActive {
			return true
		}
	}
	return false
}

// HasAnyCertification reports whether the worker was ever certified at the
// location, active or not. Used to phrase rejections as "revoked" versus
// "never certified".
func (w WorkerData) HasAnyCertification(locationID uuid.UUID) bool {
	for _, c := range w.Certifications {
		if c.LocationID == locationID {
			return true
		}
	}
	return false
}

// Snapshot is the immutable committed-data view a single evaluation runs
// against. The caller is responsible for reading it inside the same
// transaction as any subsequent commit; the engine itself never mutates
// state or reads outside the snapshot.
type Snapshot struct {
	TakenAt time.Time

	// The candidate pairing under evaluation.
	Shift    model.Shift
	Location model.Location
	Worker   WorkerData

	// ExcludeAssignmentID, when set, is ignored by overlap and hour rules.
	// Used when re-checking an existing assignment (e.g. swap approval).
	ExcludeAssignmentID *uuid.UUID

	// Others are alternative workers considered for suggestions when the
	// candidate is rejected on an availability or capacity gap.
	Others []WorkerData
}

// otherAssignments returns the worker's active assignments, leaving out
// only an explicitly excluded assignment (the one under swap re-check).
// An existing active assignment for the candidate shift itself must stay
// visible: it is exactly what the double-booking rule rejects.
func (s *Snapshot) otherAssignments(w WorkerData) []AssignedShift {
	out := make([]AssignedShift, 0, len(w.Assignments))
	for _, a := range w.Assignments {
		if s.ExcludeAssignmentID != nil && a.Assignment.ID == *s.ExcludeAssignmentID {
			continue
		}
		out = append(out, a)
	}
	return out
}
