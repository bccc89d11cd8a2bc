package model

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
)

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleManager || r == RoleStaff
}

// Worker represents a staff member who can be assigned to shifts.
type Worker struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Email     string
	Role      Role
	IsActive  bool
	Skills    []string

	// ManagedLocationIDs is populated for managers only. Admins implicitly
	// manage every location.
	ManagedLocationIDs []uuid.UUID
}

// FullName returns the worker's display name.
func (w Worker) FullName() string {
	return w.FirstName + " " + w.LastName
}

// HasSkill reports whether the worker holds the named skill.
func (w Worker) HasSkill(skill string) bool {
	for _, s := range w.Skills {
		if s == skill {
			return true
		}
	}
	return false
}

// ManagesLocation reports whether the worker may act on the given location.
// Admins manage all locations; staff manage none.
func (w Worker) ManagesLocation(locationID uuid.UUID) bool {
	if w.Role == RoleAdmin {
		return true
	}
	if w.Role != RoleManager {
		return false
	}
	for _, id := range w.ManagedLocationIDs {
		if id == locationID {
			return true
		}
	}
	return false
}

// Location is a physical site with a single canonical IANA timezone.
// Shift times for a location are always displayed in this timezone.
type Location struct {
	ID       uuid.UUID
	Name     string
	Timezone string
	IsActive bool
}

// Certification records that a worker may work at a location.
// Deactivation is non-destructive: historical assignments stay valid but
// no new assignment may use an inactive certification.
type Certification struct {
	ID         uuid.UUID
	WorkerID   uuid.UUID
	LocationID uuid.UUID
	IsActive   bool
}

type Recurrence string

const (
	RecurrenceWeekly Recurrence = "weekly"
	RecurrenceOneOff Recurrence = "one_off"
)

// AvailabilityWindow is a window of time a worker is available to work,
// entered in the worker's own timezone. Superseded windows are replaced
// whole, never edited in place.
//
// A window with no start/end time marks the whole day as unavailable.
// One-off windows take precedence over weekly windows for the same date.
type AvailabilityWindow struct {
	ID         uuid.UUID
	WorkerID   uuid.UUID
	Recurrence Recurrence

	// DayOfWeek is set for weekly windows: 0=Monday .. 6=Sunday.
	DayOfWeek int

	// SpecificDate is set for one-off windows, formatted 2006-01-02.
	SpecificDate string

	// StartTime/EndTime are local wall-clock times formatted 15:04.
	// Both empty means unavailable for the entire day.
	StartTime string
	EndTime   string

	// Timezone is the IANA zone the worker used when entering the times.
	Timezone string

	Notes string
}

// IsUnavailableDay reports whether this window marks the whole day off.
func (a AvailabilityWindow) IsUnavailableDay() bool {
	return a.StartTime == "" && a.EndTime == ""
}

// Shift is a scheduled work block at a location requiring one skill and a
// headcount. Times are stored as UTC instants; overnight shifts need no
// special handling because EndUTC may cross a local date boundary.
type Shift struct {
	ID             uuid.UUID
	LocationID     uuid.UUID
	RequiredSkill  string
	HeadcountNeed  int
	StartUTC       time.Time
	EndUTC         time.Time
	IsPublished    bool
	PublishedAt    *time.Time
	EditCutoffHrs  int
	Notes          string
	CreatedByID    uuid.UUID
}

// DurationHours returns the shift length in decimal hours.
func (s Shift) DurationHours() float64 {
	return s.EndUTC.Sub(s.StartUTC).Hours()
}

// IsPastEditCutoff reports whether the shift is locked against material
// edits: the cutoff is EditCutoffHrs before the shift start.
func (s Shift) IsPastEditCutoff(now time.Time) bool {
	cutoff := s.StartUTC.Add(-time.Duration(s.EditCutoffHrs) * time.Hour)
	return !now.Before(cutoff)
}

// Overlaps reports whether this shift's [start, end) range overlaps the
// given range.
func (s Shift) Overlaps(start, end time.Time) bool {
	return s.StartUTC.Before(end) && s.EndUTC.After(start)
}

type AssignmentStatus string

const (
	StatusAssigned    AssignmentStatus = "assigned"
	StatusSwapPending AssignmentStatus = "swap_pending"
	StatusCovered     AssignmentStatus = "covered"
	StatusDropped     AssignmentStatus = "dropped"
)

// IsActive reports whether the status counts toward double-booking and
// hour totals.
func (s AssignmentStatus) IsActive() bool {
	return s == StatusAssigned || s == StatusSwapPending
}

// Assignment links a worker to a shift.
//
// Status machine:
//
//	ASSIGNED → SWAP_PENDING  (swap/drop requested)
//	SWAP_PENDING → ASSIGNED  (swap cancelled, rejected or expired)
//	SWAP_PENDING → COVERED   (swap approved, this worker is off)
//	SWAP_PENDING → DROPPED   (drop approved, slot reopens)
type Assignment struct {
	ID           uuid.UUID
	ShiftID      uuid.UUID
	WorkerID     uuid.UUID
	Status       AssignmentStatus
	AssignedByID uuid.UUID
	AssignedAt   time.Time
	UpdatedAt    time.Time
}

type SwapType string

const (
	SwapTypeSwap SwapType = "swap"
	SwapTypeDrop SwapType = "drop"
)

type SwapStatus string

const (
	SwapPendingAcceptance SwapStatus = "pending_acceptance"
	SwapPendingManager    SwapStatus = "pending_manager"
	SwapApproved          SwapStatus = "approved"
	SwapRejected          SwapStatus = "rejected"
	SwapCancelled         SwapStatus = "cancelled"
	SwapExpired           SwapStatus = "expired"
)

// IsTerminal reports whether no further transitions are possible.
func (s SwapStatus) IsTerminal() bool {
	switch s {
	case SwapApproved, SwapRejected, SwapCancelled, SwapExpired:
		return true
	}
	return false
}

// SwapRequest is a swap or drop negotiation over exactly one assignment.
// An assignment has at most one non-terminal SwapRequest at a time.
// TargetID is nil for drops (open to any qualified worker).
type SwapRequest struct {
	ID           uuid.UUID
	Type         SwapType
	Status       SwapStatus
	AssignmentID uuid.UUID
	RequesterID  uuid.UUID
	TargetID     *uuid.UUID
	ReviewedByID *uuid.UUID

	RequesterNote string
	ManagerNote   string

	TargetAcceptedAt  *time.Time
	ManagerReviewedAt *time.Time
	ExpiresAt         time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AuditEvent is an immutable before/after record of a committed mutation.
// The core produces one per commit; storage belongs to the persistence
// collaborator and must happen in the same transaction as the change.
//
// Action strings follow the pattern "entity.event", e.g.
// "assignment.created", "swap_request.approved".
type AuditEvent struct {
	ID       uuid.UUID
	ActorID  uuid.UUID
	Action   string
	EntityID uuid.UUID
	Before   map[string]any
	After    map[string]any
	At       time.Time
}

// Actor identifies who is performing an operation, for permission checks,
// audit records and presence notices. ManagedLocationIDs is the resolved
// scope for managers; the authentication layer owning the actor fills it.
type Actor struct {
	WorkerID           uuid.UUID
	Name               string
	Role               Role
	ManagedLocationIDs []uuid.UUID
}

// ManagesLocation reports whether the actor may act on the location.
func (a Actor) ManagesLocation(locationID uuid.UUID) bool {
	if a.Role == RoleAdmin {
		return true
	}
	if a.Role != RoleManager {
		return false
	}
	for _, id := range a.ManagedLocationIDs {
		if id == locationID {
			return true
		}
	}
	return false
}
