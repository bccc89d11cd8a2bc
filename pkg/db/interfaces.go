// Package db defines the persistence boundary consumed by the scheduling
// core. Implementations must provide snapshot reads as of an instant,
// atomic commits of a mutation plus its audit event, and the
// exclusive-section primitive keyed by opaque contention keys.
package db

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/coastal-eats/shiftsync/pkg/core/constraint"
	"github.com/coastal-eats/shiftsync/pkg/core/model"
)

// Locker is the exclusive-section primitive. Acquire blocks with a
// bounded wait until every key is held, then returns a release function.
// On contention past the deadline it returns *model.ConflictError naming
// the current holder. Keys must be acquired in a stable order by the
// implementation so multi-key holders cannot deadlock each other.
type Locker interface {
	Acquire(ctx context.Context, keys []string, holder string) (release func(), err error)
}

// SnapshotStore reads the committed data a constraint evaluation runs
// against. Callers hold the exclusive section for the shift and worker
// keys across the snapshot and any commit that follows, so the snapshot
// cannot go stale for the evaluated pairing. Data outside the held keys
// is best-effort and must not be relied on for correctness.
type SnapshotStore interface {
	BuildSnapshot(ctx context.Context, shiftID, workerID uuid.UUID, asOf time.Time) (*constraint.Snapshot, error)
}

// AssignmentStore persists assignments. Commit operations write the
// assignment and its audit event in one transaction; a failure leaves
// neither.
type AssignmentStore interface {
	GetAssignment(ctx context.Context, id uuid.UUID) (model.Assignment, error)
	CommitAssignment(ctx context.Context, a *model.Assignment, audit model.AuditEvent) error
	UpdateAssignmentStatus(ctx context.Context, id uuid.UUID, status model.AssignmentStatus, audit model.AuditEvent) error
}

// SwapStore persists swap/drop requests.
type SwapStore interface {
	GetSwapRequest(ctx context.Context, id uuid.UUID) (model.SwapRequest, error)
	InsertSwapRequest(ctx context.Context, req *model.SwapRequest, audit model.AuditEvent) error

	// TransitionSwapRequest updates the request iff its current status is
	// one of from, writing the audit event in the same transaction.
	// Returns false when the request was not in an expected state, which
	// makes sweeps and racing transitions idempotent.
	TransitionSwapRequest(ctx context.Context, req *model.SwapRequest, from []model.SwapStatus, audit model.AuditEvent) (bool, error)

	CountPendingForWorker(ctx context.Context, workerID uuid.UUID) (int, error)
	ListDueSwapRequests(ctx context.Context, now time.Time) ([]model.SwapRequest, error)
	ListOpenSwapRequestsForShift(ctx context.Context, shiftID uuid.UUID) ([]model.SwapRequest, error)
}

// ShiftStore persists shifts and locations.
type ShiftStore interface {
	GetShift(ctx context.Context, id uuid.UUID) (model.Shift, error)
	GetLocation(ctx context.Context, id uuid.UUID) (model.Location, error)
	InsertShifts(ctx context.Context, shifts []model.Shift, audit model.AuditEvent) error
	UpdateShift(ctx context.Context, shift model.Shift, audit model.AuditEvent) error
}

// WorkerStore reads workers for permission checks and swap parties.
type WorkerStore interface {
	GetWorker(ctx context.Context, id uuid.UUID) (model.Worker, error)
}
