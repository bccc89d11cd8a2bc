// Package coordinator serializes assignment decisions per contention key.
//
// Every mutation of an assignment acquires an exclusive section keyed by
// the union of the shift and worker identities, re-reads the committed
// snapshot inside the section, evaluates the constraint chain, and
// commits atomically. Two callers racing for overlapping keys are
// linearized; the loser of a bounded wait is told who holds the section
// rather than being blocked indefinitely.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coastal-eats/shiftsync/pkg/core/constraint"
	"github.com/coastal-eats/shiftsync/pkg/core/model"
	"github.com/coastal-eats/shiftsync/pkg/db"
	"github.com/coastal-eats/shiftsync/pkg/events"
)

// ShiftKey and WorkerKey build the opaque contention keys scoping the
// exclusive section for an operation.
func ShiftKey(id uuid.UUID) string  { return "shift:" + id.String() }
func WorkerKey(id uuid.UUID) string { return "worker:" + id.String() }

// Store is the persistence surface the coordinator needs.
type Store interface {
	db.SnapshotStore
	db.AssignmentStore
}

// Result is the outcome of a TryAssign call.
type Result struct {
	Code       model.ResultCode
	Assignment *model.Assignment
	Verdict    *constraint.Verdict
	Holder     string
	Reason     string
}

// Coordinator orchestrates evaluate-and-commit under mutual exclusion.
type Coordinator struct {
	store    Store
	locker   db.Locker
	presence *PresenceRegistry
	engine   *constraint.Engine
	emitter  events.Emitter
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a coordinator.
func New(store Store, locker db.Locker, presence *PresenceRegistry, engine *constraint.Engine, emitter events.Emitter, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		store:    store,
		locker:   locker,
		presence: presence,
		engine:   engine,
		emitter:  emitter,
		logger:   logger,
		now:      time.Now,
	}
}

// TryAssign attempts to assign the worker to the shift.
//
// Exactly one of three outcomes is returned for concurrent calls touching
// the same shift or worker: Committed (constraints passed, row and audit
// event written atomically), Rejected (verdict explains why), or
// Contended (another actor holds the section; their identity is in
// Holder). A fatal persistence failure is returned as an error with no
// partial write.
func (c *Coordinator) TryAssign(ctx context.Context, shiftID, workerID uuid.UUID, actor model.Actor, override *model.OverrideToken) (Result, error) {
	return c.assign(ctx, shiftID, workerID, actor, override, nil)
}

// ReassignForSwap is TryAssign for a swap approval: the requester's
// assignment under swap is excluded from overlap and hour rules so the
// incoming worker is judged against the shift as it will be after the
// hand-off.
func (c *Coordinator) ReassignForSwap(ctx context.Context, shiftID, workerID uuid.UUID, actor model.Actor, override *model.OverrideToken, excludeAssignment uuid.UUID) (Result, error) {
	return c.assign(ctx, shiftID, workerID, actor, override, &excludeAssignment)
}

func (c *Coordinator) assign(ctx context.Context, shiftID, workerID uuid.UUID, actor model.Actor, override *model.OverrideToken, exclude *uuid.UUID) (Result, error) {
	keys := []string{ShiftKey(shiftID), WorkerKey(workerID)}

	c.logger.Debug("Acquiring assignment section",
		zap.String("shift_id", shiftID.String()),
		zap.String("worker_id", workerID.String()),
		zap.String("actor", actor.Name))

	release, err := c.locker.Acquire(ctx, keys, actor.Name)
	if err != nil {
		var conflict *model.ConflictError
		if errors.As(err, &conflict) {
			holder := conflict.Holder
			if holder == "" {
				holder = c.presence.Holder(conflict.Key)
			}
			contentionDetected.Inc()
			c.emit(events.Payload{
				Type:      events.TypeContentionDetected,
				EntityID:  shiftID,
				Actor:     actor.Name,
				Timestamp: c.now(),
				Detail:    map[string]any{"holder": holder, "key": conflict.Key},
			})
			c.logger.Debug("Assignment section contended",
				zap.String("key", conflict.Key),
				zap.String("holder", holder))
			return Result{Code: model.CodeContended, Holder: holder}, nil
		}
		return Result{}, fmt.Errorf("failed to acquire assignment section: %w", err)
	}
	c.presence.Enter(keys, actor.Name)
	defer func() {
		c.presence.Leave(keys, actor.Name)
		release()
	}()

	// Re-read committed state inside the section so the evaluation and
	// the commit see the same world.
	asOf := c.now()
	snap, err := c.store.BuildSnapshot(ctx, shiftID, workerID, asOf)
	if err != nil {
		return Result{}, fmt.Errorf("failed to build snapshot: %w", err)
	}
	snap.ExcludeAssignmentID = exclude

	if denied := c.checkPermission(actor, snap); denied != nil {
		c.logger.Info("Assignment permission denied",
			zap.String("actor", actor.Name),
			zap.String("reason", denied.Reason))
		return Result{Code: model.CodePermissionDenied, Reason: denied.Reason}, nil
	}

	verdict := c.engine.Evaluate(snap, override)
	if !verdict.OK {
		assignmentsRejected.WithLabelValues(verdict.FailingRule).Inc()
		c.logger.Info("Assignment rejected",
			zap.String("rule", verdict.FailingRule),
			zap.String("reason", verdict.Reason))
		code := model.CodeRejected
		if verdict.Ambiguous {
			code = model.CodeAmbiguousTime
		}
		return Result{Code: code, Verdict: &verdict, Reason: verdict.Reason}, nil
	}

	assignment := &model.Assignment{
		ID:           uuid.New(),
		ShiftID:      shiftID,
		WorkerID:     workerID,
		Status:       model.StatusAssigned,
		AssignedByID: actor.WorkerID,
		AssignedAt:   asOf,
		UpdatedAt:    asOf,
	}
	audit := model.AuditEvent{
		ID:       uuid.New(),
		ActorID:  actor.WorkerID,
		Action:   "assignment.created",
		EntityID: assignment.ID,
		After: map[string]any{
			"shift_id":  shiftID.String(),
			"worker_id": workerID.String(),
			"status":    string(assignment.Status),
		},
		At: asOf,
	}

	if err := c.store.CommitAssignment(ctx, assignment, audit); err != nil {
		// Fatal: propagate untouched. The store guarantees no partial
		// write, so there is nothing to roll back here.
		return Result{}, fmt.Errorf("failed to commit assignment: %w", err)
	}

	assignmentsCommitted.Inc()
	c.emit(events.Payload{
		Type:      events.TypeAssignmentChanged,
		EntityID:  assignment.ID,
		Actor:     actor.Name,
		Timestamp: asOf,
		Detail: map[string]any{
			"shift_id":  shiftID.String(),
			"worker_id": workerID.String(),
			"status":    string(assignment.Status),
		},
	})
	c.logger.Debug("Assignment committed",
		zap.String("assignment_id", assignment.ID.String()),
		zap.Int("warnings", len(verdict.Warnings)))

	return Result{Code: model.CodeOK, Assignment: assignment, Verdict: &verdict}, nil
}

// UpdateAssignmentStatus mutates an assignment's status under the same
// exclusive section as a fresh assignment, emitting the audit event and
// the change notification. Used by the swap workflow for status
// transitions that need no constraint re-evaluation (reverts, COVERED,
// DROPPED).
func (c *Coordinator) UpdateAssignmentStatus(ctx context.Context, assignment model.Assignment, status model.AssignmentStatus, actor model.Actor, action string) error {
	keys := []string{ShiftKey(assignment.ShiftID), WorkerKey(assignment.WorkerID)}

	release, err := c.locker.Acquire(ctx, keys, actor.Name)
	if err != nil {
		var conflict *model.ConflictError
		if errors.As(err, &conflict) {
			contentionDetected.Inc()
			return conflict
		}
		return fmt.Errorf("failed to acquire assignment section: %w", err)
	}
	c.presence.Enter(keys, actor.Name)
	defer func() {
		c.presence.Leave(keys, actor.Name)
		release()
	}()

	now := c.now()
	audit := model.AuditEvent{
		ID:       uuid.New(),
		ActorID:  actor.WorkerID,
		Action:   action,
		EntityID: assignment.ID,
		Before:   map[string]any{"status": string(assignment.Status)},
		After:    map[string]any{"status": string(status)},
		At:       now,
	}
	if err := c.store.UpdateAssignmentStatus(ctx, assignment.ID, status, audit); err != nil {
		return fmt.Errorf("failed to update assignment status: %w", err)
	}

	c.emit(events.Payload{
		Type:      events.TypeAssignmentChanged,
		EntityID:  assignment.ID,
		Actor:     actor.Name,
		Timestamp: now,
		Detail: map[string]any{
			"shift_id":  assignment.ShiftID.String(),
			"worker_id": assignment.WorkerID.String(),
			"status":    string(status),
		},
	})
	return nil
}

// checkPermission rejects the actor before any rule runs: staff cannot
// assign, and managers can only act at locations they manage.
func (c *Coordinator) checkPermission(actor model.Actor, snap *constraint.Snapshot) *model.PermissionError {
	if actor.Role == model.RoleStaff {
		return &model.PermissionError{Actor: actor.Name, Reason: "only managers may assign shifts"}
	}
	if !actor.ManagesLocation(snap.Location.ID) {
		return &model.PermissionError{Actor: actor.Name, Reason: fmt.Sprintf("does not manage %s", snap.Location.Name)}
	}
	return nil
}

func (c *Coordinator) emit(p events.Payload) {
	if err := c.emitter.Emit(p); err != nil {
		c.logger.Warn("Failed to emit event",
			zap.String("type", p.Type),
			zap.Error(err))
	}
}
