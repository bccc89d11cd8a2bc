// Package swap implements the shift swap/drop negotiation state machine.
//
// States:
//
//	PENDING_ACCEPTANCE → PENDING_MANAGER → {APPROVED, REJECTED}
//
// with CANCELLED and EXPIRED reachable from either pending state. Drops
// skip target acceptance and enter PENDING_MANAGER directly. Approval is
// always routed through the assignment coordinator so a swap can never
// bypass constraint re-evaluation.
package swap

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coastal-eats/shiftsync/pkg/core/coordinator"
	"github.com/coastal-eats/shiftsync/pkg/core/model"
	"github.com/coastal-eats/shiftsync/pkg/db"
	"github.com/coastal-eats/shiftsync/pkg/events"
)

// pendingStatuses are the non-terminal states a request can be moved out of.
var pendingStatuses = []model.SwapStatus{model.SwapPendingAcceptance, model.SwapPendingManager}

// Store is the persistence surface the workflow needs.
type Store interface {
	db.SwapStore
	db.AssignmentStore
	db.ShiftStore
	db.WorkerStore
}

// Config carries the workflow deadlines and limits.
type Config struct {
	// AcceptanceTTL is how long a swap may sit unaccepted before expiry.
	AcceptanceTTL time.Duration
	// DropExpiryLead is how long before shift start an unapproved drop
	// expires.
	DropExpiryLead time.Duration
	// MaxPendingPerWorker caps open requests per requester.
	MaxPendingPerWorker int
}

// DefaultConfig returns the standard workflow deadlines.
func DefaultConfig() Config {
	return Config{
		AcceptanceTTL:       24 * time.Hour,
		DropExpiryLead:      24 * time.Hour,
		MaxPendingPerWorker: 3,
	}
}

// Workflow drives swap/drop requests through their lifecycle.
type Workflow struct {
	store   Store
	coord   *coordinator.Coordinator
	emitter events.Emitter
	logger  *zap.Logger
	cfg     Config
	now     func() time.Time
}

// New creates a workflow.
func New(store Store, coord *coordinator.Coordinator, emitter events.Emitter, logger *zap.Logger, cfg Config) *Workflow {
	return &Workflow{
		store:   store,
		coord:   coord,
		emitter: emitter,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// FileInput describes a new swap or drop request.
type FileInput struct {
	AssignmentID uuid.UUID
	Requester    model.Actor
	// Target is the proposed counterpart for swaps; nil means drop.
	Target *uuid.UUID
	Note   string
}

// File opens a new request for the assignment. The assignment moves to
// SWAP_PENDING through the coordinator. Swaps start in PENDING_ACCEPTANCE
// awaiting the target; drops skip acceptance and go straight to
// PENDING_MANAGER.
func (w *Workflow) File(ctx context.Context, in FileInput) (model.SwapRequest, error) {
	assignment, err := w.store.GetAssignment(ctx, in.AssignmentID)
	if err != nil {
		return model.SwapRequest{}, fmt.Errorf("failed to load assignment: %w", err)
	}
	if assignment.WorkerID != in.Requester.WorkerID {
		return model.SwapRequest{}, &model.PermissionError{
			Actor:  in.Requester.Name,
			Reason: "only the assigned worker may file a swap or drop",
		}
	}
	if assignment.Status != model.StatusAssigned {
		return model.SwapRequest{}, fmt.Errorf("assignment is %s, not assigned", assignment.Status)
	}

	pending, err := w.store.CountPendingForWorker(ctx, in.Requester.WorkerID)
	if err != nil {
		return model.SwapRequest{}, fmt.Errorf("failed to count pending requests: %w", err)
	}
	if pending >= w.cfg.MaxPendingPerWorker {
		return model.SwapRequest{}, fmt.Errorf("worker already has %d pending swap/drop requests (max %d)",
			pending, w.cfg.MaxPendingPerWorker)
	}

	// An assignment may carry at most one non-terminal request.
	open, err := w.store.ListOpenSwapRequestsForShift(ctx, assignment.ShiftID)
	if err != nil {
		return model.SwapRequest{}, fmt.Errorf("failed to list open requests: %w", err)
	}
	for _, req := range open {
		if req.AssignmentID == assignment.ID {
			return model.SwapRequest{}, fmt.Errorf("assignment already has an open %s request", req.Type)
		}
	}

	shift, err := w.store.GetShift(ctx, assignment.ShiftID)
	if err != nil {
		return model.SwapRequest{}, fmt.Errorf("failed to load shift: %w", err)
	}

	now := w.now()
	req := model.SwapRequest{
		ID:            uuid.New(),
		AssignmentID:  assignment.ID,
		RequesterID:   in.Requester.WorkerID,
		TargetID:      in.Target,
		RequesterNote: in.Note,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.Target != nil {
		req.Type = model.SwapTypeSwap
		req.Status = model.SwapPendingAcceptance
		req.ExpiresAt = now.Add(w.cfg.AcceptanceTTL)
	} else {
		req.Type = model.SwapTypeDrop
		req.Status = model.SwapPendingManager
		req.ExpiresAt = shift.StartUTC.Add(-w.cfg.DropExpiryLead)
	}

	// Park the assignment first; filing fails cleanly if the section is
	// contended.
	if err := w.coord.UpdateAssignmentStatus(ctx, assignment, model.StatusSwapPending, in.Requester, "assignment.swap_pending"); err != nil {
		return model.SwapRequest{}, err
	}

	audit := model.AuditEvent{
		ID:       uuid.New(),
		ActorID:  in.Requester.WorkerID,
		Action:   "swap_request.created",
		EntityID: req.ID,
		After:    map[string]any{"type": string(req.Type), "status": string(req.Status)},
		At:       now,
	}
	if err := w.store.InsertSwapRequest(ctx, &req, audit); err != nil {
		return model.SwapRequest{}, fmt.Errorf("failed to insert swap request: %w", err)
	}

	w.emitState(req, in.Requester.Name, nil)
	w.logger.Debug("Swap request filed",
		zap.String("request_id", req.ID.String()),
		zap.String("type", string(req.Type)))
	return req, nil
}

// Accept records the target's acceptance of a swap, moving it to
// PENDING_MANAGER. Only the named target may accept, and only while the
// request is PENDING_ACCEPTANCE.
func (w *Workflow) Accept(ctx context.Context, requestID uuid.UUID, target model.Actor) (model.SwapRequest, error) {
	req, err := w.store.GetSwapRequest(ctx, requestID)
	if err != nil {
		return model.SwapRequest{}, fmt.Errorf("failed to load swap request: %w", err)
	}
	if req.Type != model.SwapTypeSwap {
		return model.SwapRequest{}, fmt.Errorf("drop requests have no acceptance step")
	}
	if req.TargetID == nil || *req.TargetID != target.WorkerID {
		return model.SwapRequest{}, &model.PermissionError{
			Actor:  target.Name,
			Reason: "only the proposed swap target may accept",
		}
	}

	now := w.now()
	req.Status = model.SwapPendingManager
	req.TargetAcceptedAt = &now
	req.UpdatedAt = now

	ok, err := w.transition(ctx, &req, []model.SwapStatus{model.SwapPendingAcceptance}, target, "swap_request.accepted")
	if err != nil {
		return model.SwapRequest{}, err
	}
	if !ok {
		return model.SwapRequest{}, fmt.Errorf("swap request is no longer awaiting acceptance")
	}

	w.emitState(req, target.Name, nil)
	return req, nil
}

// Cancel lets the requester withdraw from either pending state. The
// assignment reverts to ASSIGNED and no manager action is required.
func (w *Workflow) Cancel(ctx context.Context, requestID uuid.UUID, requester model.Actor) error {
	req, err := w.store.GetSwapRequest(ctx, requestID)
	if err != nil {
		return fmt.Errorf("failed to load swap request: %w", err)
	}
	if req.RequesterID != requester.WorkerID {
		return &model.PermissionError{Actor: requester.Name, Reason: "only the requester may cancel"}
	}

	return w.terminate(ctx, req, model.SwapCancelled, requester, "swap_request.cancelled")
}

// Approve resolves a PENDING_MANAGER request.
//
// The request is claimed first: a CAS to APPROVED fences out any
// concurrent cancel or expiry, so the reassignment that follows can
// never be half-applied by a racing transition. For a swap the target is
// then assigned through the coordinator — the availability and hours
// picture may have changed since filing, so the full constraint chain
// runs again. A rejection or contention from the coordinator reopens the
// request to PENDING_MANAGER and is returned to the manager as the
// result; on success the original assignment becomes COVERED.
//
// For a drop the original assignment becomes DROPPED and the slot
// reopens.
func (w *Workflow) Approve(ctx context.Context, requestID uuid.UUID, manager model.Actor, override *model.OverrideToken) (coordinator.Result, error) {
	req, err := w.store.GetSwapRequest(ctx, requestID)
	if err != nil {
		return coordinator.Result{}, fmt.Errorf("failed to load swap request: %w", err)
	}
	if req.Status != model.SwapPendingManager {
		return coordinator.Result{}, fmt.Errorf("swap request is %s, not awaiting manager review", req.Status)
	}
	assignment, err := w.store.GetAssignment(ctx, req.AssignmentID)
	if err != nil {
		return coordinator.Result{}, fmt.Errorf("failed to load assignment: %w", err)
	}
	shift, err := w.store.GetShift(ctx, assignment.ShiftID)
	if err != nil {
		return coordinator.Result{}, fmt.Errorf("failed to load shift: %w", err)
	}
	if !manager.ManagesLocation(shift.LocationID) {
		return coordinator.Result{Code: model.CodePermissionDenied}, nil
	}

	now := w.now()
	req.Status = model.SwapApproved
	req.ReviewedByID = &manager.WorkerID
	req.ManagerReviewedAt = &now
	req.UpdatedAt = now

	ok, err := w.transition(ctx, &req, []model.SwapStatus{model.SwapPendingManager}, manager, "swap_request.approved")
	if err != nil {
		return coordinator.Result{}, err
	}
	if !ok {
		return coordinator.Result{}, fmt.Errorf("swap request is no longer awaiting manager review")
	}

	finalStatus := model.StatusDropped
	result := coordinator.Result{Code: model.CodeOK}

	if req.Type == model.SwapTypeSwap {
		result, err = w.coord.ReassignForSwap(ctx, assignment.ShiftID, *req.TargetID, manager, override, assignment.ID)
		if err != nil {
			if reopenErr := w.reopen(ctx, &req, manager); reopenErr != nil {
				w.logger.Warn("Failed to reopen swap request after reassignment error",
					zap.String("request_id", req.ID.String()),
					zap.Error(reopenErr))
			}
			return coordinator.Result{}, err
		}
		if result.Code != model.CodeOK {
			// Constraints or contention block the hand-off; reopen the
			// request so the manager can retry or reject.
			if err := w.reopen(ctx, &req, manager); err != nil {
				return result, err
			}
			return result, nil
		}
		finalStatus = model.StatusCovered
	}

	if err := w.coord.UpdateAssignmentStatus(ctx, assignment, finalStatus, manager, "assignment."+string(finalStatus)); err != nil {
		return coordinator.Result{}, err
	}

	w.emitState(req, manager.Name, nil)
	w.logger.Debug("Swap request approved",
		zap.String("request_id", req.ID.String()),
		zap.String("type", string(req.Type)))
	return result, nil
}

// reopen rolls a freshly claimed request back to PENDING_MANAGER after a
// blocked or failed reassignment, clearing the review fields.
func (w *Workflow) reopen(ctx context.Context, req *model.SwapRequest, manager model.Actor) error {
	req.Status = model.SwapPendingManager
	req.ReviewedByID = nil
	req.ManagerReviewedAt = nil
	req.UpdatedAt = w.now()

	ok, err := w.transition(ctx, req, []model.SwapStatus{model.SwapApproved}, manager, "swap_request.reopened")
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("failed to reopen swap request")
	}
	return nil
}

// Reject resolves a PENDING_MANAGER request against the requester. The
// assignment reverts to ASSIGNED.
func (w *Workflow) Reject(ctx context.Context, requestID uuid.UUID, manager model.Actor, note string) error {
	req, err := w.store.GetSwapRequest(ctx, requestID)
	if err != nil {
		return fmt.Errorf("failed to load swap request: %w", err)
	}
	if req.Status != model.SwapPendingManager {
		return fmt.Errorf("swap request is %s, not awaiting manager review", req.Status)
	}
	assignment, err := w.store.GetAssignment(ctx, req.AssignmentID)
	if err != nil {
		return fmt.Errorf("failed to load assignment: %w", err)
	}
	shift, err := w.store.GetShift(ctx, assignment.ShiftID)
	if err != nil {
		return fmt.Errorf("failed to load shift: %w", err)
	}
	if !manager.ManagesLocation(shift.LocationID) {
		return &model.PermissionError{Actor: manager.Name, Reason: "does not manage this shift's location"}
	}

	now := w.now()
	req.ManagerNote = note
	req.ReviewedByID = &manager.WorkerID
	req.ManagerReviewedAt = &now
	return w.terminateLoaded(ctx, req, assignment, model.SwapRejected, []model.SwapStatus{model.SwapPendingManager}, manager, "swap_request.rejected")
}

// ExpireIfDue moves the request to EXPIRED when its deadline has passed.
// It is idempotent: repeated invocations after the first transition are
// no-ops, and a request that already reached a terminal state is left
// untouched. The caller supplies now; the workflow owns no timers.
func (w *Workflow) ExpireIfDue(ctx context.Context, requestID uuid.UUID, now time.Time) (bool, error) {
	req, err := w.store.GetSwapRequest(ctx, requestID)
	if err != nil {
		return false, fmt.Errorf("failed to load swap request: %w", err)
	}
	if req.Status.IsTerminal() {
		return false, nil
	}
	if req.ExpiresAt.After(now) {
		return false, nil
	}

	system := model.Actor{Name: "system", Role: model.RoleAdmin}
	assignment, err := w.store.GetAssignment(ctx, req.AssignmentID)
	if err != nil {
		return false, fmt.Errorf("failed to load assignment: %w", err)
	}

	previous := req.Status
	req.Status = model.SwapExpired
	req.UpdatedAt = now
	ok, err := w.transition(ctx, &req, pendingStatuses, system, "swap_request.expired")
	if err != nil {
		return false, err
	}
	if !ok {
		// Lost a race with another sweep or a concurrent transition.
		return false, nil
	}

	if err := w.coord.UpdateAssignmentStatus(ctx, assignment, model.StatusAssigned, system, "assignment.reverted"); err != nil {
		// Put the request back in its pending state so the next sweep
		// retries the revert instead of stranding the assignment in
		// SWAP_PENDING behind a terminal request.
		req.Status = previous
		req.UpdatedAt = w.now()
		if _, rbErr := w.store.TransitionSwapRequest(ctx, &req, []model.SwapStatus{model.SwapExpired}, model.AuditEvent{
			ID:       uuid.New(),
			ActorID:  system.WorkerID,
			Action:   "swap_request.reopened",
			EntityID: req.ID,
			After:    map[string]any{"status": string(previous)},
			At:       w.now(),
		}); rbErr != nil {
			w.logger.Warn("Failed to reopen swap request after revert failure",
				zap.String("request_id", req.ID.String()),
				zap.Error(rbErr))
		}
		return false, err
	}
	w.emitState(req, system.Name, map[string]any{"expired_at": now})
	w.logger.Info("Swap request expired",
		zap.String("request_id", req.ID.String()))
	return true, nil
}

// ExpireDue sweeps every non-terminal request whose deadline has passed.
// Invoked by an external periodic trigger.
func (w *Workflow) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	due, err := w.store.ListDueSwapRequests(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list due swap requests: %w", err)
	}

	count := 0
	for _, req := range due {
		expired, err := w.ExpireIfDue(ctx, req.ID, now)
		if err != nil {
			w.logger.Warn("Failed to expire swap request",
				zap.String("request_id", req.ID.String()),
				zap.Error(err))
			continue
		}
		if expired {
			count++
		}
	}
	if count > 0 {
		w.logger.Info("Expired swap requests", zap.Int("count", count))
	}
	return count, nil
}

// HandleShiftEdited force-cancels every non-terminal request contesting
// an assignment of the edited shift. Consistency wins over preserving an
// in-flight negotiation: the availability picture the parties agreed on
// no longer exists.
func (w *Workflow) HandleShiftEdited(ctx context.Context, shiftID uuid.UUID, actor model.Actor) (int, error) {
	open, err := w.store.ListOpenSwapRequestsForShift(ctx, shiftID)
	if err != nil {
		return 0, fmt.Errorf("failed to list open requests: %w", err)
	}

	count := 0
	for _, req := range open {
		if err := w.terminate(ctx, req, model.SwapCancelled, actor, "swap_request.cancelled_shift_edited"); err != nil {
			w.logger.Warn("Failed to cancel swap request after shift edit",
				zap.String("request_id", req.ID.String()),
				zap.Error(err))
			continue
		}
		count++
	}
	return count, nil
}

// terminate moves a request from any pending state to the given terminal
// state and reverts its assignment to ASSIGNED.
func (w *Workflow) terminate(ctx context.Context, req model.SwapRequest, status model.SwapStatus, actor model.Actor, action string) error {
	assignment, err := w.store.GetAssignment(ctx, req.AssignmentID)
	if err != nil {
		return fmt.Errorf("failed to load assignment: %w", err)
	}
	return w.terminateLoaded(ctx, req, assignment, status, pendingStatuses, actor, action)
}

func (w *Workflow) terminateLoaded(ctx context.Context, req model.SwapRequest, assignment model.Assignment, status model.SwapStatus, from []model.SwapStatus, actor model.Actor, action string) error {
	req.Status = status
	req.UpdatedAt = w.now()

	ok, err := w.transition(ctx, &req, from, actor, action)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("swap request already resolved")
	}

	if err := w.coord.UpdateAssignmentStatus(ctx, assignment, model.StatusAssigned, actor, "assignment.reverted"); err != nil {
		return err
	}
	w.emitState(req, actor.Name, nil)
	return nil
}

func (w *Workflow) transition(ctx context.Context, req *model.SwapRequest, from []model.SwapStatus, actor model.Actor, action string) (bool, error) {
	audit := model.AuditEvent{
		ID:       uuid.New(),
		ActorID:  actor.WorkerID,
		Action:   action,
		EntityID: req.ID,
		After:    map[string]any{"status": string(req.Status)},
		At:       w.now(),
	}
	ok, err := w.store.TransitionSwapRequest(ctx, req, from, audit)
	if err != nil {
		return false, fmt.Errorf("failed to transition swap request: %w", err)
	}
	return ok, nil
}

// emitState notifies all interested parties of a state change. The
// payload detail names the parties so the delivery collaborator can fan
// out per recipient.
func (w *Workflow) emitState(req model.SwapRequest, actorName string, extra map[string]any) {
	detail := map[string]any{
		"status":       string(req.Status),
		"type":         string(req.Type),
		"requester_id": req.RequesterID.String(),
	}
	if req.TargetID != nil {
		detail["target_id"] = req.TargetID.String()
	}
	for k, v := range extra {
		detail[k] = v
	}
	p := events.Payload{
		Type:      events.TypeSwapStateChanged,
		EntityID:  req.ID,
		Actor:     actorName,
		Timestamp: w.now(),
		Detail:    detail,
	}
	if err := w.emitter.Emit(p); err != nil {
		w.logger.Warn("Failed to emit swap event", zap.Error(err))
	}
}
