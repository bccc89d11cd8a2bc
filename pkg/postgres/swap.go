package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/coastal-eats/shiftsync/pkg/core/model"
)

const swapColumns = `id, type, status, assignment_id, requester_id, target_id, reviewed_by_id,
	requester_note, manager_note, target_accepted_at, manager_reviewed_at, expires_at, created_at, updated_at`

func scanSwapRequest(row pgx.Row) (model.SwapRequest, error) {
	var r model.SwapRequest
	err := row.Scan(&r.ID, &r.Type, &r.Status, &r.AssignmentID, &r.RequesterID, &r.TargetID,
		&r.ReviewedByID, &r.RequesterNote, &r.ManagerNote, &r.TargetAcceptedAt,
		&r.ManagerReviewedAt, &r.ExpiresAt, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// GetSwapRequest retrieves a single swap request by ID.
func (d *DB) GetSwapRequest(ctx context.Context, id uuid.UUID) (model.SwapRequest, error) {
	r, err := scanSwapRequest(d.pool.QueryRow(ctx, `
		SELECT `+swapColumns+` FROM swap_request WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.SwapRequest{}, model.ErrNotFound
	}
	if err != nil {
		return model.SwapRequest{}, fmt.Errorf("failed to query swap request: %w", err)
	}
	return r, nil
}

// InsertSwapRequest creates a swap request and its audit event in one
// transaction. The partial unique index on open requests per assignment
// rejects a racing second request.
func (d *DB) InsertSwapRequest(ctx context.Context, req *model.SwapRequest, audit model.AuditEvent) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO swap_request (`+swapColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, req.ID, req.Type, req.Status, req.AssignmentID, req.RequesterID, req.TargetID,
		req.ReviewedByID, req.RequesterNote, req.ManagerNote, req.TargetAcceptedAt,
		req.ManagerReviewedAt, req.ExpiresAt, req.CreatedAt, req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert swap request: %w", err)
	}

	if err := insertAudit(ctx, tx, audit); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// TransitionSwapRequest applies the state in req iff the stored row is
// still in one of the from statuses, writing the audit event in the same
// transaction. Returns false when the row had already moved on, so racing
// transitions and repeated sweeps are no-ops rather than errors.
func (d *DB) TransitionSwapRequest(ctx context.Context, req *model.SwapRequest, from []model.SwapStatus, audit model.AuditEvent) (bool, error) {
	fromStrs := make([]string, len(from))
	for i, s := range from {
		fromStrs[i] = string(s)
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE swap_request
		SET status = $2, reviewed_by_id = $3, manager_note = $4,
		    target_accepted_at = $5, manager_reviewed_at = $6, updated_at = $7
		WHERE id = $1 AND status = ANY($8)
	`, req.ID, req.Status, req.ReviewedByID, req.ManagerNote,
		req.TargetAcceptedAt, req.ManagerReviewedAt, req.UpdatedAt, fromStrs)
	if err != nil {
		return false, fmt.Errorf("failed to transition swap request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if err := insertAudit(ctx, tx, audit); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return true, nil
}

// CountPendingForWorker counts the worker's open requests, for the
// per-worker pending cap.
func (d *DB) CountPendingForWorker(ctx context.Context, workerID uuid.UUID) (int, error) {
	var count int
	err := d.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM swap_request
		WHERE requester_id = $1 AND status IN ('pending_acceptance', 'pending_manager')
	`, workerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending swap requests: %w", err)
	}
	return count, nil
}

// ListDueSwapRequests returns open requests whose expiry instant has
// passed, for the sweep.
func (d *DB) ListDueSwapRequests(ctx context.Context, now time.Time) ([]model.SwapRequest, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+swapColumns+` FROM swap_request
		WHERE status IN ('pending_acceptance', 'pending_manager') AND expires_at <= $1
		ORDER BY expires_at
	`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due swap requests: %w", err)
	}
	defer rows.Close()

	return collectSwapRequests(rows)
}

// ListOpenSwapRequestsForShift returns non-terminal requests over any
// assignment of the given shift.
func (d *DB) ListOpenSwapRequestsForShift(ctx context.Context, shiftID uuid.UUID) ([]model.SwapRequest, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+swapColumnsPrefixed("r")+`
		FROM swap_request r
		JOIN assignment a ON a.id = r.assignment_id
		WHERE a.shift_id = $1 AND r.status IN ('pending_acceptance', 'pending_manager')
	`, shiftID)
	if err != nil {
		return nil, fmt.Errorf("failed to query open swap requests: %w", err)
	}
	defer rows.Close()

	return collectSwapRequests(rows)
}

func collectSwapRequests(rows pgx.Rows) ([]model.SwapRequest, error) {
	var reqs []model.SwapRequest
	for rows.Next() {
		r, err := scanSwapRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan swap request: %w", err)
		}
		reqs = append(reqs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating swap requests: %w", err)
	}

	return reqs, nil
}

func swapColumnsPrefixed(alias string) string {
	cols := ""
	for i, c := range []string{
		"id", "type", "status", "assignment_id", "requester_id", "target_id", "reviewed_by_id",
		"requester_note", "manager_note", "target_accepted_at", "manager_reviewed_at",
		"expires_at", "created_at", "updated_at",
	} {
		if i > 0 {
			cols += ", "
		}
		cols += alias + "." + c
	}
	return cols
}
