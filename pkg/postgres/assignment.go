package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/coastal-eats/shiftsync/pkg/core/model"
)

// GetAssignment retrieves a single assignment by ID.
func (d *DB) GetAssignment(ctx context.Context, id uuid.UUID) (model.Assignment, error) {
	var a model.Assignment
	err := d.pool.QueryRow(ctx, `
		SELECT id, shift_id, worker_id, status, assigned_by_id, assigned_at, updated_at
		FROM assignment
		WHERE id = $1
	`, id).Scan(&a.ID, &a.ShiftID, &a.WorkerID, &a.Status, &a.AssignedByID, &a.AssignedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Assignment{}, model.ErrNotFound
	}
	if err != nil {
		return model.Assignment{}, fmt.Errorf("failed to query assignment: %w", err)
	}
	return a, nil
}

// CommitAssignment inserts the assignment and its audit event in one
// transaction. The partial unique index on active assignments backstops the
// exclusive section: a racing duplicate fails here rather than committing.
func (d *DB) CommitAssignment(ctx context.Context, a *model.Assignment, audit model.AuditEvent) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO assignment (id, shift_id, worker_id, status, assigned_by_id, assigned_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.ShiftID, a.WorkerID, a.Status, a.AssignedByID, a.AssignedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert assignment: %w", err)
	}

	if err := insertAudit(ctx, tx, audit); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// UpdateAssignmentStatus moves an assignment to a new status and records the
// audit event in the same transaction.
func (d *DB) UpdateAssignmentStatus(ctx context.Context, id uuid.UUID, status model.AssignmentStatus, audit model.AuditEvent) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE assignment SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update assignment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	if err := insertAudit(ctx, tx, audit); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
