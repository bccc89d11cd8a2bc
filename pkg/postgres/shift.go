package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/coastal-eats/shiftsync/pkg/core/model"
)

// GetShift retrieves a single shift by ID.
func (d *DB) GetShift(ctx context.Context, id uuid.UUID) (model.Shift, error) {
	var s model.Shift
	err := d.pool.QueryRow(ctx, `
		SELECT id, location_id, required_skill, headcount_need, start_utc, end_utc,
		       is_published, published_at, edit_cutoff_hrs, notes, created_by_id
		FROM shift
		WHERE id = $1
	`, id).Scan(&s.ID, &s.LocationID, &s.RequiredSkill, &s.HeadcountNeed, &s.StartUTC, &s.EndUTC,
		&s.IsPublished, &s.PublishedAt, &s.EditCutoffHrs, &s.Notes, &s.CreatedByID)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Shift{}, model.ErrNotFound
	}
	if err != nil {
		return model.Shift{}, fmt.Errorf("failed to query shift: %w", err)
	}
	return s, nil
}

// GetLocation retrieves a single location by ID.
func (d *DB) GetLocation(ctx context.Context, id uuid.UUID) (model.Location, error) {
	var l model.Location
	err := d.pool.QueryRow(ctx, `
		SELECT id, name, timezone, is_active
		FROM location
		WHERE id = $1
	`, id).Scan(&l.ID, &l.Name, &l.Timezone, &l.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Location{}, model.ErrNotFound
	}
	if err != nil {
		return model.Location{}, fmt.Errorf("failed to query location: %w", err)
	}
	return l, nil
}

// InsertShifts inserts a batch of shifts and the audit event describing the
// batch in one transaction. Used by series generation so a partial series
// never commits.
func (d *DB) InsertShifts(ctx context.Context, shifts []model.Shift, audit model.AuditEvent) error {
	if len(shifts) == 0 {
		return nil
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, s := range shifts {
		_, err := tx.Exec(ctx, `
			INSERT INTO shift (id, location_id, required_skill, headcount_need, start_utc, end_utc,
			                   is_published, published_at, edit_cutoff_hrs, notes, created_by_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, s.ID, s.LocationID, s.RequiredSkill, s.HeadcountNeed, s.StartUTC, s.EndUTC,
			s.IsPublished, s.PublishedAt, s.EditCutoffHrs, s.Notes, s.CreatedByID)
		if err != nil {
			return fmt.Errorf("failed to insert shift: %w", err)
		}
	}

	if err := insertAudit(ctx, tx, audit); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// UpdateShift rewrites a shift row and records the audit event in the same
// transaction.
func (d *DB) UpdateShift(ctx context.Context, shift model.Shift, audit model.AuditEvent) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE shift
		SET location_id = $2, required_skill = $3, headcount_need = $4, start_utc = $5,
		    end_utc = $6, is_published = $7, published_at = $8, edit_cutoff_hrs = $9, notes = $10
		WHERE id = $1
	`, shift.ID, shift.LocationID, shift.RequiredSkill, shift.HeadcountNeed, shift.StartUTC,
		shift.EndUTC, shift.IsPublished, shift.PublishedAt, shift.EditCutoffHrs, shift.Notes)
	if err != nil {
		return fmt.Errorf("failed to update shift: %w", err)
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
