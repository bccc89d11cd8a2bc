package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coastal-eats/shiftsync/pkg/core/model"
	"github.com/coastal-eats/shiftsync/pkg/core/swap"
	"github.com/coastal-eats/shiftsync/pkg/db"
)

// EditShiftInput describes an edit to an existing shift. Nil fields are
// left unchanged.
type EditShiftInput struct {
	ShiftID       uuid.UUID
	StartUTC      *time.Time
	EndUTC        *time.Time
	LocationID    *uuid.UUID
	RequiredSkill *string
	Headcount     *int
	Notes         *string

	// Override authorizes a material edit past the shift's edit cutoff.
	Override *model.OverrideToken
}

// isMaterial reports whether the edit changes time, location or skill —
// the changes that invalidate an in-flight swap negotiation.
func (in EditShiftInput) isMaterial() bool {
	return in.StartUTC != nil || in.EndUTC != nil || in.LocationID != nil || in.RequiredSkill != nil
}

// EditShift applies an edit to a shift.
//
// Material edits (time, location, skill) past the edit cutoff require an
// override token. A material edit force-cancels every non-terminal swap
// request contesting the shift's assignments.
func EditShift(ctx context.Context, store db.ShiftStore, workflow *swap.Workflow, logger *zap.Logger, actor model.Actor, in EditShiftInput) (model.Shift, error) {
	shift, err := store.GetShift(ctx, in.ShiftID)
	if err != nil {
		return model.Shift{}, fmt.Errorf("failed to load shift: %w", err)
	}
	if !actor.ManagesLocation(shift.LocationID) {
		return model.Shift{}, &model.PermissionError{Actor: actor.Name, Reason: "does not manage this shift's location"}
	}

	now := time.Now()
	if in.isMaterial() && shift.IsPastEditCutoff(now) && !in.Override.Covers("edit_cutoff") {
		return model.Shift{}, fmt.Errorf("shift is within %dh of start; material edits require a manager override", shift.EditCutoffHrs)
	}

	before := map[string]any{
		"start_utc": shift.StartUTC,
		"end_utc":   shift.EndUTC,
		"location":  shift.LocationID.String(),
		"skill":     shift.RequiredSkill,
	}

	if in.StartUTC != nil {
		shift.StartUTC = *in.StartUTC
	}
	if in.EndUTC != nil {
		shift.EndUTC = *in.EndUTC
	}
	if !shift.EndUTC.After(shift.StartUTC) {
		return model.Shift{}, fmt.Errorf("shift end must be after start")
	}
	if in.LocationID != nil {
		shift.LocationID = *in.LocationID
	}
	if in.RequiredSkill != nil {
		shift.RequiredSkill = *in.RequiredSkill
	}
	if in.Headcount != nil {
		shift.HeadcountNeed = *in.Headcount
	}
	if in.Notes != nil {
		shift.Notes = *in.Notes
	}

	audit := model.AuditEvent{
		ID:       uuid.New(),
		ActorID:  actor.WorkerID,
		Action:   "shift.updated",
		EntityID: shift.ID,
		Before:   before,
		After: map[string]any{
			"start_utc": shift.StartUTC,
			"end_utc":   shift.EndUTC,
			"location":  shift.LocationID.String(),
			"skill":     shift.RequiredSkill,
		},
		At: now,
	}
	if err := store.UpdateShift(ctx, shift, audit); err != nil {
		return model.Shift{}, fmt.Errorf("failed to update shift: %w", err)
	}

	if in.isMaterial() {
		cancelled, err := workflow.HandleShiftEdited(ctx, shift.ID, actor)
		if err != nil {
			return model.Shift{}, err
		}
		if cancelled > 0 {
			logger.Info("Cancelled swap requests after material shift edit",
				zap.String("shift_id", shift.ID.String()),
				zap.Int("count", cancelled))
		}
	}

	return shift, nil
}
