package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/coastal-eats/shiftsync/pkg/core/constraint"
)

// BuildSnapshot assembles the committed-data view a single evaluation runs
// against: the shift, its location, the candidate worker's full picture,
// and the other skill-holding workers considered for suggestions.
//
// Consistency: callers hold the exclusive section for the shift and
// worker keys, so nothing can write the evaluated pairing between these
// reads and the commit that follows. The suggestion candidates (Others)
// are read outside any lock and may be slightly stale; that is fine —
// suggestions are advisory, and accepting one goes through TryAssign,
// which re-reads under its own section.
func (d *DB) BuildSnapshot(ctx context.Context, shiftID, workerID uuid.UUID, asOf time.Time) (*constraint.Snapshot, error) {
	shift, err := d.GetShift(ctx, shiftID)
	if err != nil {
		return nil, fmt.Errorf("failed to load shift for snapshot: %w", err)
	}

	location, err := d.GetLocation(ctx, shift.LocationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load location for snapshot: %w", err)
	}

	candidate, err := d.loadWorkerData(ctx, workerID)
	if err != nil {
		return nil, err
	}

	others, err := d.loadAlternatives(ctx, shift.RequiredSkill, workerID)
	if err != nil {
		return nil, err
	}

	return &constraint.Snapshot{
		TakenAt:  asOf,
		Shift:    shift,
		Location: location,
		Worker:   candidate,
		Others:   others,
	}, nil
}

func (d *DB) loadWorkerData(ctx context.Context, workerID uuid.UUID) (constraint.WorkerData, error) {
	worker, err := d.GetWorker(ctx, workerID)
	if err != nil {
		return constraint.WorkerData{}, fmt.Errorf("failed to load worker for snapshot: %w", err)
	}

	certs, err := d.workerCertifications(ctx, workerID)
	if err != nil {
		return constraint.WorkerData{}, err
	}

	availability, err := d.workerAvailability(ctx, workerID)
	if err != nil {
		return constraint.WorkerData{}, err
	}

	assignments, err := d.activeAssignments(ctx, workerID)
	if err != nil {
		return constraint.WorkerData{}, err
	}

	return constraint.WorkerData{
		Worker:         worker,
		Certifications: certs,
		Availability:   availability,
		Assignments:    assignments,
	}, nil
}

// activeAssignments loads the worker's ASSIGNED/SWAP_PENDING assignments
// with their shifts and locations attached.
func (d *DB) activeAssignments(ctx context.Context, workerID uuid.UUID) ([]constraint.AssignedShift, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT a.id, a.shift_id, a.worker_id, a.status, a.assigned_by_id, a.assigned_at, a.updated_at,
		       s.id, s.location_id, s.required_skill, s.headcount_need, s.start_utc, s.end_utc,
		       s.is_published, s.published_at, s.edit_cutoff_hrs, s.notes, s.created_by_id,
		       l.id, l.name, l.timezone, l.is_active
		FROM assignment a
		JOIN shift s ON s.id = a.shift_id
		JOIN location l ON l.id = s.location_id
		WHERE a.worker_id = $1 AND a.status IN ('assigned', 'swap_pending')
	`, workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query active assignments: %w", err)
	}
	defer rows.Close()

	var assigned []constraint.AssignedShift
	for rows.Next() {
		var as constraint.AssignedShift
		a, s, l := &as.Assignment, &as.Shift, &as.Location
		err := rows.Scan(&a.ID, &a.ShiftID, &a.WorkerID, &a.Status, &a.AssignedByID, &a.AssignedAt, &a.UpdatedAt,
			&s.ID, &s.LocationID, &s.RequiredSkill, &s.HeadcountNeed, &s.StartUTC, &s.EndUTC,
			&s.IsPublished, &s.PublishedAt, &s.EditCutoffHrs, &s.Notes, &s.CreatedByID,
			&l.ID, &l.Name, &l.Timezone, &l.IsActive)
		if err != nil {
			return nil, fmt.Errorf("failed to scan active assignment: %w", err)
		}
		assigned = append(assigned, as)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating active assignments: %w", err)
	}

	return assigned, nil
}

// loadAlternatives loads every other active worker holding the required
// skill. The engine filters them through the hard rules; this only narrows
// the pool enough to keep the read cheap.
func (d *DB) loadAlternatives(ctx context.Context, requiredSkill string, excludeWorkerID uuid.UUID) ([]constraint.WorkerData, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id FROM worker
		WHERE is_active AND $1 = ANY(skills) AND id != $2
	`, requiredSkill, excludeWorkerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query alternative workers: %w", err)
	}

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan alternative worker: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alternative workers: %w", err)
	}

	others := make([]constraint.WorkerData, 0, len(ids))
	for _, id := range ids {
		wd, err := d.loadWorkerData(ctx, id)
		if err != nil {
			return nil, err
		}
		others = append(others, wd)
	}

	return others, nil
}
