package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/coastal-eats/shiftsync/pkg/core/model"
)

// GetWorker retrieves a worker with their skills and, for managers, the
// locations they manage.
func (d *DB) GetWorker(ctx context.Context, id uuid.UUID) (model.Worker, error) {
	var w model.Worker
	err := d.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, email, role, is_active, skills
		FROM worker
		WHERE id = $1
	`, id).Scan(&w.ID, &w.FirstName, &w.LastName, &w.Email, &w.Role, &w.IsActive, &w.Skills)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Worker{}, model.ErrNotFound
	}
	if err != nil {
		return model.Worker{}, fmt.Errorf("failed to query worker: %w", err)
	}

	if w.Role == model.RoleManager {
		w.ManagedLocationIDs, err = d.managedLocations(ctx, id)
		if err != nil {
			return model.Worker{}, err
		}
	}

	return w, nil
}

func (d *DB) managedLocations(ctx context.Context, workerID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT location_id FROM manager_location WHERE worker_id = $1
	`, workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query managed locations: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan managed location: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating managed locations: %w", err)
	}

	return ids, nil
}

func (d *DB) workerCertifications(ctx context.Context, workerID uuid.UUID) ([]model.Certification, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, worker_id, location_id, is_active
		FROM certification
		WHERE worker_id = $1
	`, workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query certifications: %w", err)
	}
	defer rows.Close()

	var certs []model.Certification
	for rows.Next() {
		var c model.Certification
		if err := rows.Scan(&c.ID, &c.WorkerID, &c.LocationID, &c.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan certification: %w", err)
		}
		certs = append(certs, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating certifications: %w", err)
	}

	return certs, nil
}

func (d *DB) workerAvailability(ctx context.Context, workerID uuid.UUID) ([]model.AvailabilityWindow, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, worker_id, recurrence, day_of_week, specific_date, start_time, end_time, timezone, notes
		FROM availability_window
		WHERE worker_id = $1 AND superseded_at IS NULL
	`, workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query availability windows: %w", err)
	}
	defer rows.Close()

	var windows []model.AvailabilityWindow
	for rows.Next() {
		var av model.AvailabilityWindow
		var dayOfWeek *int
		var specificDate, startTime, endTime *string
		err := rows.Scan(&av.ID, &av.WorkerID, &av.Recurrence, &dayOfWeek, &specificDate,
			&startTime, &endTime, &av.Timezone, &av.Notes)
		if err != nil {
			return nil, fmt.Errorf("failed to scan availability window: %w", err)
		}
		if dayOfWeek != nil {
			av.DayOfWeek = *dayOfWeek
		}
		if specificDate != nil {
			av.SpecificDate = *specificDate
		}
		if startTime != nil {
			av.StartTime = *startTime
		}
		if endTime != nil {
			av.EndTime = *endTime
		}
		windows = append(windows, av)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating availability windows: %w", err)
	}

	return windows, nil
}
