// Package services holds the scheduling operations that sit above a
// single assignment: shift series definition and shift editing.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/coastal-eats/shiftsync/pkg/core/model"
	"github.com/coastal-eats/shiftsync/pkg/core/timewindow"
	"github.com/coastal-eats/shiftsync/pkg/db"
)

// SeriesInput describes a recurring shift template to expand into
// concrete shifts.
type SeriesInput struct {
	LocationID    uuid.UUID
	RequiredSkill string
	Headcount     int

	// RRule is an RFC 5545 recurrence rule selecting the local dates,
	// e.g. "FREQ=WEEKLY;BYDAY=FR,SA;COUNT=8".
	RRule string

	// StartTime/EndTime are local wall-clock times formatted 15:04 in the
	// location's timezone. An end at or before the start crosses local
	// midnight.
	StartTime string
	EndTime   string

	// From bounds the expansion start (local date).
	From time.Time

	EditCutoffHrs int
	Notes         string
}

// SeriesResult contains the expanded shifts.
type SeriesResult struct {
	Shifts  []model.Shift
	Skipped []time.Time
}

// DefineShiftSeries expands a recurring template into concrete shifts
// with UTC instants and persists them.
//
// Dates whose local start or end time falls on a DST transition are
// skipped and reported back rather than silently shifted; the manager
// creates those shifts individually after confirming the intended
// instant.
func DefineShiftSeries(ctx context.Context, store db.ShiftStore, logger *zap.Logger, actor model.Actor, in SeriesInput) (*SeriesResult, error) {
	if in.Headcount <= 0 {
		return nil, fmt.Errorf("headcount must be positive, got %d", in.Headcount)
	}
	if !actor.ManagesLocation(in.LocationID) {
		return nil, &model.PermissionError{Actor: actor.Name, Reason: "does not manage this location"}
	}

	location, err := store.GetLocation(ctx, in.LocationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load location: %w", err)
	}

	rule, err := rrule.StrToRRule(in.RRule)
	if err != nil {
		return nil, fmt.Errorf("invalid recurrence rule: %w", err)
	}
	rule.DTStart(time.Date(in.From.Year(), in.From.Month(), in.From.Day(), 0, 0, 0, 0, time.UTC))

	startHour, startMin, err := parseClock(in.StartTime)
	if err != nil {
		return nil, err
	}
	endHour, endMin, err := parseClock(in.EndTime)
	if err != nil {
		return nil, err
	}

	logger.Debug("Expanding shift series",
		zap.String("location", location.Name),
		zap.String("rrule", in.RRule))

	cutoff := in.EditCutoffHrs
	if cutoff <= 0 {
		cutoff = 48
	}

	result := &SeriesResult{}
	for _, date := range rule.All() {
		window, err := timewindow.NormalizeWindow(date, startHour, startMin, endHour, endMin, location.Timezone)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize %s: %w", date.Format("2006-01-02"), err)
		}
		if !window.IsResolved() {
			result.Skipped = append(result.Skipped, date)
			logger.Info("Skipping shift on DST transition date",
				zap.String("date", date.Format("2006-01-02")))
			continue
		}

		result.Shifts = append(result.Shifts, model.Shift{
			ID:            uuid.New(),
			LocationID:    in.LocationID,
			RequiredSkill: in.RequiredSkill,
			HeadcountNeed: in.Headcount,
			StartUTC:      window.StartUTC,
			EndUTC:        window.EndUTC,
			EditCutoffHrs: cutoff,
			Notes:         in.Notes,
			CreatedByID:   actor.WorkerID,
		})
	}

	if len(result.Shifts) == 0 {
		return nil, fmt.Errorf("recurrence rule produced no usable shift dates")
	}

	audit := model.AuditEvent{
		ID:       uuid.New(),
		ActorID:  actor.WorkerID,
		Action:   "shift.series_created",
		EntityID: result.Shifts[0].ID,
		After: map[string]any{
			"count":    len(result.Shifts),
			"location": location.Name,
			"rrule":    in.RRule,
		},
		At: time.Now(),
	}
	if err := store.InsertShifts(ctx, result.Shifts, audit); err != nil {
		return nil, fmt.Errorf("failed to insert shifts: %w", err)
	}

	logger.Info("Shift series created",
		zap.Int("shifts", len(result.Shifts)),
		zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

func parseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}
