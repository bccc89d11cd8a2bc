package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/coastal-eats/shiftsync/pkg/core/constraint"
	"github.com/coastal-eats/shiftsync/pkg/core/coordinator"
	"github.com/coastal-eats/shiftsync/pkg/core/model"
	"github.com/coastal-eats/shiftsync/pkg/core/swap"
	"github.com/coastal-eats/shiftsync/pkg/events"
)

// memStore is the minimal persistence fake the services need: shifts and
// locations for series expansion and edits, plus assignments and swap
// requests so a material edit can exercise the cancellation hook.
type memStore struct {
	locations   map[uuid.UUID]model.Location
	shifts      map[uuid.UUID]model.Shift
	assignments map[uuid.UUID]model.Assignment
	swaps       map[uuid.UUID]model.SwapRequest
	audits      []model.AuditEvent
}

func newMemStore() *memStore {
	return &memStore{
		locations:   make(map[uuid.UUID]model.Location),
		shifts:      make(map[uuid.UUID]model.Shift),
		assignments: make(map[uuid.UUID]model.Assignment),
		swaps:       make(map[uuid.UUID]model.SwapRequest),
	}
}

func (m *memStore) GetShift(ctx context.Context, id uuid.UUID) (model.Shift, error) {
	s, ok := m.shifts[id]
	if !ok {
		return model.Shift{}, model.ErrNotFound
	}
	return s, nil
}

func (m *memStore) GetLocation(ctx context.Context, id uuid.UUID) (model.Location, error) {
	l, ok := m.locations[id]
	if !ok {
		return model.Location{}, model.ErrNotFound
	}
	return l, nil
}

func (m *memStore) InsertShifts(ctx context.Context, shifts []model.Shift, audit model.AuditEvent) error {
	for _, s := range shifts {
		m.shifts[s.ID] = s
	}
	m.audits = append(m.audits, audit)
	return nil
}

func (m *memStore) UpdateShift(ctx context.Context, shift model.Shift, audit model.AuditEvent) error {
	if _, ok := m.shifts[shift.ID]; !ok {
		return model.ErrNotFound
	}
	m.shifts[shift.ID] = shift
	m.audits = append(m.audits, audit)
	return nil
}

func (m *memStore) GetWorker(ctx context.Context, id uuid.UUID) (model.Worker, error) {
	return model.Worker{}, model.ErrNotFound
}

func (m *memStore) GetAssignment(ctx context.Context, id uuid.UUID) (model.Assignment, error) {
	a, ok := m.assignments[id]
	if !ok {
		return model.Assignment{}, model.ErrNotFound
	}
	return a, nil
}

func (m *memStore) CommitAssignment(ctx context.Context, a *model.Assignment, audit model.AuditEvent) error {
	m.assignments[a.ID] = *a
	m.audits = append(m.audits, audit)
	return nil
}

func (m *memStore) UpdateAssignmentStatus(ctx context.Context, id uuid.UUID, status model.AssignmentStatus, audit model.AuditEvent) error {
	a, ok := m.assignments[id]
	if !ok {
		return model.ErrNotFound
	}
	a.Status = status
	m.assignments[id] = a
	m.audits = append(m.audits, audit)
	return nil
}

func (m *memStore) GetSwapRequest(ctx context.Context, id uuid.UUID) (model.SwapRequest, error) {
	r, ok := m.swaps[id]
	if !ok {
		return model.SwapRequest{}, model.ErrNotFound
	}
	return r, nil
}

func (m *memStore) InsertSwapRequest(ctx context.Context, req *model.SwapRequest, audit model.AuditEvent) error {
	m.swaps[req.ID] = *req
	m.audits = append(m.audits, audit)
	return nil
}

func (m *memStore) TransitionSwapRequest(ctx context.Context, req *model.SwapRequest, from []model.SwapStatus, audit model.AuditEvent) (bool, error) {
	stored, ok := m.swaps[req.ID]
	if !ok {
		return false, model.ErrNotFound
	}
	for _, s := range from {
		if stored.Status == s {
			m.swaps[req.ID] = *req
			m.audits = append(m.audits, audit)
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CountPendingForWorker(ctx context.Context, workerID uuid.UUID) (int, error) {
	count := 0
	for _, r := range m.swaps {
		if r.RequesterID == workerID && !r.Status.IsTerminal() {
			count++
		}
	}
	return count, nil
}

func (m *memStore) ListDueSwapRequests(ctx context.Context, now time.Time) ([]model.SwapRequest, error) {
	return nil, nil
}

func (m *memStore) ListOpenSwapRequestsForShift(ctx context.Context, shiftID uuid.UUID) ([]model.SwapRequest, error) {
	var open []model.SwapRequest
	for _, r := range m.swaps {
		if r.Status.IsTerminal() {
			continue
		}
		if a, ok := m.assignments[r.AssignmentID]; ok && a.ShiftID == shiftID {
			open = append(open, r)
		}
	}
	return open, nil
}

func (m *memStore) BuildSnapshot(ctx context.Context, shiftID, workerID uuid.UUID, asOf time.Time) (*constraint.Snapshot, error) {
	return nil, model.ErrNotFound
}

func newWorkflow(store *memStore) *swap.Workflow {
	coord := coordinator.New(store,
		coordinator.NewKeyedLocker(time.Second),
		coordinator.NewPresenceRegistry(time.Minute),
		constraint.NewEngine(constraint.DefaultLimits()),
		events.NewMemoryEmitter(),
		zap.NewNop())
	return swap.New(store, coord, events.NewMemoryEmitter(), zap.NewNop(), swap.DefaultConfig())
}

func seedLocation(store *memStore) model.Location {
	location := model.Location{
		ID:       uuid.New(),
		Name:     "Harbor Cafe",
		Timezone: "America/Los_Angeles",
		IsActive: true,
	}
	store.locations[location.ID] = location
	return location
}

func seriesManager(locationID uuid.UUID) model.Actor {
	return model.Actor{
		WorkerID:           uuid.New(),
		Name:               "Dana Reyes",
		Role:               model.RoleManager,
		ManagedLocationIDs: []uuid.UUID{locationID},
	}
}

func TestDefineShiftSeries_WeeklyExpansion(t *testing.T) {
	store := newMemStore()
	location := seedLocation(store)
	actor := seriesManager(location.ID)

	// Four occurrences over two weeks: Mon/Fri starting Mon 2026-07-13.
	result, err := DefineShiftSeries(context.Background(), store, zap.NewNop(), actor, SeriesInput{
		LocationID:    location.ID,
		RequiredSkill: "barista",
		Headcount:     2,
		RRule:         "FREQ=WEEKLY;BYDAY=MO,FR;COUNT=4",
		StartTime:     "09:00",
		EndTime:       "17:00",
		From:          time.Date(2026, time.July, 13, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, result.Shifts, 4)
	assert.Empty(t, result.Skipped)

	// July Pacific time is UTC-7, so 09:00 local is 16:00Z.
	first := result.Shifts[0]
	assert.Equal(t, time.Date(2026, time.July, 13, 16, 0, 0, 0, time.UTC), first.StartUTC)
	assert.Equal(t, time.Date(2026, time.July, 14, 0, 0, 0, 0, time.UTC), first.EndUTC)
	assert.Equal(t, "barista", first.RequiredSkill)
	assert.Equal(t, 2, first.HeadcountNeed)
	assert.Equal(t, 48, first.EditCutoffHrs)
	assert.Equal(t, actor.WorkerID, first.CreatedByID)

	assert.Equal(t, time.Date(2026, time.July, 17, 16, 0, 0, 0, time.UTC), result.Shifts[1].StartUTC)

	// Everything persisted under one audit record.
	assert.Len(t, store.shifts, 4)
	require.Len(t, store.audits, 1)
	assert.Equal(t, "shift.series_created", store.audits[0].Action)
}

func TestDefineShiftSeries_SkipsSpringForwardGap(t *testing.T) {
	store := newMemStore()
	location := seedLocation(store)
	actor := seriesManager(location.ID)

	// 2026-03-08 has no 02:30 in Los Angeles; that date is skipped, the
	// surrounding dates land normally.
	result, err := DefineShiftSeries(context.Background(), store, zap.NewNop(), actor, SeriesInput{
		LocationID:    location.ID,
		RequiredSkill: "barista",
		Headcount:     1,
		RRule:         "FREQ=DAILY;COUNT=3",
		StartTime:     "02:30",
		EndTime:       "10:30",
		From:          time.Date(2026, time.March, 7, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Len(t, result.Shifts, 2)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, time.March, result.Skipped[0].Month())
	assert.Equal(t, 8, result.Skipped[0].Day())
}

func TestDefineShiftSeries_AllDatesUnresolvable(t *testing.T) {
	store := newMemStore()
	location := seedLocation(store)
	actor := seriesManager(location.ID)

	_, err := DefineShiftSeries(context.Background(), store, zap.NewNop(), actor, SeriesInput{
		LocationID:    location.ID,
		RequiredSkill: "barista",
		Headcount:     1,
		RRule:         "FREQ=DAILY;COUNT=1",
		StartTime:     "02:30",
		EndTime:       "10:30",
		From:          time.Date(2026, time.March, 8, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable shift dates")
	assert.Empty(t, store.shifts)
}

func TestDefineShiftSeries_PermissionDenied(t *testing.T) {
	store := newMemStore()
	location := seedLocation(store)
	actor := seriesManager(uuid.New()) // manages somewhere else

	_, err := DefineShiftSeries(context.Background(), store, zap.NewNop(), actor, SeriesInput{
		LocationID:    location.ID,
		RequiredSkill: "barista",
		Headcount:     1,
		RRule:         "FREQ=DAILY;COUNT=1",
		StartTime:     "09:00",
		EndTime:       "17:00",
		From:          time.Date(2026, time.July, 13, 0, 0, 0, 0, time.UTC),
	})
	var denied *model.PermissionError
	require.ErrorAs(t, err, &denied)
}

func TestDefineShiftSeries_InvalidInput(t *testing.T) {
	store := newMemStore()
	location := seedLocation(store)
	actor := seriesManager(location.ID)

	_, err := DefineShiftSeries(context.Background(), store, zap.NewNop(), actor, SeriesInput{
		LocationID: location.ID,
		Headcount:  0,
		RRule:      "FREQ=DAILY;COUNT=1",
		StartTime:  "09:00",
		EndTime:    "17:00",
		From:       time.Date(2026, time.July, 13, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "headcount")

	_, err = DefineShiftSeries(context.Background(), store, zap.NewNop(), actor, SeriesInput{
		LocationID: location.ID,
		Headcount:  1,
		RRule:      "EVERY=TUESDAY",
		StartTime:  "09:00",
		EndTime:    "17:00",
		From:       time.Date(2026, time.July, 13, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recurrence")
}

func seedShift(store *memStore, locationID uuid.UUID, start time.Time) model.Shift {
	shift := model.Shift{
		ID:            uuid.New(),
		LocationID:    locationID,
		RequiredSkill: "barista",
		HeadcountNeed: 1,
		StartUTC:      start,
		EndUTC:        start.Add(8 * time.Hour),
		EditCutoffHrs: 48,
	}
	store.shifts[shift.ID] = shift
	return shift
}

func TestEditShift_NotesPastCutoff(t *testing.T) {
	store := newMemStore()
	location := seedLocation(store)
	actor := seriesManager(location.ID)
	// Inside the 48h window, but notes are not a material edit.
	shift := seedShift(store, location.ID, time.Now().Add(10*time.Hour))

	notes := "bring the spare till key"
	updated, err := EditShift(context.Background(), store, newWorkflow(store), zap.NewNop(), actor, EditShiftInput{
		ShiftID: shift.ID,
		Notes:   &notes,
	})
	require.NoError(t, err)
	assert.Equal(t, notes, updated.Notes)
	assert.Equal(t, notes, store.shifts[shift.ID].Notes)
}

func TestEditShift_MaterialBeforeCutoff(t *testing.T) {
	store := newMemStore()
	location := seedLocation(store)
	actor := seriesManager(location.ID)
	shift := seedShift(store, location.ID, time.Now().Add(100*time.Hour))

	newStart := shift.StartUTC.Add(2 * time.Hour)
	updated, err := EditShift(context.Background(), store, newWorkflow(store), zap.NewNop(), actor, EditShiftInput{
		ShiftID:  shift.ID,
		StartUTC: &newStart,
	})
	require.NoError(t, err)
	assert.Equal(t, newStart, updated.StartUTC)

	require.Len(t, store.audits, 1)
	assert.Equal(t, "shift.updated", store.audits[0].Action)
	assert.NotNil(t, store.audits[0].Before)
}

func TestEditShift_MaterialPastCutoffNeedsOverride(t *testing.T) {
	store := newMemStore()
	location := seedLocation(store)
	actor := seriesManager(location.ID)
	shift := seedShift(store, location.ID, time.Now().Add(10*time.Hour))

	newStart := shift.StartUTC.Add(2 * time.Hour)
	_, err := EditShift(context.Background(), store, newWorkflow(store), zap.NewNop(), actor, EditShiftInput{
		ShiftID:  shift.ID,
		StartUTC: &newStart,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "override")

	updated, err := EditShift(context.Background(), store, newWorkflow(store), zap.NewNop(), actor, EditShiftInput{
		ShiftID:  shift.ID,
		StartUTC: &newStart,
		Override: &model.OverrideToken{
			Token:    "ovr-2207",
			IssuedBy: actor.WorkerID,
			Reason:   "supplier delivery moved",
			RuleIDs:  []string{"edit_cutoff"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, newStart, updated.StartUTC)
}

func TestEditShift_EndMustFollowStart(t *testing.T) {
	store := newMemStore()
	location := seedLocation(store)
	actor := seriesManager(location.ID)
	shift := seedShift(store, location.ID, time.Now().Add(100*time.Hour))

	badEnd := shift.StartUTC
	_, err := EditShift(context.Background(), store, newWorkflow(store), zap.NewNop(), actor, EditShiftInput{
		ShiftID: shift.ID,
		EndUTC:  &badEnd,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "end must be after start")
}

func TestEditShift_MaterialEditCancelsOpenSwap(t *testing.T) {
	store := newMemStore()
	location := seedLocation(store)
	actor := seriesManager(location.ID)
	shift := seedShift(store, location.ID, time.Now().Add(100*time.Hour))

	assignment := model.Assignment{
		ID:       uuid.New(),
		ShiftID:  shift.ID,
		WorkerID: uuid.New(),
		Status:   model.StatusSwapPending,
	}
	store.assignments[assignment.ID] = assignment
	request := model.SwapRequest{
		ID:           uuid.New(),
		Type:         model.SwapTypeDrop,
		Status:       model.SwapPendingManager,
		AssignmentID: assignment.ID,
		RequesterID:  assignment.WorkerID,
		ExpiresAt:    shift.StartUTC.Add(-24 * time.Hour),
	}
	store.swaps[request.ID] = request

	newStart := shift.StartUTC.Add(time.Hour)
	_, err := EditShift(context.Background(), store, newWorkflow(store), zap.NewNop(), actor, EditShiftInput{
		ShiftID:  shift.ID,
		StartUTC: &newStart,
	})
	require.NoError(t, err)

	assert.Equal(t, model.SwapCancelled, store.swaps[request.ID].Status)
	assert.Equal(t, model.StatusAssigned, store.assignments[assignment.ID].Status)
}
