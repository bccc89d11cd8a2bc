package coordinator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/coastal-eats/shiftsync/pkg/core/constraint"
	"github.com/coastal-eats/shiftsync/pkg/core/model"
	"github.com/coastal-eats/shiftsync/pkg/events"
)

var (
	testLocationID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	testShiftID    = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	testWorkerID   = uuid.MustParse("33333333-3333-3333-3333-333333333333")
)

// fakeStore serves canned snapshots and records commits.
type fakeStore struct {
	mu            sync.Mutex
	buildSnapshot func() *constraint.Snapshot
	snapshotDelay time.Duration
	assignments   map[uuid.UUID]model.Assignment
	audits        []model.AuditEvent
}

func newFakeStore(build func() *constraint.Snapshot) *fakeStore {
	return &fakeStore{
		buildSnapshot: build,
		assignments:   make(map[uuid.UUID]model.Assignment),
	}
}

func (f *fakeStore) BuildSnapshot(ctx context.Context, shiftID, workerID uuid.UUID, asOf time.Time) (*constraint.Snapshot, error) {
	if f.snapshotDelay > 0 {
		time.Sleep(f.snapshotDelay)
	}
	return f.buildSnapshot(), nil
}

func (f *fakeStore) GetAssignment(ctx context.Context, id uuid.UUID) (model.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assignments[id]
	if !ok {
		return model.Assignment{}, model.ErrNotFound
	}
	return a, nil
}

func (f *fakeStore) CommitAssignment(ctx context.Context, a *model.Assignment, audit model.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assignments[a.ID] = *a
	f.audits = append(f.audits, audit)
	return nil
}

func (f *fakeStore) UpdateAssignmentStatus(ctx context.Context, id uuid.UUID, status model.AssignmentStatus, audit model.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assignments[id]
	if !ok {
		return model.ErrNotFound
	}
	a.Status = status
	f.assignments[id] = a
	f.audits = append(f.audits, audit)
	return nil
}

// passingSnapshot returns a fresh snapshot that clears every rule: a 4h
// Wednesday shift for a skilled, certified, fully available worker.
func passingSnapshot() *constraint.Snapshot {
	availability := make([]model.AvailabilityWindow, 0, 7)
	for day := 0; day < 7; day++ {
		availability = append(availability, model.AvailabilityWindow{
			ID:         uuid.New(),
			WorkerID:   testWorkerID,
			Recurrence: model.RecurrenceWeekly,
			DayOfWeek:  day,
			StartTime:  "05:00",
			EndTime:    "23:00",
			Timezone:   "America/Los_Angeles",
		})
	}
	return &constraint.Snapshot{
		TakenAt: time.Now(),
		Shift: model.Shift{
			ID:            testShiftID,
			LocationID:    testLocationID,
			RequiredSkill: "barista",
			HeadcountNeed: 1,
			StartUTC:      time.Date(2026, time.July, 15, 16, 0, 0, 0, time.UTC),
			EndUTC:        time.Date(2026, time.July, 15, 20, 0, 0, 0, time.UTC),
		},
		Location: model.Location{
			ID:       testLocationID,
			Name:     "Harbor Cafe",
			Timezone: "America/Los_Angeles",
			IsActive: true,
		},
		Worker: constraint.WorkerData{
			Worker: model.Worker{
				ID:        testWorkerID,
				FirstName: "Remy",
				LastName:  "Okafor",
				Role:      model.RoleStaff,
				IsActive:  true,
				Skills:    []string{"barista"},
			},
			Certifications: []model.Certification{{
				ID:         uuid.New(),
				WorkerID:   testWorkerID,
				LocationID: testLocationID,
				IsActive:   true,
			}},
			Availability: availability,
		},
	}
}

func manager(name string) model.Actor {
	return model.Actor{
		WorkerID:           uuid.New(),
		Name:               name,
		Role:               model.RoleManager,
		ManagedLocationIDs: []uuid.UUID{testLocationID},
	}
}

func newTestCoordinator(store *fakeStore, maxWait time.Duration) (*Coordinator, *events.MemoryEmitter) {
	emitter := events.NewMemoryEmitter()
	coord := New(store,
		NewKeyedLocker(maxWait),
		NewPresenceRegistry(time.Minute),
		constraint.NewEngine(constraint.DefaultLimits()),
		emitter,
		zap.NewNop())
	return coord, emitter
}

func TestTryAssign_Committed(t *testing.T) {
	store := newFakeStore(passingSnapshot)
	coord, emitter := newTestCoordinator(store, time.Second)

	result, err := coord.TryAssign(context.Background(), testShiftID, testWorkerID, manager("Dana Reyes"), nil)
	require.NoError(t, err)

	assert.Equal(t, model.CodeOK, result.Code)
	require.NotNil(t, result.Assignment)
	assert.Equal(t, model.StatusAssigned, result.Assignment.Status)

	// Row and audit event land together.
	stored, err := store.GetAssignment(context.Background(), result.Assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, testWorkerID, stored.WorkerID)
	require.Len(t, store.audits, 1)
	assert.Equal(t, "assignment.created", store.audits[0].Action)

	changed := emitter.OfType(events.TypeAssignmentChanged)
	require.Len(t, changed, 1)
	assert.Equal(t, result.Assignment.ID, changed[0].EntityID)
}

func TestTryAssign_StaffDenied(t *testing.T) {
	store := newFakeStore(passingSnapshot)
	coord, _ := newTestCoordinator(store, time.Second)

	staff := model.Actor{WorkerID: uuid.New(), Name: "Sam Park", Role: model.RoleStaff}
	result, err := coord.TryAssign(context.Background(), testShiftID, testWorkerID, staff, nil)
	require.NoError(t, err)

	assert.Equal(t, model.CodePermissionDenied, result.Code)
	assert.Empty(t, store.audits)
}

func TestTryAssign_ManagerOfOtherLocationDenied(t *testing.T) {
	store := newFakeStore(passingSnapshot)
	coord, _ := newTestCoordinator(store, time.Second)

	other := model.Actor{
		WorkerID:           uuid.New(),
		Name:               "Lee Fontaine",
		Role:               model.RoleManager,
		ManagedLocationIDs: []uuid.UUID{uuid.New()},
	}
	result, err := coord.TryAssign(context.Background(), testShiftID, testWorkerID, other, nil)
	require.NoError(t, err)

	assert.Equal(t, model.CodePermissionDenied, result.Code)
	assert.Contains(t, result.Reason, "Harbor Cafe")
}

func TestTryAssign_Rejected(t *testing.T) {
	store := newFakeStore(func() *constraint.Snapshot {
		snap := passingSnapshot()
		snap.Worker.Worker.Skills = nil
		return snap
	})
	coord, emitter := newTestCoordinator(store, time.Second)

	result, err := coord.TryAssign(context.Background(), testShiftID, testWorkerID, manager("Dana Reyes"), nil)
	require.NoError(t, err)

	assert.Equal(t, model.CodeRejected, result.Code)
	require.NotNil(t, result.Verdict)
	assert.Equal(t, constraint.RuleSkillMatch, result.Verdict.FailingRule)
	assert.Empty(t, store.audits)
	assert.Empty(t, emitter.OfType(events.TypeAssignmentChanged))
}

func TestTryAssign_AmbiguousTime(t *testing.T) {
	store := newFakeStore(func() *constraint.Snapshot {
		snap := passingSnapshot()
		// Fall-back Sunday with a window starting in the repeated hour.
		snap.Shift.StartUTC = time.Date(2026, time.November, 1, 18, 0, 0, 0, time.UTC)
		snap.Shift.EndUTC = time.Date(2026, time.November, 1, 22, 0, 0, 0, time.UTC)
		snap.Worker.Availability = []model.AvailabilityWindow{{
			ID:         uuid.New(),
			WorkerID:   testWorkerID,
			Recurrence: model.RecurrenceWeekly,
			DayOfWeek:  6,
			StartTime:  "01:30",
			EndTime:    "23:00",
			Timezone:   "America/Los_Angeles",
		}}
		return snap
	})
	coord, _ := newTestCoordinator(store, time.Second)

	result, err := coord.TryAssign(context.Background(), testShiftID, testWorkerID, manager("Dana Reyes"), nil)
	require.NoError(t, err)
	assert.Equal(t, model.CodeAmbiguousTime, result.Code)
}

func TestTryAssign_ConcurrentCallersLinearized(t *testing.T) {
	store := newFakeStore(passingSnapshot)
	store.snapshotDelay = 150 * time.Millisecond
	coord, emitter := newTestCoordinator(store, 50*time.Millisecond)

	actors := []model.Actor{manager("Dana Reyes"), manager("Priya Nair")}
	results := make([]Result, 2)
	errs := make([]error, 2)

	var wg sync.WaitGroup
	for i := range actors {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = coord.TryAssign(context.Background(), testShiftID, testWorkerID, actors[i], nil)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	var winner, loser *Result
	for i := range results {
		switch results[i].Code {
		case model.CodeOK:
			winner = &results[i]
		case model.CodeContended:
			loser = &results[i]
		}
	}
	require.NotNil(t, winner, "exactly one caller must commit")
	require.NotNil(t, loser, "exactly one caller must be told the section is held")

	// The loser learns who beat them.
	winnerName := ""
	for i := range results {
		if results[i].Code == model.CodeOK {
			winnerName = actors[i].Name
		}
	}
	assert.Equal(t, winnerName, loser.Holder)

	// Exactly one committed row, one change event, one contention event.
	assert.Len(t, store.assignments, 1)
	assert.Len(t, emitter.OfType(events.TypeAssignmentChanged), 1)
	assert.Len(t, emitter.OfType(events.TypeContentionDetected), 1)
}

func TestUpdateAssignmentStatus(t *testing.T) {
	store := newFakeStore(passingSnapshot)
	coord, emitter := newTestCoordinator(store, time.Second)

	assignment := model.Assignment{
		ID:       uuid.New(),
		ShiftID:  testShiftID,
		WorkerID: testWorkerID,
		Status:   model.StatusAssigned,
	}
	store.assignments[assignment.ID] = assignment

	err := coord.UpdateAssignmentStatus(context.Background(), assignment, model.StatusSwapPending, manager("Dana Reyes"), "assignment.swap_pending")
	require.NoError(t, err)

	stored, err := store.GetAssignment(context.Background(), assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSwapPending, stored.Status)

	require.Len(t, store.audits, 1)
	assert.Equal(t, "assignment.swap_pending", store.audits[0].Action)
	assert.Equal(t, "assigned", store.audits[0].Before["status"])
	assert.Equal(t, "swap_pending", store.audits[0].After["status"])

	require.Len(t, emitter.OfType(events.TypeAssignmentChanged), 1)
}
