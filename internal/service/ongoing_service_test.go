package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/cs-ops-service/internal/domain"
	"github.com/spec-kit/cs-ops-service/internal/repository"
	"github.com/spec-kit/cs-ops-service/internal/tracker"
	apperrors "github.com/spec-kit/cs-ops-service/pkg/util"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type fakeCustomerRepo struct {
	mu        sync.Mutex
	customers map[string]*domain.Customer
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{customers: make(map[string]*domain.Customer)}
}

func (r *fakeCustomerRepo) put(customer *domain.Customer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *customer
	r.customers[customer.ID] = &clone
}

func (r *fakeCustomerRepo) Create(ctx context.Context, customer *domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if customer.ID == "" {
		customer.ID = fmt.Sprintf("customer-%d", len(r.customers)+1)
	}
	customer.CreatedAt = testNow
	customer.UpdatedAt = testNow
	clone := *customer
	r.customers[customer.ID] = &clone
	return nil
}

func (r *fakeCustomerRepo) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	customer, ok := r.customers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *customer
	return &clone, nil
}

func (r *fakeCustomerRepo) List(ctx context.Context, filter repository.CustomerFilter) ([]domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Customer
	for _, customer := range r.customers {
		result = append(result, *customer)
	}
	return result, nil
}

func (r *fakeCustomerRepo) ListActiveIDs(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, customer := range r.customers {
		if customer.Status == domain.CustomerStatusActive {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *fakeCustomerRepo) UpdateSegment(ctx context.Context, id string, tier domain.HealthTier, reason string, previousTier domain.HealthTier, grace *domain.GracePeriod) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	customer, ok := r.customers[id]
	if !ok {
		return pgx.ErrNoRows
	}
	customer.Tier = tier
	customer.TierReason = reason
	customer.PreviousTier = previousTier
	customer.Grace = grace
	return nil
}

func (r *fakeCustomerRepo) SetTierOverride(ctx context.Context, id string, tier domain.HealthTier, reason string, override bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	customer, ok := r.customers[id]
	if !ok {
		return pgx.ErrNoRows
	}
	customer.Tier = tier
	customer.TierReason = reason
	customer.TierOverride = override
	return nil
}

func (r *fakeCustomerRepo) UpdateBugs(ctx context.Context, id string, bugs []domain.Bug) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	customer, ok := r.customers[id]
	if !ok {
		return pgx.ErrNoRows
	}
	customer.Bugs = bugs
	return nil
}

type fakeCycleRepo struct {
	mu     sync.Mutex
	cycles map[string]*domain.OngoingCycle
	nextID int
	// conflictsRemaining injects ErrVersionConflict into that many
	// UpdateActions calls.
	conflictsRemaining int
}

func newFakeCycleRepo() *fakeCycleRepo {
	return &fakeCycleRepo{cycles: make(map[string]*domain.OngoingCycle)}
}

func cloneCycle(cycle *domain.OngoingCycle) *domain.OngoingCycle {
	clone := *cycle
	clone.Actions = append([]domain.Action(nil), cycle.Actions...)
	return &clone
}

func (r *fakeCycleRepo) Create(ctx context.Context, cycle *domain.OngoingCycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.cycles {
		if existing.CustomerID == cycle.CustomerID && existing.Status == domain.CycleStatusInProgress {
			return repository.ErrActiveCycleExists
		}
	}
	r.nextID++
	cycle.ID = fmt.Sprintf("cycle-%d", r.nextID)
	cycle.CreatedAt = testNow
	cycle.UpdatedAt = testNow
	r.cycles[cycle.ID] = cloneCycle(cycle)
	return nil
}

func (r *fakeCycleRepo) GetByID(ctx context.Context, customerID, cycleID string) (*domain.OngoingCycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cycle, ok := r.cycles[cycleID]
	if !ok || cycle.CustomerID != customerID {
		return nil, pgx.ErrNoRows
	}
	return cloneCycle(cycle), nil
}

func (r *fakeCycleRepo) ActiveByCustomer(ctx context.Context, customerID string) (*domain.OngoingCycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cycle := range r.cycles {
		if cycle.CustomerID == customerID && cycle.Status == domain.CycleStatusInProgress {
			return cloneCycle(cycle), nil
		}
	}
	return nil, nil
}

func (r *fakeCycleRepo) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]domain.OngoingCycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.OngoingCycle
	for _, cycle := range r.cycles {
		if cycle.CustomerID == customerID {
			result = append(result, *cloneCycle(cycle))
		}
	}
	return result, nil
}

func (r *fakeCycleRepo) ListInProgressMirrored(ctx context.Context) ([]domain.OngoingCycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.OngoingCycle
	for _, cycle := range r.cycles {
		if cycle.Status == domain.CycleStatusInProgress && cycle.MirrorEnabled {
			result = append(result, *cloneCycle(cycle))
		}
	}
	return result, nil
}

func (r *fakeCycleRepo) UpdateActions(ctx context.Context, cycle *domain.OngoingCycle, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflictsRemaining > 0 {
		r.conflictsRemaining--
		return repository.ErrVersionConflict
	}
	stored, ok := r.cycles[cycle.ID]
	if !ok || stored.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	updated := cloneCycle(cycle)
	updated.Version = expectedVersion + 1
	r.cycles[cycle.ID] = updated
	cycle.Version = expectedVersion + 1
	return nil
}

func (r *fakeCycleRepo) UpdateStatus(ctx context.Context, customerID, cycleID string, status domain.CycleStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cycle, ok := r.cycles[cycleID]
	if !ok || cycle.CustomerID != customerID {
		return pgx.ErrNoRows
	}
	cycle.Status = status
	return nil
}

type fakeTracker struct {
	mu            sync.Mutex
	configured    bool
	createErr     error
	nextTaskID    int
	statusPushes  map[string]string
	fetchStatuses map[string]string
	fetchErr      error
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{
		configured:    true,
		statusPushes:  make(map[string]string),
		fetchStatuses: make(map[string]string),
	}
}

func (t *fakeTracker) Configured() bool { return t.configured }

func (t *fakeTracker) CreateTask(ctx context.Context, action domain.Action, cycle *domain.OngoingCycle, customer *domain.Customer) (*tracker.TaskRef, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.createErr != nil {
		return nil, t.createErr
	}
	t.nextTaskID++
	id := fmt.Sprintf("task-%d", t.nextTaskID)
	return &tracker.TaskRef{ID: id, URL: "https://tracker.example/" + id}, nil
}

func (t *fakeTracker) UpdateTaskStatus(ctx context.Context, taskID, externalStatus string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statusPushes[taskID] = externalStatus
	return nil
}

func (t *fakeTracker) FetchTask(ctx context.Context, taskID string) (*tracker.Task, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fetchErr != nil {
		return nil, t.fetchErr
	}
	status, ok := t.fetchStatuses[taskID]
	if !ok {
		return nil, nil
	}
	return &tracker.Task{ID: taskID, Status: status}, nil
}

func newOngoingFixture(t *testing.T) (*OngoingService, *fakeCustomerRepo, *fakeCycleRepo, *fakeTracker) {
	t.Helper()
	customers := newFakeCustomerRepo()
	cycles := newFakeCycleRepo()
	trk := newFakeTracker()
	customers.put(&domain.Customer{
		ID:        "cust-1",
		Name:      "Agencia Horizonte",
		Status:    domain.CustomerStatusActive,
		UserCount: 5,
		Tier:      domain.TierEstavel,
	})
	svc := NewOngoingService(OngoingDependencies{
		CycleRepo:    cycles,
		CustomerRepo: customers,
		Tracker:      trk,
		Now:          func() time.Time { return testNow },
	})
	return svc, customers, cycles, trk
}

func assignTestCycle(t *testing.T, svc *OngoingService, actionNames ...string) *domain.OngoingCycle {
	t.Helper()
	actions := make([]ActionTemplate, 0, len(actionNames))
	for i, name := range actionNames {
		actions = append(actions, ActionTemplate{Name: name, DayOffset: i * 7})
	}
	cycle, err := svc.AssignCycle(context.Background(), "cust-1", AssignCycleInput{
		Segment: domain.TierAlerta,
		Cadence: domain.CadenceMonthly,
		Actions: actions,
	})
	require.NoError(t, err)
	return cycle
}

func TestAssignCycleStartsPending(t *testing.T) {
	svc, _, _, _ := newOngoingFixture(t)

	cycle := assignTestCycle(t, svc, "Reuniao de kickoff", "Revisar metricas", "Follow-up")

	assert.Equal(t, domain.CycleStatusInProgress, cycle.Status)
	assert.Equal(t, 0, cycle.Progress)
	assert.Len(t, cycle.Actions, 3)
	for _, action := range cycle.Actions {
		assert.Equal(t, domain.ActionStatusPending, action.Status)
	}
	assert.Equal(t, testNow.AddDate(0, 0, 30), cycle.EndDate)
	assert.Equal(t, testNow.AddDate(0, 0, 7), cycle.Actions[1].DueDate)
}

func TestAssignCycleRejectsSecondActive(t *testing.T) {
	svc, _, _, _ := newOngoingFixture(t)
	assignTestCycle(t, svc, "Acao unica")

	_, err := svc.AssignCycle(context.Background(), "cust-1", AssignCycleInput{
		Cadence: domain.CadenceMonthly,
		Actions: []ActionTemplate{{Name: "Outra acao", DayOffset: 3}},
	})
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "CONFLICT", domainErr.Code)
}

func TestAssignCycleRejectsEmptyActions(t *testing.T) {
	svc, _, _, _ := newOngoingFixture(t)

	_, err := svc.AssignCycle(context.Background(), "cust-1", AssignCycleInput{Cadence: domain.CadenceMonthly})
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestAssignCycleUnknownCustomer(t *testing.T) {
	svc, _, _, _ := newOngoingFixture(t)

	_, err := svc.AssignCycle(context.Background(), "missing", AssignCycleInput{
		Actions: []ActionTemplate{{Name: "Acao"}},
	})
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestAssignCycleBimonthlyEndDate(t *testing.T) {
	svc, _, _, _ := newOngoingFixture(t)

	cycle, err := svc.AssignCycle(context.Background(), "cust-1", AssignCycleInput{
		Cadence: domain.CadenceBimonthly,
		Actions: []ActionTemplate{{Name: "Check-in", DayOffset: 10}},
	})
	require.NoError(t, err)
	assert.Equal(t, testNow.AddDate(0, 0, 60), cycle.EndDate)
}

func TestAssignCycleMirrorsActions(t *testing.T) {
	svc, _, cycles, _ := newOngoingFixture(t)

	cycle, err := svc.AssignCycle(context.Background(), "cust-1", AssignCycleInput{
		Cadence: domain.CadenceMonthly,
		Actions: []ActionTemplate{{Name: "Kickoff"}, {Name: "Revisao", DayOffset: 15}},
		Mirror:  true,
	})
	require.NoError(t, err)
	require.True(t, cycle.MirrorEnabled)

	stored, err := cycles.GetByID(context.Background(), "cust-1", cycle.ID)
	require.NoError(t, err)
	for _, action := range stored.Actions {
		require.NotNil(t, action.ExternalTaskID)
		require.NotNil(t, action.ExternalTaskURL)
	}
}

func TestAssignCycleMirrorFailureDoesNotAbort(t *testing.T) {
	svc, _, cycles, trk := newOngoingFixture(t)
	trk.createErr = errors.New("tracker down")

	cycle, err := svc.AssignCycle(context.Background(), "cust-1", AssignCycleInput{
		Cadence: domain.CadenceMonthly,
		Actions: []ActionTemplate{{Name: "Kickoff"}},
		Mirror:  true,
	})
	require.NoError(t, err)

	stored, err := cycles.GetByID(context.Background(), "cust-1", cycle.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Actions[0].ExternalTaskID)
	assert.True(t, stored.MirrorEnabled)
}

func TestUpdateActionProgressAndAutoClose(t *testing.T) {
	svc, _, _, _ := newOngoingFixture(t)
	cycle := assignTestCycle(t, svc, "A", "B", "C", "D")
	ctx := context.Background()

	result, err := svc.UpdateAction(ctx, "cust-1", cycle.ID, 0, domain.ActionStatusCompleted, "", "agent-1")
	require.NoError(t, err)
	assert.Equal(t, 25, result.Progress)
	assert.Equal(t, domain.CycleStatusInProgress, result.Status)

	_, err = svc.UpdateAction(ctx, "cust-1", cycle.ID, 1, domain.ActionStatusCompleted, "", "agent-1")
	require.NoError(t, err)
	_, err = svc.UpdateAction(ctx, "cust-1", cycle.ID, 2, domain.ActionStatusSkipped, "", "agent-1")
	require.NoError(t, err)

	result, err = svc.UpdateAction(ctx, "cust-1", cycle.ID, 3, domain.ActionStatusSkipped, "", "agent-1")
	require.NoError(t, err)
	assert.Equal(t, 100, result.Progress)
	assert.Equal(t, domain.CycleStatusCompleted, result.Status)
}

func TestUpdateActionStampsCompletion(t *testing.T) {
	svc, _, cycles, _ := newOngoingFixture(t)
	cycle := assignTestCycle(t, svc, "A")
	ctx := context.Background()

	_, err := svc.UpdateAction(ctx, "cust-1", cycle.ID, 0, domain.ActionStatusCompleted, "cliente avisado", "agent-7")
	require.NoError(t, err)

	stored, err := cycles.GetByID(ctx, "cust-1", cycle.ID)
	require.NoError(t, err)
	action := stored.Actions[0]
	require.NotNil(t, action.CompletedAt)
	assert.Equal(t, testNow, *action.CompletedAt)
	require.NotNil(t, action.CompletedBy)
	assert.Equal(t, "agent-7", *action.CompletedBy)
	assert.Equal(t, "cliente avisado", action.Notes)
}

func TestUpdateActionIdempotentRepeat(t *testing.T) {
	svc, _, cycles, _ := newOngoingFixture(t)
	cycle := assignTestCycle(t, svc, "A", "B")
	ctx := context.Background()

	_, err := svc.UpdateAction(ctx, "cust-1", cycle.ID, 0, domain.ActionStatusCompleted, "", "agent-1")
	require.NoError(t, err)

	// Repeating the same terminal status is a no-op, not an error, and keeps
	// the original completion stamp.
	result, err := svc.UpdateAction(ctx, "cust-1", cycle.ID, 0, domain.ActionStatusCompleted, "", "agent-2")
	require.NoError(t, err)
	assert.Equal(t, 50, result.Progress)

	stored, err := cycles.GetByID(ctx, "cust-1", cycle.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Actions[0].CompletedBy)
	assert.Equal(t, "agent-1", *stored.Actions[0].CompletedBy)
}

func TestUpdateActionRejectsIllegalTransition(t *testing.T) {
	svc, _, _, _ := newOngoingFixture(t)
	cycle := assignTestCycle(t, svc, "A", "B")
	ctx := context.Background()

	_, err := svc.UpdateAction(ctx, "cust-1", cycle.ID, 0, domain.ActionStatusCompleted, "", "agent-1")
	require.NoError(t, err)

	cases := []struct {
		index  int
		status domain.ActionStatus
	}{
		{0, domain.ActionStatusSkipped}, // completed -> skipped
		{0, domain.ActionStatusPending}, // completed -> pending
	}
	for _, tc := range cases {
		_, err := svc.UpdateAction(ctx, "cust-1", cycle.ID, tc.index, tc.status, "", "agent-1")
		var domainErr *apperrors.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
	}
}

func TestUpdateActionIndexOutOfRange(t *testing.T) {
	svc, _, _, _ := newOngoingFixture(t)
	cycle := assignTestCycle(t, svc, "A")

	_, err := svc.UpdateAction(context.Background(), "cust-1", cycle.ID, 5, domain.ActionStatusCompleted, "", "agent-1")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestUpdateActionRetriesVersionConflict(t *testing.T) {
	svc, _, cycles, _ := newOngoingFixture(t)
	cycle := assignTestCycle(t, svc, "A", "B")
	cycles.conflictsRemaining = 2

	result, err := svc.UpdateAction(context.Background(), "cust-1", cycle.ID, 0, domain.ActionStatusCompleted, "", "agent-1")
	require.NoError(t, err)
	assert.Equal(t, 50, result.Progress)
}

func TestUpdateActionGivesUpAfterMaxRetries(t *testing.T) {
	svc, _, cycles, _ := newOngoingFixture(t)
	cycle := assignTestCycle(t, svc, "A")
	cycles.conflictsRemaining = maxVersionRetries

	_, err := svc.UpdateAction(context.Background(), "cust-1", cycle.ID, 0, domain.ActionStatusCompleted, "", "agent-1")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "CONFLICT", domainErr.Code)
}

func TestCancelCyclePreservesProgress(t *testing.T) {
	svc, _, cycles, _ := newOngoingFixture(t)
	cycle := assignTestCycle(t, svc, "A", "B")
	ctx := context.Background()

	_, err := svc.UpdateAction(ctx, "cust-1", cycle.ID, 0, domain.ActionStatusCompleted, "", "agent-1")
	require.NoError(t, err)
	require.NoError(t, svc.CancelCycle(ctx, "cust-1", cycle.ID))

	stored, err := cycles.GetByID(ctx, "cust-1", cycle.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CycleStatusCancelled, stored.Status)
	assert.Equal(t, 50, stored.Progress)

	// Cancelled cycle no longer blocks a new assignment.
	_, err = svc.AssignCycle(ctx, "cust-1", AssignCycleInput{
		Cadence: domain.CadenceMonthly,
		Actions: []ActionTemplate{{Name: "Nova acao"}},
	})
	require.NoError(t, err)
}

func TestSyncAppliesResolvedAndIgnored(t *testing.T) {
	svc, _, cycles, trk := newOngoingFixture(t)
	cycle, err := svc.AssignCycle(context.Background(), "cust-1", AssignCycleInput{
		Cadence: domain.CadenceMonthly,
		Actions: []ActionTemplate{{Name: "A"}, {Name: "B"}, {Name: "C"}},
		Mirror:  true,
	})
	require.NoError(t, err)

	trk.fetchStatuses["task-1"] = tracker.ExternalStatusResolved
	trk.fetchStatuses["task-2"] = tracker.ExternalStatusIgnored
	trk.fetchStatuses["task-3"] = tracker.ExternalStatusPending

	summary, err := svc.SyncExternalTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.CyclesScanned)
	assert.Equal(t, 3, summary.ActionsScanned)
	assert.Equal(t, 2, summary.ActionsUpdated)
	assert.Equal(t, 0, summary.Errors)

	stored, err := cycles.GetByID(context.Background(), "cust-1", cycle.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionStatusCompleted, stored.Actions[0].Status)
	assert.Equal(t, domain.ActionStatusSkipped, stored.Actions[1].Status)
	assert.Equal(t, domain.ActionStatusPending, stored.Actions[2].Status)
	require.NotNil(t, stored.Actions[0].CompletedBy)
	assert.Equal(t, domain.SystemActorID, *stored.Actions[0].CompletedBy)
}

func TestSyncUnrecognizedStatusCausesNoChange(t *testing.T) {
	svc, _, cycles, trk := newOngoingFixture(t)
	cycle, err := svc.AssignCycle(context.Background(), "cust-1", AssignCycleInput{
		Cadence: domain.CadenceMonthly,
		Actions: []ActionTemplate{{Name: "A"}},
		Mirror:  true,
	})
	require.NoError(t, err)
	trk.fetchStatuses["task-1"] = "em_triagem"

	summary, err := svc.SyncExternalTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.ActionsUpdated)
	assert.Equal(t, 0, summary.Errors)

	stored, err := cycles.GetByID(context.Background(), "cust-1", cycle.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionStatusPending, stored.Actions[0].Status)
}

func TestSyncIsFixpointWhenNothingChanged(t *testing.T) {
	svc, _, _, trk := newOngoingFixture(t)
	_, err := svc.AssignCycle(context.Background(), "cust-1", AssignCycleInput{
		Cadence: domain.CadenceMonthly,
		Actions: []ActionTemplate{{Name: "A"}, {Name: "B"}},
		Mirror:  true,
	})
	require.NoError(t, err)
	trk.fetchStatuses["task-1"] = tracker.ExternalStatusResolved
	trk.fetchStatuses["task-2"] = tracker.ExternalStatusResolved

	first, err := svc.SyncExternalTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.ActionsUpdated)

	// The cycle auto-closed, so the next sweep scans nothing.
	second, err := svc.SyncExternalTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.CyclesScanned)
	assert.Equal(t, 0, second.ActionsUpdated)
}

func TestSyncCountsFetchErrors(t *testing.T) {
	svc, _, _, trk := newOngoingFixture(t)
	_, err := svc.AssignCycle(context.Background(), "cust-1", AssignCycleInput{
		Cadence: domain.CadenceMonthly,
		Actions: []ActionTemplate{{Name: "A"}},
		Mirror:  true,
	})
	require.NoError(t, err)
	trk.fetchErr = errors.New("tracker timeout")

	summary, err := svc.SyncExternalTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 0, summary.ActionsUpdated)
}

func TestSyncSkipsWhenTrackerUnconfigured(t *testing.T) {
	svc, _, _, trk := newOngoingFixture(t)
	trk.configured = false

	summary, err := svc.SyncExternalTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.CyclesScanned)
}
