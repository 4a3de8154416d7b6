package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/cs-ops-service/internal/domain"
	"github.com/spec-kit/cs-ops-service/internal/events"
	"github.com/spec-kit/cs-ops-service/internal/repository"
	"github.com/spec-kit/cs-ops-service/internal/tracker"
	apperrors "github.com/spec-kit/cs-ops-service/pkg/util"
)

// maxVersionRetries bounds the optimistic-concurrency retry loop on action
// mutations.
const maxVersionRetries = 3

// OngoingService creates, progresses and closes a customer's recurring-action
// cycles and keeps them consistent with the optional external mirror.
type OngoingService struct {
	cycles     repository.CycleRepository
	customers  repository.CustomerRepository
	tracker    tracker.Client
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
	// rateDelay spaces consecutive external tracker calls.
	rateDelay time.Duration
}

// OngoingDependencies bundles collaborators for the ongoing service.
type OngoingDependencies struct {
	CycleRepo    repository.CycleRepository
	CustomerRepo repository.CustomerRepository
	Tracker      tracker.Client
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Now          func() time.Time
	RateDelay    time.Duration
}

// NewOngoingService constructs the service.
func NewOngoingService(deps OngoingDependencies) *OngoingService {
	svc := &OngoingService{
		cycles:     deps.CycleRepo,
		customers:  deps.CustomerRepo,
		tracker:    deps.Tracker,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        deps.Now,
		rateDelay:  deps.RateDelay,
	}
	if svc.tracker == nil {
		svc.tracker = tracker.Disabled{}
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// ActionTemplate is one normalized checklist entry for cycle assignment.
// Legacy string-only entries are normalized at the transport boundary.
type ActionTemplate struct {
	Name      string
	DayOffset int
}

// AssignCycleInput describes a cycle assignment.
type AssignCycleInput struct {
	Segment   domain.HealthTier
	Cadence   domain.Cadence
	StartDate time.Time
	Actions   []ActionTemplate
	Mirror    bool
}

// AssignCycle creates a new in-progress cycle for the customer. At most one
// in-progress cycle may exist per customer; a second assignment fails with a
// conflict. Mirroring is best effort: per-action failures are logged and
// skipped without aborting the assignment.
func (s *OngoingService) AssignCycle(ctx context.Context, customerID string, input AssignCycleInput) (*domain.OngoingCycle, error) {
	if len(input.Actions) == 0 {
		return nil, apperrors.NewValidationError("actions must not be empty", nil)
	}

	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("customer", map[string]any{"customer_id": customerID})
		}
		return nil, apperrors.MapError(err)
	}

	if active, err := s.cycles.ActiveByCustomer(ctx, customerID); err != nil {
		return nil, apperrors.MapError(err)
	} else if active != nil {
		return nil, apperrors.NewConflict("customer already has an in-progress cycle", map[string]any{"cycle_id": active.ID})
	}

	startDate := input.StartDate
	if startDate.IsZero() {
		startDate = s.now()
	}

	actions := make([]domain.Action, 0, len(input.Actions))
	for _, tmpl := range input.Actions {
		name := strings.TrimSpace(tmpl.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("action name must not be empty", nil)
		}
		offset := tmpl.DayOffset
		if offset < 0 {
			offset = 0
		}
		actions = append(actions, domain.Action{
			Name:      name,
			DayOffset: offset,
			DueDate:   startDate.AddDate(0, 0, offset),
			Status:    domain.ActionStatusPending,
		})
	}

	cycle := &domain.OngoingCycle{
		CustomerID:    customerID,
		Segment:       input.Segment,
		Cadence:       input.Cadence,
		StartDate:     startDate,
		EndDate:       startDate.AddDate(0, 0, input.Cadence.Days()),
		Status:        domain.CycleStatusInProgress,
		Progress:      0,
		Actions:       actions,
		MirrorEnabled: input.Mirror && s.tracker.Configured(),
	}

	if err := s.cycles.Create(ctx, cycle); err != nil {
		if errors.Is(err, repository.ErrActiveCycleExists) {
			return nil, apperrors.NewConflict("customer already has an in-progress cycle", nil)
		}
		return nil, apperrors.MapError(err)
	}

	if cycle.MirrorEnabled {
		s.mirrorNewActions(ctx, cycle, customer)
	}

	s.publishEvent(ctx, events.Event{
		Type:       events.EventCycleAssigned,
		CustomerID: customerID,
		CycleID:    cycle.ID,
		Payload: events.CycleAssignedPayload{
			Segment:       cycle.Segment,
			Cadence:       cycle.Cadence,
			ActionCount:   len(cycle.Actions),
			MirrorEnabled: cycle.MirrorEnabled,
		},
	})
	return cycle, nil
}

// mirrorNewActions creates one external task per action, sequentially, and
// attaches the returned references. Partial mirroring is an accepted degraded
// state: the cycle keeps mirror_enabled either way.
func (s *OngoingService) mirrorNewActions(ctx context.Context, cycle *domain.OngoingCycle, customer *domain.Customer) {
	mirrored := 0
	for i := range cycle.Actions {
		if i > 0 {
			s.pause(ctx)
		}
		ref, err := s.tracker.CreateTask(ctx, cycle.Actions[i], cycle, customer)
		if err != nil {
			mirrorErr := &tracker.MirrorError{Op: "create", ActionName: cycle.Actions[i].Name, Err: err}
			s.logger.Warn("action mirroring failed", zap.String("cycle_id", cycle.ID), zap.Error(mirrorErr))
			continue
		}
		if ref == nil {
			continue
		}
		cycle.Actions[i].ExternalTaskID = &ref.ID
		cycle.Actions[i].ExternalTaskURL = &ref.URL
		mirrored++
	}
	if mirrored == 0 {
		return
	}
	if err := s.cycles.UpdateActions(ctx, cycle, cycle.Version); err != nil {
		s.logger.Warn("failed to persist mirror references", zap.String("cycle_id", cycle.ID), zap.Error(err))
	}
}

// ActionUpdateResult is the pair returned by action mutations.
type ActionUpdateResult struct {
	Progress int                `json:"progress"`
	Status   domain.CycleStatus `json:"status"`
}

// UpdateAction sets a new status on one action, recomputes progress and
// auto-closes the cycle when every action is terminal. The legal transitions
// are pending to completed/skipped; repeating the current status is an
// idempotent no-op; everything else is rejected.
func (s *OngoingService) UpdateAction(ctx context.Context, customerID, cycleID string, actionIndex int, newStatus domain.ActionStatus, notes, actorID string) (*ActionUpdateResult, error) {
	return s.applyActionStatus(ctx, customerID, cycleID, actionIndex, newStatus, notes, actorID, true)
}

func (s *OngoingService) applyActionStatus(ctx context.Context, customerID, cycleID string, actionIndex int, newStatus domain.ActionStatus, notes, actorID string, pushMirror bool) (*ActionUpdateResult, error) {
	switch newStatus {
	case domain.ActionStatusPending, domain.ActionStatusCompleted, domain.ActionStatusSkipped:
	default:
		return nil, apperrors.NewValidationError("invalid action status", map[string]any{"status": newStatus})
	}

	for attempt := 0; attempt < maxVersionRetries; attempt++ {
		cycle, err := s.cycles.GetByID(ctx, customerID, cycleID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("cycle", map[string]any{"cycle_id": cycleID})
			}
			return nil, apperrors.MapError(err)
		}
		if actionIndex < 0 || actionIndex >= len(cycle.Actions) {
			return nil, apperrors.NewValidationError("action index out of range", map[string]any{"index": actionIndex})
		}

		action := cycle.Actions[actionIndex]
		oldStatus := action.Status
		if oldStatus != newStatus && !(oldStatus == domain.ActionStatusPending && newStatus.Terminal()) {
			return nil, apperrors.NewValidationError("illegal action status transition", map[string]any{
				"from": oldStatus,
				"to":   newStatus,
			})
		}

		if newStatus == domain.ActionStatusCompleted {
			if oldStatus != domain.ActionStatusCompleted {
				completedAt := s.now()
				action.CompletedAt = &completedAt
				action.CompletedBy = &actorID
			}
		} else {
			action.CompletedAt = nil
			action.CompletedBy = nil
		}
		action.Status = newStatus
		if strings.TrimSpace(notes) != "" {
			action.Notes = notes
		}
		cycle.Actions[actionIndex] = action

		cycle.Progress = domain.ComputeProgress(cycle.Actions)
		if domain.AllActionsTerminal(cycle.Actions) && cycle.Status == domain.CycleStatusInProgress {
			cycle.Status = domain.CycleStatusCompleted
		}

		if err := s.cycles.UpdateActions(ctx, cycle, cycle.Version); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				continue
			}
			return nil, apperrors.MapError(err)
		}

		if pushMirror {
			s.pushMirrorStatus(ctx, &action, newStatus)
		}

		actor := events.AgentActor(actorID)
		if actorID == domain.SystemActorID {
			actor = events.SystemActor()
		}
		if oldStatus != newStatus {
			s.publishEvent(ctx, events.Event{
				Type:       events.EventCycleActionUpdated,
				CustomerID: customerID,
				CycleID:    cycleID,
				Actor:      actor,
				Payload: events.CycleActionUpdatedPayload{
					ActionIndex: actionIndex,
					ActionName:  action.Name,
					OldStatus:   oldStatus,
					NewStatus:   newStatus,
					Progress:    cycle.Progress,
				},
			})
		}
		if cycle.Status == domain.CycleStatusCompleted {
			s.publishEvent(ctx, events.Event{
				Type:       events.EventCycleCompleted,
				CustomerID: customerID,
				CycleID:    cycleID,
				Actor:      actor,
				Payload:    events.CycleCompletedPayload{Progress: cycle.Progress},
			})
		}
		return &ActionUpdateResult{Progress: cycle.Progress, Status: cycle.Status}, nil
	}
	return nil, apperrors.NewConflict("cycle was modified concurrently, retry", nil)
}

// pushMirrorStatus reflects a local status change onto the external task.
// Failures are logged, never surfaced: the local document is authoritative.
func (s *OngoingService) pushMirrorStatus(ctx context.Context, action *domain.Action, status domain.ActionStatus) {
	if action.ExternalTaskID == nil || !s.tracker.Configured() {
		return
	}
	if err := s.tracker.UpdateTaskStatus(ctx, *action.ExternalTaskID, tracker.ExternalStatus(status)); err != nil {
		mirrorErr := &tracker.MirrorError{Op: "update", ActionName: action.Name, Err: err}
		s.logger.Warn("mirror status push failed", zap.Error(mirrorErr))
	}
}

// CancelCycle marks a cycle cancelled. Terminal, manual only; progress is
// left untouched and repeated cancellation is a no-op in effect.
func (s *OngoingService) CancelCycle(ctx context.Context, customerID, cycleID string) error {
	cycle, err := s.cycles.GetByID(ctx, customerID, cycleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("cycle", map[string]any{"cycle_id": cycleID})
		}
		return apperrors.MapError(err)
	}
	if err := s.cycles.UpdateStatus(ctx, customerID, cycleID, domain.CycleStatusCancelled); err != nil {
		return apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:       events.EventCycleCancelled,
		CustomerID: customerID,
		CycleID:    cycleID,
		Payload:    events.CycleCancelledPayload{Progress: cycle.Progress},
	})
	return nil
}

// ActiveCycle returns the customer's current in-progress cycle, or nil.
func (s *OngoingService) ActiveCycle(ctx context.Context, customerID string) (*domain.OngoingCycle, error) {
	cycle, err := s.cycles.ActiveByCustomer(ctx, customerID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return cycle, nil
}

// ListCycles returns the customer's cycle history, newest first.
func (s *OngoingService) ListCycles(ctx context.Context, customerID string, limit, offset int) ([]domain.OngoingCycle, error) {
	cycles, err := s.cycles.ListByCustomer(ctx, customerID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return cycles, nil
}

// SyncChange records one reconciled action for operator visibility.
type SyncChange struct {
	CustomerID string              `json:"customer_id"`
	CycleID    string              `json:"cycle_id"`
	ActionName string              `json:"action_name"`
	FromStatus domain.ActionStatus `json:"from_status"`
	ToStatus   domain.ActionStatus `json:"to_status"`
}

// SyncSummary reports one reconciliation sweep.
type SyncSummary struct {
	CyclesScanned  int          `json:"cycles_scanned"`
	ActionsScanned int          `json:"actions_scanned"`
	ActionsUpdated int          `json:"actions_updated"`
	Errors         int          `json:"errors"`
	Changes        []SyncChange `json:"changes"`
	StartedAt      time.Time    `json:"started_at"`
	FinishedAt     time.Time    `json:"finished_at"`
}

// SyncExternalTasks reconciles pending mirrored actions against the external
// tracker. Per-action failures are counted and skipped; the sweep never
// aborts. Statuses the tracker vocabulary does not recognize cause no change.
func (s *OngoingService) SyncExternalTasks(ctx context.Context) (*SyncSummary, error) {
	summary := &SyncSummary{StartedAt: s.now(), Changes: []SyncChange{}}
	defer func() { summary.FinishedAt = s.now() }()

	if !s.tracker.Configured() {
		return summary, nil
	}

	cycles, err := s.cycles.ListInProgressMirrored(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	summary.CyclesScanned = len(cycles)

	for ci := range cycles {
		cycle := &cycles[ci]
		for idx := range cycle.Actions {
			action := cycle.Actions[idx]
			if action.Status != domain.ActionStatusPending || action.ExternalTaskID == nil {
				continue
			}
			summary.ActionsScanned++
			s.pause(ctx)

			task, err := s.tracker.FetchTask(ctx, *action.ExternalTaskID)
			if err != nil {
				summary.Errors++
				mirrorErr := &tracker.MirrorError{Op: "fetch", ActionName: action.Name, Err: err}
				s.logger.Warn("sync fetch failed", zap.String("cycle_id", cycle.ID), zap.Error(mirrorErr))
				continue
			}
			if task == nil {
				continue
			}
			mapped, ok := tracker.LocalStatus(task.Status)
			if !ok || mapped == domain.ActionStatusPending {
				continue
			}

			if _, err := s.applyActionStatus(ctx, cycle.CustomerID, cycle.ID, idx, mapped, "", domain.SystemActorID, false); err != nil {
				summary.Errors++
				s.logger.Warn("sync apply failed",
					zap.String("cycle_id", cycle.ID),
					zap.String("action", action.Name),
					zap.Error(err))
				continue
			}
			summary.ActionsUpdated++
			summary.Changes = append(summary.Changes, SyncChange{
				CustomerID: cycle.CustomerID,
				CycleID:    cycle.ID,
				ActionName: action.Name,
				FromStatus: action.Status,
				ToStatus:   mapped,
			})
		}
	}
	return summary, nil
}

func (s *OngoingService) pause(ctx context.Context) {
	if s.rateDelay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(s.rateDelay):
	}
}

func (s *OngoingService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
