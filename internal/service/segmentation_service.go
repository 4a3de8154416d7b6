package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/cs-ops-service/internal/domain"
	"github.com/spec-kit/cs-ops-service/internal/events"
	"github.com/spec-kit/cs-ops-service/internal/repository"
	"github.com/spec-kit/cs-ops-service/internal/segment"
	apperrors "github.com/spec-kit/cs-ops-service/pkg/util"
)

const recentThreadLimit = 20

// SegmentationService orchestrates health-tier recomputation: it feeds the
// pure engine and persists tiers, reasons and grace periods.
type SegmentationService struct {
	customers  repository.CustomerRepository
	usage      repository.UsageRepository
	threads    repository.ThreadRepository
	config     repository.SegmentConfigRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// SegmentationDependencies bundles collaborators.
type SegmentationDependencies struct {
	CustomerRepo repository.CustomerRepository
	UsageRepo    repository.UsageRepository
	ThreadRepo   repository.ThreadRepository
	ConfigRepo   repository.SegmentConfigRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Now          func() time.Time
}

// NewSegmentationService constructs the service.
func NewSegmentationService(deps SegmentationDependencies) *SegmentationService {
	svc := &SegmentationService{
		customers:  deps.CustomerRepo,
		usage:      deps.UsageRepo,
		threads:    deps.ThreadRepo,
		config:     deps.ConfigRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        deps.Now,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// RecomputeOutcome reports one customer's recompute.
type RecomputeOutcome struct {
	CustomerID   string            `json:"customer_id"`
	Skipped      bool              `json:"skipped"`
	SkipReason   string            `json:"skip_reason,omitempty"`
	OldTier      domain.HealthTier `json:"old_tier,omitempty"`
	NewTier      domain.HealthTier `json:"new_tier,omitempty"`
	GraceStarted bool              `json:"grace_started,omitempty"`
	Result       *segment.Result   `json:"result,omitempty"`
}

// RecomputeCustomer reruns segmentation for one customer. Inactive customers
// and customers under a manual tier override are skipped, never failed.
func (s *SegmentationService) RecomputeCustomer(ctx context.Context, customerID string) (*RecomputeOutcome, error) {
	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("customer", map[string]any{"customer_id": customerID})
		}
		return nil, apperrors.MapError(err)
	}

	if customer.Status == domain.CustomerStatusInactive {
		return &RecomputeOutcome{CustomerID: customerID, Skipped: true, SkipReason: "inactive customer"}, nil
	}
	if customer.TierOverride {
		return &RecomputeOutcome{CustomerID: customerID, Skipped: true, SkipReason: "manual tier override"}, nil
	}

	cfg, err := s.config.Get(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	now := s.now()
	metrics, err := s.usage.Aggregate30d(ctx, customerID, now)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	threads, err := s.threads.ListRecent(ctx, customerID, recentThreadLimit)
	if err != nil {
		// Sentiment is informational only; proceed without it.
		s.logger.Warn("thread lookup failed", zap.String("customer_id", customerID), zap.Error(err))
		threads = nil
	}

	result := segment.Compute(segment.Input{
		Customer:  customer,
		Threads:   threads,
		Metrics:   metrics,
		UserCount: customer.UserCount,
		Config:    cfg,
		Now:       now,
	})

	oldTier := customer.Tier
	newTier := result.Tier
	grace := customer.Grace
	graceStarted := false

	if newTier.WorseThan(oldTier) {
		if grace == nil || !grace.Active {
			grace = &domain.GracePeriod{
				Active:    true,
				FromTier:  oldTier,
				ToTier:    newTier,
				StartedAt: now,
				EndsAt:    now.AddDate(0, 0, cfg.GraceDays),
				Reason:    result.Reason,
			}
			graceStarted = true
		} else if grace.Expired(now) {
			// Grace window lapsed with the downgrade still in effect: the
			// full downgrade playbook may now fire.
			grace.Active = false
		}
	} else if grace != nil && grace.Active {
		// Recovered (or held steady); the pending downgrade playbook is off.
		grace = nil
	}

	previousTier := customer.PreviousTier
	if newTier != oldTier {
		previousTier = oldTier
	}

	if err := s.customers.UpdateSegment(ctx, customerID, newTier, result.Reason, previousTier, grace); err != nil {
		return nil, apperrors.MapError(err)
	}

	graceActive := grace != nil && grace.Active
	if graceStarted {
		s.publishEvent(ctx, events.Event{
			Type:       events.EventGracePeriodStarted,
			CustomerID: customerID,
			Payload: events.GracePeriodStartedPayload{
				FromTier: oldTier,
				ToTier:   newTier,
				EndsAt:   grace.EndsAt,
				Reason:   result.Reason,
			},
		})
	}
	if newTier != oldTier {
		s.publishEvent(ctx, events.Event{
			Type:       events.EventSegmentChanged,
			CustomerID: customerID,
			Payload: events.SegmentChangedPayload{
				OldTier:     oldTier,
				NewTier:     newTier,
				Reason:      result.Reason,
				GraceActive: graceActive,
			},
		})
	}

	return &RecomputeOutcome{
		CustomerID:   customerID,
		OldTier:      oldTier,
		NewTier:      newTier,
		GraceStarted: graceStarted,
		Result:       &result,
	}, nil
}

// RecomputeSummary reports one full recompute sweep.
type RecomputeSummary struct {
	CustomersScanned int       `json:"customers_scanned"`
	TiersChanged     int       `json:"tiers_changed"`
	Skipped          int       `json:"skipped"`
	Errors           int       `json:"errors"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
}

// RecomputeAll sweeps every active customer. Per-customer failures are
// counted and skipped; the sweep never aborts.
func (s *SegmentationService) RecomputeAll(ctx context.Context) (*RecomputeSummary, error) {
	summary := &RecomputeSummary{StartedAt: s.now()}
	defer func() { summary.FinishedAt = s.now() }()

	ids, err := s.customers.ListActiveIDs(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	summary.CustomersScanned = len(ids)

	for _, id := range ids {
		outcome, err := s.RecomputeCustomer(ctx, id)
		if err != nil {
			summary.Errors++
			s.logger.Warn("recompute failed", zap.String("customer_id", id), zap.Error(err))
			continue
		}
		if outcome.Skipped {
			summary.Skipped++
			continue
		}
		if outcome.OldTier != outcome.NewTier {
			summary.TiersChanged++
		}
	}
	return summary, nil
}

// OverrideTier pins a customer's tier manually, exempting it from automatic
// recomputation until released.
func (s *SegmentationService) OverrideTier(ctx context.Context, customerID string, tier domain.HealthTier, reason string) error {
	if !tier.Valid() {
		return apperrors.NewValidationError("invalid health tier", map[string]any{"tier": tier})
	}
	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("customer", map[string]any{"customer_id": customerID})
		}
		return apperrors.MapError(err)
	}
	if err := s.customers.SetTierOverride(ctx, customerID, tier, reason, true); err != nil {
		return apperrors.MapError(err)
	}
	if customer.Tier != tier {
		s.publishEvent(ctx, events.Event{
			Type:       events.EventSegmentChanged,
			CustomerID: customerID,
			Payload: events.SegmentChangedPayload{
				OldTier: customer.Tier,
				NewTier: tier,
				Reason:  reason,
			},
		})
	}
	return nil
}

// ReleaseOverride clears a manual tier override; the next recompute takes
// over again.
func (s *SegmentationService) ReleaseOverride(ctx context.Context, customerID string) error {
	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("customer", map[string]any{"customer_id": customerID})
		}
		return apperrors.MapError(err)
	}
	return apperrors.MapError(s.customers.SetTierOverride(ctx, customerID, customer.Tier, customer.TierReason, false))
}

func (s *SegmentationService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	if event.Actor.AgentID == "" {
		event.Actor = events.SystemActor()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
