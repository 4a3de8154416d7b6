package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/cs-ops-service/internal/domain"
	"github.com/spec-kit/cs-ops-service/internal/events"
	apperrors "github.com/spec-kit/cs-ops-service/pkg/util"
)

type fakeUsageRepo struct {
	mu      sync.Mutex
	metrics map[string]domain.UsageMetrics
}

func newFakeUsageRepo() *fakeUsageRepo {
	return &fakeUsageRepo{metrics: make(map[string]domain.UsageMetrics)}
}

func (r *fakeUsageRepo) RecordDay(ctx context.Context, day domain.UsageDay) error {
	return nil
}

func (r *fakeUsageRepo) Aggregate30d(ctx context.Context, customerID string, now time.Time) (domain.UsageMetrics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.metrics[customerID], nil
}

type fakeThreadRepo struct {
	threads map[string][]domain.ThreadSummary
}

func (r *fakeThreadRepo) ListRecent(ctx context.Context, customerID string, limit int) ([]domain.ThreadSummary, error) {
	return r.threads[customerID], nil
}

type fakeConfigRepo struct {
	override *domain.SegmentConfigOverride
}

func (r *fakeConfigRepo) Get(ctx context.Context) (domain.SegmentConfig, error) {
	return r.override.Apply(domain.DefaultSegmentConfig()), nil
}

func (r *fakeConfigRepo) GetOverride(ctx context.Context) (*domain.SegmentConfigOverride, error) {
	return r.override, nil
}

func (r *fakeConfigRepo) Save(ctx context.Context, override *domain.SegmentConfigOverride) error {
	r.override = override
	return nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {}

func (d *recordingDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

func healthyMetrics() domain.UsageMetrics {
	last := testNow.AddDate(0, 0, -1)
	return domain.UsageMetrics{
		Logins:         120,
		PiecesCreated:  90,
		Downloads:      40,
		AIUsage:        60,
		ActiveDays:     25,
		LastActivityAt: &last,
	}
}

func newSegmentationFixture(t *testing.T) (*SegmentationService, *fakeCustomerRepo, *fakeUsageRepo, *recordingDispatcher) {
	t.Helper()
	customers := newFakeCustomerRepo()
	usage := newFakeUsageRepo()
	dispatcher := &recordingDispatcher{}
	svc := NewSegmentationService(SegmentationDependencies{
		CustomerRepo: customers,
		UsageRepo:    usage,
		ThreadRepo:   &fakeThreadRepo{},
		ConfigRepo:   &fakeConfigRepo{},
		Dispatcher:   dispatcher,
		Now:          func() time.Time { return testNow },
	})
	return svc, customers, usage, dispatcher
}

func seedCustomer(customers *fakeCustomerRepo, tier domain.HealthTier) *domain.Customer {
	customer := &domain.Customer{
		ID:           "cust-1",
		Name:         "Agencia Horizonte",
		Status:       domain.CustomerStatusActive,
		UserCount:    2,
		Tier:         tier,
		PreviousTier: tier,
	}
	customers.put(customer)
	return customer
}

func TestRecomputeSkipsInactiveCustomer(t *testing.T) {
	svc, customers, _, _ := newSegmentationFixture(t)
	customers.put(&domain.Customer{ID: "cust-1", Status: domain.CustomerStatusInactive, Tier: domain.TierEstavel})

	outcome, err := svc.RecomputeCustomer(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.True(t, outcome.Skipped)
	assert.Equal(t, "inactive customer", outcome.SkipReason)
}

func TestRecomputeSkipsManualOverride(t *testing.T) {
	svc, customers, _, _ := newSegmentationFixture(t)
	customer := seedCustomer(customers, domain.TierCrescimento)
	customer.TierOverride = true
	customers.put(customer)

	outcome, err := svc.RecomputeCustomer(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.True(t, outcome.Skipped)
	assert.Equal(t, "manual tier override", outcome.SkipReason)
}

func TestRecomputeUnknownCustomer(t *testing.T) {
	svc, _, _, _ := newSegmentationFixture(t)

	_, err := svc.RecomputeCustomer(context.Background(), "missing")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestRecomputeUpgradeClearsGrace(t *testing.T) {
	svc, customers, usage, dispatcher := newSegmentationFixture(t)
	customer := seedCustomer(customers, domain.TierAlerta)
	customer.Grace = &domain.GracePeriod{
		Active:    true,
		FromTier:  domain.TierEstavel,
		ToTier:    domain.TierAlerta,
		StartedAt: testNow.AddDate(0, 0, -3),
		EndsAt:    testNow.AddDate(0, 0, 11),
	}
	customers.put(customer)
	usage.metrics["cust-1"] = healthyMetrics()

	outcome, err := svc.RecomputeCustomer(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TierCrescimento, outcome.NewTier)

	stored, err := customers.GetByID(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Nil(t, stored.Grace)
	assert.Equal(t, domain.TierAlerta, stored.PreviousTier)

	changed := dispatcher.byType(events.EventSegmentChanged)
	require.Len(t, changed, 1)
	payload := changed[0].Payload.(events.SegmentChangedPayload)
	assert.False(t, payload.GraceActive)
}

func TestRecomputeDowngradeOpensGrace(t *testing.T) {
	svc, customers, usage, dispatcher := newSegmentationFixture(t)
	seedCustomer(customers, domain.TierCrescimento)
	last := testNow.AddDate(0, 0, -2)
	usage.metrics["cust-1"] = domain.UsageMetrics{
		Logins:         20,
		PiecesCreated:  10,
		Downloads:      5,
		AIUsage:        4,
		ActiveDays:     9,
		LastActivityAt: &last,
	}

	outcome, err := svc.RecomputeCustomer(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TierAlerta, outcome.NewTier)
	assert.True(t, outcome.GraceStarted)

	stored, err := customers.GetByID(context.Background(), "cust-1")
	require.NoError(t, err)
	require.NotNil(t, stored.Grace)
	assert.True(t, stored.Grace.Active)
	assert.Equal(t, domain.TierCrescimento, stored.Grace.FromTier)
	assert.Equal(t, domain.TierAlerta, stored.Grace.ToTier)
	assert.Equal(t, testNow.AddDate(0, 0, 14), stored.Grace.EndsAt)

	require.Len(t, dispatcher.byType(events.EventGracePeriodStarted), 1)
	changed := dispatcher.byType(events.EventSegmentChanged)
	require.Len(t, changed, 1)
	payload := changed[0].Payload.(events.SegmentChangedPayload)
	assert.True(t, payload.GraceActive)
}

func TestRecomputeExpiredGraceReleasesPlaybook(t *testing.T) {
	svc, customers, usage, dispatcher := newSegmentationFixture(t)
	customer := seedCustomer(customers, domain.TierAlerta)
	customer.Grace = &domain.GracePeriod{
		Active:    true,
		FromTier:  domain.TierCrescimento,
		ToTier:    domain.TierAlerta,
		StartedAt: testNow.AddDate(0, 0, -20),
		EndsAt:    testNow.AddDate(0, 0, -6),
	}
	customers.put(customer)
	// No usage at all keeps the customer on a downgrade path.
	usage.metrics["cust-1"] = domain.UsageMetrics{}

	outcome, err := svc.RecomputeCustomer(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TierResgate, outcome.NewTier)
	assert.False(t, outcome.GraceStarted)

	stored, err := customers.GetByID(context.Background(), "cust-1")
	require.NoError(t, err)
	require.NotNil(t, stored.Grace)
	assert.False(t, stored.Grace.Active)

	changed := dispatcher.byType(events.EventSegmentChanged)
	require.Len(t, changed, 1)
	payload := changed[0].Payload.(events.SegmentChangedPayload)
	assert.False(t, payload.GraceActive)
}

func TestRecomputeNoChangeEmitsNothing(t *testing.T) {
	svc, customers, usage, dispatcher := newSegmentationFixture(t)
	seedCustomer(customers, domain.TierCrescimento)
	usage.metrics["cust-1"] = healthyMetrics()

	outcome, err := svc.RecomputeCustomer(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TierCrescimento, outcome.NewTier)
	assert.Empty(t, dispatcher.byType(events.EventSegmentChanged))
}

func TestRecomputeAllCountsOutcomes(t *testing.T) {
	svc, customers, usage, _ := newSegmentationFixture(t)
	customers.put(&domain.Customer{ID: "c-active", Status: domain.CustomerStatusActive, Tier: domain.TierEstavel, UserCount: 1})
	customers.put(&domain.Customer{ID: "c-override", Status: domain.CustomerStatusActive, Tier: domain.TierEstavel, TierOverride: true})
	usage.metrics["c-active"] = domain.UsageMetrics{}

	summary, err := svc.RecomputeAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.CustomersScanned)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.TiersChanged)
	assert.Equal(t, 0, summary.Errors)
}

func TestOverrideTierPinsCustomer(t *testing.T) {
	svc, customers, usage, dispatcher := newSegmentationFixture(t)
	seedCustomer(customers, domain.TierResgate)

	require.NoError(t, svc.OverrideTier(context.Background(), "cust-1", domain.TierEstavel, "contrato renegociado"))

	stored, err := customers.GetByID(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.True(t, stored.TierOverride)
	assert.Equal(t, domain.TierEstavel, stored.Tier)
	require.Len(t, dispatcher.byType(events.EventSegmentChanged), 1)

	// Pinned customers are exempt from recomputation.
	usage.metrics["cust-1"] = domain.UsageMetrics{}
	outcome, err := svc.RecomputeCustomer(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.True(t, outcome.Skipped)
}

func TestOverrideTierRejectsUnknownTier(t *testing.T) {
	svc, customers, _, _ := newSegmentationFixture(t)
	seedCustomer(customers, domain.TierEstavel)

	err := svc.OverrideTier(context.Background(), "cust-1", domain.HealthTier("PLATINA"), "")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestReleaseOverrideResumesRecompute(t *testing.T) {
	svc, customers, usage, _ := newSegmentationFixture(t)
	seedCustomer(customers, domain.TierResgate)
	require.NoError(t, svc.OverrideTier(context.Background(), "cust-1", domain.TierEstavel, "ajuste manual"))

	require.NoError(t, svc.ReleaseOverride(context.Background(), "cust-1"))

	usage.metrics["cust-1"] = healthyMetrics()
	outcome, err := svc.RecomputeCustomer(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.False(t, outcome.Skipped)
	assert.Equal(t, domain.TierCrescimento, outcome.NewTier)
}
