package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/cs-ops-service/internal/domain"
	"github.com/spec-kit/cs-ops-service/internal/repository"
	apperrors "github.com/spec-kit/cs-ops-service/pkg/util"
)

// CustomerService covers customer reads, bug bookkeeping and usage ingestion.
type CustomerService struct {
	customers repository.CustomerRepository
	usage     repository.UsageRepository
	threads   repository.ThreadRepository
	now       func() time.Time
}

// CustomerDependencies bundles repositories.
type CustomerDependencies struct {
	CustomerRepo repository.CustomerRepository
	UsageRepo    repository.UsageRepository
	ThreadRepo   repository.ThreadRepository
	Now          func() time.Time
}

// NewCustomerService constructs the service.
func NewCustomerService(deps CustomerDependencies) *CustomerService {
	svc := &CustomerService{
		customers: deps.CustomerRepo,
		usage:     deps.UsageRepo,
		threads:   deps.ThreadRepo,
		now:       deps.Now,
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// CustomerCreateInput describes manual onboarding.
type CustomerCreateInput struct {
	Name          string
	AccountType   string
	UserCount     int
	LinkedTeamIDs []string
}

// CreateCustomer onboards a customer manually. New customers start ESTAVEL
// until the first recompute.
func (s *CustomerService) CreateCustomer(ctx context.Context, input CustomerCreateInput) (*domain.Customer, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}
	userCount := input.UserCount
	if userCount < 1 {
		userCount = 1
	}
	customer := &domain.Customer{
		Name:          name,
		Status:        domain.CustomerStatusActive,
		AccountType:   input.AccountType,
		LinkedTeamIDs: input.LinkedTeamIDs,
		UserCount:     userCount,
		Tier:          domain.TierEstavel,
		TierReason:    "cliente recem-criado, aguardando primeira avaliacao",
		PreviousTier:  domain.TierEstavel,
	}
	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, apperrors.MapError(err)
	}
	return customer, nil
}

// GetCustomer fetches one customer with recent thread summaries.
func (s *CustomerService) GetCustomer(ctx context.Context, customerID string) (*domain.Customer, []domain.ThreadSummary, error) {
	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("customer", map[string]any{"customer_id": customerID})
		}
		return nil, nil, apperrors.MapError(err)
	}
	threads, err := s.threads.ListRecent(ctx, customerID, recentThreadLimit)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return customer, threads, nil
}

// ListCustomers returns customers matching the filter.
func (s *CustomerService) ListCustomers(ctx context.Context, filter repository.CustomerFilter) ([]domain.Customer, error) {
	customers, err := s.customers.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return customers, nil
}

// BugInput describes a reported bug.
type BugInput struct {
	Title    string
	Priority domain.BugPriority
}

// AddBug appends a reported bug to the customer.
func (s *CustomerService) AddBug(ctx context.Context, customerID string, input BugInput) (*domain.Bug, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}
	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("customer", map[string]any{"customer_id": customerID})
		}
		return nil, apperrors.MapError(err)
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.BugPriorityMedium
	}
	bug := domain.Bug{
		ID:       uuid.NewString(),
		Title:    title,
		Priority: priority,
		Status:   domain.BugStatusOpen,
		OpenedAt: s.now(),
	}
	bugs := append(customer.Bugs, bug)
	if err := s.customers.UpdateBugs(ctx, customerID, bugs); err != nil {
		return nil, apperrors.MapError(err)
	}
	return &bug, nil
}

// UpdateBugStatus moves a bug through its lifecycle. Resolution stamps the
// resolved timestamp; reopening clears it.
func (s *CustomerService) UpdateBugStatus(ctx context.Context, customerID, bugID string, status domain.BugStatus) (*domain.Bug, error) {
	switch status {
	case domain.BugStatusOpen, domain.BugStatusInProgress, domain.BugStatusResolved:
	default:
		return nil, apperrors.NewValidationError("invalid bug status", map[string]any{"status": status})
	}
	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("customer", map[string]any{"customer_id": customerID})
		}
		return nil, apperrors.MapError(err)
	}

	for i := range customer.Bugs {
		if customer.Bugs[i].ID != bugID {
			continue
		}
		customer.Bugs[i].Status = status
		if status == domain.BugStatusResolved {
			resolvedAt := s.now()
			customer.Bugs[i].ResolvedAt = &resolvedAt
		} else {
			customer.Bugs[i].ResolvedAt = nil
		}
		if err := s.customers.UpdateBugs(ctx, customerID, customer.Bugs); err != nil {
			return nil, apperrors.MapError(err)
		}
		return &customer.Bugs[i], nil
	}
	return nil, apperrors.NewNotFound("bug", map[string]any{"bug_id": bugID})
}

// RecordUsageDay ingests one externally aggregated usage day.
func (s *CustomerService) RecordUsageDay(ctx context.Context, customerID string, day domain.UsageDay) error {
	if day.Day.IsZero() {
		return apperrors.NewValidationError("day required", nil)
	}
	if _, err := s.customers.GetByID(ctx, customerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("customer", map[string]any{"customer_id": customerID})
		}
		return apperrors.MapError(err)
	}
	day.CustomerID = customerID
	return apperrors.MapError(s.usage.RecordDay(ctx, day))
}

// Usage30d returns the customer's current 30-day aggregate.
func (s *CustomerService) Usage30d(ctx context.Context, customerID string) (domain.UsageMetrics, error) {
	metrics, err := s.usage.Aggregate30d(ctx, customerID, s.now())
	if err != nil {
		return domain.UsageMetrics{}, apperrors.MapError(err)
	}
	return metrics, nil
}
