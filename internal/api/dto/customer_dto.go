package dto

import (
	"time"

	"github.com/spec-kit/cs-ops-service/internal/domain"
)

// CreateCustomerRequest payload.
type CreateCustomerRequest struct {
	Name          string   `json:"name"`
	AccountType   string   `json:"account_type"`
	UserCount     int      `json:"user_count"`
	LinkedTeamIDs []string `json:"linked_team_ids"`
}

// CustomerListQuery captures query filters.
type CustomerListQuery struct {
	Status   *domain.CustomerStatus
	Tier     *domain.HealthTier
	Page     int
	PageSize int
}

// GracePeriodResponse exposes the active grace window.
type GracePeriodResponse struct {
	Active    bool              `json:"active"`
	FromTier  domain.HealthTier `json:"from_tier"`
	ToTier    domain.HealthTier `json:"to_tier"`
	StartedAt time.Time         `json:"started_at"`
	EndsAt    time.Time         `json:"ends_at"`
	Reason    string            `json:"reason"`
}

// CustomerSummary response.
type CustomerSummary struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Status       domain.CustomerStatus `json:"status"`
	AccountType  string                `json:"account_type"`
	UserCount    int                   `json:"user_count"`
	Tier         domain.HealthTier     `json:"segmento"`
	TierReason   string                `json:"motivo"`
	TierOverride bool                  `json:"tier_override"`
	OpenBugs     int                   `json:"open_bugs"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// CustomerDetailResponse provides full customer info.
type CustomerDetailResponse struct {
	ID            string                 `json:"id"`
	Name          string                 `json:"name"`
	Status        domain.CustomerStatus  `json:"status"`
	AccountType   string                 `json:"account_type"`
	ProblemTags   []string               `json:"problem_tags"`
	LinkedTeamIDs []string               `json:"linked_team_ids"`
	UserCount     int                    `json:"user_count"`
	Tier          domain.HealthTier      `json:"segmento"`
	TierReason    string                 `json:"motivo"`
	TierOverride  bool                   `json:"tier_override"`
	PreviousTier  domain.HealthTier      `json:"previous_tier"`
	Grace         *GracePeriodResponse   `json:"grace,omitempty"`
	Bugs          []domain.Bug           `json:"bugs"`
	Threads       []domain.ThreadSummary `json:"threads"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// NewCustomerSummary maps a domain customer.
func NewCustomerSummary(customer *domain.Customer) CustomerSummary {
	return CustomerSummary{
		ID:           customer.ID,
		Name:         customer.Name,
		Status:       customer.Status,
		AccountType:  customer.AccountType,
		UserCount:    customer.UserCount,
		Tier:         customer.Tier,
		TierReason:   customer.TierReason,
		TierOverride: customer.TierOverride,
		OpenBugs:     customer.OpenBugCount(),
		UpdatedAt:    customer.UpdatedAt,
	}
}

// NewCustomerDetailResponse maps a domain customer plus its recent threads.
func NewCustomerDetailResponse(customer *domain.Customer, threads []domain.ThreadSummary) CustomerDetailResponse {
	resp := CustomerDetailResponse{
		ID:            customer.ID,
		Name:          customer.Name,
		Status:        customer.Status,
		AccountType:   customer.AccountType,
		ProblemTags:   customer.ProblemTags,
		LinkedTeamIDs: customer.LinkedTeamIDs,
		UserCount:     customer.UserCount,
		Tier:          customer.Tier,
		TierReason:    customer.TierReason,
		TierOverride:  customer.TierOverride,
		PreviousTier:  customer.PreviousTier,
		Bugs:          customer.Bugs,
		Threads:       threads,
		CreatedAt:     customer.CreatedAt,
		UpdatedAt:     customer.UpdatedAt,
	}
	if customer.Grace != nil {
		resp.Grace = &GracePeriodResponse{
			Active:    customer.Grace.Active,
			FromTier:  customer.Grace.FromTier,
			ToTier:    customer.Grace.ToTier,
			StartedAt: customer.Grace.StartedAt,
			EndsAt:    customer.Grace.EndsAt,
			Reason:    customer.Grace.Reason,
		}
	}
	if resp.Bugs == nil {
		resp.Bugs = []domain.Bug{}
	}
	if resp.Threads == nil {
		resp.Threads = []domain.ThreadSummary{}
	}
	return resp
}

// CreateBugRequest payload.
type CreateBugRequest struct {
	Title    string             `json:"title"`
	Priority domain.BugPriority `json:"priority"`
}

// UpdateBugRequest payload.
type UpdateBugRequest struct {
	Status domain.BugStatus `json:"status"`
}

// RecordUsageDayRequest is one externally aggregated activity day.
type RecordUsageDayRequest struct {
	Day           time.Time `json:"day"`
	Logins        int       `json:"logins"`
	PiecesCreated int       `json:"pieces_created"`
	Downloads     int       `json:"downloads"`
	AIUsage       int       `json:"ai_usage"`
}
