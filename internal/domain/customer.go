package domain

import "time"

// HealthTier classifies a customer's CS health, ascending severity.
type HealthTier string

const (
	TierCrescimento HealthTier = "CRESCIMENTO"
	TierEstavel     HealthTier = "ESTAVEL"
	TierAlerta      HealthTier = "ALERTA"
	TierResgate     HealthTier = "RESGATE"
)

var tierSeverity = map[HealthTier]int{
	TierCrescimento: 0,
	TierEstavel:     1,
	TierAlerta:      2,
	TierResgate:     3,
}

// Severity returns the tier's position in the severity order (0 = best).
// Unknown tiers rank worst.
func (t HealthTier) Severity() int {
	if s, ok := tierSeverity[t]; ok {
		return s
	}
	return len(tierSeverity)
}

// WorseThan reports whether t is more severe than other.
func (t HealthTier) WorseThan(other HealthTier) bool {
	return t.Severity() > other.Severity()
}

// Valid reports whether t is one of the four known tiers.
func (t HealthTier) Valid() bool {
	_, ok := tierSeverity[t]
	return ok
}

// CustomerStatus represents lifecycle states for a customer account.
type CustomerStatus string

const (
	CustomerStatusActive   CustomerStatus = "ACTIVE"
	CustomerStatusInactive CustomerStatus = "INACTIVE"
)

// BugStatus tracks a reported bug through its lifecycle. Values follow the
// product's original vocabulary.
type BugStatus string

const (
	BugStatusOpen       BugStatus = "aberto"
	BugStatusInProgress BugStatus = "em_andamento"
	BugStatusResolved   BugStatus = "resolvido"
)

// BugPriority enumerates reported-bug urgency.
type BugPriority string

const (
	BugPriorityLow    BugPriority = "LOW"
	BugPriorityMedium BugPriority = "MEDIUM"
	BugPriorityHigh   BugPriority = "HIGH"
	BugPriorityUrgent BugPriority = "URGENT"
)

// Bug is a customer-reported defect tracked by CS agents.
type Bug struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Priority   BugPriority `json:"priority"`
	Status     BugStatus   `json:"status"`
	OpenedAt   time.Time   `json:"opened_at"`
	ResolvedAt *time.Time  `json:"resolved_at,omitempty"`
}

// Open reports whether the bug still counts against the customer's health.
func (b Bug) Open() bool {
	return b.Status != BugStatusResolved
}

// GracePeriod records the delay window after a tier downgrade before the full
// downgrade playbook fires.
type GracePeriod struct {
	Active    bool       `json:"active"`
	FromTier  HealthTier `json:"from_tier"`
	ToTier    HealthTier `json:"to_tier"`
	StartedAt time.Time  `json:"started_at"`
	EndsAt    time.Time  `json:"ends_at"`
	Reason    string     `json:"reason"`
}

// Expired reports whether the grace window has lapsed at the given instant.
func (g *GracePeriod) Expired(now time.Time) bool {
	return g == nil || !g.Active || !now.Before(g.EndsAt)
}

// Customer is the aggregate for one account under CS management. Customers are
// created out-of-band by CRM sync and never hard-deleted here.
type Customer struct {
	ID            string
	Name          string
	Status        CustomerStatus
	AccountType   string
	ProblemTags   []string
	Bugs          []Bug
	LinkedTeamIDs []string
	UserCount     int
	Tier          HealthTier
	TierOverride  bool
	TierReason    string
	PreviousTier  HealthTier
	Grace         *GracePeriod
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OpenBugCount counts non-resolved bugs.
func (c *Customer) OpenBugCount() int {
	count := 0
	for _, bug := range c.Bugs {
		if bug.Open() {
			count++
		}
	}
	return count
}

// FirstOpenBug returns the first non-resolved bug, or nil.
func (c *Customer) FirstOpenBug() *Bug {
	for i := range c.Bugs {
		if c.Bugs[i].Open() {
			return &c.Bugs[i]
		}
	}
	return nil
}
