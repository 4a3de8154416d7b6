package events

import (
	"time"

	"github.com/spec-kit/cs-ops-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSegmentChanged     EventType = "customer_segment_changed"
	EventGracePeriodStarted EventType = "grace_period_started"
	EventCycleAssigned      EventType = "cycle_assigned"
	EventCycleActionUpdated EventType = "cycle_action_updated"
	EventCycleCompleted     EventType = "cycle_completed"
	EventCycleCancelled     EventType = "cycle_cancelled"
)

// Actor encapsulates actor metadata for an event. System events (background
// sweeps) carry the system actor id.
type Actor struct {
	AgentID string `json:"agent_id,omitempty"`
	System  bool   `json:"system,omitempty"`
}

// AgentActor builds an actor for a human agent.
func AgentActor(agentID string) Actor {
	return Actor{AgentID: agentID}
}

// SystemActor builds an actor for background reconciliation.
func SystemActor() Actor {
	return Actor{AgentID: domain.SystemActorID, System: true}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	CustomerID string      `json:"customer_id"`
	CycleID    string      `json:"cycle_id,omitempty"`
	Actor      Actor       `json:"actor"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// SegmentChangedPayload payload.
type SegmentChangedPayload struct {
	OldTier domain.HealthTier `json:"old_tier"`
	NewTier domain.HealthTier `json:"new_tier"`
	Reason  string            `json:"reason"`
	// Downgrade playbooks only fire once any grace period has lapsed.
	GraceActive bool `json:"grace_active"`
}

// GracePeriodStartedPayload payload.
type GracePeriodStartedPayload struct {
	FromTier domain.HealthTier `json:"from_tier"`
	ToTier   domain.HealthTier `json:"to_tier"`
	EndsAt   time.Time         `json:"ends_at"`
	Reason   string            `json:"reason"`
}

// CycleAssignedPayload payload.
type CycleAssignedPayload struct {
	Segment       domain.HealthTier `json:"segment"`
	Cadence       domain.Cadence    `json:"cadence"`
	ActionCount   int               `json:"action_count"`
	MirrorEnabled bool              `json:"mirror_enabled"`
}

// CycleActionUpdatedPayload payload.
type CycleActionUpdatedPayload struct {
	ActionIndex int                 `json:"action_index"`
	ActionName  string              `json:"action_name"`
	OldStatus   domain.ActionStatus `json:"old_status"`
	NewStatus   domain.ActionStatus `json:"new_status"`
	Progress    int                 `json:"progress"`
}

// CycleCompletedPayload payload.
type CycleCompletedPayload struct {
	Progress int `json:"progress"`
}

// CycleCancelledPayload payload.
type CycleCancelledPayload struct {
	Progress int `json:"progress"`
}
