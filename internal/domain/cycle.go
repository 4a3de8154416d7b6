package domain

import (
	"math"
	"time"
)

// CycleStatus enumerates lifecycle states for an ongoing cycle.
type CycleStatus string

const (
	CycleStatusInProgress CycleStatus = "in_progress"
	CycleStatusCompleted  CycleStatus = "completed"
	CycleStatusCancelled  CycleStatus = "cancelled"
)

// Cadence is the fixed duration class of an ongoing cycle.
type Cadence string

const (
	CadenceMonthly   Cadence = "monthly"
	CadenceBimonthly Cadence = "bimonthly"
)

// Days maps a cadence to its day count. Unknown cadences fall back to monthly.
func (c Cadence) Days() int {
	switch c {
	case CadenceBimonthly:
		return 60
	default:
		return 30
	}
}

// ActionStatus tracks one checklist action.
type ActionStatus string

const (
	ActionStatusPending   ActionStatus = "pending"
	ActionStatusCompleted ActionStatus = "completed"
	ActionStatusSkipped   ActionStatus = "skipped"
)

// Terminal reports whether the status counts toward cycle progress.
func (s ActionStatus) Terminal() bool {
	return s == ActionStatusCompleted || s == ActionStatusSkipped
}

// Action is one dated checklist entry inside an ongoing cycle.
type Action struct {
	Name            string       `json:"name"`
	DayOffset       int          `json:"day_offset"`
	DueDate         time.Time    `json:"due_date"`
	Status          ActionStatus `json:"status"`
	CompletedAt     *time.Time   `json:"completed_at,omitempty"`
	CompletedBy     *string      `json:"completed_by,omitempty"`
	Notes           string       `json:"notes,omitempty"`
	ExternalTaskID  *string      `json:"external_task_id,omitempty"`
	ExternalTaskURL *string      `json:"external_task_url,omitempty"`
}

// OngoingCycle assigns a recurring action checklist to a customer for a
// bounded period. Version backs optimistic-concurrency checks on the action
// list.
type OngoingCycle struct {
	ID            string
	CustomerID    string
	Segment       HealthTier
	Cadence       Cadence
	StartDate     time.Time
	EndDate       time.Time
	Status        CycleStatus
	Progress      int
	Actions       []Action
	MirrorEnabled bool
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ComputeProgress returns round(100 * terminal / total) for the action list.
func ComputeProgress(actions []Action) int {
	if len(actions) == 0 {
		return 0
	}
	terminal := 0
	for _, action := range actions {
		if action.Status.Terminal() {
			terminal++
		}
	}
	return int(math.Round(100 * float64(terminal) / float64(len(actions))))
}

// AllActionsTerminal reports whether every action is completed or skipped.
func AllActionsTerminal(actions []Action) bool {
	if len(actions) == 0 {
		return false
	}
	for _, action := range actions {
		if !action.Status.Terminal() {
			return false
		}
	}
	return true
}
