package dto

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/spec-kit/cs-ops-service/internal/domain"
)

const defaultActionDayOffset = 7

// ActionEntry is one checklist action in an assignment request. The wire
// format accepts either a bare string ("Reuniao de kickoff") or an object
// with an explicit day offset ({"name": "...", "dias": 15}). A bare string,
// or an object without "dias", lands on day 7; an explicit 0 is honored.
type ActionEntry struct {
	Name      string
	DayOffset int
}

func (a *ActionEntry) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		a.Name = strings.TrimSpace(name)
		a.DayOffset = defaultActionDayOffset
		return nil
	}

	var obj struct {
		Name string `json:"name"`
		Dias *int   `json:"dias"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return errors.New("action must be a string or an object with name and dias")
	}
	a.Name = strings.TrimSpace(obj.Name)
	if obj.Dias != nil {
		a.DayOffset = *obj.Dias
	} else {
		a.DayOffset = defaultActionDayOffset
	}
	return nil
}

// AssignCycleRequest payload.
type AssignCycleRequest struct {
	Segment   domain.HealthTier `json:"segmento"`
	Cadence   domain.Cadence    `json:"cadence"`
	StartDate *time.Time        `json:"start_date"`
	Actions   []ActionEntry     `json:"acoes"`
	Mirror    bool              `json:"mirror"`
}

// UpdateActionRequest payload.
type UpdateActionRequest struct {
	Status domain.ActionStatus `json:"status"`
	Notes  string              `json:"notes"`
}

// ActionResponse represents one checklist action.
type ActionResponse struct {
	Name            string              `json:"name"`
	DayOffset       int                 `json:"day_offset"`
	DueDate         time.Time           `json:"due_date"`
	Status          domain.ActionStatus `json:"status"`
	CompletedAt     *time.Time          `json:"completed_at,omitempty"`
	CompletedBy     *string             `json:"completed_by,omitempty"`
	Notes           string              `json:"notes,omitempty"`
	ExternalTaskID  *string             `json:"external_task_id,omitempty"`
	ExternalTaskURL *string             `json:"external_task_url,omitempty"`
}

// CycleResponse provides full cycle info.
type CycleResponse struct {
	ID            string             `json:"id"`
	CustomerID    string             `json:"customer_id"`
	Segment       domain.HealthTier  `json:"segmento"`
	Cadence       domain.Cadence     `json:"cadence"`
	StartDate     time.Time          `json:"start_date"`
	EndDate       time.Time          `json:"end_date"`
	Status        domain.CycleStatus `json:"status"`
	Progress      int                `json:"progress"`
	Actions       []ActionResponse   `json:"acoes"`
	MirrorEnabled bool               `json:"mirror_enabled"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// NewCycleResponse maps a domain cycle.
func NewCycleResponse(cycle *domain.OngoingCycle) CycleResponse {
	actions := make([]ActionResponse, 0, len(cycle.Actions))
	for _, action := range cycle.Actions {
		actions = append(actions, ActionResponse{
			Name:            action.Name,
			DayOffset:       action.DayOffset,
			DueDate:         action.DueDate,
			Status:          action.Status,
			CompletedAt:     action.CompletedAt,
			CompletedBy:     action.CompletedBy,
			Notes:           action.Notes,
			ExternalTaskID:  action.ExternalTaskID,
			ExternalTaskURL: action.ExternalTaskURL,
		})
	}
	return CycleResponse{
		ID:            cycle.ID,
		CustomerID:    cycle.CustomerID,
		Segment:       cycle.Segment,
		Cadence:       cycle.Cadence,
		StartDate:     cycle.StartDate,
		EndDate:       cycle.EndDate,
		Status:        cycle.Status,
		Progress:      cycle.Progress,
		Actions:       actions,
		MirrorEnabled: cycle.MirrorEnabled,
		CreatedAt:     cycle.CreatedAt,
		UpdatedAt:     cycle.UpdatedAt,
	}
}

// NewCycleListResponse maps a cycle slice.
func NewCycleListResponse(cycles []domain.OngoingCycle) []CycleResponse {
	out := make([]CycleResponse, 0, len(cycles))
	for i := range cycles {
		out = append(out, NewCycleResponse(&cycles[i]))
	}
	return out
}
