// Package tracker models the narrow external task-tracker collaborator used
// to mirror ongoing-cycle actions. The tracker is advisory: local documents
// stay authoritative and mirror failures never abort a workflow.
package tracker

import (
	"context"
	"fmt"

	"github.com/spec-kit/cs-ops-service/internal/domain"
)

// External status vocabulary.
const (
	ExternalStatusResolved = "resolved"
	ExternalStatusIgnored  = "ignored"
	ExternalStatusPending  = "pendente"
)

// TaskRef identifies a mirrored task on the external side.
type TaskRef struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Task is the external task shape the reconciliation sweep reads.
type Task struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Client is the external task-tracker collaborator. Configured gates every
// mirror operation; an unconfigured client is a silent no-op for callers.
type Client interface {
	Configured() bool
	CreateTask(ctx context.Context, action domain.Action, cycle *domain.OngoingCycle, customer *domain.Customer) (*TaskRef, error)
	UpdateTaskStatus(ctx context.Context, taskID, externalStatus string) error
	FetchTask(ctx context.Context, taskID string) (*Task, error)
}

// ExternalStatus maps a local action status to the tracker vocabulary.
func ExternalStatus(status domain.ActionStatus) string {
	switch status {
	case domain.ActionStatusCompleted:
		return ExternalStatusResolved
	case domain.ActionStatusSkipped:
		return ExternalStatusIgnored
	default:
		return ExternalStatusPending
	}
}

// LocalStatus maps an external status back. Unrecognized statuses report
// ok=false and must cause no local change.
func LocalStatus(externalStatus string) (domain.ActionStatus, bool) {
	switch externalStatus {
	case ExternalStatusResolved:
		return domain.ActionStatusCompleted, true
	case ExternalStatusIgnored:
		return domain.ActionStatusSkipped, true
	case ExternalStatusPending:
		return domain.ActionStatusPending, true
	default:
		return "", false
	}
}

// MirrorError is the typed outcome of a failed mirror sub-step. It is logged
// and swallowed at call sites; local state is never rolled back because of it.
type MirrorError struct {
	Op         string
	ActionName string
	Err        error
}

func (e *MirrorError) Error() string {
	return fmt.Sprintf("mirror %s failed for action %q: %v", e.Op, e.ActionName, e.Err)
}

func (e *MirrorError) Unwrap() error {
	return e.Err
}

// Disabled is the no-op client used when no tracker is configured.
type Disabled struct{}

func (Disabled) Configured() bool { return false }

func (Disabled) CreateTask(ctx context.Context, action domain.Action, cycle *domain.OngoingCycle, customer *domain.Customer) (*TaskRef, error) {
	return nil, nil
}

func (Disabled) UpdateTaskStatus(ctx context.Context, taskID, externalStatus string) error {
	return nil
}

func (Disabled) FetchTask(ctx context.Context, taskID string) (*Task, error) {
	return nil, nil
}
