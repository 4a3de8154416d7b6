package domain

import "time"

// AgentRole enumerates CS staff roles.
type AgentRole string

const (
	AgentRoleAdmin AgentRole = "ADMIN"
	AgentRoleCS    AgentRole = "CS_AGENT"
)

// Agent is a CS operator who works customer cycles and bugs.
type Agent struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         AgentRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SystemActorID marks mutations applied by background reconciliation rather
// than a human agent.
const SystemActorID = "system:sync"
