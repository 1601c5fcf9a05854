// Package models defines the row types and status enums shared by the
// services, dispatcher, and executor.
package models

import "time"

// AgentType classifies an agent's position in the org.
type AgentType string

const (
	AgentTypeChiefOfStaff AgentType = "chief_of_staff"
	AgentTypeTeamLead     AgentType = "team_lead"
	AgentTypeQA           AgentType = "qa"
	AgentTypeSubAgent     AgentType = "sub_agent"
)

// AgentStatus is the lifecycle state of an agent.
type AgentStatus string

const (
	AgentStatusActive  AgentStatus = "active"
	AgentStatusDormant AgentStatus = "dormant"
	AgentStatusRetired AgentStatus = "retired"
)

// Agent is a persistent identity with a role, persona, memory, and skills.
type Agent struct {
	ID               string      `json:"id"`
	DisplayName      string      `json:"display_name"`
	Role             string      `json:"role"`
	AgentType        AgentType   `json:"agent_type"`
	TeamID           *string     `json:"team_id,omitempty"`
	Status           AgentStatus `json:"status"`
	PersonaVersionID *string     `json:"persona_version_id,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// TeamStatus is the lifecycle state of a team.
type TeamStatus string

const (
	TeamStatusActive  TeamStatus = "active"
	TeamStatusDormant TeamStatus = "dormant"
)

// Team is a named collection of agents; the unit of activation / dormancy.
type Team struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Status      TeamStatus `json:"status"`
	LeadAgentID *string    `json:"lead_agent_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NamePoolEntry is one entry in the finite agent name pool.
// A name is assigned to at most one non-retired agent at a time.
type NamePoolEntry struct {
	Name       string     `json:"name"`
	Source     string     `json:"source"`
	Assigned   bool       `json:"assigned"`
	AssignedTo *string    `json:"assigned_to,omitempty"`
	AssignedAt *time.Time `json:"assigned_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Persona is one immutable version of an agent's system-prompt identity.
// The agent's persona_version_id always points at the newest version.
type Persona struct {
	ID          string    `json:"id"`
	AgentID     string    `json:"agent_id"`
	Version     int       `json:"version"`
	Identity    string    `json:"identity"`
	Personality string    `json:"personality"`
	Skills      string    `json:"skills"`
	Background  string    `json:"background"`
	SystemText  string    `json:"system_text"`
	CreatedAt   time.Time `json:"created_at"`
}

// HiringStatus is the lifecycle state of a hiring proposal.
type HiringStatus string

const (
	HiringStatusPending   HiringStatus = "pending"
	HiringStatusApproved  HiringStatus = "approved"
	HiringStatusRejected  HiringStatus = "rejected"
	HiringStatusCompleted HiringStatus = "completed"
)

// HiringProposal asks the founder to approve a new agent for a team.
// At most one pending proposal exists per (role, team).
type HiringProposal struct {
	ID                    string       `json:"id"`
	RoleTitle             string       `json:"role_title"`
	TeamID                string       `json:"team_id"`
	Justification         string       `json:"justification"`
	Status                HiringStatus `json:"status"`
	Announced             bool         `json:"announced"`
	TriggeringProposalID  *string      `json:"triggering_proposal_id,omitempty"`
	CreatedAgentID        *string      `json:"created_agent_id,omitempty"`
	CreatedAt             time.Time    `json:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at"`
}
