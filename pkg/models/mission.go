package models

import "time"

// ProposalPriority orders pending mission proposals.
type ProposalPriority string

const (
	PriorityUrgent ProposalPriority = "urgent"
	PriorityNormal ProposalPriority = "normal"
)

// ProposalStatus is the lifecycle state of a mission proposal.
type ProposalStatus string

const (
	ProposalStatusPending  ProposalStatus = "pending"
	ProposalStatusAccepted ProposalStatus = "accepted"
	ProposalStatusDeferred ProposalStatus = "deferred"
	ProposalStatusRejected ProposalStatus = "rejected"
)

// MissionProposal is a pending work request awaiting dispatch.
type MissionProposal struct {
	ID             string           `json:"id"`
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	Priority       ProposalPriority `json:"priority"`
	ProposingAgent string           `json:"proposing_agent"`
	RawMessage     string           `json:"raw_message"`
	Status         ProposalStatus   `json:"status"`
	Processed      bool             `json:"processed"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// MissionStatus is the lifecycle state of a mission.
type MissionStatus string

const (
	MissionStatusInProgress MissionStatus = "in_progress"
	MissionStatusCompleted  MissionStatus = "completed"
	MissionStatusFailed     MissionStatus = "failed"
)

// Mission is an accepted work unit; parent of ordered steps.
type Mission struct {
	ID          string        `json:"id"`
	ProposalID  string        `json:"proposal_id"`
	TeamID      string        `json:"team_id"`
	Title       string        `json:"title"`
	Status      MissionStatus `json:"status"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// ModelTier is the cost-capability axis of the model router.
type ModelTier string

const (
	TierT1 ModelTier = "t1"
	TierT2 ModelTier = "t2"
	TierT3 ModelTier = "t3"
)

// StepStatus is the lifecycle state of a mission step.
type StepStatus string

const (
	StepStatusPending    StepStatus = "pending"
	StepStatusInProgress StepStatus = "in_progress"
	StepStatusInReview   StepStatus = "in_review"
	StepStatusCompleted  StepStatus = "completed"
	StepStatusFailed     StepStatus = "failed"
)

// IsTerminal reports whether the step can no longer change state.
func (s StepStatus) IsTerminal() bool {
	return s == StepStatusCompleted || s == StepStatusFailed
}

// MissionStep is an atomic task assigned to one agent, possibly chained
// to a predecessor. A step with StepOrder > 1 is claimable only once every
// lower-ordered sibling is completed.
type MissionStep struct {
	ID              string     `json:"id"`
	MissionID       string     `json:"mission_id"`
	Description     string     `json:"description"`
	AssignedAgentID string     `json:"assigned_agent_id"`
	ModelTier       ModelTier  `json:"model_tier"`
	StepOrder       int        `json:"step_order"`
	ParentStepID    *string    `json:"parent_step_id,omitempty"`
	Status          StepStatus `json:"status"`
	Result          string     `json:"result"`
	Error           string     `json:"error,omitempty"`
	Announced       bool       `json:"announced"`
	Processed       bool       `json:"processed"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ReviewType distinguishes the two review passes of the approval chain.
type ReviewType string

const (
	ReviewTypeQA       ReviewType = "qa"
	ReviewTypeTeamLead ReviewType = "team_lead"
)

// ApprovalStatus is the lifecycle state of a review row.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// Approval is a review row for a step in review. Resolving it may advance
// or revert the step.
type Approval struct {
	ID              string         `json:"id"`
	MissionStepID   string         `json:"mission_step_id"`
	ReviewerAgentID string         `json:"reviewer_agent_id"`
	ReviewType      ReviewType     `json:"review_type"`
	Status          ApprovalStatus `json:"status"`
	Feedback        string         `json:"feedback"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// ProjectStatus is the lifecycle state of a multi-phase project.
type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusCompleted ProjectStatus = "completed"
)

// Project advances through a fixed phase sequence; each completed mission
// moves it to the next phase.
type Project struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Description      string        `json:"description"`
	Phase            int           `json:"phase"`
	Status           ProjectStatus `json:"status"`
	CurrentMissionID *string       `json:"current_mission_id,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}
