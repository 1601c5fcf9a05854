package models

import "time"

// EventSeverity grades an event for alerting and summaries.
type EventSeverity string

const (
	SeverityInfo    EventSeverity = "info"
	SeverityWarning EventSeverity = "warning"
	SeverityError   EventSeverity = "error"
)

// Event records a significant state transition. The ingress adapter polls
// unprocessed events to announce them outward.
type Event struct {
	ID          string        `json:"id"`
	EventType   string        `json:"event_type"`
	Severity    EventSeverity `json:"severity"`
	Description string        `json:"description"`
	Data        string        `json:"data,omitempty"`
	Processed   bool          `json:"processed"`
	CreatedAt   time.Time     `json:"created_at"`
}

// ModelUsage is the accounting row written for every model call,
// success or failure.
type ModelUsage struct {
	ID            string    `json:"id"`
	AgentID       string    `json:"agent_id"`
	StepID        string    `json:"step_id,omitempty"`
	ModelName     string    `json:"model_name"`
	Tier          ModelTier `json:"tier"`
	InputTokens   int       `json:"input_tokens"`
	OutputTokens  int       `json:"output_tokens"`
	EstimatedCost float64   `json:"estimated_cost"`
	LatencyMS     int64     `json:"latency_ms"`
	Success       bool      `json:"success"`
	Error         string    `json:"error,omitempty"`
	Metadata      string    `json:"metadata,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// HealthState is the outcome of one component probe.
type HealthState string

const (
	HealthPass    HealthState = "pass"
	HealthWarning HealthState = "warning"
	HealthFail    HealthState = "fail"
)

// HealthCheck is one timed component probe result.
type HealthCheck struct {
	ID        string      `json:"id"`
	Component string      `json:"component"`
	Status    HealthState `json:"status"`
	LatencyMS int64       `json:"latency_ms"`
	Details   string      `json:"details,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// PolicyType names the operational rule families stored in the policy table.
type PolicyType string

const (
	PolicySpendingLimit  PolicyType = "spending_limit"
	PolicyModelRouting   PolicyType = "model_routing"
	PolicyOperatingHours PolicyType = "operating_hours"
	PolicyDailySummary   PolicyType = "daily_summary"
	PolicyCostAlert      PolicyType = "cost_alert"
)

// Policy is a versioned operational-rule row; the newest version per type wins.
type Policy struct {
	ID         string     `json:"id"`
	PolicyType PolicyType `json:"policy_type"`
	Version    int        `json:"version"`
	Rules      string     `json:"rules"` // JSON document
	CreatedAt  time.Time  `json:"created_at"`
}
