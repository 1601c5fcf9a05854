package models

import "time"

// MemoryType classifies an agent memory entry.
type MemoryType string

const (
	MemoryTypeTask         MemoryType = "task"
	MemoryTypeConversation MemoryType = "conversation"
	MemoryTypeObservation  MemoryType = "observation"
	MemoryTypeDecision     MemoryType = "decision"
	MemoryTypeLesson       MemoryType = "lesson"
)

// AgentMemory is one append-only experience record for an agent.
// Rows are never updated in place.
type AgentMemory struct {
	ID              string     `json:"id"`
	AgentID         string     `json:"agent_id"`
	MemoryType      MemoryType `json:"memory_type"`
	Content         string     `json:"content"`
	Summary         string     `json:"summary"`
	TopicTags       []string   `json:"topic_tags"`
	Importance      int        `json:"importance"`
	SourceType      string     `json:"source_type"`
	SourceID        string     `json:"source_id"`
	RelatedAgentIDs []string   `json:"related_agent_ids,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Lesson is distilled wisdom; used preferentially by retrieval.
// Text never changes after insert; only AppliedCount may increment.
type Lesson struct {
	ID           string    `json:"id"`
	AgentID      string    `json:"agent_id"`
	Text         string    `json:"text"`
	Category     string    `json:"category"`
	Importance   int       `json:"importance"`
	AppliedCount int       `json:"applied_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// DecisionLog records one decision an agent made, append-only.
type DecisionLog struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agent_id"`
	Decision  string    `json:"decision"`
	Rationale string    `json:"rationale"`
	Context   string    `json:"context"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationTurn is one message (a prompt or a response, told apart by
// Role) in an agent conversation.
// Turns are grouped by ConversationID.
type ConversationTurn struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	AgentID        string    `json:"agent_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// MemoryBundle is the fixed-shape retrieval result used to build prompts.
type MemoryBundle struct {
	Recent       []AgentMemory `json:"recent"`
	TopicMatched []AgentMemory `json:"topic_matched"`
	Lessons      []Lesson      `json:"lessons"`
}

// Skill is a per-agent (name, proficiency, usage) tuple. Proficiency is
// 1-10 and advances on usage-count thresholds.
type Skill struct {
	ID          string     `json:"id"`
	AgentID     string     `json:"agent_id"`
	Name        string     `json:"name"`
	Proficiency int        `json:"proficiency"`
	UsageCount  int        `json:"usage_count"`
	LastUsed    *time.Time `json:"last_used,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
