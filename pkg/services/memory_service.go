package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/voxyz/agentworld/pkg/database"
	"github.com/voxyz/agentworld/pkg/models"
)

// MemoryService manages the append-only per-agent experience log, lessons,
// decisions, and conversation history. Nothing here ever updates a memory
// row in place.
type MemoryService struct {
	client *database.Client
}

// NewMemoryService creates a new MemoryService.
func NewMemoryService(client *database.Client) *MemoryService {
	return &MemoryService{client: client}
}

// Bundle shape: retrieval is keyword-and-recency based by explicit decision.
const (
	recentLimit  = 10
	topicLimit   = 10
	lessonsLimit = 5
)

const memoryColumns = `id, agent_id, memory_type, content, summary, topic_tags, importance,
	source_type, source_id, related_agent_ids, created_at`

func scanMemory(row interface{ Scan(...any) error }) (*models.AgentMemory, error) {
	var m models.AgentMemory
	var tags, related []byte
	err := row.Scan(&m.ID, &m.AgentID, &m.MemoryType, &m.Content, &m.Summary, &tags,
		&m.Importance, &m.SourceType, &m.SourceID, &related, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tags, &m.TopicTags); err != nil {
		return nil, fmt.Errorf("failed to decode topic tags: %w", err)
	}
	if err := json.Unmarshal(related, &m.RelatedAgentIDs); err != nil {
		return nil, fmt.Errorf("failed to decode related agents: %w", err)
	}
	return &m, nil
}

// SaveMemoryInput carries the fields of a new memory row.
type SaveMemoryInput struct {
	AgentID         string
	MemoryType      models.MemoryType
	Content         string
	Summary         string
	TopicTags       []string
	Importance      int
	SourceType      string
	SourceID        string
	RelatedAgentIDs []string
}

// SaveMemory appends one experience record.
func (s *MemoryService) SaveMemory(ctx context.Context, in SaveMemoryInput) (*models.AgentMemory, error) {
	if in.AgentID == "" {
		return nil, NewValidationError("agent_id", "required")
	}
	if in.MemoryType == "" {
		return nil, NewValidationError("memory_type", "required")
	}
	if in.Importance < 1 {
		in.Importance = 1
	}
	if in.Importance > 10 {
		in.Importance = 10
	}

	tags, err := json.Marshal(emptyIfNil(in.TopicTags))
	if err != nil {
		return nil, fmt.Errorf("failed to encode topic tags: %w", err)
	}
	related, err := json.Marshal(emptyIfNil(in.RelatedAgentIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to encode related agents: %w", err)
	}

	row := s.client.DB().QueryRowContext(ctx, `
		INSERT INTO agent_memories (id, agent_id, memory_type, content, summary, topic_tags, importance, source_type, source_id, related_agent_ids)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8, $9, $10::jsonb)
		RETURNING `+memoryColumns,
		uuid.New().String(), in.AgentID, in.MemoryType, in.Content, in.Summary,
		string(tags), in.Importance, in.SourceType, in.SourceID, string(related))

	m, err := scanMemory(row)
	if err != nil {
		return nil, fmt.Errorf("failed to save memory: %w", err)
	}
	return m, nil
}

func emptyIfNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

// SaveLesson appends one distilled lesson.
func (s *MemoryService) SaveLesson(ctx context.Context, agentID, text, category string, importance int) (*models.Lesson, error) {
	if agentID == "" {
		return nil, NewValidationError("agent_id", "required")
	}
	if text == "" {
		return nil, NewValidationError("text", "required")
	}

	var l models.Lesson
	err := s.client.DB().QueryRowContext(ctx, `
		INSERT INTO lessons_learned (id, agent_id, text, category, importance)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, agent_id, text, category, importance, applied_count, created_at`,
		uuid.New().String(), agentID, text, category, importance).
		Scan(&l.ID, &l.AgentID, &l.Text, &l.Category, &l.Importance, &l.AppliedCount, &l.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save lesson: %w", err)
	}
	return &l, nil
}

// IncrementLessonApplied bumps a lesson's applied counter. The text itself
// never changes.
func (s *MemoryService) IncrementLessonApplied(ctx context.Context, lessonID string) error {
	_, err := s.client.DB().ExecContext(ctx,
		`UPDATE lessons_learned SET applied_count = applied_count + 1 WHERE id = $1`, lessonID)
	if err != nil {
		return fmt.Errorf("failed to increment lesson applied count: %w", err)
	}
	return nil
}

// LogDecision appends one decision record.
func (s *MemoryService) LogDecision(ctx context.Context, agentID, decision, rationale, detail string) error {
	if agentID == "" {
		return NewValidationError("agent_id", "required")
	}
	if decision == "" {
		return NewValidationError("decision", "required")
	}

	_, err := s.client.DB().ExecContext(ctx, `
		INSERT INTO decision_log (id, agent_id, decision, rationale, context)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), agentID, decision, rationale, detail)
	if err != nil {
		return fmt.Errorf("failed to log decision: %w", err)
	}
	return nil
}

// SaveConversation appends one conversation turn.
func (s *MemoryService) SaveConversation(ctx context.Context, conversationID, agentID, role, content string) error {
	if conversationID == "" {
		return NewValidationError("conversation_id", "required")
	}
	if agentID == "" {
		return NewValidationError("agent_id", "required")
	}

	_, err := s.client.DB().ExecContext(ctx, `
		INSERT INTO conversation_history (id, conversation_id, agent_id, role, content)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), conversationID, agentID, role, content)
	if err != nil {
		return fmt.Errorf("failed to save conversation turn: %w", err)
	}
	return nil
}

// Retrieve assembles the fixed-shape memory bundle for a prompt:
// last 10 memories by recency, up to 10 topic-matched memories (importance
// then recency, deduplicated against recent), and the top 5 lessons by
// importance then applied count.
func (s *MemoryService) Retrieve(ctx context.Context, agentID string, tags []string) (*models.MemoryBundle, error) {
	bundle := &models.MemoryBundle{}

	recent, err := s.queryMemories(ctx, `
		SELECT `+memoryColumns+` FROM agent_memories
		WHERE agent_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, agentID, recentLimit)
	if err != nil {
		return nil, err
	}
	bundle.Recent = recent

	if len(tags) > 0 {
		tagsJSON, err := json.Marshal(tags)
		if err != nil {
			return nil, fmt.Errorf("failed to encode query tags: %w", err)
		}
		matched, err := s.queryMemories(ctx, `
			SELECT `+memoryColumns+` FROM agent_memories
			WHERE agent_id = $1
			  AND topic_tags ?| ARRAY(SELECT jsonb_array_elements_text($3::jsonb))
			ORDER BY importance DESC, created_at DESC
			LIMIT $2`, agentID, topicLimit, string(tagsJSON))
		if err != nil {
			return nil, err
		}

		seen := make(map[string]bool, len(recent))
		for _, m := range recent {
			seen[m.ID] = true
		}
		for _, m := range matched {
			if !seen[m.ID] {
				bundle.TopicMatched = append(bundle.TopicMatched, m)
			}
		}
	}

	rows, err := s.client.DB().QueryContext(ctx, `
		SELECT id, agent_id, text, category, importance, applied_count, created_at
		FROM lessons_learned
		WHERE agent_id = $1
		ORDER BY importance DESC, applied_count DESC
		LIMIT $2`, agentID, lessonsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query lessons: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l models.Lesson
		if err := rows.Scan(&l.ID, &l.AgentID, &l.Text, &l.Category, &l.Importance, &l.AppliedCount, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan lesson: %w", err)
		}
		bundle.Lessons = append(bundle.Lessons, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return bundle, nil
}

func (s *MemoryService) queryMemories(ctx context.Context, query string, args ...any) ([]models.AgentMemory, error) {
	rows, err := s.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}
	defer rows.Close()

	var out []models.AgentMemory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}
