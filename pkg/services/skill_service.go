package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/voxyz/agentworld/pkg/database"
	"github.com/voxyz/agentworld/pkg/models"
)

// SkillService manages per-agent skill rows: initial seeding on hire,
// keyword-driven usage tracking, and threshold-based proficiency advancement.
type SkillService struct {
	client *database.Client
}

// NewSkillService creates a new SkillService.
func NewSkillService(client *database.Client) *SkillService {
	return &SkillService{client: client}
}

// proficiencyThresholds is the monotonic usage-count ladder. Proficiency n
// requires usage_count >= proficiencyThresholds[n-1]; maximum is 10.
var proficiencyThresholds = []int{0, 5, 12, 22, 35, 52, 73, 100, 135, 180}

// ProficiencyForUsage returns the proficiency level implied by a usage count.
func ProficiencyForUsage(usageCount int) int {
	level := 1
	for i, threshold := range proficiencyThresholds {
		if usageCount >= threshold {
			level = i + 1
		}
	}
	if level > 10 {
		level = 10
	}
	return level
}

// skillKeywords maps each trackable skill to the description keywords that
// count as usage. Fixed dictionary; matches are case-insensitive substrings.
var skillKeywords = map[string][]string{
	"market research":          {"research", "competitive", "market", "benchmark"},
	"data analysis":            {"analyze", "analysis", "data", "metrics"},
	"report writing":           {"report", "summary", "findings", "brief"},
	"strategic planning":       {"strategy", "roadmap", "plan", "vision"},
	"business analysis":        {"business case", "revenue", "cost", "opportunity"},
	"prioritization":           {"prioritize", "priority", "tradeoff"},
	"copywriting":              {"write", "blog", "copy", "article", "post"},
	"editing":                  {"edit", "revise", "proofread"},
	"storytelling":             {"story", "narrative", "script"},
	"software design":          {"design", "architecture", "api", "schema"},
	"debugging":                {"bug", "debug", "fix", "error"},
	"automation":               {"automate", "script", "pipeline", "deploy"},
	"test design":              {"test", "coverage", "regression"},
	"quality review":           {"review", "verify", "validate", "audit"},
	"defect reporting":         {"defect", "issue", "reproduce"},
	"campaign planning":        {"campaign", "launch", "promotion"},
	"social media":             {"social", "post", "engagement", "audience"},
	"brand messaging":          {"brand", "messaging", "positioning"},
	"documentation":            {"document", "documentation", "wiki"},
	"information architecture": {"organize", "catalog", "structure", "taxonomy"},
	"summarization":            {"summarize", "digest", "condense"},
}

// roleInitialSkills maps role-title substrings to the three seed skills.
var roleInitialSkills = []struct {
	match  string
	skills []string
}{
	{"research", []string{"market research", "data analysis", "report writing"}},
	{"strateg", []string{"strategic planning", "business analysis", "prioritization"}},
	{"content", []string{"copywriting", "editing", "storytelling"}},
	{"writer", []string{"copywriting", "editing", "storytelling"}},
	{"engineer", []string{"software design", "debugging", "automation"}},
	{"qa", []string{"test design", "quality review", "defect reporting"}},
	{"quality", []string{"test design", "quality review", "defect reporting"}},
	{"marketing", []string{"campaign planning", "social media", "brand messaging"}},
	{"knowledge", []string{"documentation", "information architecture", "summarization"}},
}

// InitialSkillsForRole maps a role title to its seed skill set
// (case-insensitive substring match). Unmatched roles get a generalist seed.
func InitialSkillsForRole(role string) []string {
	lower := strings.ToLower(role)
	for _, entry := range roleInitialSkills {
		if strings.Contains(lower, entry.match) {
			return entry.skills
		}
	}
	return []string{"report writing", "data analysis", "prioritization"}
}

// InitializeSkills seeds a newly hired agent's skills at proficiency 1.
func (s *SkillService) InitializeSkills(ctx context.Context, agentID, role string) error {
	for _, name := range InitialSkillsForRole(role) {
		if _, err := s.client.DB().ExecContext(ctx, `
			INSERT INTO agent_skills (id, agent_id, name, proficiency, usage_count)
			VALUES ($1, $2, $3, 1, 0)
			ON CONFLICT (agent_id, name) DO NOTHING`,
			uuid.New().String(), agentID, name); err != nil {
			return fmt.Errorf("failed to seed skill %q: %w", name, err)
		}
	}
	return nil
}

// SkillUsageResult reports what TrackSkillUsage changed.
type SkillUsageResult struct {
	Used      []string
	Created   []string
	LeveledUp []string
}

// TrackSkillUsage scans a completed task description for skill keywords and
// increments usage for each match. Unknown-to-this-agent skills are created
// at proficiency 1 (cross-training). Proficiency advances when the usage
// count crosses the next threshold.
func (s *SkillService) TrackSkillUsage(ctx context.Context, agentID, description string) (*SkillUsageResult, error) {
	lower := strings.ToLower(description)
	result := &SkillUsageResult{}

	for skill, keywords := range skillKeywords {
		matched := false
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}

		var usage, proficiency int
		var inserted bool
		err := s.client.DB().QueryRowContext(ctx, `
			INSERT INTO agent_skills (id, agent_id, name, proficiency, usage_count, last_used)
			VALUES ($1, $2, $3, 1, 1, now())
			ON CONFLICT (agent_id, name) DO UPDATE
			SET usage_count = agent_skills.usage_count + 1, last_used = now(), updated_at = now()
			RETURNING usage_count, proficiency, (xmax = 0)`,
			uuid.New().String(), agentID, skill).Scan(&usage, &proficiency, &inserted)
		if err != nil {
			return nil, fmt.Errorf("failed to track skill %q: %w", skill, err)
		}

		result.Used = append(result.Used, skill)
		if inserted {
			result.Created = append(result.Created, skill)
		}

		if next := ProficiencyForUsage(usage); next > proficiency {
			if _, err := s.client.DB().ExecContext(ctx, `
				UPDATE agent_skills SET proficiency = $3, updated_at = now()
				WHERE agent_id = $1 AND name = $2`, agentID, skill, next); err != nil {
				return nil, fmt.Errorf("failed to level up skill %q: %w", skill, err)
			}
			result.LeveledUp = append(result.LeveledUp, skill)
		}
	}

	return result, nil
}

// ListSkills returns an agent's skills ordered by proficiency then usage.
func (s *SkillService) ListSkills(ctx context.Context, agentID string) ([]*models.Skill, error) {
	rows, err := s.client.DB().QueryContext(ctx, `
		SELECT id, agent_id, name, proficiency, usage_count, last_used, created_at, updated_at
		FROM agent_skills
		WHERE agent_id = $1
		ORDER BY proficiency DESC, usage_count DESC, name`, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query skills: %w", err)
	}
	defer rows.Close()

	var out []*models.Skill
	for rows.Next() {
		var sk models.Skill
		if err := rows.Scan(&sk.ID, &sk.AgentID, &sk.Name, &sk.Proficiency, &sk.UsageCount,
			&sk.LastUsed, &sk.CreatedAt, &sk.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan skill: %w", err)
		}
		out = append(out, &sk)
	}
	return out, rows.Err()
}
