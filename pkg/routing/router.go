package routing

import (
	"strings"

	"github.com/voxyz/agentworld/pkg/models"
)

// RouteByKeywords maps a task description to a role category by keyword
// scoring. Score is the count of category keywords occurring in the
// description (case-insensitive substring). Highest score wins; ties resolve
// in enumeration order. All-zero scores default to research.
func RouteByKeywords(description string) Category {
	lower := strings.ToLower(description)

	best := CategoryResearch
	bestScore := 0
	for _, cat := range categoryOrder {
		score := 0
		for _, kw := range Categories[cat].Keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			best = cat
			bestScore = score
		}
	}
	return best
}

// MatchResult reports whether a team can handle a category and which agent
// matched.
type MatchResult struct {
	CanHandle    bool
	MatchedAgent *models.Agent
	Category     Category
}

// AgentMatchesCategory reports whether an agent's role text contains any
// keyword of the category.
func AgentMatchesCategory(agent *models.Agent, category Category) bool {
	role := strings.ToLower(agent.Role)
	for _, kw := range Categories[category].Keywords {
		if strings.Contains(role, kw) {
			return true
		}
	}
	return false
}

// CanTeamHandle checks whether any of the given agents can take a task of
// the category. Team leads are generalists: a lead matches when no other
// agent does.
func CanTeamHandle(agents []*models.Agent, category Category) MatchResult {
	var lead *models.Agent
	for _, a := range agents {
		if a.Status != models.AgentStatusActive {
			continue
		}
		if AgentMatchesCategory(a, category) {
			return MatchResult{CanHandle: true, MatchedAgent: a, Category: category}
		}
		if a.AgentType == models.AgentTypeTeamLead && lead == nil {
			lead = a
		}
	}
	if lead != nil {
		return MatchResult{CanHandle: true, MatchedAgent: lead, Category: category}
	}
	return MatchResult{CanHandle: false, Category: category}
}

// FindBestAgent scans the given agents (typically all active agents, any
// team) for one whose role matches the category. The exclude ID skips the
// step author when picking a reviewer. Returns nil when nobody matches.
func FindBestAgent(agents []*models.Agent, category Category, excludeAgentID string) *models.Agent {
	for _, a := range agents {
		if a.Status != models.AgentStatusActive || a.ID == excludeAgentID {
			continue
		}
		if AgentMatchesCategory(a, category) {
			return a
		}
	}
	return nil
}
