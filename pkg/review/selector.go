package review

import (
	"strings"

	"github.com/voxyz/agentworld/pkg/models"
	"github.com/voxyz/agentworld/pkg/routing"
)

// Selection names the chosen reviewer, or none (auto-approve).
type Selection struct {
	Reviewer   *models.Agent
	ReviewType models.ReviewType
	// AutoApprove is set when no reviewer exists anywhere for this step.
	AutoApprove bool
}

// SelectReviewer picks the reviewer for a step in review:
//
//  1. A domain expert — any active agent, any team, whose role matches the
//     step's routed category, excluding the author. Reviews as team_lead.
//  2. Else the step's team QA (role contains "qa"), then team lead.
//  3. Else auto-approve.
//
// allAgents spans every team; teamAgents is the step's own team.
func SelectReviewer(allAgents, teamAgents []*models.Agent, category routing.Category, authorID string) Selection {
	if expert := routing.FindBestAgent(allAgents, category, authorID); expert != nil {
		return Selection{Reviewer: expert, ReviewType: models.ReviewTypeTeamLead}
	}

	for _, a := range teamAgents {
		if a.Status != models.AgentStatusActive || a.ID == authorID {
			continue
		}
		if strings.Contains(strings.ToLower(a.Role), "qa") {
			return Selection{Reviewer: a, ReviewType: models.ReviewTypeQA}
		}
	}

	for _, a := range teamAgents {
		if a.Status != models.AgentStatusActive || a.ID == authorID {
			continue
		}
		if a.AgentType == models.AgentTypeTeamLead {
			return Selection{Reviewer: a, ReviewType: models.ReviewTypeTeamLead}
		}
	}

	return Selection{AutoApprove: true}
}
