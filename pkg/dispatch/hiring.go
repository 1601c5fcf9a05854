package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/voxyz/agentworld/pkg/models"
	"github.com/voxyz/agentworld/pkg/prompt"
	"github.com/voxyz/agentworld/pkg/routing"
	"github.com/voxyz/agentworld/pkg/services"
)

// autoHireGapAgent immediately creates a sub-agent for the category on its
// standing team — the no-approval path used when a capability is missing
// org-wide. Returns nil (no error) when the name pool is exhausted.
func (d *Dispatcher) autoHireGapAgent(ctx context.Context, roleTitle string, category routing.Category, taskContext string) (*models.Agent, error) {
	info := routing.Categories[category]
	teamID := info.StandingTeamID

	agent, err := d.svc.Agents.CreateAgent(ctx, services.CreateAgentInput{
		Role:      roleTitle,
		TeamID:    &teamID,
		AgentType: models.AgentTypeSubAgent,
	})
	if errors.Is(err, services.ErrNamePoolExhausted) {
		d.logger.Warn("Name pool exhausted, cannot auto-hire", "role", roleTitle)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("auto-hire %s: %w", roleTitle, err)
	}

	d.onboardAgent(ctx, agent, taskContext)

	d.logger.Info("Auto-hired gap agent",
		"agent", agent.DisplayName, "role", roleTitle, "team_id", teamID)
	d.emit(ctx, "agent_hired", models.SeverityInfo,
		fmt.Sprintf("%s auto-hired as %s on %s", agent.DisplayName, roleTitle, teamID), "")
	return agent, nil
}

// completeApprovedHiring turns founder-approved hiring proposals into
// agents: create, onboard, complete the proposal, and requeue the mission
// proposal that triggered the hire.
func (d *Dispatcher) completeApprovedHiring(ctx context.Context) {
	approved, err := d.svc.Hiring.ListApprovedHiringProposals(ctx)
	if err != nil {
		d.fail(ctx, "hiring_error", err)
		return
	}

	for _, hp := range approved {
		if err := d.completeHire(ctx, hp); err != nil {
			d.fail(ctx, "hiring_error", fmt.Errorf("hiring proposal %s: %w", hp.ID, err))
		}
	}
}

func (d *Dispatcher) completeHire(ctx context.Context, hp *models.HiringProposal) error {
	teamID := hp.TeamID
	agent, err := d.svc.Agents.CreateAgent(ctx, services.CreateAgentInput{
		Role:      hp.RoleTitle,
		TeamID:    &teamID,
		AgentType: models.AgentTypeSubAgent,
	})
	if errors.Is(err, services.ErrNamePoolExhausted) {
		// Leave the proposal approved; retried next tick once a name frees up.
		d.logger.Warn("Name pool exhausted, hire waiting", "hiring_proposal_id", hp.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("create agent: %w", err)
	}

	d.onboardAgent(ctx, agent, hp.Justification)

	if err := d.svc.Hiring.CompleteHiringProposal(ctx, hp.ID, agent.ID); err != nil {
		return fmt.Errorf("complete proposal: %w", err)
	}

	if hp.TriggeringProposalID != nil {
		if err := d.svc.Proposals.RequeueProposal(ctx, *hp.TriggeringProposalID); err != nil && !errors.Is(err, services.ErrNotFound) {
			return fmt.Errorf("requeue triggering proposal: %w", err)
		}
	}

	d.emit(ctx, "agent_hired", models.SeverityInfo,
		fmt.Sprintf("%s hired as %s on %s", agent.DisplayName, hp.RoleTitle, hp.TeamID), "")
	return nil
}

// onboardAgent generates the persona and seeds initial skills. Both steps
// are fail-open — a hire never fails because generation did.
func (d *Dispatcher) onboardAgent(ctx context.Context, agent *models.Agent, hireContext string) {
	d.generatePersona(ctx, agent)

	if err := d.svc.Skills.InitializeSkills(ctx, agent.ID, agent.Role); err != nil {
		d.logger.Error("Failed to seed skills", "agent_id", agent.ID, "error", err)
	}

	if _, err := d.svc.Memories.SaveMemory(ctx, services.SaveMemoryInput{
		AgentID:    agent.ID,
		MemoryType: models.MemoryTypeObservation,
		Content:    fmt.Sprintf("Hired as %s. Context: %s", agent.Role, hireContext),
		Summary:    "Joined the company as " + agent.Role,
		TopicTags:  []string{"onboarding"},
		Importance: 6,
		SourceType: "hiring",
	}); err != nil {
		d.logger.Error("Failed to record onboarding memory", "agent_id", agent.ID, "error", err)
	}
}

// generatePersona asks a tier-1 model for the four persona sections,
// substituting role-derived defaults for anything missing. On LLM failure
// the hardcoded defaults are used so the agent is never unserviceable.
func (d *Dispatcher) generatePersona(ctx context.Context, agent *models.Agent) {
	teamName := ""
	if agent.TeamID != nil {
		if team, err := d.svc.Agents.GetTeam(ctx, *agent.TeamID); err == nil {
			teamName = team.Name
		}
	}

	sections := prompt.DefaultPersonaSections(agent.DisplayName, agent.Role)

	resp, err := d.router.Call(ctx,
		"You write working personas for autonomous agents. Follow the format exactly.",
		prompt.BuildPersonaGenerationPrompt(agent.DisplayName, agent.Role, teamName),
		models.TierT1, agent.ID, "")
	if err != nil {
		d.logger.Warn("Persona generation failed, using defaults", "agent_id", agent.ID, "error", err)
	} else {
		generated := prompt.ParsePersonaSections(resp.Content)
		if generated.Identity != "" {
			sections.Identity = generated.Identity
		}
		if generated.Personality != "" {
			sections.Personality = generated.Personality
		}
		if generated.Skills != "" {
			sections.Skills = generated.Skills
		}
		if generated.Background != "" {
			sections.Background = generated.Background
		}
	}

	if _, err := d.svc.Personas.SavePersona(ctx, services.SavePersonaInput{
		AgentID:     agent.ID,
		Identity:    sections.Identity,
		Personality: sections.Personality,
		Skills:      sections.Skills,
		Background:  sections.Background,
		SystemText:  prompt.ComposePersonaSystemText(sections),
	}); err != nil {
		d.logger.Error("Failed to save persona", "agent_id", agent.ID, "error", err)
	}
}

// ProjectRole is one staffing recommendation for a project.
type ProjectRole struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Reason   string `json:"reason"`
}

// determineDynamicProjectRoles asks a tier-1 model which 2-5 roles a
// project needs, restricted to the standing categories. Invalid JSON, an
// empty response, or an invalid category falls back to keyword-based
// detection with canned titles.
func (d *Dispatcher) determineDynamicProjectRoles(ctx context.Context, projectDescription string) []ProjectRole {
	valid := make([]string, 0, len(routing.AllCategories()))
	for _, c := range routing.AllCategories() {
		valid = append(valid, string(c))
	}

	resp, err := d.router.Call(ctx,
		"You staff projects with the minimum effective team. Respond with JSON only.",
		prompt.BuildDynamicRolesPrompt(projectDescription, valid),
		models.TierT1, "", "")
	if err == nil {
		if roles := parseProjectRoles(resp.Content); roles != nil {
			return roles
		}
		d.logger.Warn("Dynamic role response unusable, falling back to keywords")
	} else {
		d.logger.Warn("Dynamic role call failed, falling back to keywords", "error", err)
	}

	category := routing.RouteByKeywords(projectDescription)
	return []ProjectRole{{
		Title:    routing.Categories[category].Title,
		Category: string(category),
		Reason:   "keyword fallback",
	}}
}

// parseProjectRoles validates the model's JSON array. Returns nil when the
// response is unusable.
func parseProjectRoles(content string) []ProjectRole {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start == -1 || end <= start {
		return nil
	}

	var roles []ProjectRole
	if err := json.Unmarshal([]byte(content[start:end+1]), &roles); err != nil {
		return nil
	}
	if len(roles) < 2 || len(roles) > 5 {
		return nil
	}
	for _, r := range roles {
		if r.Title == "" || !routing.IsValidCategory(r.Category) {
			return nil
		}
	}
	return roles
}
