package dispatch

import (
	"context"
	"fmt"

	"github.com/voxyz/agentworld/pkg/llm"
	"github.com/voxyz/agentworld/pkg/models"
	"github.com/voxyz/agentworld/pkg/routing"
)

// processPendingProposals promotes pending proposals into missions and
// steps, hiring first when the required capability is missing everywhere.
func (d *Dispatcher) processPendingProposals(ctx context.Context) {
	hours, err := d.policies.OperatingHours(ctx)
	if err != nil {
		d.fail(ctx, "policy_error", err)
		return
	}
	hour := d.sched.Now().Hour()
	if hour < hours.StartHour || hour >= hours.EndHour {
		return
	}

	proposals, err := d.svc.Proposals.GetPendingProposals(ctx)
	if err != nil {
		d.fail(ctx, "proposal_error", err)
		return
	}

	for _, p := range proposals {
		if err := d.promoteProposal(ctx, p); err != nil {
			d.fail(ctx, "proposal_error", fmt.Errorf("proposal %s: %w", p.ID, err))
		}
	}
}

// promoteProposal routes one proposal: multi-phase when it embeds a
// [PHASES] block, single-step otherwise.
func (d *Dispatcher) promoteProposal(ctx context.Context, p *models.MissionProposal) error {
	phases := routing.ParsePhases(p.Description)
	if len(phases) > 0 {
		return d.promoteMultiPhase(ctx, p, phases)
	}
	return d.promoteSingleStep(ctx, p)
}

func (d *Dispatcher) promoteSingleStep(ctx context.Context, p *models.MissionProposal) error {
	category := routing.RouteByKeywords(p.Description)

	agent, teamID, err := d.resolveAssignee(ctx, p, category)
	if err != nil {
		return err
	}
	if agent == nil {
		// Hiring is in flight; the proposal was deferred.
		return nil
	}

	mission, err := d.svc.Proposals.AcceptProposal(ctx, p.ID, teamID)
	if err != nil {
		return fmt.Errorf("accept: %w", err)
	}

	tier := llm.SelectTier(p.Priority == models.PriorityUrgent, p.Description, llm.TierContext{})
	if _, err := d.svc.Steps.CreateStep(ctx, mission.ID, p.Description, agent.ID, tier, 1, nil); err != nil {
		return fmt.Errorf("create step: %w", err)
	}

	d.logger.Info("Mission dispatched",
		"mission_id", mission.ID, "category", category, "agent", agent.DisplayName, "tier", tier)
	d.emit(ctx, "mission_created", models.SeverityInfo,
		fmt.Sprintf("Mission %q dispatched to %s (%s)", mission.Title, agent.DisplayName, agent.Role), "")
	return nil
}

// promoteMultiPhase creates one chained step per parsed phase. All phases
// must be staffable before the mission is accepted; otherwise hiring starts
// and the proposal is deferred.
func (d *Dispatcher) promoteMultiPhase(ctx context.Context, p *models.MissionProposal, phases []routing.Phase) error {
	type assignment struct {
		phase routing.Phase
		agent *models.Agent
	}
	assignments := make([]assignment, 0, len(phases))

	var teamID string
	for _, phase := range phases {
		agent, phaseTeam, err := d.resolveAssignee(ctx, p, phase.Role)
		if err != nil {
			return err
		}
		if agent == nil {
			return nil
		}
		if teamID == "" {
			teamID = phaseTeam
		}
		assignments = append(assignments, assignment{phase: phase, agent: agent})
	}

	mission, err := d.svc.Proposals.AcceptProposal(ctx, p.ID, teamID)
	if err != nil {
		return fmt.Errorf("accept: %w", err)
	}

	var parentID *string
	for i, a := range assignments {
		step, err := d.svc.Steps.CreateStep(ctx, mission.ID, a.phase.Description, a.agent.ID, a.phase.Tier, i+1, parentID)
		if err != nil {
			return fmt.Errorf("create phase %d: %w", i+1, err)
		}
		parentID = &step.ID
	}

	d.logger.Info("Multi-phase mission dispatched", "mission_id", mission.ID, "phases", len(phases))
	d.emit(ctx, "mission_created", models.SeverityInfo,
		fmt.Sprintf("Mission %q dispatched with %d chained phases", mission.Title, len(phases)), "")
	return nil
}

// resolveAssignee finds an active agent for the category anywhere in the
// org. When none exists it auto-hires onto the standing team; if the name
// pool is exhausted it creates a hiring proposal and defers the mission
// proposal, returning (nil, "", nil).
func (d *Dispatcher) resolveAssignee(ctx context.Context, p *models.MissionProposal, category routing.Category) (*models.Agent, string, error) {
	agents, err := d.svc.Agents.ListActiveAgents(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("list agents: %w", err)
	}

	info := routing.Categories[category]

	if agent := routing.FindBestAgent(agents, category, ""); agent != nil {
		teamID := info.StandingTeamID
		if agent.TeamID != nil {
			teamID = *agent.TeamID
		}
		if dormant, err := d.teamDormant(ctx, teamID); err != nil {
			return nil, "", err
		} else if dormant {
			d.logger.Info("Team dormant, deferring proposal", "team_id", teamID, "proposal_id", p.ID)
			return nil, "", d.svc.Proposals.DeferProposal(ctx, p.ID)
		}
		return agent, teamID, nil
	}

	// Capability gap: no active agent anywhere handles this category.
	agent, err := d.autoHireGapAgent(ctx, info.Title, category, p.Description)
	if err != nil {
		return nil, "", err
	}
	if agent != nil {
		return agent, info.StandingTeamID, nil
	}

	// Name pool exhausted — fall back to the hiring-proposal path and park
	// the mission until the founder decides.
	justification := fmt.Sprintf("No active agent can handle %s work. Needed for: %s", category, p.Title)
	hp, err := d.svc.Hiring.CreateHiringProposal(ctx, info.Title, info.StandingTeamID, justification, &p.ID)
	if err != nil {
		return nil, "", fmt.Errorf("create hiring proposal: %w", err)
	}
	if hp != nil {
		d.emit(ctx, "hiring_proposed", models.SeverityInfo,
			fmt.Sprintf("Hiring proposed: %s on %s", info.Title, info.StandingTeamID), "")
	}
	if err := d.svc.Proposals.DeferProposal(ctx, p.ID); err != nil {
		return nil, "", fmt.Errorf("defer proposal: %w", err)
	}
	return nil, "", nil
}

func (d *Dispatcher) teamDormant(ctx context.Context, teamID string) (bool, error) {
	team, err := d.svc.Agents.GetTeam(ctx, teamID)
	if err != nil {
		return false, fmt.Errorf("get team %s: %w", teamID, err)
	}
	return team.Status == models.TeamStatusDormant, nil
}
