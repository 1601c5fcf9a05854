package ingress

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/voxyz/agentworld/pkg/models"
	"github.com/voxyz/agentworld/pkg/services"
)

const helpText = "Commands:\n" +
	"`!status` — teams, active agents, active missions\n" +
	"`!teams` — list teams with their agents\n" +
	"`!roster` — full roster + pending hiring proposals\n" +
	"`!costs` — today's model spend by tier\n" +
	"`!approve <stepId>` — manually approve a step\n" +
	"`!activate <teamId>` / `!deactivate <teamId>` — toggle a team\n" +
	"`!hire <id>` / `!reject <id>` — decide a hiring proposal\n" +
	"`!fire <displayName>` — retire an agent\n" +
	"`!newbiz <name>` — create a business unit\n" +
	"`!project <name> | <description>` — start a phased project\n" +
	"`!help` — this list"

// handleCommand executes one "!" command and returns the reply text.
func (i *Ingress) handleCommand(ctx context.Context, text string) string {
	fields := strings.Fields(text)
	cmd := strings.ToLower(fields[0])
	arg := strings.TrimSpace(strings.TrimPrefix(text, fields[0]))

	switch cmd {
	case "!help":
		return helpText
	case "!status":
		return i.cmdStatus(ctx)
	case "!teams":
		return i.cmdTeams(ctx)
	case "!roster":
		return i.cmdRoster(ctx)
	case "!costs":
		return i.cmdCosts(ctx)
	case "!approve":
		return i.cmdApprove(ctx, arg)
	case "!activate":
		return i.cmdSetTeamStatus(ctx, arg, models.TeamStatusActive)
	case "!deactivate":
		return i.cmdSetTeamStatus(ctx, arg, models.TeamStatusDormant)
	case "!hire":
		return i.cmdHire(ctx, arg)
	case "!reject":
		return i.cmdRejectHire(ctx, arg)
	case "!fire":
		return i.cmdFire(ctx, arg)
	case "!newbiz":
		return i.cmdNewBiz(ctx, arg)
	case "!project":
		return i.cmdProject(ctx, arg)
	default:
		return "Unknown command " + cmd + ". Try `!help`."
	}
}

func (i *Ingress) cmdStatus(ctx context.Context) string {
	teams, err := i.svc.Agents.ListTeams(ctx)
	if err != nil {
		return "Status lookup failed: " + err.Error()
	}
	agents, err := i.svc.Agents.CountActiveAgents(ctx)
	if err != nil {
		return "Status lookup failed: " + err.Error()
	}
	missions, err := i.svc.Missions.CountActiveMissions(ctx)
	if err != nil {
		return "Status lookup failed: " + err.Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*Status* — %d active agents, %d active missions\n", agents, missions)
	for _, t := range teams {
		fmt.Fprintf(&b, "• %s (`%s`) — %s\n", t.Name, t.ID, t.Status)
	}
	return b.String()
}

func (i *Ingress) cmdTeams(ctx context.Context) string {
	teams, err := i.svc.Agents.ListTeams(ctx)
	if err != nil {
		return "Team lookup failed: " + err.Error()
	}

	var b strings.Builder
	for _, t := range teams {
		fmt.Fprintf(&b, "*%s* (`%s`, %s)\n", t.Name, t.ID, t.Status)
		members, err := i.svc.Agents.ListTeamAgents(ctx, t.ID)
		if err != nil {
			fmt.Fprintf(&b, "  (member lookup failed: %v)\n", err)
			continue
		}
		if len(members) == 0 {
			b.WriteString("  (no agents)\n")
		}
		for _, a := range members {
			fmt.Fprintf(&b, "  • %s — %s (%s, %s)\n", a.DisplayName, a.Role, a.AgentType, a.Status)
		}
	}
	return b.String()
}

func (i *Ingress) cmdRoster(ctx context.Context) string {
	roster := i.cmdTeams(ctx)

	pending, err := i.svc.Hiring.ListPendingHiringProposals(ctx)
	if err != nil {
		return roster + "\n(hiring lookup failed: " + err.Error() + ")"
	}

	var b strings.Builder
	b.WriteString(roster)
	b.WriteString("\n*Pending hiring proposals*\n")
	if len(pending) == 0 {
		b.WriteString("(none)\n")
	}
	for _, hp := range pending {
		fmt.Fprintf(&b, "• `%s` — %s on %s: %s\n", hp.ID, hp.RoleTitle, hp.TeamID, hp.Justification)
	}
	return b.String()
}

func (i *Ingress) cmdCosts(ctx context.Context) string {
	sched, err := i.startOfDay()
	if err != nil {
		return "Cost lookup failed: " + err.Error()
	}
	costs, err := i.svc.Usage.CostSince(ctx, sched)
	if err != nil {
		return "Cost lookup failed: " + err.Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*Today's model spend:* $%.4f over %d calls (%d failed)\n",
		costs.TotalCost, costs.TotalCalls, costs.Failures)
	for _, tc := range costs.ByTier {
		fmt.Fprintf(&b, "• %s: %d calls, $%.4f\n", tc.Tier, tc.Calls, tc.Cost)
	}
	return b.String()
}

// startOfDay returns midnight of the current day in the configured
// timezone, the window the !costs command reports on.
func (i *Ingress) startOfDay() (time.Time, error) {
	loc, err := time.LoadLocation(i.cfg.Timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timezone %q: %w", i.cfg.Timezone, err)
	}
	now := time.Now().In(loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc), nil
}

func (i *Ingress) cmdApprove(ctx context.Context, stepID string) string {
	if stepID == "" {
		return "Usage: `!approve <stepId>`"
	}
	if err := i.svc.Steps.ApproveStep(ctx, stepID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return "Step not found or not in review."
		}
		return "Approve failed: " + err.Error()
	}

	step, err := i.svc.Steps.GetStep(ctx, stepID)
	if err == nil {
		if _, _, err := i.svc.Missions.CheckMissionCompletion(ctx, step.MissionID); err != nil {
			i.logger.Error("Completion check failed after manual approve", "step_id", stepID, "error", err)
		}
	}
	return "Step `" + stepID + "` approved."
}

func (i *Ingress) cmdSetTeamStatus(ctx context.Context, teamID string, status models.TeamStatus) string {
	if teamID == "" {
		return "Usage: `!activate <teamId>` / `!deactivate <teamId>`"
	}
	if err := i.svc.Agents.SetTeamStatus(ctx, teamID, status); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return "Team not found: " + teamID
		}
		return "Team update failed: " + err.Error()
	}

	// Reactivation frees work that was parked while the team slept. The
	// dispatcher re-defers anything still blocked.
	if status == models.TeamStatusActive {
		deferred, err := i.svc.Proposals.ListDeferredProposals(ctx)
		if err != nil {
			i.logger.Error("Failed to list deferred proposals", "error", err)
		}
		for _, p := range deferred {
			if err := i.svc.Proposals.RequeueProposal(ctx, p.ID); err != nil {
				i.logger.Error("Failed to requeue proposal", "proposal_id", p.ID, "error", err)
			}
		}
	}

	return fmt.Sprintf("Team `%s` is now %s.", teamID, status)
}

func (i *Ingress) cmdHire(ctx context.Context, id string) string {
	if id == "" {
		return "Usage: `!hire <hiringProposalId>`"
	}
	if err := i.svc.Hiring.ApproveHiringProposal(ctx, id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return "No pending hiring proposal with that id."
		}
		return "Hire failed: " + err.Error()
	}
	return "Hiring proposal `" + id + "` approved. The dispatcher completes the hire on its next tick."
}

func (i *Ingress) cmdRejectHire(ctx context.Context, id string) string {
	if id == "" {
		return "Usage: `!reject <hiringProposalId>`"
	}
	if err := i.svc.Hiring.RejectHiringProposal(ctx, id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return "No pending hiring proposal with that id."
		}
		return "Reject failed: " + err.Error()
	}
	return "Hiring proposal `" + id + "` rejected."
}

func (i *Ingress) cmdFire(ctx context.Context, displayName string) string {
	if displayName == "" {
		return "Usage: `!fire <displayName>`"
	}
	agent, err := i.svc.Agents.GetAgentByDisplayName(ctx, displayName)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return "No non-retired agent named " + displayName + "."
		}
		return "Lookup failed: " + err.Error()
	}
	if agent.AgentType == models.AgentTypeChiefOfStaff {
		return "The chief of staff cannot be fired."
	}

	if err := i.svc.Agents.SetAgentStatus(ctx, agent.ID, models.AgentStatusRetired); err != nil {
		return "Fire failed: " + err.Error()
	}
	return fmt.Sprintf("%s (%s) has been retired; their name returns to the pool.", agent.DisplayName, agent.Role)
}

func (i *Ingress) cmdNewBiz(ctx context.Context, name string) string {
	if name == "" {
		return "Usage: `!newbiz <name>`"
	}
	team, err := i.svc.Agents.CreateTeam(ctx, "", name)
	if err != nil {
		return "Business unit creation failed: " + err.Error()
	}
	return fmt.Sprintf("Business unit %q created as team `%s`.", team.Name, team.ID)
}

func (i *Ingress) cmdProject(ctx context.Context, arg string) string {
	name, description, ok := strings.Cut(arg, "|")
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if !ok || name == "" || description == "" {
		return "Usage: `!project <name> | <description>`"
	}

	project, err := i.svc.Projects.CreateProject(ctx, name, description)
	if err != nil {
		return "Project creation failed: " + err.Error()
	}
	return fmt.Sprintf("Project %q created (`%s`). The dispatcher staffs it and starts Discovery on its next tick.", project.Name, project.ID)
}
