package dispatch

import (
	"context"
	"fmt"

	"github.com/voxyz/agentworld/pkg/models"
	"github.com/voxyz/agentworld/pkg/routing"
)

// ProjectPhase describes one fixed phase of the project lifecycle.
type ProjectPhase struct {
	Name     string
	Category routing.Category
	Tier     models.ModelTier
}

// projectPhases is the fixed lifecycle every project moves through.
// Phase numbering is 1-based; phase 0 means not yet started.
var projectPhases = []ProjectPhase{
	{Name: "Discovery", Category: routing.CategoryResearch, Tier: models.TierT1},
	{Name: "Strategy", Category: routing.CategoryStrategy, Tier: models.TierT2},
	{Name: "Execution", Category: routing.CategoryContent, Tier: models.TierT2},
	{Name: "Retrospective", Category: routing.CategoryQA, Tier: models.TierT1},
}

// advanceProjects moves projects forward: unstarted projects are staffed
// and get their first phase mission; projects whose current mission reached
// a terminal status advance to the next phase or complete.
func (d *Dispatcher) advanceProjects(ctx context.Context) {
	projects, err := d.listActiveProjects(ctx)
	if err != nil {
		d.fail(ctx, "project_error", err)
		return
	}

	for _, project := range projects {
		if err := d.advanceProject(ctx, project); err != nil {
			d.fail(ctx, "project_error", fmt.Errorf("project %s: %w", project.ID, err))
		}
	}
}

func (d *Dispatcher) advanceProject(ctx context.Context, project *models.Project) error {
	if project.Phase == 0 {
		d.staffProject(ctx, project)
		return d.startPhase(ctx, project, 1)
	}

	if project.CurrentMissionID == nil {
		return d.startPhase(ctx, project, project.Phase)
	}

	mission, err := d.svc.Missions.GetMission(ctx, *project.CurrentMissionID)
	if err != nil {
		return fmt.Errorf("get mission: %w", err)
	}

	switch mission.Status {
	case models.MissionStatusInProgress:
		return nil
	case models.MissionStatusFailed:
		// Failed is sticky at mission level; the project stalls here until
		// the founder intervenes.
		return nil
	case models.MissionStatusCompleted:
		if project.Phase >= len(projectPhases) {
			if err := d.svc.Projects.AdvancePhase(ctx, project.ID, nil, true); err != nil {
				return fmt.Errorf("complete project: %w", err)
			}
			d.emit(ctx, "project_completed", models.SeverityInfo,
				fmt.Sprintf("Project %q completed all %d phases", project.Name, len(projectPhases)), "")
			return nil
		}
		return d.startPhase(ctx, project, project.Phase+1)
	}
	return nil
}

// startPhase creates and immediately accepts the mission for a project
// phase, then repoints the project at it.
func (d *Dispatcher) startPhase(ctx context.Context, project *models.Project, phaseNum int) error {
	phase := projectPhases[phaseNum-1]
	info := routing.Categories[phase.Category]

	agents, err := d.svc.Agents.ListActiveAgents(ctx)
	if err != nil {
		return fmt.Errorf("list agents: %w", err)
	}
	agent := routing.FindBestAgent(agents, phase.Category, "")
	if agent == nil {
		agent, err = d.autoHireGapAgent(ctx, info.Title, phase.Category, project.Description)
		if err != nil {
			return err
		}
		if agent == nil {
			// Name pool exhausted; retry next tick.
			return nil
		}
	}

	teamID := info.StandingTeamID
	if agent.TeamID != nil {
		teamID = *agent.TeamID
	}

	title := fmt.Sprintf("%s — %s", project.Name, phase.Name)
	description := fmt.Sprintf("%s phase of project %q.\n\n%s", phase.Name, project.Name, project.Description)

	proposal, err := d.svc.Proposals.CreateProposal(ctx, title, description, models.PriorityNormal, "dispatcher", "")
	if err != nil {
		return fmt.Errorf("create phase proposal: %w", err)
	}
	mission, err := d.svc.Proposals.AcceptProposal(ctx, proposal.ID, teamID)
	if err != nil {
		return fmt.Errorf("accept phase proposal: %w", err)
	}
	if _, err := d.svc.Steps.CreateStep(ctx, mission.ID, description, agent.ID, phase.Tier, 1, nil); err != nil {
		return fmt.Errorf("create phase step: %w", err)
	}

	if project.Phase == 0 || phaseNum > project.Phase {
		if err := d.svc.Projects.AdvancePhase(ctx, project.ID, &mission.ID, false); err != nil {
			return fmt.Errorf("advance phase: %w", err)
		}
	} else {
		if err := d.svc.Projects.SetCurrentMission(ctx, project.ID, mission.ID); err != nil {
			return fmt.Errorf("set mission: %w", err)
		}
	}

	d.emit(ctx, "project_phase_started", models.SeverityInfo,
		fmt.Sprintf("Project %q entered %s (phase %d/%d)", project.Name, phase.Name, phaseNum, len(projectPhases)), "")
	return nil
}

// staffProject closes capability gaps before phase 1: every recommended
// role missing org-wide is hired (auto-hire, hiring-proposal fallback).
func (d *Dispatcher) staffProject(ctx context.Context, project *models.Project) {
	roles := d.determineDynamicProjectRoles(ctx, project.Description)

	agents, err := d.svc.Agents.ListActiveAgents(ctx)
	if err != nil {
		d.fail(ctx, "project_error", err)
		return
	}

	for _, role := range roles {
		category := routing.Category(role.Category)
		if routing.FindBestAgent(agents, category, "") != nil {
			continue
		}
		hired, err := d.autoHireGapAgent(ctx, role.Title, category, project.Description)
		if err != nil {
			d.fail(ctx, "hiring_error", err)
			continue
		}
		if hired == nil {
			info := routing.Categories[category]
			if _, err := d.svc.Hiring.CreateHiringProposal(ctx, role.Title, info.StandingTeamID,
				fmt.Sprintf("Needed for project %q: %s", project.Name, role.Reason), nil); err != nil {
				d.fail(ctx, "hiring_error", err)
			}
		}
	}
}

func (d *Dispatcher) listActiveProjects(ctx context.Context) ([]*models.Project, error) {
	rows, err := d.db.DB().QueryContext(ctx, `
		SELECT id, name, description, phase, status, current_mission_id, created_at, updated_at
		FROM projects
		WHERE status = 'active'
		ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var out []*models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Phase, &p.Status,
			&p.CurrentMissionID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
