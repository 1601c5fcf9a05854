package dispatch

import (
	"context"
	"fmt"

	"github.com/voxyz/agentworld/pkg/models"
	"github.com/voxyz/agentworld/pkg/review"
	"github.com/voxyz/agentworld/pkg/routing"
)

// scheduleReviews creates an approval row for every step sitting in review
// without one. Steps that already passed QA get their team-lead review;
// steps with no possible reviewer auto-approve.
func (d *Dispatcher) scheduleReviews(ctx context.Context) {
	steps, err := d.svc.Steps.GetStepsInReview(ctx, 20)
	if err != nil {
		d.fail(ctx, "review_error", err)
		return
	}

	for _, step := range steps {
		if err := d.scheduleReview(ctx, step); err != nil {
			d.fail(ctx, "review_error", fmt.Errorf("step %s: %w", step.ID, err))
		}
	}
}

func (d *Dispatcher) scheduleReview(ctx context.Context, step *models.MissionStep) error {
	mission, err := d.svc.Missions.GetMission(ctx, step.MissionID)
	if err != nil {
		return fmt.Errorf("get mission: %w", err)
	}

	allAgents, err := d.svc.Agents.ListActiveAgents(ctx)
	if err != nil {
		return fmt.Errorf("list agents: %w", err)
	}
	teamAgents, err := d.svc.Agents.ListTeamAgents(ctx, mission.TeamID)
	if err != nil {
		return fmt.Errorf("list team agents: %w", err)
	}

	qaDone, err := d.svc.Approvals.HasApprovedReview(ctx, step.ID, models.ReviewTypeQA)
	if err != nil {
		return fmt.Errorf("check qa approval: %w", err)
	}

	category := routing.RouteByKeywords(step.Description)
	sel := review.SelectReviewer(allAgents, teamAgents, category, step.AssignedAgentID)

	// After a QA approve only a team-lead review advances the step; a QA
	// selection at this point would loop forever.
	if qaDone && sel.ReviewType == models.ReviewTypeQA {
		sel = review.Selection{AutoApprove: true}
		for _, a := range teamAgents {
			if a.Status == models.AgentStatusActive && a.ID != step.AssignedAgentID &&
				a.AgentType == models.AgentTypeTeamLead {
				sel = review.Selection{Reviewer: a, ReviewType: models.ReviewTypeTeamLead}
				break
			}
		}
	}

	if sel.AutoApprove {
		if err := d.svc.Steps.ApproveStep(ctx, step.ID); err != nil {
			return fmt.Errorf("auto-approve: %w", err)
		}
		d.emit(ctx, "approval_skipped", models.SeverityInfo,
			fmt.Sprintf("Step %s auto-approved: no reviewer available", step.ID), "")
		if _, _, err := d.svc.Missions.CheckMissionCompletion(ctx, step.MissionID); err != nil {
			return fmt.Errorf("check completion: %w", err)
		}
		return nil
	}

	if _, err := d.svc.Approvals.CreateApproval(ctx, step.ID, sel.Reviewer.ID, sel.ReviewType); err != nil {
		return fmt.Errorf("create approval: %w", err)
	}

	d.logger.Info("Review scheduled",
		"step_id", step.ID, "reviewer", sel.Reviewer.DisplayName, "review_type", sel.ReviewType)
	return nil
}
