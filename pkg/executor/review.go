package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/voxyz/agentworld/pkg/docstore"
	"github.com/voxyz/agentworld/pkg/models"
	"github.com/voxyz/agentworld/pkg/prompt"
	"github.com/voxyz/agentworld/pkg/review"
	"github.com/voxyz/agentworld/pkg/services"
)

// upskillRejectionCount triggers the persona upgrade on exactly the fifth
// rejection of a step — one upgrade per chronic failure.
const upskillRejectionCount = 5

// reviewTier maps review types to model tiers: qa reviews are cheap,
// team-lead reviews reason harder.
func reviewTier(t models.ReviewType) models.ModelTier {
	if t == models.ReviewTypeTeamLead {
		return models.TierT2
	}
	return models.TierT1
}

// processOneReview claims the oldest pending approval and executes it.
func (e *Executor) processOneReview(ctx context.Context) error {
	approval, err := e.svc.Approvals.ClaimNextPendingApproval(ctx)
	if err != nil {
		return fmt.Errorf("claim approval: %w", err)
	}
	if approval == nil {
		return nil
	}

	step, err := e.svc.Steps.GetStep(ctx, approval.MissionStepID)
	if err != nil {
		return fmt.Errorf("get step: %w", err)
	}
	if step.Status != models.StepStatusInReview {
		// The step moved on (reclaimed or manually approved); resolve the
		// orphaned approval without touching the step.
		_, err := e.svc.Approvals.SubmitReview(ctx, approval.ID, models.ApprovalStatusApproved,
			"review skipped: step no longer in review")
		return err
	}

	reviewer, err := e.svc.Agents.GetAgent(ctx, approval.ReviewerAgentID)
	if err != nil {
		return fmt.Errorf("get reviewer: %w", err)
	}

	log := e.logger.With("approval_id", approval.ID, "step_id", step.ID, "reviewer", reviewer.DisplayName)
	log.Info("Running review", "review_type", approval.ReviewType)

	resp, err := e.router.Call(ctx,
		review.BuildReviewSystemPrompt(reviewer.Role),
		review.BuildReviewUserPrompt(step.Description, step.Result),
		reviewTier(approval.ReviewType), reviewer.ID, step.ID)
	if err != nil {
		return fmt.Errorf("review call: %w", err)
	}

	result := review.ParseReview(resp.Content)
	if result.Approved {
		return e.handleApproval(ctx, approval, step, result)
	}
	return e.handleRejection(ctx, approval, step, result)
}

func (e *Executor) handleApproval(ctx context.Context, approval *models.Approval, step *models.MissionStep, result review.Result) error {
	resolved, err := e.svc.Approvals.SubmitReview(ctx, approval.ID, models.ApprovalStatusApproved, result.Feedback)
	if err != nil {
		return fmt.Errorf("submit approval: %w", err)
	}
	if resolved == nil {
		// A concurrent executor already resolved it.
		return nil
	}

	if approval.ReviewType == models.ReviewTypeQA {
		// Await the team-lead review; the dispatcher schedules it next tick.
		e.logger.Info("QA review passed", "step_id", step.ID, "average", result.Average)
		return nil
	}

	if err := e.svc.Steps.ApproveStep(ctx, step.ID); err != nil && !errors.Is(err, services.ErrNotFound) {
		return fmt.Errorf("approve step: %w", err)
	}

	e.publishDeliverable(ctx, step)
	e.emit(ctx, "step_completed", models.SeverityInfo,
		fmt.Sprintf("Step %s approved (avg score %.1f)", step.ID, result.Average), "")

	done, status, err := e.svc.Missions.CheckMissionCompletion(ctx, step.MissionID)
	if err != nil {
		return fmt.Errorf("check completion: %w", err)
	}
	if done {
		e.announceMissionTerminal(ctx, step.MissionID, status)
	}
	return nil
}

func (e *Executor) handleRejection(ctx context.Context, approval *models.Approval, step *models.MissionStep, result review.Result) error {
	resolved, err := e.svc.Approvals.SubmitReview(ctx, approval.ID, models.ApprovalStatusRejected, result.Feedback)
	if err != nil {
		return fmt.Errorf("submit rejection: %w", err)
	}
	if resolved == nil {
		return nil
	}

	e.logger.Info("Step rejected", "step_id", step.ID, "average", result.Average,
		"auto_rejected", result.AutoRejected)
	e.emit(ctx, "step_rejected", models.SeverityWarning,
		fmt.Sprintf("Step %s rejected (avg score %.1f): %s", step.ID, result.Average, truncate(result.Feedback, 300)), "")

	// Rejection-driven learning: the author keeps the feedback as a
	// high-importance lesson.
	if _, err := e.svc.Memories.SaveLesson(ctx, step.AssignedAgentID, result.Feedback, "quality", 8); err != nil {
		e.logger.Error("Failed to save rejection lesson", "step_id", step.ID, "error", err)
	}

	rejections, err := e.svc.Approvals.CountRejections(ctx, step.ID)
	if err != nil {
		return fmt.Errorf("count rejections: %w", err)
	}
	if rejections == upskillRejectionCount {
		if err := e.upskillAuthor(ctx, step); err != nil {
			e.fail(ctx, "upskill_error", err)
		}
	}
	return nil
}

// upskillAuthor runs the chronic-failure learning loop: analyze the
// accumulated rejection feedback, append a Learned Expertise block to a new
// persona version, and record the upgrade in the agent's memory.
func (e *Executor) upskillAuthor(ctx context.Context, step *models.MissionStep) error {
	agent, err := e.svc.Agents.GetAgent(ctx, step.AssignedAgentID)
	if err != nil {
		return fmt.Errorf("get agent: %w", err)
	}
	feedback, err := e.svc.Approvals.RejectionFeedback(ctx, step.ID)
	if err != nil {
		return fmt.Errorf("collect feedback: %w", err)
	}

	resp, err := e.router.Call(ctx,
		"You diagnose skill gaps from review feedback. Respond with JSON only.",
		prompt.BuildUpskillAnalysisPrompt(agent.Role, feedback),
		models.TierT1, agent.ID, step.ID)
	if err != nil {
		return fmt.Errorf("upskill analysis call: %w", err)
	}

	analysis := parseUpskillAnalysis(resp.Content)
	if analysis.ExpertiseAddition == "" {
		analysis.SkillGap = "repeated quality rejections"
		analysis.ExpertiseAddition = "You now review your own work against the task requirements line by line before submitting, and you quantify every claim you make."
	}

	persona, err := e.svc.Personas.GetCurrentPersona(ctx, agent.ID)
	if err != nil && !errors.Is(err, services.ErrNotFound) {
		return fmt.Errorf("get persona: %w", err)
	}

	base := prompt.ComposePersonaSystemText(prompt.DefaultPersonaSections(agent.DisplayName, agent.Role))
	in := services.SavePersonaInput{AgentID: agent.ID}
	if persona != nil {
		in.Identity = persona.Identity
		in.Personality = persona.Personality
		in.Skills = persona.Skills
		in.Background = persona.Background
		base = persona.SystemText
	}
	in.SystemText = prompt.AppendLearnedExpertise(base, analysis.ExpertiseAddition)

	if _, err := e.svc.Personas.SavePersona(ctx, in); err != nil {
		return fmt.Errorf("save upskilled persona: %w", err)
	}

	e.emit(ctx, "agent_upskilled", models.SeverityInfo,
		fmt.Sprintf("%s upskilled after %d rejections: %s", agent.DisplayName, upskillRejectionCount, analysis.SkillGap), "")

	if _, err := e.svc.Memories.SaveMemory(ctx, services.SaveMemoryInput{
		AgentID:    agent.ID,
		MemoryType: models.MemoryTypeLesson,
		Content:    fmt.Sprintf("Upskilled after repeated rejections. Gap: %s. New expertise: %s", analysis.SkillGap, analysis.ExpertiseAddition),
		Summary:    "Upskilled: " + analysis.SkillGap,
		TopicTags:  []string{"upskill", "quality"},
		Importance: 9,
		SourceType: "upskill",
		SourceID:   step.ID,
	}); err != nil {
		e.logger.Error("Failed to save upskill memory", "agent_id", agent.ID, "error", err)
	}

	e.logger.Info("Agent upskilled", "agent", agent.DisplayName, "gap", analysis.SkillGap)
	return nil
}

type upskillAnalysis struct {
	SkillGap          string `json:"skillGap"`
	ExpertiseAddition string `json:"expertiseAddition"`
}

func parseUpskillAnalysis(content string) upskillAnalysis {
	var out upskillAnalysis
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return out
	}
	_ = json.Unmarshal([]byte(content[start:end+1]), &out)
	return out
}

// publishDeliverable sends the approved result to the notes platform,
// falling back to file storage. Failures are logged and never block the
// mission — the datastore keeps the canonical copy.
func (e *Executor) publishDeliverable(ctx context.Context, step *models.MissionStep) {
	mission, err := e.svc.Missions.GetMission(ctx, step.MissionID)
	if err != nil {
		e.logger.Error("Publish skipped: mission lookup failed", "step_id", step.ID, "error", err)
		return
	}
	agent, err := e.svc.Agents.GetAgent(ctx, step.AssignedAgentID)
	if err != nil {
		e.logger.Error("Publish skipped: agent lookup failed", "step_id", step.ID, "error", err)
		return
	}

	d := docstore.Deliverable{
		Title:     fmt.Sprintf("%s — step %d", mission.Title, step.StepOrder),
		Content:   step.Result,
		TeamID:    mission.TeamID,
		AgentName: agent.DisplayName,
		MissionID: mission.ID,
		StepID:    step.ID,
	}

	var result *docstore.PublishResult
	if e.notes != nil {
		result, err = e.notes.PublishDeliverable(ctx, d)
		if err != nil {
			e.logger.Warn("Notes publish failed, trying file storage", "step_id", step.ID, "error", err)
		}
	}
	if result == nil && e.drive != nil {
		result, err = e.drive.PublishDeliverable(ctx, d)
		if err != nil {
			e.logger.Warn("File storage publish failed", "step_id", step.ID, "error", err)
		}
	}

	if result == nil {
		e.emit(ctx, "publish_failed", models.SeverityWarning,
			fmt.Sprintf("Deliverable for step %s retained in datastore only", step.ID), "")
		return
	}

	data, _ := json.Marshal(result)
	e.emit(ctx, "deliverable_published", models.SeverityInfo,
		fmt.Sprintf("Deliverable %q published: %s", d.Title, result.URL), string(data))
}
