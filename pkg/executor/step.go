package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/voxyz/agentworld/pkg/models"
	"github.com/voxyz/agentworld/pkg/prompt"
	"github.com/voxyz/agentworld/pkg/routing"
	"github.com/voxyz/agentworld/pkg/services"
)

// processOneStep claims the next ready step and executes it end to end.
// Claim losses are silent — another executor owns the step.
func (e *Executor) processOneStep(ctx context.Context) error {
	candidates, err := e.svc.Steps.GetPendingSteps(ctx, claimBatchSize)
	if err != nil {
		return fmt.Errorf("get pending steps: %w", err)
	}

	for _, candidate := range candidates {
		active, err := e.missionTeamActive(ctx, candidate.MissionID)
		if err != nil {
			return err
		}
		if !active {
			continue
		}

		step, err := e.svc.Steps.ClaimStep(ctx, candidate.ID)
		if err != nil {
			return fmt.Errorf("claim step: %w", err)
		}
		if step == nil {
			continue
		}
		return e.executeStep(ctx, step)
	}
	return nil
}

func (e *Executor) missionTeamActive(ctx context.Context, missionID string) (bool, error) {
	mission, err := e.svc.Missions.GetMission(ctx, missionID)
	if err != nil {
		return false, fmt.Errorf("get mission: %w", err)
	}
	team, err := e.svc.Agents.GetTeam(ctx, mission.TeamID)
	if err != nil {
		return false, fmt.Errorf("get team: %w", err)
	}
	return team.Status == models.TeamStatusActive, nil
}

// executeStep runs one claimed step: context enrichment, the routed model
// call, tool resolution, persistence, and the post-completion learning
// updates. Failures mark the step failed and roll up to the mission.
func (e *Executor) executeStep(ctx context.Context, step *models.MissionStep) error {
	log := e.logger.With("step_id", step.ID, "agent_id", step.AssignedAgentID)
	log.Info("Step claimed")

	result, err := e.runStep(ctx, step)
	if err != nil {
		log.Error("Step execution failed", "error", err)
		if ferr := e.svc.Steps.FailStep(ctx, step.ID, err.Error()); ferr != nil {
			return fmt.Errorf("fail step after %v: %w", err, ferr)
		}
		e.emit(ctx, "step_failed", models.SeverityError,
			fmt.Sprintf("Step %s failed: %v", step.ID, err), "")

		done, status, cerr := e.svc.Missions.CheckMissionCompletion(ctx, step.MissionID)
		if cerr != nil {
			return cerr
		}
		if done {
			e.announceMissionTerminal(ctx, step.MissionID, status)
		}
		return nil
	}

	if err := e.svc.Steps.CompleteStep(ctx, step.ID, result); err != nil {
		return fmt.Errorf("complete step: %w", err)
	}
	log.Info("Step completed, awaiting review", "result_bytes", len(result))

	e.recordStepLearning(ctx, step, result)
	return nil
}

// runStep produces the step's result text.
func (e *Executor) runStep(ctx context.Context, step *models.MissionStep) (string, error) {
	if err := e.checkSpendingPolicy(ctx, step); err != nil {
		return "", err
	}

	agent, err := e.svc.Agents.GetAgent(ctx, step.AssignedAgentID)
	if err != nil {
		return "", fmt.Errorf("get agent: %w", err)
	}

	persona, err := e.svc.Personas.GetCurrentPersona(ctx, agent.ID)
	if err != nil && !errors.Is(err, services.ErrNotFound) {
		return "", fmt.Errorf("get persona: %w", err)
	}

	category := routing.RouteByKeywords(step.Description)
	tags := []string{string(category), "task"}

	bundle, err := e.svc.Memories.Retrieve(ctx, agent.ID, tags)
	if err != nil {
		return "", fmt.Errorf("retrieve memory: %w", err)
	}
	skills, err := e.svc.Skills.ListSkills(ctx, agent.ID)
	if err != nil {
		return "", fmt.Errorf("list skills: %w", err)
	}

	systemPrompt := prompt.BuildAgentPrompt(persona, bundle, skills)
	userMessage, err := e.buildUserMessage(ctx, step, agent)
	if err != nil {
		return "", err
	}

	resp, err := e.router.Call(ctx, systemPrompt, userMessage, step.ModelTier, agent.ID, step.ID)
	if err != nil {
		return "", fmt.Errorf("model call: %w", err)
	}

	// Tool-use resolution may re-invoke the model at the same tier.
	followUp := func(ctx context.Context, message string, tier models.ModelTier) (string, error) {
		r, err := e.router.Call(ctx, systemPrompt, message, tier, agent.ID, step.ID)
		if err != nil {
			return "", err
		}
		return r.Content, nil
	}
	final, err := e.resolver.Resolve(ctx, resp.Content, step.Description, step.ModelTier, followUp)
	if err != nil {
		return "", fmt.Errorf("tool resolution: %w", err)
	}
	if final == "" {
		return "", fmt.Errorf("model produced an empty result")
	}

	e.saveConversation(ctx, agent.ID, step, userMessage, final)
	return final, nil
}

// checkSpendingPolicy refuses steps whose worst-case model cost exceeds
// the per-action spending limit. Paid actions without approval do not run.
func (e *Executor) checkSpendingPolicy(ctx context.Context, step *models.MissionStep) error {
	limit, err := e.policies.SpendingLimit(ctx)
	if err != nil {
		return fmt.Errorf("load spending policy: %w", err)
	}
	if limit.MaxUSDPerAction <= 0 {
		return nil
	}

	tc, ok := e.llmCfg.Tiers[step.ModelTier]
	if !ok {
		return fmt.Errorf("tier %q not configured", step.ModelTier)
	}

	// Worst case: a full context in and a maxed-out completion back, twice
	// (tool resolution re-invokes at the same tier).
	worstCase := 2 * tc.EstimateCost(tc.MaxTokens, tc.MaxTokens)
	if worstCase > limit.MaxUSDPerAction {
		e.emit(ctx, "policy_denied", models.SeverityWarning,
			fmt.Sprintf("Step %s refused: worst-case cost $%.4f exceeds the $%.2f per-action limit",
				step.ID, worstCase, limit.MaxUSDPerAction), "")
		return fmt.Errorf("spending policy denied %s execution (worst case $%.4f > $%.2f)",
			step.ModelTier, worstCase, limit.MaxUSDPerAction)
	}
	return nil
}

// buildUserMessage composes the five-block task context, chaining the
// previous phase output and pre-fetched URL content where applicable.
func (e *Executor) buildUserMessage(ctx context.Context, step *models.MissionStep, agent *models.Agent) (string, error) {
	in := prompt.TaskContextInput{
		AgentRole:   agent.Role,
		Description: step.Description,
	}

	mission, err := e.svc.Missions.GetMission(ctx, step.MissionID)
	if err != nil {
		return "", fmt.Errorf("get mission: %w", err)
	}
	proposal, err := e.svc.Proposals.GetProposal(ctx, mission.ProposalID)
	if err == nil && proposal.RawMessage != "" {
		in.OriginatingRequest = proposal.RawMessage
	} else if err != nil && !errors.Is(err, services.ErrNotFound) {
		return "", fmt.Errorf("get proposal: %w", err)
	}

	if step.ParentStepID != nil {
		parent, err := e.svc.Steps.GetStep(ctx, *step.ParentStepID)
		if err != nil {
			return "", fmt.Errorf("get parent step: %w", err)
		}
		parentAgent, err := e.svc.Agents.GetAgent(ctx, parent.AssignedAgentID)
		if err != nil {
			return "", fmt.Errorf("get parent agent: %w", err)
		}
		in.PreviousPhaseOutput = parent.Result
		in.PreviousPhaseAgent = parentAgent.DisplayName
	}

	message := prompt.BuildTaskContext(in)

	// Pre-fetch guarantees the first call already has page content for any
	// URLs embedded in the task.
	if prefetched := e.resolver.Prefetch(ctx, step.Description); prefetched != "" {
		message += "\n\n" + prefetched
	}

	return message, nil
}

// recordStepLearning saves the task memory and tracks skill usage after a
// successful execution. Fail-open: learning never fails the step.
func (e *Executor) recordStepLearning(ctx context.Context, step *models.MissionStep, result string) {
	category := routing.RouteByKeywords(step.Description)

	if _, err := e.svc.Memories.SaveMemory(ctx, services.SaveMemoryInput{
		AgentID:    step.AssignedAgentID,
		MemoryType: models.MemoryTypeTask,
		Content:    fmt.Sprintf("Task: %s\n\nResult:\n%s", step.Description, truncate(result, 2000)),
		Summary:    "Completed: " + truncate(step.Description, 200),
		TopicTags:  []string{string(category), "task"},
		Importance: 5,
		SourceType: "mission_step",
		SourceID:   step.ID,
	}); err != nil {
		e.logger.Error("Failed to save task memory", "step_id", step.ID, "error", err)
	}

	usage, err := e.svc.Skills.TrackSkillUsage(ctx, step.AssignedAgentID, step.Description)
	if err != nil {
		e.logger.Error("Failed to track skill usage", "step_id", step.ID, "error", err)
		return
	}
	for _, skill := range usage.LeveledUp {
		e.emit(ctx, "skill_level_up", models.SeverityInfo,
			fmt.Sprintf("Agent %s leveled up %q", step.AssignedAgentID, skill), "")
	}
}

func (e *Executor) saveConversation(ctx context.Context, agentID string, step *models.MissionStep, userMessage, response string) {
	conversationID := "step-" + step.ID + "-" + uuid.New().String()[:8]
	if err := e.svc.Memories.SaveConversation(ctx, conversationID, agentID, "user", userMessage); err != nil {
		e.logger.Error("Failed to save conversation turn", "step_id", step.ID, "error", err)
		return
	}
	if err := e.svc.Memories.SaveConversation(ctx, conversationID, agentID, "assistant", response); err != nil {
		e.logger.Error("Failed to save conversation turn", "step_id", step.ID, "error", err)
	}
}

// announceMissionTerminal emits the mission's terminal event; the ingress
// adapter relays it outward.
func (e *Executor) announceMissionTerminal(ctx context.Context, missionID string, status models.MissionStatus) {
	severity := models.SeverityInfo
	eventType := "mission_completed"
	if status == models.MissionStatusFailed {
		severity = models.SeverityError
		eventType = "mission_failed"
	}
	e.emit(ctx, eventType, severity, fmt.Sprintf("Mission %s is %s", missionID, status), "")
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return strings.TrimSpace(s[:limit]) + "…"
}
