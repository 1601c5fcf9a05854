package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/voxyz/agentworld/pkg/models"
	"github.com/voxyz/agentworld/pkg/prompt"
	"github.com/voxyz/agentworld/pkg/services"
)

// runScheduledJobs evaluates every wall-clock job on each tick. Day-string
// guards in the scheduler keep each daily job to one firing per logical day.
func (d *Dispatcher) runScheduledJobs(ctx context.Context) {
	if d.sched.ShouldRunDaily("standup", 9, 0) {
		d.runStandups(ctx)
	}

	summary, err := d.policies.DailySummary(ctx)
	if err != nil {
		d.fail(ctx, "policy_error", err)
		summary.Hour, summary.Minute = 9, 30
	}
	if d.sched.ShouldRunDaily("daily_summary", summary.Hour, summary.Minute) {
		d.runDailySummary(ctx)
	}

	if d.sched.ShouldRunDaily("backup", 3, 0) {
		d.runBackup(ctx)
	}
	if d.sched.ShouldRunDaily("state_push", 4, 0) {
		d.runStatePush(ctx)
	}
	if d.sched.ShouldRunEvery("health_checks", d.cfg.Tuning.HealthInterval) {
		d.runHealthChecks(ctx)
	}

	d.checkCostAlert(ctx)
}

// runStandups makes one tier-1 call per active agent and records the
// standup in the agent's memory.
func (d *Dispatcher) runStandups(ctx context.Context) {
	agents, err := d.svc.Agents.ListActiveAgents(ctx)
	if err != nil {
		d.fail(ctx, "standup_error", err)
		return
	}

	d.logger.Info("Running daily standups", "agents", len(agents))

	for _, agent := range agents {
		if err := d.runStandup(ctx, agent); err != nil {
			d.logger.Error("Standup failed", "agent", agent.DisplayName, "error", err)
		}
	}

	d.emit(ctx, "standup_completed", models.SeverityInfo,
		fmt.Sprintf("Daily standup collected from %d agents", len(agents)), "")
}

func (d *Dispatcher) runStandup(ctx context.Context, agent *models.Agent) error {
	persona, err := d.svc.Personas.GetCurrentPersona(ctx, agent.ID)
	if err != nil && !errors.Is(err, services.ErrNotFound) {
		return fmt.Errorf("get persona: %w", err)
	}
	bundle, err := d.svc.Memories.Retrieve(ctx, agent.ID, []string{"standup"})
	if err != nil {
		return fmt.Errorf("retrieve memory: %w", err)
	}
	skills, err := d.svc.Skills.ListSkills(ctx, agent.ID)
	if err != nil {
		return fmt.Errorf("list skills: %w", err)
	}

	resp, err := d.router.Call(ctx,
		prompt.BuildAgentPrompt(persona, bundle, skills),
		prompt.BuildStandupPrompt(agent.DisplayName, agent.Role),
		models.TierT1, agent.ID, "")
	if err != nil {
		return fmt.Errorf("standup call: %w", err)
	}

	if _, err := d.svc.Memories.SaveMemory(ctx, services.SaveMemoryInput{
		AgentID:    agent.ID,
		MemoryType: models.MemoryTypeObservation,
		Content:    resp.Content,
		Summary:    "Daily standup: " + firstLine(resp.Content),
		TopicTags:  []string{"standup"},
		Importance: 3,
		SourceType: "standup",
	}); err != nil {
		return fmt.Errorf("save standup memory: %w", err)
	}
	return nil
}

// runDailySummary aggregates the last 24 hours, posts the report to the
// summary channel and records it as a daily_summary event. No email is sent:
// a configured summary email address is only written to the log.
func (d *Dispatcher) runDailySummary(ctx context.Context) {
	since := d.sched.Now().Add(-24 * time.Hour)

	costs, err := d.svc.Usage.CostSince(ctx, since)
	if err != nil {
		d.fail(ctx, "summary_error", err)
		return
	}
	eventCounts, err := d.svc.Events.CountSince(ctx, since)
	if err != nil {
		d.fail(ctx, "summary_error", err)
		return
	}
	healthFailures, err := d.svc.Health.RecentFailures(ctx, since)
	if err != nil {
		d.fail(ctx, "summary_error", err)
		return
	}
	activeAgents, err := d.svc.Agents.CountActiveAgents(ctx)
	if err != nil {
		d.fail(ctx, "summary_error", err)
		return
	}
	activeMissions, err := d.svc.Missions.CountActiveMissions(ctx)
	if err != nil {
		d.fail(ctx, "summary_error", err)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*Daily Summary — %s*\n", d.sched.DayString())
	fmt.Fprintf(&b, "Agents active: %d | Missions in flight: %d\n", activeAgents, activeMissions)
	fmt.Fprintf(&b, "Model spend (24h): $%.4f over %d calls (%d failed)\n", costs.TotalCost, costs.TotalCalls, costs.Failures)
	for _, tc := range costs.ByTier {
		fmt.Fprintf(&b, "  • %s: %d calls, $%.4f\n", tc.Tier, tc.Calls, tc.Cost)
	}
	fmt.Fprintf(&b, "Events: %d info, %d warning, %d error\n",
		eventCounts[models.SeverityInfo], eventCounts[models.SeverityWarning], eventCounts[models.SeverityError])
	fmt.Fprintf(&b, "Health probes not passing: %d\n", healthFailures)

	report := b.String()

	if d.chatc != nil {
		if err := d.chatc.PostToChannel(ctx, d.cfg.SummaryChannel, report); err != nil {
			d.logger.Error("Failed to post daily summary", "error", err)
		}
	}
	if d.cfg.SummaryEmail != "" {
		// Nothing is sent to this address; it is only logged. The report is
		// retained as an event either way.
		d.logger.Info("Daily summary prepared for email", "to", d.cfg.SummaryEmail)
	}

	d.emit(ctx, "daily_summary", models.SeverityInfo, report, "")
}

// checkCostAlert fires at most once per logical day when today's spend
// crosses the configured threshold.
func (d *Dispatcher) checkCostAlert(ctx context.Context) {
	if d.sched.RanToday("cost_alert") {
		return
	}

	alert, err := d.policies.CostAlert(ctx)
	if err != nil {
		d.fail(ctx, "policy_error", err)
		return
	}
	if alert.DailyThresholdUSD <= 0 {
		return
	}

	costs, err := d.svc.Usage.CostSince(ctx, d.sched.StartOfDay())
	if err != nil {
		d.fail(ctx, "cost_alert_error", err)
		return
	}
	if costs.TotalCost < alert.DailyThresholdUSD {
		return
	}

	// Durable guard: a restarted dispatcher must not alert twice in a day.
	already, err := d.svc.Events.CountTypeSince(ctx, "cost_alert", d.sched.StartOfDay())
	if err != nil {
		d.fail(ctx, "cost_alert_error", err)
		return
	}
	if already > 0 {
		d.sched.MarkRun("cost_alert")
		return
	}

	d.sched.MarkRun("cost_alert")

	text := fmt.Sprintf("Daily model spend $%.4f crossed the $%.2f alert threshold.",
		costs.TotalCost, alert.DailyThresholdUSD)
	d.emit(ctx, "cost_alert", models.SeverityWarning, text, "")
	if d.chatc != nil {
		if err := d.chatc.PostToChannel(ctx, d.cfg.AlertsChannel, ":rotating_light: "+text); err != nil {
			d.logger.Error("Failed to post cost alert", "error", err)
		}
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
