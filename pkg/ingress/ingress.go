// Package ingress implements the ingress adapter process: it polls the
// chat platform for founder messages, serves the administrative command
// surface, turns free-form requests into mission proposals, and announces
// engine events outward.
package ingress

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/voxyz/agentworld/pkg/chat"
	"github.com/voxyz/agentworld/pkg/config"
	"github.com/voxyz/agentworld/pkg/models"
	"github.com/voxyz/agentworld/pkg/services"
)

// Ingress is the single cooperative loop bridging the chat platform and
// the datastore.
type Ingress struct {
	cfg    *config.Config
	svc    *services.Registry
	chatc  *chat.Client
	logger *slog.Logger

	// lastSeenTS tracks the newest processed message in the polled channel.
	lastSeenTS string
}

// New creates the ingress adapter.
func New(cfg *config.Config, svc *services.Registry, chatc *chat.Client) *Ingress {
	return &Ingress{
		cfg:    cfg,
		svc:    svc,
		chatc:  chatc,
		logger: slog.Default().With("component", "ingress"),
	}
}

// Run executes the poll loop until the context is cancelled.
func (i *Ingress) Run(ctx context.Context) {
	i.logger.Info("Ingress adapter started", "tick", i.cfg.Tuning.IngressTick)

	// Skip history that predates startup.
	ts, err := i.chatc.LatestTimestamp(ctx, i.cfg.GeneralChannel)
	if err != nil {
		i.logger.Error("Failed to read channel position, starting from now", "error", err)
	} else {
		i.lastSeenTS = ts
	}

	ticker := time.NewTicker(i.cfg.Tuning.IngressTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			i.logger.Info("Ingress adapter shutting down")
			return
		case <-ticker.C:
			i.tick(ctx)
		}
	}
}

func (i *Ingress) tick(ctx context.Context) {
	i.pollMessages(ctx)
	i.announceEvents(ctx)
}

// pollMessages reads new channel messages, filtered to the founder user ID.
func (i *Ingress) pollMessages(ctx context.Context) {
	messages, err := i.chatc.History(ctx, i.cfg.GeneralChannel, i.lastSeenTS)
	if err != nil {
		i.logger.Error("Failed to poll channel", "error", err)
		return
	}

	for _, msg := range messages {
		i.lastSeenTS = msg.Timestamp
		if msg.UserID != i.cfg.FounderUserID {
			continue
		}
		i.handleMessage(ctx, msg.Text)
	}
}

// handleMessage dispatches a founder message: commands start with "!";
// anything else becomes a mission proposal.
func (i *Ingress) handleMessage(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	var reply string
	if strings.HasPrefix(text, "!") {
		reply = i.handleCommand(ctx, text)
	} else {
		reply = i.handleWorkRequest(ctx, text)
	}

	if reply == "" {
		return
	}
	if err := i.chatc.PostToChannel(ctx, i.cfg.GeneralChannel, reply); err != nil {
		i.logger.Error("Failed to post reply", "error", err)
	}
}

// handleWorkRequest files the founder's free-form request as a mission
// proposal; the dispatcher picks it up on its next tick.
func (i *Ingress) handleWorkRequest(ctx context.Context, text string) string {
	priority := models.PriorityNormal
	if strings.Contains(strings.ToLower(text), "urgent") {
		priority = models.PriorityUrgent
	}

	title := text
	if len(title) > 120 {
		title = title[:120]
	}

	proposal, err := i.svc.Proposals.CreateProposal(ctx, title, text, priority, "founder", text)
	if err != nil {
		i.logger.Error("Failed to create proposal", "error", err)
		return "Couldn't file that request: " + err.Error()
	}

	i.logger.Info("Proposal filed from chat", "proposal_id", proposal.ID, "priority", priority)
	return "On it. Filed as mission proposal `" + proposal.ID + "` (" + string(priority) + ")."
}

// announceEvents relays unprocessed engine events to the right channels.
func (i *Ingress) announceEvents(ctx context.Context) {
	events, err := i.svc.Events.ListUnprocessed(ctx, 20)
	if err != nil {
		i.logger.Error("Failed to list events", "error", err)
		return
	}

	for _, ev := range events {
		channel := i.cfg.GeneralChannel
		prefix := ""
		switch {
		case ev.Severity == models.SeverityError:
			channel = i.cfg.AlertsChannel
			prefix = ":x: "
		case ev.Severity == models.SeverityWarning:
			channel = i.cfg.AlertsChannel
			prefix = ":warning: "
		case ev.EventType == "daily_summary":
			// The dispatcher already posted the summary itself.
			if err := i.svc.Events.MarkProcessed(ctx, ev.ID); err != nil {
				i.logger.Error("Failed to mark event processed", "event_id", ev.ID, "error", err)
			}
			continue
		}

		if err := i.chatc.PostToChannel(ctx, channel, prefix+ev.Description); err != nil {
			i.logger.Error("Failed to announce event", "event_id", ev.ID, "error", err)
			// Retried next tick; leave unprocessed.
			continue
		}
		if err := i.svc.Events.MarkProcessed(ctx, ev.ID); err != nil {
			i.logger.Error("Failed to mark event processed", "event_id", ev.ID, "error", err)
		}
	}
}
