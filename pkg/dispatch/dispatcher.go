// Package dispatch implements the dispatcher process: the periodic tick
// that promotes proposals into missions and steps, closes capability gaps
// by hiring, schedules reviews, advances projects, and fires the
// wall-clock jobs. All coordination happens through datastore rows.
package dispatch

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/voxyz/agentworld/pkg/chat"
	"github.com/voxyz/agentworld/pkg/config"
	"github.com/voxyz/agentworld/pkg/database"
	"github.com/voxyz/agentworld/pkg/docstore"
	"github.com/voxyz/agentworld/pkg/llm"
	"github.com/voxyz/agentworld/pkg/models"
	"github.com/voxyz/agentworld/pkg/policy"
	"github.com/voxyz/agentworld/pkg/scheduler"
	"github.com/voxyz/agentworld/pkg/services"
)

// Dispatcher is the single cooperative loop that owns work promotion and
// scheduled jobs. It processes everything available each tick and yields
// only at I/O boundaries.
type Dispatcher struct {
	cfg      *config.Config
	db       *database.Client
	svc      *services.Registry
	router   *llm.Router
	sched    *scheduler.Scheduler
	policies *policy.Cache
	chatc    *chat.Client
	drive    *docstore.DriveClient
	github   *docstore.GitHubClient
	logger   *slog.Logger

	// lastTick is read by the liveness endpoint.
	lastTick atomic.Int64
}

// New creates a dispatcher. chatc, drive, and github may be nil — the
// corresponding side effects are skipped.
func New(cfg *config.Config, db *database.Client, svc *services.Registry, router *llm.Router,
	sched *scheduler.Scheduler, policies *policy.Cache, chatc *chat.Client,
	drive *docstore.DriveClient, github *docstore.GitHubClient) *Dispatcher {
	d := &Dispatcher{
		cfg:      cfg,
		db:       db,
		svc:      svc,
		router:   router,
		sched:    sched,
		policies: policies,
		chatc:    chatc,
		drive:    drive,
		github:   github,
		logger:   slog.Default().With("component", "dispatcher"),
	}
	d.lastTick.Store(time.Now().UnixNano())
	return d
}

// Run executes the tick loop until the context is cancelled. The current
// iteration always finishes before the loop exits.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("Dispatcher started", "tick", d.cfg.Tuning.DispatcherTick)

	ticker := time.NewTicker(d.cfg.Tuning.DispatcherTick)
	defer ticker.Stop()

	d.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Dispatcher shutting down")
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

// LastTick returns when the most recent tick completed.
func (d *Dispatcher) LastTick() time.Time {
	return time.Unix(0, d.lastTick.Load())
}

// tick runs one dispatcher pass. Each stage catches its own errors, emits
// an event, and lets the rest of the tick proceed.
func (d *Dispatcher) tick(ctx context.Context) {
	d.reclaimStaleSteps(ctx)
	d.completeApprovedHiring(ctx)
	d.processPendingProposals(ctx)
	d.scheduleReviews(ctx)
	d.advanceProjects(ctx)
	d.runScheduledJobs(ctx)

	d.lastTick.Store(time.Now().UnixNano())
}

func (d *Dispatcher) reclaimStaleSteps(ctx context.Context) {
	n, err := d.svc.Steps.ReclaimStaleSteps(ctx, d.cfg.Tuning.StaleStepThreshold)
	if err != nil {
		d.fail(ctx, "reclaim_error", err)
		return
	}
	if n > 0 {
		d.logger.Warn("Reclaimed stale in-progress steps", "count", n)
		d.emit(ctx, "steps_reclaimed", models.SeverityWarning,
			"stale in-progress steps returned to pending", "")
	}
}

// emit records an event; event failures are logged, never propagated.
func (d *Dispatcher) emit(ctx context.Context, eventType string, severity models.EventSeverity, description, data string) {
	if _, err := d.svc.Events.Emit(ctx, eventType, severity, description, data); err != nil {
		d.logger.Error("Failed to emit event", "event_type", eventType, "error", err)
	}
}

// fail logs a stage error and emits the matching *_error event.
func (d *Dispatcher) fail(ctx context.Context, eventType string, err error) {
	d.logger.Error("Dispatcher stage failed", "event_type", eventType, "error", err)
	d.emit(ctx, eventType, models.SeverityError, err.Error(), "")
}
