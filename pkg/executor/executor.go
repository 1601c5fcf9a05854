// Package executor implements the executor process: it claims the next
// ready step, builds the agent prompt, invokes the model router, resolves
// tool use, persists the result, runs reviews, and performs the learning
// updates. At most one step and one review are processed per tick to bound
// memory on small hosts.
package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/voxyz/agentworld/pkg/config"
	"github.com/voxyz/agentworld/pkg/docstore"
	"github.com/voxyz/agentworld/pkg/llm"
	"github.com/voxyz/agentworld/pkg/models"
	"github.com/voxyz/agentworld/pkg/policy"
	"github.com/voxyz/agentworld/pkg/services"
	"github.com/voxyz/agentworld/pkg/tools"
)

// claimBatchSize is how many claimable steps are fetched per tick; the
// executor claims the first whose team is active.
const claimBatchSize = 10

// Executor is the single cooperative loop that runs steps and reviews.
type Executor struct {
	cfg      *config.Config
	svc      *services.Registry
	router   *llm.Router
	llmCfg   llm.Config
	policies *policy.Cache
	resolver *tools.Resolver
	notes    *docstore.NotesClient
	drive    *docstore.DriveClient
	logger   *slog.Logger
}

// New creates an executor. notes and drive may be nil — publishing
// degrades to events only.
func New(cfg *config.Config, svc *services.Registry, router *llm.Router, llmCfg llm.Config,
	policies *policy.Cache, resolver *tools.Resolver,
	notes *docstore.NotesClient, drive *docstore.DriveClient) *Executor {
	return &Executor{
		cfg:      cfg,
		svc:      svc,
		router:   router,
		llmCfg:   llmCfg,
		policies: policies,
		resolver: resolver,
		notes:    notes,
		drive:    drive,
		logger:   slog.Default().With("component", "executor"),
	}
}

// Run executes the tick loop until the context is cancelled.
func (e *Executor) Run(ctx context.Context) {
	e.logger.Info("Executor started", "tick", e.cfg.Tuning.ExecutorTick)

	ticker := time.NewTicker(e.cfg.Tuning.ExecutorTick)
	defer ticker.Stop()

	e.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Executor shutting down")
			return
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

// tick processes at most one step and one review.
func (e *Executor) tick(ctx context.Context) {
	if err := e.processOneStep(ctx); err != nil {
		e.fail(ctx, "executor_error", err)
	}
	if err := e.processOneReview(ctx); err != nil {
		e.fail(ctx, "review_error", err)
	}
}

func (e *Executor) emit(ctx context.Context, eventType string, severity models.EventSeverity, description, data string) {
	if _, err := e.svc.Events.Emit(ctx, eventType, severity, description, data); err != nil {
		e.logger.Error("Failed to emit event", "event_type", eventType, "error", err)
	}
}

func (e *Executor) fail(ctx context.Context, eventType string, err error) {
	e.logger.Error("Executor stage failed", "event_type", eventType, "error", err)
	e.emit(ctx, eventType, models.SeverityError, err.Error(), "")
}
