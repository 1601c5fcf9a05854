package dispatch

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/voxyz/agentworld/pkg/database"
	"github.com/voxyz/agentworld/pkg/models"
	"github.com/voxyz/agentworld/pkg/version"
)

// memoryLimitBytes is the process memory budget the usage probe grades
// against. Overridable for small hosts via PROCESS_MEMORY_LIMIT_MB.
func memoryLimitBytes() uint64 {
	limitMB := 512
	if v := os.Getenv("PROCESS_MEMORY_LIMIT_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limitMB = n
		}
	}
	return uint64(limitMB) * 1024 * 1024
}

// bandwidthWarnCalls is the monthly model-call count that flags elevated
// bandwidth use; double it and the probe fails.
const bandwidthWarnCalls = 50_000

// runHealthChecks performs the periodic component probes, each timed and
// recorded.
func (d *Dispatcher) runHealthChecks(ctx context.Context) {
	d.probe(ctx, "datastore", func() (models.HealthState, string) {
		if _, err := database.Health(ctx, d.db.DB()); err != nil {
			return models.HealthFail, err.Error()
		}
		return models.HealthPass, ""
	})

	d.probe(ctx, "model_provider", func() (models.HealthState, string) {
		if err := d.router.ValidateKey(ctx); err != nil {
			return models.HealthFail, err.Error()
		}
		return models.HealthPass, ""
	})

	d.probe(ctx, "process_memory", func() (models.HealthState, string) {
		var stats runtime.MemStats
		runtime.ReadMemStats(&stats)
		limit := memoryLimitBytes()
		pct := float64(stats.HeapAlloc) / float64(limit) * 100

		detail := fmt.Sprintf("heap %.1f%% of %d MB", pct, limit/(1024*1024))
		switch {
		case pct >= 90:
			return models.HealthFail, detail
		case pct >= 80:
			return models.HealthWarning, detail
		default:
			return models.HealthPass, detail
		}
	})

	d.probe(ctx, "bandwidth", func() (models.HealthState, string) {
		calls, err := d.svc.Usage.MonthlyCallCount(ctx)
		if err != nil {
			return models.HealthFail, err.Error()
		}
		detail := fmt.Sprintf("%d model calls this month", calls)
		switch {
		case calls >= 2*bandwidthWarnCalls:
			return models.HealthFail, detail
		case calls >= bandwidthWarnCalls:
			return models.HealthWarning, detail
		default:
			return models.HealthPass, detail
		}
	})
}

func (d *Dispatcher) probe(ctx context.Context, component string, check func() (models.HealthState, string)) {
	start := time.Now()
	status, details := check()
	latency := time.Since(start)

	if err := d.svc.Health.RecordCheck(ctx, component, status, latency, details); err != nil {
		d.logger.Error("Failed to record health check", "component", component, "error", err)
	}
	if status != models.HealthPass {
		d.logger.Warn("Health probe not passing", "component", component, "status", status, "details", details)
	}
}

// ServeHealth runs the HTTP liveness endpoint until the context is
// cancelled. The endpoint reports "stalled" with a 503 when the tick loop
// has not completed within the configured staleness bound — the external
// uptime-probe surface, independent of internal alerting.
func (d *Dispatcher) ServeHealth(ctx context.Context) error {
	started := time.Now()

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		var stats runtime.MemStats
		runtime.ReadMemStats(&stats)

		sinceTick := time.Since(d.LastTick())
		status := "ok"
		httpStatus := http.StatusOK
		if sinceTick > d.cfg.Tuning.StalledAfter {
			status = "stalled"
			httpStatus = http.StatusServiceUnavailable
		}

		c.JSON(httpStatus, gin.H{
			"status":             status,
			"version":            version.GitCommit,
			"process":            "dispatcher",
			"uptime":             time.Since(started).String(),
			"lastTickSecondsAgo": int(sinceTick.Seconds()),
			"memoryMB":           stats.HeapAlloc / (1024 * 1024),
		})
	})

	srv := &http.Server{
		Addr:    ":" + d.cfg.HealthPort,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	d.logger.Info("Health endpoint listening", "port", d.cfg.HealthPort)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("health server failed: %w", err)
	}
	return nil
}
