package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/voxyz/agentworld/pkg/database"
	"github.com/voxyz/agentworld/pkg/models"
)

// UsageService records model-call accounting rows and serves cost queries.
type UsageService struct {
	client *database.Client
}

// NewUsageService creates a new UsageService.
func NewUsageService(client *database.Client) *UsageService {
	return &UsageService{client: client}
}

// RecordUsage inserts one accounting row. Called for every physical model
// call, success or failure.
func (s *UsageService) RecordUsage(ctx context.Context, u models.ModelUsage) error {
	if u.ModelName == "" {
		return NewValidationError("model_name", "required")
	}
	if u.Tier == "" {
		return NewValidationError("tier", "required")
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}

	_, err := s.client.DB().ExecContext(ctx, `
		INSERT INTO model_usage (id, agent_id, step_id, model_name, tier, input_tokens, output_tokens,
			estimated_cost, latency_ms, success, error, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		u.ID, u.AgentID, u.StepID, u.ModelName, u.Tier, u.InputTokens, u.OutputTokens,
		u.EstimatedCost, u.LatencyMS, u.Success, u.Error, u.Metadata)
	if err != nil {
		return fmt.Errorf("failed to record model usage: %w", err)
	}
	return nil
}

// TierCost aggregates cost and call counts for one tier.
type TierCost struct {
	Tier  models.ModelTier `json:"tier"`
	Calls int              `json:"calls"`
	Cost  float64          `json:"cost"`
}

// CostSummary aggregates model spend over a window.
type CostSummary struct {
	TotalCost  float64    `json:"total_cost"`
	TotalCalls int        `json:"total_calls"`
	Failures   int        `json:"failures"`
	ByTier     []TierCost `json:"by_tier"`
}

// CostSince aggregates spend since the cutoff, with a per-tier breakdown.
func (s *UsageService) CostSince(ctx context.Context, since time.Time) (*CostSummary, error) {
	rows, err := s.client.DB().QueryContext(ctx, `
		SELECT tier, COUNT(*),
		       COUNT(*) FILTER (WHERE NOT success),
		       COALESCE(SUM(estimated_cost), 0)
		FROM model_usage
		WHERE created_at >= $1
		GROUP BY tier
		ORDER BY tier`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate model usage: %w", err)
	}
	defer rows.Close()

	summary := &CostSummary{}
	for rows.Next() {
		var tc TierCost
		var failures int
		if err := rows.Scan(&tc.Tier, &tc.Calls, &failures, &tc.Cost); err != nil {
			return nil, fmt.Errorf("failed to scan tier cost: %w", err)
		}
		summary.ByTier = append(summary.ByTier, tc)
		summary.TotalCost += tc.Cost
		summary.TotalCalls += tc.Calls
		summary.Failures += failures
	}
	return summary, rows.Err()
}

// MonthlyCallCount returns the model_usage row count for the current month,
// the bandwidth-usage proxy used by health checks.
func (s *UsageService) MonthlyCallCount(ctx context.Context) (int, error) {
	var n int
	err := s.client.DB().QueryRowContext(ctx, `
		SELECT COUNT(*) FROM model_usage
		WHERE created_at >= date_trunc('month', now())`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count monthly usage: %w", err)
	}
	return n, nil
}
