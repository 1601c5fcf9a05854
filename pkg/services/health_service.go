package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/voxyz/agentworld/pkg/database"
	"github.com/voxyz/agentworld/pkg/models"
)

// HealthService persists periodic component probe results.
type HealthService struct {
	client *database.Client
}

// NewHealthService creates a new HealthService.
func NewHealthService(client *database.Client) *HealthService {
	return &HealthService{client: client}
}

// RecordCheck inserts one probe result.
func (s *HealthService) RecordCheck(ctx context.Context, component string, status models.HealthState, latency time.Duration, details string) error {
	if component == "" {
		return NewValidationError("component", "required")
	}

	_, err := s.client.DB().ExecContext(ctx, `
		INSERT INTO health_checks (id, component, status, latency_ms, details)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), component, status, latency.Milliseconds(), details)
	if err != nil {
		return fmt.Errorf("failed to record health check: %w", err)
	}
	return nil
}

// RecentFailures counts warning/fail probes since the cutoff. Input to the
// daily summary.
func (s *HealthService) RecentFailures(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.client.DB().QueryRowContext(ctx, `
		SELECT COUNT(*) FROM health_checks
		WHERE created_at >= $1 AND status <> 'pass'`, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count health failures: %w", err)
	}
	return n, nil
}
