package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/voxyz/agentworld/pkg/database"
	"github.com/voxyz/agentworld/pkg/models"
)

// MissionService manages mission lifecycle and completion aggregation.
type MissionService struct {
	client *database.Client
}

// NewMissionService creates a new MissionService.
func NewMissionService(client *database.Client) *MissionService {
	return &MissionService{client: client}
}

const missionColumns = `id, proposal_id, team_id, title, status, completed_at, created_at, updated_at`

func scanMission(row interface{ Scan(...any) error }) (*models.Mission, error) {
	var m models.Mission
	err := row.Scan(&m.ID, &m.ProposalID, &m.TeamID, &m.Title, &m.Status,
		&m.CompletedAt, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMission fetches one mission by ID.
func (s *MissionService) GetMission(ctx context.Context, id string) (*models.Mission, error) {
	row := s.client.DB().QueryRowContext(ctx,
		`SELECT `+missionColumns+` FROM missions WHERE id = $1`, id)
	m, err := scanMission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mission: %w", err)
	}
	return m, nil
}

// CountActiveMissions returns the number of in-progress missions.
func (s *MissionService) CountActiveMissions(ctx context.Context) (int, error) {
	var n int
	err := s.client.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM missions WHERE status = 'in_progress'`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count active missions: %w", err)
	}
	return n, nil
}

// CheckMissionCompletion aggregates step statuses. When every step is
// terminal, the mission becomes completed (all succeeded) or failed (any
// failed). Failed is sticky at mission level. Returns true once the mission
// reached a terminal status.
func (s *MissionService) CheckMissionCompletion(ctx context.Context, missionID string) (bool, models.MissionStatus, error) {
	var total, terminal, failed int
	err := s.client.DB().QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status IN ('completed', 'failed')),
		       COUNT(*) FILTER (WHERE status = 'failed')
		FROM mission_steps
		WHERE mission_id = $1`, missionID).Scan(&total, &terminal, &failed)
	if err != nil {
		return false, "", fmt.Errorf("failed to aggregate mission steps: %w", err)
	}

	if total == 0 || terminal < total {
		return false, models.MissionStatusInProgress, nil
	}

	status := models.MissionStatusCompleted
	if failed > 0 {
		status = models.MissionStatusFailed
	}

	_, err = s.client.DB().ExecContext(ctx, `
		UPDATE missions
		SET status = $2, completed_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'in_progress'`, missionID, status)
	if err != nil {
		return false, "", fmt.Errorf("failed to finalize mission: %w", err)
	}

	return true, status, nil
}
