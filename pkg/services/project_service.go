package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/voxyz/agentworld/pkg/database"
	"github.com/voxyz/agentworld/pkg/models"
)

// ProjectService tracks named projects that advance through fixed phases as
// their missions complete.
type ProjectService struct {
	client *database.Client
}

// NewProjectService creates a new ProjectService.
func NewProjectService(client *database.Client) *ProjectService {
	return &ProjectService{client: client}
}

const projectColumns = `id, name, description, phase, status, current_mission_id, created_at, updated_at`

func scanProject(row interface{ Scan(...any) error }) (*models.Project, error) {
	var p models.Project
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Phase, &p.Status,
		&p.CurrentMissionID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProject inserts an active project at phase 0.
func (s *ProjectService) CreateProject(ctx context.Context, name, description string) (*models.Project, error) {
	if name == "" {
		return nil, NewValidationError("name", "required")
	}

	row := s.client.DB().QueryRowContext(ctx, `
		INSERT INTO projects (id, name, description, phase, status)
		VALUES ($1, $2, $3, 0, 'active')
		RETURNING `+projectColumns,
		uuid.New().String(), name, description)
	p, err := scanProject(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return p, nil
}

// GetProjectByMission returns the active project currently waiting on the
// given mission, if any.
func (s *ProjectService) GetProjectByMission(ctx context.Context, missionID string) (*models.Project, error) {
	row := s.client.DB().QueryRowContext(ctx, `
		SELECT `+projectColumns+` FROM projects
		WHERE current_mission_id = $1 AND status = 'active'`, missionID)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project by mission: %w", err)
	}
	return p, nil
}

// AdvancePhase moves an active project to the next phase and repoints it at
// the mission driving that phase. A nil mission ID with done=true completes
// the project.
func (s *ProjectService) AdvancePhase(ctx context.Context, projectID string, nextMissionID *string, done bool) error {
	status := models.ProjectStatusActive
	if done {
		status = models.ProjectStatusCompleted
	}

	res, err := s.client.DB().ExecContext(ctx, `
		UPDATE projects
		SET phase = phase + 1, current_mission_id = $2, status = $3, updated_at = now()
		WHERE id = $1 AND status = 'active'`, projectID, nextMissionID, status)
	if err != nil {
		return fmt.Errorf("failed to advance project phase: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCurrentMission points a project at the mission for its current phase.
func (s *ProjectService) SetCurrentMission(ctx context.Context, projectID, missionID string) error {
	_, err := s.client.DB().ExecContext(ctx, `
		UPDATE projects SET current_mission_id = $2, updated_at = now() WHERE id = $1`,
		projectID, missionID)
	if err != nil {
		return fmt.Errorf("failed to set project mission: %w", err)
	}
	return nil
}
