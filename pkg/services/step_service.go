package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/voxyz/agentworld/pkg/database"
	"github.com/voxyz/agentworld/pkg/models"
)

// StepService manages mission steps: creation, the ordered-claim state
// machine, and revision transitions.
type StepService struct {
	client *database.Client
}

// NewStepService creates a new StepService.
func NewStepService(client *database.Client) *StepService {
	return &StepService{client: client}
}

const stepColumns = `id, mission_id, description, assigned_agent_id, model_tier, step_order,
	parent_step_id, status, result, error, announced, processed, started_at, created_at, updated_at`

func scanStep(row interface{ Scan(...any) error }) (*models.MissionStep, error) {
	var st models.MissionStep
	err := row.Scan(&st.ID, &st.MissionID, &st.Description, &st.AssignedAgentID, &st.ModelTier,
		&st.StepOrder, &st.ParentStepID, &st.Status, &st.Result, &st.Error,
		&st.Announced, &st.Processed, &st.StartedAt, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// CreateStep inserts a pending step for a mission.
func (s *StepService) CreateStep(ctx context.Context, missionID, description, agentID string, tier models.ModelTier, order int, parentStepID *string) (*models.MissionStep, error) {
	if description == "" {
		return nil, NewValidationError("description", "required")
	}
	if agentID == "" {
		return nil, NewValidationError("assigned_agent_id", "required")
	}
	if order < 1 {
		return nil, NewValidationError("step_order", "must be 1-based")
	}
	if tier == "" {
		tier = models.TierT1
	}

	row := s.client.DB().QueryRowContext(ctx, `
		INSERT INTO mission_steps (id, mission_id, description, assigned_agent_id, model_tier, step_order, parent_step_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending')
		RETURNING `+stepColumns,
		uuid.New().String(), missionID, description, agentID, tier, order, parentStepID)

	st, err := scanStep(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create step: %w", err)
	}
	return st, nil
}

// GetStep fetches one step by ID.
func (s *StepService) GetStep(ctx context.Context, id string) (*models.MissionStep, error) {
	row := s.client.DB().QueryRowContext(ctx,
		`SELECT `+stepColumns+` FROM mission_steps WHERE id = $1`, id)
	st, err := scanStep(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get step: %w", err)
	}
	return st, nil
}

// GetPendingSteps returns claimable steps: pending, with every lower-ordered
// sibling of the same mission completed. Ordered by step_order then creation
// time. This query is the chained-phase gating invariant.
func (s *StepService) GetPendingSteps(ctx context.Context, limit int) ([]*models.MissionStep, error) {
	if limit < 1 {
		limit = 1
	}
	rows, err := s.client.DB().QueryContext(ctx, `
		SELECT `+stepColumns+`
		FROM mission_steps ms
		WHERE ms.status = 'pending'
		  AND NOT EXISTS (
			SELECT 1 FROM mission_steps prev
			WHERE prev.mission_id = ms.mission_id
			  AND prev.step_order < ms.step_order
			  AND prev.status <> 'completed'
		  )
		ORDER BY ms.step_order, ms.created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending steps: %w", err)
	}
	defer rows.Close()

	var out []*models.MissionStep
	for rows.Next() {
		st, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// ClaimStep is a compare-and-set: only pending → in_progress succeeds.
// Concurrent callers see exactly one success; losers get (nil, nil) and no
// side effects.
func (s *StepService) ClaimStep(ctx context.Context, stepID string) (*models.MissionStep, error) {
	row := s.client.DB().QueryRowContext(ctx, `
		UPDATE mission_steps
		SET status = 'in_progress', processed = TRUE, started_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+stepColumns, stepID)

	st, err := scanStep(row)
	if errors.Is(err, sql.ErrNoRows) {
		// Lost the race — another worker owns it.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim step: %w", err)
	}
	return st, nil
}

// CompleteStep records the result and moves the step to review.
func (s *StepService) CompleteStep(ctx context.Context, stepID, result string) error {
	return s.transition(ctx, stepID, `
		UPDATE mission_steps
		SET status = 'in_review', result = $2, updated_at = now()
		WHERE id = $1 AND status = 'in_progress'`, result)
}

// FailStep marks the step failed with the error recorded.
func (s *StepService) FailStep(ctx context.Context, stepID, errMsg string) error {
	return s.transition(ctx, stepID, `
		UPDATE mission_steps
		SET status = 'failed', error = $2, updated_at = now()
		WHERE id = $1 AND status IN ('in_progress', 'in_review')`, errMsg)
}

// ApproveStep marks an in-review step completed.
func (s *StepService) ApproveStep(ctx context.Context, stepID string) error {
	return s.transition(ctx, stepID, `
		UPDATE mission_steps
		SET status = 'completed', updated_at = now()
		WHERE id = $1 AND status = 'in_review'`)
}

// SendBackForRevision returns a rejected step to pending with its result
// cleared so the author retries.
func (s *StepService) SendBackForRevision(ctx context.Context, stepID string) error {
	return s.transition(ctx, stepID, `
		UPDATE mission_steps
		SET status = 'pending', result = '', processed = FALSE, started_at = NULL, updated_at = now()
		WHERE id = $1 AND status = 'in_review'`)
}

func (s *StepService) transition(ctx context.Context, stepID string, query string, args ...any) error {
	params := append([]any{stepID}, args...)
	res, err := s.client.DB().ExecContext(ctx, query, params...)
	if err != nil {
		return fmt.Errorf("failed to transition step %s: %w", stepID, err)
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

// ListStepsByMission returns all steps of a mission in step order.
func (s *StepService) ListStepsByMission(ctx context.Context, missionID string) ([]*models.MissionStep, error) {
	rows, err := s.client.DB().QueryContext(ctx,
		`SELECT `+stepColumns+` FROM mission_steps WHERE mission_id = $1 ORDER BY step_order, created_at`, missionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query mission steps: %w", err)
	}
	defer rows.Close()

	var out []*models.MissionStep
	for rows.Next() {
		st, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// GetStepsInReview returns steps awaiting review that have no pending
// approval row yet; the dispatcher creates one per tick.
func (s *StepService) GetStepsInReview(ctx context.Context, limit int) ([]*models.MissionStep, error) {
	if limit < 1 {
		limit = 1
	}
	rows, err := s.client.DB().QueryContext(ctx, `
		SELECT `+stepColumns+`
		FROM mission_steps ms
		WHERE ms.status = 'in_review'
		  AND NOT EXISTS (
			SELECT 1 FROM approval_chain ac
			WHERE ac.mission_step_id = ms.id AND ac.status = 'pending'
		  )
		ORDER BY ms.updated_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps in review: %w", err)
	}
	defer rows.Close()

	var out []*models.MissionStep
	for rows.Next() {
		st, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// ReclaimStaleSteps flips in-progress steps whose claim is older than the
// threshold back to pending. Recovers work lost to a crashed executor; safe
// to run from every dispatcher tick.
func (s *StepService) ReclaimStaleSteps(ctx context.Context, olderThan time.Duration) (int, error) {
	res, err := s.client.DB().ExecContext(ctx, `
		UPDATE mission_steps
		SET status = 'pending', processed = FALSE, started_at = NULL, updated_at = now()
		WHERE status = 'in_progress' AND started_at < now() - $1::interval`,
		fmt.Sprintf("%d seconds", int(olderThan.Seconds())))
	if err != nil {
		return 0, fmt.Errorf("failed to reclaim stale steps: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return int(affected), nil
}

// SetAnnounced marks a step's completion as announced outward.
func (s *StepService) SetAnnounced(ctx context.Context, stepID string) error {
	_, err := s.client.DB().ExecContext(ctx,
		`UPDATE mission_steps SET announced = TRUE, updated_at = now() WHERE id = $1`, stepID)
	if err != nil {
		return fmt.Errorf("failed to mark step announced: %w", err)
	}
	return nil
}
