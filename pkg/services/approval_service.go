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

// ApprovalService manages the review chain for steps in review.
type ApprovalService struct {
	client *database.Client
	steps  *StepService
}

// NewApprovalService creates a new ApprovalService.
func NewApprovalService(client *database.Client, steps *StepService) *ApprovalService {
	return &ApprovalService{client: client, steps: steps}
}

const approvalColumns = `id, mission_step_id, reviewer_agent_id, review_type, status, feedback, created_at, updated_at`

func scanApproval(row interface{ Scan(...any) error }) (*models.Approval, error) {
	var a models.Approval
	err := row.Scan(&a.ID, &a.MissionStepID, &a.ReviewerAgentID, &a.ReviewType,
		&a.Status, &a.Feedback, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateApproval inserts a pending review row for a step.
func (s *ApprovalService) CreateApproval(ctx context.Context, stepID, reviewerID string, reviewType models.ReviewType) (*models.Approval, error) {
	if stepID == "" {
		return nil, NewValidationError("mission_step_id", "required")
	}
	if reviewerID == "" {
		return nil, NewValidationError("reviewer_agent_id", "required")
	}

	row := s.client.DB().QueryRowContext(ctx, `
		INSERT INTO approval_chain (id, mission_step_id, reviewer_agent_id, review_type, status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING `+approvalColumns,
		uuid.New().String(), stepID, reviewerID, reviewType)

	a, err := scanApproval(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create approval: %w", err)
	}
	return a, nil
}

// GetApproval fetches one approval by ID.
func (s *ApprovalService) GetApproval(ctx context.Context, id string) (*models.Approval, error) {
	row := s.client.DB().QueryRowContext(ctx,
		`SELECT `+approvalColumns+` FROM approval_chain WHERE id = $1`, id)
	a, err := scanApproval(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get approval: %w", err)
	}
	return a, nil
}

// ClaimNextPendingApproval claims the oldest pending approval for execution.
// Compare-and-set on a synthetic claim: the row stays pending but only one
// executor proceeds because SubmitReview requires the pending status.
func (s *ApprovalService) ClaimNextPendingApproval(ctx context.Context) (*models.Approval, error) {
	row := s.client.DB().QueryRowContext(ctx, `
		SELECT `+approvalColumns+`
		FROM approval_chain
		WHERE status = 'pending'
		ORDER BY created_at
		LIMIT 1`)
	a, err := scanApproval(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query pending approvals: %w", err)
	}
	return a, nil
}

// SubmitReview resolves a pending approval. A rejection also sends the step
// back for revision (result cleared, author retries).
func (s *ApprovalService) SubmitReview(ctx context.Context, approvalID string, verdict models.ApprovalStatus, feedback string) (*models.Approval, error) {
	if verdict != models.ApprovalStatusApproved && verdict != models.ApprovalStatusRejected {
		return nil, NewValidationError("verdict", "must be approved or rejected")
	}

	row := s.client.DB().QueryRowContext(ctx, `
		UPDATE approval_chain
		SET status = $2, feedback = $3, updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+approvalColumns, approvalID, verdict, feedback)

	a, err := scanApproval(row)
	if errors.Is(err, sql.ErrNoRows) {
		// Already resolved by a concurrent reviewer.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to submit review: %w", err)
	}

	if verdict == models.ApprovalStatusRejected {
		if err := s.steps.SendBackForRevision(ctx, a.MissionStepID); err != nil && !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("failed to send step back for revision: %w", err)
		}
	}

	return a, nil
}

// CountRejections returns how many rejected reviews the step has accumulated.
// The persona upskilling trigger fires on exactly the fifth.
func (s *ApprovalService) CountRejections(ctx context.Context, stepID string) (int, error) {
	var n int
	err := s.client.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM approval_chain WHERE mission_step_id = $1 AND status = 'rejected'`, stepID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count rejections: %w", err)
	}
	return n, nil
}

// RejectionFeedback returns the feedback texts of all rejected reviews for a
// step, oldest first. Input to the upskill analysis call.
func (s *ApprovalService) RejectionFeedback(ctx context.Context, stepID string) ([]string, error) {
	rows, err := s.client.DB().QueryContext(ctx, `
		SELECT feedback FROM approval_chain
		WHERE mission_step_id = $1 AND status = 'rejected'
		ORDER BY created_at`, stepID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rejection feedback: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var fb string
		if err := rows.Scan(&fb); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		out = append(out, fb)
	}
	return out, rows.Err()
}

// HasApprovedReview reports whether the step already carries an approved
// review of the given type. Used to decide qa → team_lead escalation.
func (s *ApprovalService) HasApprovedReview(ctx context.Context, stepID string, reviewType models.ReviewType) (bool, error) {
	var n int
	err := s.client.DB().QueryRowContext(ctx, `
		SELECT COUNT(*) FROM approval_chain
		WHERE mission_step_id = $1 AND review_type = $2 AND status = 'approved'`,
		stepID, reviewType).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query approvals: %w", err)
	}
	return n > 0, nil
}
