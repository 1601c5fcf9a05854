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

// HiringService manages hiring proposal lifecycle. Agent creation itself is
// the AgentService's job; the dispatcher stitches the two together.
type HiringService struct {
	client *database.Client
}

// NewHiringService creates a new HiringService.
func NewHiringService(client *database.Client) *HiringService {
	return &HiringService{client: client}
}

const hiringColumns = `id, role_title, team_id, justification, status, announced,
	triggering_proposal_id, created_agent_id, created_at, updated_at`

func scanHiring(row interface{ Scan(...any) error }) (*models.HiringProposal, error) {
	var h models.HiringProposal
	err := row.Scan(&h.ID, &h.RoleTitle, &h.TeamID, &h.Justification, &h.Status,
		&h.Announced, &h.TriggeringProposalID, &h.CreatedAgentID, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// CreateHiringProposal inserts a pending hiring proposal. Idempotent per
// (role, team): while one is pending, a second call returns nil without
// creating a row. Enforced by a partial unique index.
func (s *HiringService) CreateHiringProposal(ctx context.Context, roleTitle, teamID, justification string, triggeringProposalID *string) (*models.HiringProposal, error) {
	if roleTitle == "" {
		return nil, NewValidationError("role_title", "required")
	}
	if teamID == "" {
		return nil, NewValidationError("team_id", "required")
	}

	row := s.client.DB().QueryRowContext(ctx, `
		INSERT INTO hiring_proposals (id, role_title, team_id, justification, status, triggering_proposal_id)
		VALUES ($1, $2, $3, $4, 'pending', $5)
		ON CONFLICT (role_title, team_id) WHERE status = 'pending' DO NOTHING
		RETURNING `+hiringColumns,
		uuid.New().String(), roleTitle, teamID, justification, triggeringProposalID)

	h, err := scanHiring(row)
	if errors.Is(err, sql.ErrNoRows) {
		// A pending proposal for this (role, team) already exists.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create hiring proposal: %w", err)
	}
	return h, nil
}

// GetHiringProposal fetches one hiring proposal by ID.
func (s *HiringService) GetHiringProposal(ctx context.Context, id string) (*models.HiringProposal, error) {
	row := s.client.DB().QueryRowContext(ctx,
		`SELECT `+hiringColumns+` FROM hiring_proposals WHERE id = $1`, id)
	h, err := scanHiring(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get hiring proposal: %w", err)
	}
	return h, nil
}

// ApproveHiringProposal transitions pending → approved. The dispatcher's
// hire-completion routine picks approved proposals up on its next tick.
func (s *HiringService) ApproveHiringProposal(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, models.HiringStatusPending, models.HiringStatusApproved)
}

// RejectHiringProposal transitions pending → rejected.
func (s *HiringService) RejectHiringProposal(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, models.HiringStatusPending, models.HiringStatusRejected)
}

// CompleteHiringProposal transitions approved → completed and records the
// created agent.
func (s *HiringService) CompleteHiringProposal(ctx context.Context, id, createdAgentID string) error {
	res, err := s.client.DB().ExecContext(ctx, `
		UPDATE hiring_proposals
		SET status = 'completed', created_agent_id = $2, updated_at = now()
		WHERE id = $1 AND status = 'approved'`, id, createdAgentID)
	if err != nil {
		return fmt.Errorf("failed to complete hiring proposal: %w", err)
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

// ListPendingHiringProposals returns all pending hiring proposals.
func (s *HiringService) ListPendingHiringProposals(ctx context.Context) ([]*models.HiringProposal, error) {
	return s.list(ctx, models.HiringStatusPending)
}

// ListApprovedHiringProposals returns approved proposals awaiting the
// hire-completion routine.
func (s *HiringService) ListApprovedHiringProposals(ctx context.Context) ([]*models.HiringProposal, error) {
	return s.list(ctx, models.HiringStatusApproved)
}

func (s *HiringService) list(ctx context.Context, status models.HiringStatus) ([]*models.HiringProposal, error) {
	rows, err := s.client.DB().QueryContext(ctx,
		`SELECT `+hiringColumns+` FROM hiring_proposals WHERE status = $1 ORDER BY created_at`, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query hiring proposals: %w", err)
	}
	defer rows.Close()

	var out []*models.HiringProposal
	for rows.Next() {
		h, err := scanHiring(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hiring proposal: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// SetAnnounced marks a hiring proposal as announced outward.
func (s *HiringService) SetAnnounced(ctx context.Context, id string) error {
	_, err := s.client.DB().ExecContext(ctx,
		`UPDATE hiring_proposals SET announced = TRUE, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark hiring proposal announced: %w", err)
	}
	return nil
}

func (s *HiringService) setStatus(ctx context.Context, id string, from, to models.HiringStatus) error {
	res, err := s.client.DB().ExecContext(ctx, `
		UPDATE hiring_proposals
		SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return fmt.Errorf("failed to update hiring proposal status: %w", err)
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
