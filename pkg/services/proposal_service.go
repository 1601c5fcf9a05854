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

// ProposalService manages mission proposal lifecycle.
type ProposalService struct {
	client *database.Client
}

// NewProposalService creates a new ProposalService.
func NewProposalService(client *database.Client) *ProposalService {
	return &ProposalService{client: client}
}

const proposalColumns = `id, title, description, priority, proposing_agent, raw_message, status, processed, created_at, updated_at`

func scanProposal(row interface{ Scan(...any) error }) (*models.MissionProposal, error) {
	var p models.MissionProposal
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Priority, &p.ProposingAgent,
		&p.RawMessage, &p.Status, &p.Processed, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProposal inserts a pending, unprocessed mission proposal.
func (s *ProposalService) CreateProposal(ctx context.Context, title, description string, priority models.ProposalPriority, proposingAgent, rawMessage string) (*models.MissionProposal, error) {
	if title == "" {
		return nil, NewValidationError("title", "required")
	}
	if priority == "" {
		priority = models.PriorityNormal
	}

	row := s.client.DB().QueryRowContext(ctx, `
		INSERT INTO mission_proposals (id, title, description, priority, proposing_agent, raw_message, status, processed)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', FALSE)
		RETURNING `+proposalColumns,
		uuid.New().String(), title, description, priority, proposingAgent, rawMessage)

	p, err := scanProposal(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create proposal: %w", err)
	}
	return p, nil
}

// GetProposal fetches one proposal by ID.
func (s *ProposalService) GetProposal(ctx context.Context, id string) (*models.MissionProposal, error) {
	row := s.client.DB().QueryRowContext(ctx,
		`SELECT `+proposalColumns+` FROM mission_proposals WHERE id = $1`, id)
	p, err := scanProposal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get proposal: %w", err)
	}
	return p, nil
}

// GetPendingProposals returns all pending, unprocessed proposals ordered by
// priority (urgent first) then creation time.
func (s *ProposalService) GetPendingProposals(ctx context.Context) ([]*models.MissionProposal, error) {
	rows, err := s.client.DB().QueryContext(ctx, `
		SELECT `+proposalColumns+`
		FROM mission_proposals
		WHERE status = 'pending' AND processed = FALSE
		ORDER BY CASE priority WHEN 'urgent' THEN 0 ELSE 1 END, created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending proposals: %w", err)
	}
	defer rows.Close()

	var out []*models.MissionProposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan proposal: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AcceptProposal atomically marks the proposal accepted+processed and creates
// a mission for the team. Idempotent via the processed flag: if the proposal
// was already processed, the existing mission is returned and nothing new is
// created.
func (s *ProposalService) AcceptProposal(ctx context.Context, proposalID, teamID string) (*models.Mission, error) {
	tx, err := s.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE mission_proposals
		SET status = 'accepted', processed = TRUE, updated_at = now()
		WHERE id = $1 AND processed = FALSE`, proposalID)
	if err != nil {
		return nil, fmt.Errorf("failed to accept proposal: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	}

	if affected == 0 {
		// Already processed: return the existing mission, if any.
		row := tx.QueryRowContext(ctx,
			`SELECT `+missionColumns+` FROM missions WHERE proposal_id = $1`, proposalID)
		m, err := scanMission(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load existing mission: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit: %w", err)
		}
		return m, nil
	}

	var title string
	if err := tx.QueryRowContext(ctx,
		`SELECT title FROM mission_proposals WHERE id = $1`, proposalID).Scan(&title); err != nil {
		return nil, fmt.Errorf("failed to load proposal title: %w", err)
	}

	row := tx.QueryRowContext(ctx, `
		INSERT INTO missions (id, proposal_id, team_id, title, status)
		VALUES ($1, $2, $3, $4, 'in_progress')
		RETURNING `+missionColumns,
		uuid.New().String(), proposalID, teamID, title)
	m, err := scanMission(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create mission: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return m, nil
}

// DeferProposal parks a pending proposal (typically while hiring completes).
func (s *ProposalService) DeferProposal(ctx context.Context, proposalID string) error {
	return s.setStatus(ctx, proposalID, models.ProposalStatusPending, models.ProposalStatusDeferred)
}

// RequeueProposal returns a deferred proposal to the pending queue.
func (s *ProposalService) RequeueProposal(ctx context.Context, proposalID string) error {
	return s.setStatus(ctx, proposalID, models.ProposalStatusDeferred, models.ProposalStatusPending)
}

// ListDeferredProposals returns all deferred proposals, oldest first.
func (s *ProposalService) ListDeferredProposals(ctx context.Context) ([]*models.MissionProposal, error) {
	rows, err := s.client.DB().QueryContext(ctx, `
		SELECT `+proposalColumns+`
		FROM mission_proposals
		WHERE status = 'deferred' AND processed = FALSE
		ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query deferred proposals: %w", err)
	}
	defer rows.Close()

	var out []*models.MissionProposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan proposal: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// RejectProposal marks a pending proposal rejected and processed.
func (s *ProposalService) RejectProposal(ctx context.Context, proposalID string) error {
	_, err := s.client.DB().ExecContext(ctx, `
		UPDATE mission_proposals
		SET status = 'rejected', processed = TRUE, updated_at = now()
		WHERE id = $1 AND status = 'pending'`, proposalID)
	if err != nil {
		return fmt.Errorf("failed to reject proposal: %w", err)
	}
	return nil
}

func (s *ProposalService) setStatus(ctx context.Context, proposalID string, from, to models.ProposalStatus) error {
	res, err := s.client.DB().ExecContext(ctx, `
		UPDATE mission_proposals
		SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2 AND processed = FALSE`, proposalID, from, to)
	if err != nil {
		return fmt.Errorf("failed to update proposal status: %w", err)
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