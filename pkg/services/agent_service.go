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

// AgentService manages agents, teams, and the finite name pool.
type AgentService struct {
	client *database.Client
}

// NewAgentService creates a new AgentService.
func NewAgentService(client *database.Client) *AgentService {
	return &AgentService{client: client}
}

const agentColumns = `id, display_name, role, agent_type, team_id, status, persona_version_id, created_at, updated_at`

func scanAgent(row interface{ Scan(...any) error }) (*models.Agent, error) {
	var a models.Agent
	err := row.Scan(&a.ID, &a.DisplayName, &a.Role, &a.AgentType, &a.TeamID,
		&a.Status, &a.PersonaVersionID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAgentInput carries the parameters for CreateAgent.
type CreateAgentInput struct {
	Role            string
	TeamID          *string
	AgentType       models.AgentType
	PreferredSource string
}

// CreateAgent picks a random unassigned name (preferring PreferredSource),
// inserts the agent, and marks the pool entry assigned — atomically. The
// pool entry is released if the insert fails. Returns ErrNamePoolExhausted
// when no unassigned name exists.
func (s *AgentService) CreateAgent(ctx context.Context, in CreateAgentInput) (*models.Agent, error) {
	if in.Role == "" {
		return nil, NewValidationError("role", "required")
	}
	if in.AgentType == "" {
		in.AgentType = models.AgentTypeSubAgent
	}
	if in.AgentType != models.AgentTypeChiefOfStaff && (in.TeamID == nil || *in.TeamID == "") {
		return nil, NewValidationError("team_id", "required for non chief-of-staff agents")
	}

	tx, err := s.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	agentID := uuid.New().String()

	// Claim a name: prefer the requested source, fall back to any source.
	// FOR UPDATE SKIP LOCKED keeps concurrent hires off the same row.
	name, err := claimName(ctx, tx, agentID, in.PreferredSource)
	if errors.Is(err, sql.ErrNoRows) && in.PreferredSource != "" {
		name, err = claimName(ctx, tx, agentID, "")
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNamePoolExhausted
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim name: %w", err)
	}

	row := tx.QueryRowContext(ctx, `
		INSERT INTO agents (id, display_name, role, agent_type, team_id, status)
		VALUES ($1, $2, $3, $4, $5, 'active')
		RETURNING `+agentColumns,
		agentID, name, in.Role, in.AgentType, in.TeamID)
	agent, err := scanAgent(row)
	if err != nil {
		// Rolling back releases the pool entry claimed above.
		return nil, fmt.Errorf("failed to insert agent: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return agent, nil
}

func claimName(ctx context.Context, tx *sql.Tx, agentID, source string) (string, error) {
	query := `
		UPDATE name_pool
		SET assigned = TRUE, assigned_to = $1, assigned_at = now()
		WHERE name = (
			SELECT name FROM name_pool
			WHERE assigned = FALSE`
	args := []any{agentID}
	if source != "" {
		query += ` AND source = $2`
		args = append(args, source)
	}
	query += `
			ORDER BY random()
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING name`

	var name string
	err := tx.QueryRowContext(ctx, query, args...).Scan(&name)
	return name, err
}

// SetAgentStatus transitions an agent's status. Retiring releases the
// agent's name back to the pool.
func (s *AgentService) SetAgentStatus(ctx context.Context, agentID string, status models.AgentStatus) error {
	tx, err := s.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE agents SET status = $2, updated_at = now() WHERE id = $1`, agentID, status)
	if err != nil {
		return fmt.Errorf("failed to update agent status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	if status == models.AgentStatusRetired {
		if _, err := tx.ExecContext(ctx, `
			UPDATE name_pool
			SET assigned = FALSE, assigned_to = NULL, assigned_at = NULL
			WHERE assigned_to = $1`, agentID); err != nil {
			return fmt.Errorf("failed to release name: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// SetPersonaVersion repoints the agent at a new persona version.
func (s *AgentService) SetPersonaVersion(ctx context.Context, agentID, personaID string) error {
	res, err := s.client.DB().ExecContext(ctx,
		`UPDATE agents SET persona_version_id = $2, updated_at = now() WHERE id = $1`, agentID, personaID)
	if err != nil {
		return fmt.Errorf("failed to set persona version: %w", err)
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

// GetAgent fetches one agent by ID.
func (s *AgentService) GetAgent(ctx context.Context, id string) (*models.Agent, error) {
	row := s.client.DB().QueryRowContext(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE id = $1`, id)
	a, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	return a, nil
}

// GetAgentByDisplayName fetches a non-retired agent by display name.
func (s *AgentService) GetAgentByDisplayName(ctx context.Context, name string) (*models.Agent, error) {
	row := s.client.DB().QueryRowContext(ctx, `
		SELECT `+agentColumns+` FROM agents
		WHERE display_name = $1 AND status <> 'retired'`, name)
	a, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agent by name: %w", err)
	}
	return a, nil
}

// ListActiveAgents returns every active agent across all teams.
func (s *AgentService) ListActiveAgents(ctx context.Context) ([]*models.Agent, error) {
	return s.listAgents(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE status = 'active' ORDER BY created_at`)
}

// ListTeamAgents returns a team's non-retired agents.
func (s *AgentService) ListTeamAgents(ctx context.Context, teamID string) ([]*models.Agent, error) {
	return s.listAgents(ctx, `
		SELECT `+agentColumns+` FROM agents
		WHERE team_id = $1 AND status <> 'retired'
		ORDER BY created_at`, teamID)
}

func (s *AgentService) listAgents(ctx context.Context, query string, args ...any) ([]*models.Agent, error) {
	rows, err := s.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query agents: %w", err)
	}
	defer rows.Close()

	var out []*models.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CountActiveAgents returns the number of active agents.
func (s *AgentService) CountActiveAgents(ctx context.Context) (int, error) {
	var n int
	err := s.client.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM agents WHERE status = 'active'`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count active agents: %w", err)
	}
	return n, nil
}

// SeedNamePool inserts pool entries, skipping names that already exist.
func (s *AgentService) SeedNamePool(ctx context.Context, source string, names []string) error {
	for _, name := range names {
		if _, err := s.client.DB().ExecContext(ctx, `
			INSERT INTO name_pool (name, source)
			VALUES ($1, $2)
			ON CONFLICT (name) DO NOTHING`, name, source); err != nil {
			return fmt.Errorf("failed to seed name %q: %w", name, err)
		}
	}
	return nil
}

// --- Teams ---

const teamColumns = `id, name, status, lead_agent_id, created_at, updated_at`

func scanTeam(row interface{ Scan(...any) error }) (*models.Team, error) {
	var t models.Team
	err := row.Scan(&t.ID, &t.Name, &t.Status, &t.LeadAgentID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTeam inserts a team with a fixed ID (standing teams) or a generated
// one (business units).
func (s *AgentService) CreateTeam(ctx context.Context, id, name string) (*models.Team, error) {
	if name == "" {
		return nil, NewValidationError("name", "required")
	}
	if id == "" {
		id = uuid.New().String()
	}

	row := s.client.DB().QueryRowContext(ctx, `
		INSERT INTO teams (id, name, status)
		VALUES ($1, $2, 'active')
		ON CONFLICT (id) DO UPDATE SET updated_at = now()
		RETURNING `+teamColumns, id, name)
	t, err := scanTeam(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	return t, nil
}

// GetTeam fetches one team by ID.
func (s *AgentService) GetTeam(ctx context.Context, id string) (*models.Team, error) {
	row := s.client.DB().QueryRowContext(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE id = $1`, id)
	t, err := scanTeam(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return t, nil
}

// ListTeams returns all teams ordered by creation time.
func (s *AgentService) ListTeams(ctx context.Context) ([]*models.Team, error) {
	rows, err := s.client.DB().QueryContext(ctx,
		`SELECT `+teamColumns+` FROM teams ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query teams: %w", err)
	}
	defer rows.Close()

	var out []*models.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SetTeamStatus toggles a team between active and dormant. Dormant teams'
// tasks are deferred by the dispatcher.
func (s *AgentService) SetTeamStatus(ctx context.Context, teamID string, status models.TeamStatus) error {
	res, err := s.client.DB().ExecContext(ctx,
		`UPDATE teams SET status = $2, updated_at = now() WHERE id = $1`, teamID, status)
	if err != nil {
		return fmt.Errorf("failed to update team status: %w", err)
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
