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

// PersonaService manages versioned agent personas. Versions are append-only;
// the agent row always points at the newest one.
type PersonaService struct {
	client *database.Client
}

// NewPersonaService creates a new PersonaService.
func NewPersonaService(client *database.Client) *PersonaService {
	return &PersonaService{client: client}
}

const personaColumns = `id, agent_id, version, identity, personality, skills, background, system_text, created_at`

func scanPersona(row interface{ Scan(...any) error }) (*models.Persona, error) {
	var p models.Persona
	err := row.Scan(&p.ID, &p.AgentID, &p.Version, &p.Identity, &p.Personality,
		&p.Skills, &p.Background, &p.SystemText, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SavePersonaInput carries the sections of a new persona version.
type SavePersonaInput struct {
	AgentID     string
	Identity    string
	Personality string
	Skills      string
	Background  string
	SystemText  string
}

// SavePersona inserts a new persona version and repoints the agent at it.
// Prior versions are retained for audit.
func (s *PersonaService) SavePersona(ctx context.Context, in SavePersonaInput) (*models.Persona, error) {
	if in.AgentID == "" {
		return nil, NewValidationError("agent_id", "required")
	}
	if in.SystemText == "" {
		return nil, NewValidationError("system_text", "required")
	}

	tx, err := s.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		INSERT INTO agent_personas (id, agent_id, version, identity, personality, skills, background, system_text)
		VALUES ($1, $2,
			(SELECT COALESCE(MAX(version), 0) + 1 FROM agent_personas WHERE agent_id = $2),
			$3, $4, $5, $6, $7)
		RETURNING `+personaColumns,
		uuid.New().String(), in.AgentID, in.Identity, in.Personality, in.Skills, in.Background, in.SystemText)
	p, err := scanPersona(row)
	if err != nil {
		return nil, fmt.Errorf("failed to insert persona: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE agents SET persona_version_id = $2, updated_at = now() WHERE id = $1`, in.AgentID, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to repoint agent persona: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return p, nil
}

// GetCurrentPersona returns the newest persona version for an agent, or
// ErrNotFound when none exists yet.
func (s *PersonaService) GetCurrentPersona(ctx context.Context, agentID string) (*models.Persona, error) {
	row := s.client.DB().QueryRowContext(ctx, `
		SELECT `+personaColumns+` FROM agent_personas
		WHERE agent_id = $1
		ORDER BY version DESC
		LIMIT 1`, agentID)
	p, err := scanPersona(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get current persona: %w", err)
	}
	return p, nil
}

// ListPersonaVersions returns all persona versions for an agent, newest first.
func (s *PersonaService) ListPersonaVersions(ctx context.Context, agentID string) ([]*models.Persona, error) {
	rows, err := s.client.DB().QueryContext(ctx, `
		SELECT `+personaColumns+` FROM agent_personas
		WHERE agent_id = $1
		ORDER BY version DESC`, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query persona versions: %w", err)
	}
	defer rows.Close()

	var out []*models.Persona
	for rows.Next() {
		p, err := scanPersona(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan persona: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
