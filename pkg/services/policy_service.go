package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/voxyz/agentworld/pkg/database"
	"github.com/voxyz/agentworld/pkg/models"
)

// PolicyService manages versioned operational-rule rows. The newest version
// per policy type wins.
type PolicyService struct {
	client *database.Client
}

// NewPolicyService creates a new PolicyService.
func NewPolicyService(client *database.Client) *PolicyService {
	return &PolicyService{client: client}
}

// GetLatest returns the newest policy row of the given type.
func (s *PolicyService) GetLatest(ctx context.Context, policyType models.PolicyType) (*models.Policy, error) {
	var p models.Policy
	err := s.client.DB().QueryRowContext(ctx, `
		SELECT id, policy_type, version, rules, created_at
		FROM policies
		WHERE policy_type = $1
		ORDER BY version DESC
		LIMIT 1`, policyType).
		Scan(&p.ID, &p.PolicyType, &p.Version, &p.Rules, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}
	return &p, nil
}

// SavePolicy inserts the next version of a policy type. rules must be a
// JSON document.
func (s *PolicyService) SavePolicy(ctx context.Context, policyType models.PolicyType, rules any) (*models.Policy, error) {
	data, err := json.Marshal(rules)
	if err != nil {
		return nil, fmt.Errorf("failed to encode policy rules: %w", err)
	}

	var p models.Policy
	err = s.client.DB().QueryRowContext(ctx, `
		INSERT INTO policies (id, policy_type, version, rules)
		VALUES ($1, $2,
			(SELECT COALESCE(MAX(version), 0) + 1 FROM policies WHERE policy_type = $2),
			$3)
		RETURNING id, policy_type, version, rules, created_at`,
		uuid.New().String(), policyType, string(data)).
		Scan(&p.ID, &p.PolicyType, &p.Version, &p.Rules, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save policy: %w", err)
	}
	return &p, nil
}

// ListLatest returns the newest version of every policy type. Input to the
// state push.
func (s *PolicyService) ListLatest(ctx context.Context) ([]*models.Policy, error) {
	rows, err := s.client.DB().QueryContext(ctx, `
		SELECT DISTINCT ON (policy_type) id, policy_type, version, rules, created_at
		FROM policies
		ORDER BY policy_type, version DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query policies: %w", err)
	}
	defer rows.Close()

	var out []*models.Policy
	for rows.Next() {
		var p models.Policy
		if err := rows.Scan(&p.ID, &p.PolicyType, &p.Version, &p.Rules, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan policy: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
