package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/voxyz/agentworld/pkg/models"
	"github.com/voxyz/agentworld/pkg/services"
)

// standingTeams are the fixed teams the category routing table targets.
var standingTeams = map[string]string{
	"team-research":    "Research",
	"team-strategy":    "Strategy",
	"team-execution":   "Execution",
	"team-engineering": "Engineering",
	"team-operations":  "Operations",
}

// namePool is the finite pool of agent display names, seeded once.
var namePool = map[string][]string{
	"scientists": {
		"Curie", "Tesla", "Darwin", "Hopper", "Lovelace", "Turing",
		"Noether", "Feynman", "Franklin", "Hypatia", "Kepler", "Mendel",
	},
	"explorers": {
		"Magellan", "Amundsen", "Earhart", "Shackleton", "Tabei",
		"Cousteau", "Norgay", "Gagarin",
	},
	"artists": {
		"Vermeer", "Kahlo", "Basquiat", "Hokusai", "Morisot",
		"Rothko", "Klimt", "OKeeffe",
	},
}

// seed ensures the standing teams, the name pool, and the chief of staff
// exist. Idempotent — every process runs it at startup.
func seed(ctx context.Context, svc *services.Registry) error {
	for id, name := range standingTeams {
		if _, err := svc.Agents.CreateTeam(ctx, id, name); err != nil {
			return fmt.Errorf("seed team %s: %w", id, err)
		}
	}

	for source, names := range namePool {
		if err := svc.Agents.SeedNamePool(ctx, source, names); err != nil {
			return fmt.Errorf("seed name pool: %w", err)
		}
	}

	return seedChiefOfStaff(ctx, svc)
}

// seedChiefOfStaff creates the single chief-of-staff agent on first run.
func seedChiefOfStaff(ctx context.Context, svc *services.Registry) error {
	agents, err := svc.Agents.ListActiveAgents(ctx)
	if err != nil {
		return fmt.Errorf("list agents: %w", err)
	}
	for _, a := range agents {
		if a.AgentType == models.AgentTypeChiefOfStaff {
			return nil
		}
	}

	agent, err := svc.Agents.CreateAgent(ctx, services.CreateAgentInput{
		Role:      "Chief of Staff",
		AgentType: models.AgentTypeChiefOfStaff,
	})
	if errors.Is(err, services.ErrNamePoolExhausted) {
		return fmt.Errorf("name pool exhausted before chief of staff could be created")
	}
	if err != nil {
		return fmt.Errorf("create chief of staff: %w", err)
	}

	if err := svc.Skills.InitializeSkills(ctx, agent.ID, agent.Role); err != nil {
		return fmt.Errorf("seed chief of staff skills: %w", err)
	}
	return nil
}
