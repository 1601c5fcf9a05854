package services

import "github.com/voxyz/agentworld/pkg/database"

// Registry bundles every service over one database client. The three
// processes construct one Registry each at startup.
type Registry struct {
	Proposals *ProposalService
	Missions  *MissionService
	Steps     *StepService
	Approvals *ApprovalService
	Agents    *AgentService
	Hiring    *HiringService
	Personas  *PersonaService
	Memories  *MemoryService
	Skills    *SkillService
	Events    *EventService
	Usage     *UsageService
	Policies  *PolicyService
	Health    *HealthService
	Projects  *ProjectService
}

// NewRegistry wires all services over the shared client.
func NewRegistry(client *database.Client) *Registry {
	steps := NewStepService(client)
	return &Registry{
		Proposals: NewProposalService(client),
		Missions:  NewMissionService(client),
		Steps:     steps,
		Approvals: NewApprovalService(client, steps),
		Agents:    NewAgentService(client),
		Hiring:    NewHiringService(client),
		Personas:  NewPersonaService(client),
		Memories:  NewMemoryService(client),
		Skills:    NewSkillService(client),
		Events:    NewEventService(client),
		Usage:     NewUsageService(client),
		Policies:  NewPolicyService(client),
		Health:    NewHealthService(client),
		Projects:  NewProjectService(client),
	}
}
