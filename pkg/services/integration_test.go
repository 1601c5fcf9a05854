//go:build integration

package services_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxyz/agentworld/pkg/models"
	"github.com/voxyz/agentworld/pkg/services"
	testdb "github.com/voxyz/agentworld/test/database"
)

func newRegistry(t *testing.T) *services.Registry {
	t.Helper()
	return services.NewRegistry(testdb.NewTestClient(t))
}

func seedTeamAndAgent(t *testing.T, svc *services.Registry) (*models.Team, *models.Agent) {
	t.Helper()
	ctx := context.Background()

	team, err := svc.Agents.CreateTeam(ctx, "team-research", "Research")
	require.NoError(t, err)

	require.NoError(t, svc.Agents.SeedNamePool(ctx, "scientists",
		[]string{"Curie", "Tesla", "Darwin", "Hopper"}))

	agent, err := svc.Agents.CreateAgent(ctx, services.CreateAgentInput{
		Role:      "Research Analyst",
		TeamID:    &team.ID,
		AgentType: models.AgentTypeSubAgent,
	})
	require.NoError(t, err)

	return team, agent
}

func createMissionWithSteps(t *testing.T, svc *services.Registry, team *models.Team, agent *models.Agent, stepCount int) (*models.Mission, []*models.MissionStep) {
	t.Helper()
	ctx := context.Background()

	proposal, err := svc.Proposals.CreateProposal(ctx, "test mission", "research things",
		models.PriorityNormal, "founder", "raw")
	require.NoError(t, err)
	mission, err := svc.Proposals.AcceptProposal(ctx, proposal.ID, team.ID)
	require.NoError(t, err)

	var steps []*models.MissionStep
	var parent *string
	for i := 1; i <= stepCount; i++ {
		step, err := svc.Steps.CreateStep(ctx, mission.ID,
			fmt.Sprintf("phase %d", i), agent.ID, models.TierT1, i, parent)
		require.NoError(t, err)
		steps = append(steps, step)
		parent = &step.ID
	}
	return mission, steps
}

func TestAcceptProposalIdempotent(t *testing.T) {
	svc := newRegistry(t)
	team, _ := seedTeamAndAgent(t, svc)
	ctx := context.Background()

	proposal, err := svc.Proposals.CreateProposal(ctx, "once", "desc", models.PriorityNormal, "founder", "")
	require.NoError(t, err)

	first, err := svc.Proposals.AcceptProposal(ctx, proposal.ID, team.ID)
	require.NoError(t, err)

	second, err := svc.Proposals.AcceptProposal(ctx, proposal.ID, team.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "second accept must return the same mission")
}

func TestCreateProposalValidation(t *testing.T) {
	svc := newRegistry(t)
	ctx := context.Background()

	_, err := svc.Proposals.CreateProposal(ctx, "", "desc", models.PriorityNormal, "founder", "")
	require.Error(t, err)
	assert.True(t, services.IsValidationError(err))
}

func TestPendingProposalOrdering(t *testing.T) {
	svc := newRegistry(t)
	ctx := context.Background()

	_, err := svc.Proposals.CreateProposal(ctx, "normal first", "d", models.PriorityNormal, "f", "")
	require.NoError(t, err)
	_, err = svc.Proposals.CreateProposal(ctx, "urgent later", "d", models.PriorityUrgent, "f", "")
	require.NoError(t, err)

	pending, err := svc.Proposals.GetPendingProposals(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "urgent later", pending[0].Title, "urgent proposals come first")
}

func TestClaimStepExclusive(t *testing.T) {
	svc := newRegistry(t)
	team, agent := seedTeamAndAgent(t, svc)
	_, steps := createMissionWithSteps(t, svc, team, agent, 1)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	results := make([]*models.MissionStep, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			claimed, err := svc.Steps.ClaimStep(ctx, steps[0].ID)
			require.NoError(t, err)
			results[i] = claimed
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, r := range results {
		if r != nil {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "exactly one claim must succeed")
}

func TestStepOrderingGatesSuccessors(t *testing.T) {
	svc := newRegistry(t)
	team, agent := seedTeamAndAgent(t, svc)
	_, steps := createMissionWithSteps(t, svc, team, agent, 2)
	ctx := context.Background()

	pending, err := svc.Steps.GetPendingSteps(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, steps[0].ID, pending[0].ID, "only step 1 is claimable")

	claimed, err := svc.Steps.ClaimStep(ctx, steps[0].ID)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	require.NoError(t, svc.Steps.CompleteStep(ctx, steps[0].ID, "phase one output"))

	// Step 1 is in review, not completed: step 2 stays gated.
	pending, err = svc.Steps.GetPendingSteps(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, svc.Steps.ApproveStep(ctx, steps[0].ID))

	pending, err = svc.Steps.GetPendingSteps(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, steps[1].ID, pending[0].ID)
}

func TestFailedPredecessorBlocksSuccessor(t *testing.T) {
	svc := newRegistry(t)
	team, agent := seedTeamAndAgent(t, svc)
	_, steps := createMissionWithSteps(t, svc, team, agent, 2)
	ctx := context.Background()

	claimed, err := svc.Steps.ClaimStep(ctx, steps[0].ID)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	require.NoError(t, svc.Steps.FailStep(ctx, steps[0].ID, "model exploded"))

	pending, err := svc.Steps.GetPendingSteps(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "a failed predecessor must keep the successor blocked")
}

func TestMissionCompletionAggregation(t *testing.T) {
	svc := newRegistry(t)
	team, agent := seedTeamAndAgent(t, svc)
	ctx := context.Background()

	t.Run("all completed", func(t *testing.T) {
		mission, steps := createMissionWithSteps(t, svc, team, agent, 1)

		done, _, err := svc.Missions.CheckMissionCompletion(ctx, mission.ID)
		require.NoError(t, err)
		assert.False(t, done)

		claimed, err := svc.Steps.ClaimStep(ctx, steps[0].ID)
		require.NoError(t, err)
		require.NotNil(t, claimed)
		require.NoError(t, svc.Steps.CompleteStep(ctx, steps[0].ID, "result"))
		require.NoError(t, svc.Steps.ApproveStep(ctx, steps[0].ID))

		done, status, err := svc.Missions.CheckMissionCompletion(ctx, mission.ID)
		require.NoError(t, err)
		assert.True(t, done)
		assert.Equal(t, models.MissionStatusCompleted, status)
	})

	t.Run("any failure fails the mission", func(t *testing.T) {
		mission, steps := createMissionWithSteps(t, svc, team, agent, 1)

		claimed, err := svc.Steps.ClaimStep(ctx, steps[0].ID)
		require.NoError(t, err)
		require.NotNil(t, claimed)
		require.NoError(t, svc.Steps.FailStep(ctx, steps[0].ID, "boom"))

		done, status, err := svc.Missions.CheckMissionCompletion(ctx, mission.ID)
		require.NoError(t, err)
		assert.True(t, done)
		assert.Equal(t, models.MissionStatusFailed, status)
	})
}

func TestRejectionSendsStepBack(t *testing.T) {
	svc := newRegistry(t)
	team, agent := seedTeamAndAgent(t, svc)
	_, steps := createMissionWithSteps(t, svc, team, agent, 1)
	ctx := context.Background()

	claimed, err := svc.Steps.ClaimStep(ctx, steps[0].ID)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	require.NoError(t, svc.Steps.CompleteStep(ctx, steps[0].ID, "weak result"))

	approval, err := svc.Approvals.CreateApproval(ctx, steps[0].ID, agent.ID, models.ReviewTypeQA)
	require.NoError(t, err)

	resolved, err := svc.Approvals.SubmitReview(ctx, approval.ID, models.ApprovalStatusRejected, "not good enough")
	require.NoError(t, err)
	require.NotNil(t, resolved)

	step, err := svc.Steps.GetStep(ctx, steps[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepStatusPending, step.Status)
	assert.Empty(t, step.Result, "revision must clear the result")
	assert.False(t, step.Processed)

	n, err := svc.Approvals.CountRejections(ctx, steps[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestHiringProposalIdempotent(t *testing.T) {
	svc := newRegistry(t)
	team, _ := seedTeamAndAgent(t, svc)
	ctx := context.Background()

	first, err := svc.Hiring.CreateHiringProposal(ctx, "Content Creator", team.ID, "gap", nil)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := svc.Hiring.CreateHiringProposal(ctx, "Content Creator", team.ID, "gap again", nil)
	require.NoError(t, err)
	assert.Nil(t, second, "a second pending proposal for the same role+team must not be created")

	// Once rejected, a fresh proposal is allowed again.
	require.NoError(t, svc.Hiring.RejectHiringProposal(ctx, first.ID))
	third, err := svc.Hiring.CreateHiringProposal(ctx, "Content Creator", team.ID, "gap returns", nil)
	require.NoError(t, err)
	assert.NotNil(t, third)
}

func TestNamePoolUniquenessAndRelease(t *testing.T) {
	svc := newRegistry(t)
	ctx := context.Background()

	team, err := svc.Agents.CreateTeam(ctx, "team-x", "X")
	require.NoError(t, err)
	require.NoError(t, svc.Agents.SeedNamePool(ctx, "scientists", []string{"Solo"}))

	first, err := svc.Agents.CreateAgent(ctx, services.CreateAgentInput{
		Role: "Research Analyst", TeamID: &team.ID, AgentType: models.AgentTypeSubAgent,
	})
	require.NoError(t, err)
	assert.Equal(t, "Solo", first.DisplayName)

	// Pool exhausted.
	_, err = svc.Agents.CreateAgent(ctx, services.CreateAgentInput{
		Role: "Research Analyst", TeamID: &team.ID, AgentType: models.AgentTypeSubAgent,
	})
	require.ErrorIs(t, err, services.ErrNamePoolExhausted)

	// Retiring releases the name for the next hire.
	require.NoError(t, svc.Agents.SetAgentStatus(ctx, first.ID, models.AgentStatusRetired))

	second, err := svc.Agents.CreateAgent(ctx, services.CreateAgentInput{
		Role: "Strategy Lead", TeamID: &team.ID, AgentType: models.AgentTypeSubAgent,
	})
	require.NoError(t, err)
	assert.Equal(t, "Solo", second.DisplayName)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestPersonaVersioningMonotonic(t *testing.T) {
	svc := newRegistry(t)
	_, agent := seedTeamAndAgent(t, svc)
	ctx := context.Background()

	v1, err := svc.Personas.SavePersona(ctx, services.SavePersonaInput{
		AgentID: agent.ID, SystemText: "first persona",
	})
	require.NoError(t, err)
	v2, err := svc.Personas.SavePersona(ctx, services.SavePersonaInput{
		AgentID: agent.ID, SystemText: "second persona",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, v1.Version)
	assert.Equal(t, 2, v2.Version)

	current, err := svc.Personas.GetCurrentPersona(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, v2.ID, current.ID)

	// Prior versions remain.
	versions, err := svc.Personas.ListPersonaVersions(ctx, agent.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 2)

	refreshed, err := svc.Agents.GetAgent(ctx, agent.ID)
	require.NoError(t, err)
	require.NotNil(t, refreshed.PersonaVersionID)
	assert.Equal(t, v2.ID, *refreshed.PersonaVersionID)
}

func TestMemoryBundleShape(t *testing.T) {
	svc := newRegistry(t)
	_, agent := seedTeamAndAgent(t, svc)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := svc.Memories.SaveMemory(ctx, services.SaveMemoryInput{
			AgentID:    agent.ID,
			MemoryType: models.MemoryTypeTask,
			Content:    fmt.Sprintf("memory %d", i),
			TopicTags:  []string{"general"},
			Importance: 3,
		})
		require.NoError(t, err)
	}
	_, err := svc.Memories.SaveMemory(ctx, services.SaveMemoryInput{
		AgentID:    agent.ID,
		MemoryType: models.MemoryTypeObservation,
		Content:    "tagged important memory",
		TopicTags:  []string{"research"},
		Importance: 9,
	})
	require.NoError(t, err)

	for i := 0; i < 7; i++ {
		_, err := svc.Memories.SaveLesson(ctx, agent.ID, fmt.Sprintf("lesson %d", i), "quality", i+1)
		require.NoError(t, err)
	}

	bundle, err := svc.Memories.Retrieve(ctx, agent.ID, []string{"research"})
	require.NoError(t, err)

	assert.Len(t, bundle.Recent, 10, "recent section is capped at 10")
	assert.Len(t, bundle.Lessons, 5, "lessons section is capped at 5")

	// The tagged memory is in Recent (it is the newest), so dedup keeps it
	// out of TopicMatched.
	for _, m := range bundle.TopicMatched {
		for _, r := range bundle.Recent {
			assert.NotEqual(t, m.ID, r.ID, "topic-matched must be deduplicated against recent")
		}
	}
}

func TestSkillUsageTracking(t *testing.T) {
	svc := newRegistry(t)
	_, agent := seedTeamAndAgent(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.Skills.InitializeSkills(ctx, agent.ID, agent.Role))

	skills, err := svc.Skills.ListSkills(ctx, agent.ID)
	require.NoError(t, err)
	assert.Len(t, skills, 3)
	for _, sk := range skills {
		assert.Equal(t, 1, sk.Proficiency)
	}

	// "write" cross-trains copywriting at proficiency 1.
	result, err := svc.Skills.TrackSkillUsage(ctx, agent.ID, "write a research report")
	require.NoError(t, err)
	assert.Contains(t, result.Used, "copywriting")
	assert.Contains(t, result.Created, "copywriting")
	assert.Contains(t, result.Used, "market research")

	// Five usages of a keyword reach the second threshold.
	for i := 0; i < 4; i++ {
		_, err := svc.Skills.TrackSkillUsage(ctx, agent.ID, "research the market")
		require.NoError(t, err)
	}
	skills, err = svc.Skills.ListSkills(ctx, agent.ID)
	require.NoError(t, err)
	for _, sk := range skills {
		if sk.Name == "market research" {
			assert.Equal(t, 5, sk.UsageCount)
			assert.Equal(t, 2, sk.Proficiency)
		}
	}
}

func TestStaleStepReclaim(t *testing.T) {
	svc := newRegistry(t)
	team, agent := seedTeamAndAgent(t, svc)
	_, steps := createMissionWithSteps(t, svc, team, agent, 1)
	ctx := context.Background()

	claimed, err := svc.Steps.ClaimStep(ctx, steps[0].ID)
	require.NoError(t, err)
	require.NotNil(t, claimed)

	n, err := svc.Steps.ReclaimStaleSteps(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "a zero threshold reclaims immediately")

	step, err := svc.Steps.GetStep(ctx, steps[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepStatusPending, step.Status)
}
