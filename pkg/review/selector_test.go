package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/voxyz/agentworld/pkg/models"
	"github.com/voxyz/agentworld/pkg/routing"
)

func mkAgent(id, role string, agentType models.AgentType) *models.Agent {
	return &models.Agent{ID: id, Role: role, AgentType: agentType, Status: models.AgentStatusActive}
}

func TestSelectReviewerPrefersDomainExpert(t *testing.T) {
	author := mkAgent("author", "Research Analyst", models.AgentTypeSubAgent)
	expert := mkAgent("expert", "Senior Research Analyst", models.AgentTypeSubAgent)
	qa := mkAgent("qa", "QA Specialist", models.AgentTypeQA)

	sel := SelectReviewer([]*models.Agent{author, expert, qa}, []*models.Agent{author, qa},
		routing.CategoryResearch, author.ID)

	assert.False(t, sel.AutoApprove)
	assert.Equal(t, "expert", sel.Reviewer.ID)
	assert.Equal(t, models.ReviewTypeTeamLead, sel.ReviewType)
}

func TestSelectReviewerFallsBackToTeamQA(t *testing.T) {
	author := mkAgent("author", "Content Creator", models.AgentTypeSubAgent)
	qa := mkAgent("qa", "QA Specialist", models.AgentTypeQA)

	sel := SelectReviewer([]*models.Agent{author, qa}, []*models.Agent{author, qa},
		routing.CategoryContent, author.ID)

	assert.Equal(t, "qa", sel.Reviewer.ID)
	assert.Equal(t, models.ReviewTypeQA, sel.ReviewType)
}

func TestSelectReviewerFallsBackToTeamLead(t *testing.T) {
	author := mkAgent("author", "Content Creator", models.AgentTypeSubAgent)
	lead := mkAgent("lead", "Operations Lead", models.AgentTypeTeamLead)

	sel := SelectReviewer([]*models.Agent{author, lead}, []*models.Agent{author, lead},
		routing.CategoryContent, author.ID)

	assert.Equal(t, "lead", sel.Reviewer.ID)
	assert.Equal(t, models.ReviewTypeTeamLead, sel.ReviewType)
}

func TestSelectReviewerAutoApprovesWhenAlone(t *testing.T) {
	author := mkAgent("author", "Content Creator", models.AgentTypeSubAgent)

	sel := SelectReviewer([]*models.Agent{author}, []*models.Agent{author},
		routing.CategoryContent, author.ID)

	assert.True(t, sel.AutoApprove)
	assert.Nil(t, sel.Reviewer)
}

func TestSelectReviewerNeverPicksTheAuthor(t *testing.T) {
	author := mkAgent("author", "QA Specialist", models.AgentTypeQA)

	sel := SelectReviewer([]*models.Agent{author}, []*models.Agent{author},
		routing.CategoryQA, author.ID)

	assert.True(t, sel.AutoApprove)
}
