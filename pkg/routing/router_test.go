package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/voxyz/agentworld/pkg/models"
)

func TestRouteByKeywords(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        Category
	}{
		{
			name:        "research keywords",
			description: "Research top 5 AI SaaS competitors in the market",
			want:        CategoryResearch,
		},
		{
			name:        "content keywords",
			description: "write a blog post about our launch",
			want:        CategoryContent,
		},
		{
			name:        "engineering keywords",
			description: "implement the billing api integration",
			want:        CategoryEngineering,
		},
		{
			name:        "marketing keywords",
			description: "plan the social campaign for the brand launch",
			want:        CategoryMarketing,
		},
		{
			name:        "qa keywords",
			description: "verify and audit the release checklist",
			want:        CategoryQA,
		},
		{
			name:        "no match defaults to research",
			description: "hello there",
			want:        CategoryResearch,
		},
		{
			name:        "empty defaults to research",
			description: "",
			want:        CategoryResearch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RouteByKeywords(tt.description))
		})
	}
}

func TestRouteByKeywordsDeterministic(t *testing.T) {
	desc := "analyze the campaign and write a report"
	first := RouteByKeywords(desc)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, RouteByKeywords(desc))
	}
}

func agentWith(role string, agentType models.AgentType) *models.Agent {
	return &models.Agent{
		ID:        "agent-" + role,
		Role:      role,
		AgentType: agentType,
		Status:    models.AgentStatusActive,
	}
}

func TestCanTeamHandle(t *testing.T) {
	t.Run("matching specialist wins", func(t *testing.T) {
		specialist := agentWith("Research Analyst", models.AgentTypeSubAgent)
		lead := agentWith("Operations Lead", models.AgentTypeTeamLead)

		result := CanTeamHandle([]*models.Agent{lead, specialist}, CategoryResearch)
		assert.True(t, result.CanHandle)
		assert.Equal(t, specialist.ID, result.MatchedAgent.ID)
	})

	t.Run("team lead is a generalist fallback", func(t *testing.T) {
		lead := agentWith("Operations Lead", models.AgentTypeTeamLead)

		result := CanTeamHandle([]*models.Agent{lead}, CategoryContent)
		assert.True(t, result.CanHandle)
		assert.Equal(t, lead.ID, result.MatchedAgent.ID)
	})

	t.Run("no match without lead", func(t *testing.T) {
		specialist := agentWith("Research Analyst", models.AgentTypeSubAgent)

		result := CanTeamHandle([]*models.Agent{specialist}, CategoryEngineering)
		assert.False(t, result.CanHandle)
		assert.Nil(t, result.MatchedAgent)
	})

	t.Run("dormant agents are ignored", func(t *testing.T) {
		dormant := agentWith("Research Analyst", models.AgentTypeSubAgent)
		dormant.Status = models.AgentStatusDormant

		result := CanTeamHandle([]*models.Agent{dormant}, CategoryResearch)
		assert.False(t, result.CanHandle)
	})
}

func TestFindBestAgent(t *testing.T) {
	author := agentWith("Content Creator", models.AgentTypeSubAgent)
	other := agentWith("Senior Content Writer", models.AgentTypeSubAgent)
	other.ID = "agent-other"

	t.Run("excludes the author", func(t *testing.T) {
		found := FindBestAgent([]*models.Agent{author, other}, CategoryContent, author.ID)
		assert.NotNil(t, found)
		assert.Equal(t, other.ID, found.ID)
	})

	t.Run("nil when only the author matches", func(t *testing.T) {
		found := FindBestAgent([]*models.Agent{author}, CategoryContent, author.ID)
		assert.Nil(t, found)
	})
}

func TestCategoryTableComplete(t *testing.T) {
	for _, cat := range AllCategories() {
		info := Categories[cat]
		assert.NotEmpty(t, info.Keywords, "category %s has no keywords", cat)
		assert.NotEmpty(t, info.Title, "category %s has no title", cat)
		assert.NotEmpty(t, info.StandingTeamID, "category %s has no standing team", cat)
		assert.Len(t, info.InitialSkills, 3, "category %s should seed 3 skills", cat)
	}
}
