package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/voxyz/agentworld/pkg/models"
	"github.com/voxyz/agentworld/pkg/routing"
)

func TestMandateForRoleAlwaysContainsDoerDirective(t *testing.T) {
	roles := []string{
		"Research Analyst", "Strategy Lead", "Content Creator",
		"Software Engineer", "QA Specialist", "Marketing Specialist",
		"Knowledge Manager", "Underwater Basket Weaver",
	}
	for _, role := range roles {
		assert.Contains(t, MandateForRole(role), "YOU ARE THE DOER, NOT THE ADVISOR",
			"role %q mandate is missing the doer directive", role)
	}
}

func TestMandateForRoleMatchesCategory(t *testing.T) {
	assert.Contains(t, MandateForRole("Research Analyst"), "RESEARCH QUALITY MANDATES")
	assert.Contains(t, MandateForRole("Software Engineer"), "ENGINEERING QUALITY MANDATES")
	assert.Contains(t, MandateForRole("Mysterious Generalist"), "YOU ARE the expert")
}

func TestTemplateForTask(t *testing.T) {
	tests := []struct {
		description string
		wantSection string
	}{
		{"research the market for AI tools", "## Key Findings"},
		{"draft the product strategy roadmap", "## Recommendation"},
		{"write a blog post about launch", "## Distribution Notes"},
		{"implement the new api integration", "## Verification"},
		{"product requirements specification for checkout", "## Requirements (numbered, testable)"},
		{"do the thing", "## Summary"},
	}
	for _, tt := range tests {
		assert.Contains(t, TemplateForTask(tt.description), tt.wantSection,
			"description %q selected the wrong template", tt.description)
	}
}

func TestBuildTaskContextBlockOrder(t *testing.T) {
	out := BuildTaskContext(TaskContextInput{
		OriginatingRequest: "please research AI SaaS",
		AgentRole:          "Research Analyst",
		Description:        "Research top 5 AI SaaS companies",
	})

	origIdx := strings.Index(out, "ZERO'S ORIGINAL REQUEST:")
	mandateIdx := strings.Index(out, "RESEARCH QUALITY MANDATES")
	taskIdx := strings.Index(out, "YOUR TASK:")
	templateIdx := strings.Index(out, "OUTPUT TEMPLATE")
	standardsIdx := strings.Index(out, "UNIVERSAL QUALITY STANDARDS")

	assert.True(t, origIdx >= 0)
	assert.True(t, origIdx < mandateIdx, "originating request must precede mandates")
	assert.True(t, mandateIdx < taskIdx, "mandates must precede the task")
	assert.True(t, taskIdx < templateIdx, "task must precede the template")
	assert.True(t, templateIdx < standardsIdx, "template must precede the standards")
}

func TestBuildTaskContextChainsPreviousPhase(t *testing.T) {
	out := BuildTaskContext(TaskContextInput{
		AgentRole:           "Strategy Lead",
		Description:         "Strategy recommendation",
		PreviousPhaseOutput: "market is growing 40% YoY",
		PreviousPhaseAgent:  "Curie",
	})

	assert.Contains(t, out, "PREVIOUS PHASE OUTPUT (from Curie)")
	assert.Contains(t, out, "market is growing 40% YoY")
}

func TestBuildTaskContextOmitsEmptyOriginatingRequest(t *testing.T) {
	out := BuildTaskContext(TaskContextInput{
		AgentRole:   "Research Analyst",
		Description: "look into this",
	})
	assert.NotContains(t, out, "ZERO'S ORIGINAL REQUEST")
}

func TestBuildAgentPromptSectionOrder(t *testing.T) {
	persona := &models.Persona{SystemText: "You are Curie, the research analyst."}
	bundle := &models.MemoryBundle{
		Recent: []models.AgentMemory{{MemoryType: models.MemoryTypeTask, Summary: "researched widgets"}},
	}
	skills := []*models.Skill{{Name: "market research", Proficiency: 4, UsageCount: 14}}

	out := BuildAgentPrompt(persona, bundle, skills)

	personaIdx := strings.Index(out, "You are Curie")
	memoryIdx := strings.Index(out, "## Recent Experiences")
	skillsIdx := strings.Index(out, "## Your Skills")
	toolsIdx := strings.Index(out, "[WEB_SEARCH:")
	reminderIdx := strings.Index(out, "you have persistent memory")

	assert.True(t, personaIdx >= 0 && personaIdx < memoryIdx)
	assert.True(t, memoryIdx < skillsIdx)
	assert.True(t, skillsIdx < toolsIdx)
	assert.True(t, toolsIdx < reminderIdx)
}

func TestBuildAgentPromptWithoutPersonaUsesGeneric(t *testing.T) {
	out := BuildAgentPrompt(nil, &models.MemoryBundle{}, nil)
	assert.Contains(t, out, "capable, reliable operator")
	assert.NotContains(t, out, "## Your Skills")
}

func TestRenderSkillsBlockBar(t *testing.T) {
	skills := []*models.Skill{{Name: "editing", Proficiency: 3, UsageCount: 7}}
	out := RenderSkillsBlock(skills)
	assert.Contains(t, out, "editing")
	assert.Contains(t, out, "███░░░░░░░")
	assert.Contains(t, out, "3/10")
	assert.Contains(t, out, "(used 7x)")
}

func TestRenderMemoryBlockEmptySections(t *testing.T) {
	out := RenderMemoryBlock(&models.MemoryBundle{})
	assert.Contains(t, out, "## Recent Experiences")
	assert.Contains(t, out, "## Relevant To This Task")
	assert.Contains(t, out, "## Lessons Learned")
	assert.Contains(t, out, "(none yet)")
}

func TestRouteMandateCoverage(t *testing.T) {
	// Every routing category must have a dedicated mandate.
	for _, cat := range routing.AllCategories() {
		_, ok := roleMandates[cat]
		assert.True(t, ok, "category %s has no mandate", cat)
	}
}
