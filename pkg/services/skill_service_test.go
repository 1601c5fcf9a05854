package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProficiencyForUsage(t *testing.T) {
	tests := []struct {
		usage int
		want  int
	}{
		{0, 1},
		{4, 1},
		{5, 2},
		{11, 2},
		{12, 3},
		{22, 4},
		{35, 5},
		{52, 6},
		{73, 7},
		{100, 8},
		{135, 9},
		{180, 10},
		{5000, 10},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ProficiencyForUsage(tt.usage), "usage %d", tt.usage)
	}
}

func TestProficiencyThresholdsMonotonic(t *testing.T) {
	for i := 1; i < len(proficiencyThresholds); i++ {
		assert.Greater(t, proficiencyThresholds[i], proficiencyThresholds[i-1])
	}
	assert.Len(t, proficiencyThresholds, 10)
}

func TestInitialSkillsForRole(t *testing.T) {
	tests := []struct {
		role string
		want []string
	}{
		{"Research Analyst", []string{"market research", "data analysis", "report writing"}},
		{"Senior Software Engineer", []string{"software design", "debugging", "automation"}},
		{"QA Specialist", []string{"test design", "quality review", "defect reporting"}},
		{"Content Creator", []string{"copywriting", "editing", "storytelling"}},
		{"Chief Vibes Officer", []string{"report writing", "data analysis", "prioritization"}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, InitialSkillsForRole(tt.role), "role %q", tt.role)
	}
}

func TestSkillKeywordsCoverInitialSkills(t *testing.T) {
	// Every seedable skill must be trackable, or usage never accrues.
	for _, entry := range roleInitialSkills {
		for _, skill := range entry.skills {
			_, ok := skillKeywords[skill]
			assert.True(t, ok, "skill %q has no usage keywords", skill)
		}
	}
}
