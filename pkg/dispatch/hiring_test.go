package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProjectRoles(t *testing.T) {
	t.Run("valid array", func(t *testing.T) {
		content := `Here you go:
[
  {"title": "Research Analyst", "category": "research", "reason": "market unknowns"},
  {"title": "Content Creator", "category": "content", "reason": "launch assets"}
]`
		roles := parseProjectRoles(content)
		require.Len(t, roles, 2)
		assert.Equal(t, "Research Analyst", roles[0].Title)
		assert.Equal(t, "content", roles[1].Category)
	})

	t.Run("invalid category rejected", func(t *testing.T) {
		content := `[{"title": "Shaman", "category": "vibes", "reason": "x"},
{"title": "Analyst", "category": "research", "reason": "y"}]`
		assert.Nil(t, parseProjectRoles(content))
	})

	t.Run("too few roles rejected", func(t *testing.T) {
		content := `[{"title": "Analyst", "category": "research", "reason": "y"}]`
		assert.Nil(t, parseProjectRoles(content))
	})

	t.Run("too many roles rejected", func(t *testing.T) {
		content := `[
{"title": "A", "category": "research", "reason": "r"},
{"title": "B", "category": "strategy", "reason": "r"},
{"title": "C", "category": "content", "reason": "r"},
{"title": "D", "category": "engineering", "reason": "r"},
{"title": "E", "category": "qa", "reason": "r"},
{"title": "F", "category": "marketing", "reason": "r"}]`
		assert.Nil(t, parseProjectRoles(content))
	})

	t.Run("garbage rejected", func(t *testing.T) {
		assert.Nil(t, parseProjectRoles("sorry, I can't help with that"))
		assert.Nil(t, parseProjectRoles(""))
	})
}

func TestProjectPhasesFixed(t *testing.T) {
	require.Len(t, projectPhases, 4)
	assert.Equal(t, "Discovery", projectPhases[0].Name)
	assert.Equal(t, "Retrospective", projectPhases[3].Name)
}
