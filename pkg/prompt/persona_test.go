package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePersonaSections(t *testing.T) {
	text := `IDENTITY:
You are Curie, a meticulous research analyst.

PERSONALITY:
Direct and curious.

SKILLS:
- market sizing
- interviews

BACKGROUND:
Ten years in competitive intelligence.`

	s := ParsePersonaSections(text)
	assert.Equal(t, "You are Curie, a meticulous research analyst.", s.Identity)
	assert.Equal(t, "Direct and curious.", s.Personality)
	assert.Contains(t, s.Skills, "market sizing")
	assert.Equal(t, "Ten years in competitive intelligence.", s.Background)
}

func TestParsePersonaSectionsMissingSections(t *testing.T) {
	s := ParsePersonaSections("IDENTITY:\nYou are someone.\n")
	assert.Equal(t, "You are someone.", s.Identity)
	assert.Empty(t, s.Personality)
	assert.Empty(t, s.Skills)
	assert.Empty(t, s.Background)
}

func TestParsePersonaSectionsGarbage(t *testing.T) {
	s := ParsePersonaSections("no sections here at all")
	assert.Empty(t, s.Identity)
}

func TestDefaultPersonaSectionsComplete(t *testing.T) {
	s := DefaultPersonaSections("Tesla", "Software Engineer")
	assert.Contains(t, s.Identity, "Tesla")
	assert.Contains(t, s.Identity, "Software Engineer")
	assert.NotEmpty(t, s.Personality)
	assert.NotEmpty(t, s.Skills)
	assert.NotEmpty(t, s.Background)
}

func TestComposePersonaSystemText(t *testing.T) {
	text := ComposePersonaSystemText(PersonaSections{
		Identity:    "You are X.",
		Personality: "calm",
		Skills:      "things",
		Background:  "places",
	})
	assert.Contains(t, text, "You are X.")
	assert.Contains(t, text, "Personality: calm")
	assert.Contains(t, text, "Background: places")
}

func TestAppendLearnedExpertise(t *testing.T) {
	out := AppendLearnedExpertise("base persona", "You now cite sources.")
	assert.Contains(t, out, "base persona")
	assert.Contains(t, out, "## Learned Expertise")
	assert.Contains(t, out, "You now cite sources.")
}
