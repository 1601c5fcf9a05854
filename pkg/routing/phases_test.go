package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voxyz/agentworld/pkg/models"
)

func TestParsePhases(t *testing.T) {
	t.Run("two phase block", func(t *testing.T) {
		text := `Launch the product.

[PHASES]
PHASE 1: Research market | ROLE: research | TIER: tier1
PHASE 2: Strategy recommendation | ROLE: strategy | TIER: tier2
[/PHASES]`

		phases := ParsePhases(text)
		require.Len(t, phases, 2)
		assert.Equal(t, "Research market", phases[0].Description)
		assert.Equal(t, CategoryResearch, phases[0].Role)
		assert.Equal(t, models.TierT1, phases[0].Tier)
		assert.Equal(t, "Strategy recommendation", phases[1].Description)
		assert.Equal(t, CategoryStrategy, phases[1].Role)
		assert.Equal(t, models.TierT2, phases[1].Tier)
	})

	t.Run("missing block yields empty list", func(t *testing.T) {
		assert.Empty(t, ParsePhases("just a plain request"))
	})

	t.Run("malformed lines silently dropped", func(t *testing.T) {
		text := `[PHASES]
PHASE 1: Good phase | ROLE: research | TIER: tier1
this line is garbage
PHASE 2: Bad tier | ROLE: research | TIER: tier9
PHASE 3: Bad role | ROLE: astrology | TIER: tier1
PHASE 4: Also good | ROLE: qa | TIER: t2
[/PHASES]`

		phases := ParsePhases(text)
		require.Len(t, phases, 2)
		assert.Equal(t, "Good phase", phases[0].Description)
		assert.Equal(t, "Also good", phases[1].Description)
		assert.Equal(t, models.TierT2, phases[1].Tier)
	})

	t.Run("empty block", func(t *testing.T) {
		assert.Empty(t, ParsePhases("[PHASES]\n[/PHASES]"))
	})
}

func TestPhasesRoundTrip(t *testing.T) {
	original := []Phase{
		{Description: "Research market", Role: CategoryResearch, Tier: models.TierT1},
		{Description: "Strategy recommendation", Role: CategoryStrategy, Tier: models.TierT2},
		{Description: "Final deliverable", Role: CategoryContent, Tier: models.TierT3},
	}

	parsed := ParsePhases(RenderPhases(original))
	assert.Equal(t, original, parsed)
}

func TestRenderPhasesEmpty(t *testing.T) {
	assert.Empty(t, RenderPhases(nil))
}
