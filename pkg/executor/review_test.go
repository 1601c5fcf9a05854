package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/voxyz/agentworld/pkg/models"
)

func TestParseUpskillAnalysis(t *testing.T) {
	t.Run("clean json", func(t *testing.T) {
		out := parseUpskillAnalysis(`{"skillGap": "no sourcing", "expertiseAddition": "You now cite sources."}`)
		assert.Equal(t, "no sourcing", out.SkillGap)
		assert.Equal(t, "You now cite sources.", out.ExpertiseAddition)
	})

	t.Run("json wrapped in prose", func(t *testing.T) {
		out := parseUpskillAnalysis("Sure! Here it is:\n{\"skillGap\": \"depth\", \"expertiseAddition\": \"Go deeper.\"}\nHope that helps.")
		assert.Equal(t, "depth", out.SkillGap)
	})

	t.Run("garbage yields empty", func(t *testing.T) {
		out := parseUpskillAnalysis("I refuse")
		assert.Empty(t, out.SkillGap)
		assert.Empty(t, out.ExpertiseAddition)
	})
}

func TestReviewTier(t *testing.T) {
	assert.Equal(t, models.TierT1, reviewTier(models.ReviewTypeQA))
	assert.Equal(t, models.TierT2, reviewTier(models.ReviewTypeTeamLead))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	out := truncate("a longer string that exceeds the limit", 10)
	assert.LessOrEqual(t, len(out), 14)
	assert.Contains(t, out, "…")
}
