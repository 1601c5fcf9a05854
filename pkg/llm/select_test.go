package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/voxyz/agentworld/pkg/models"
)

func TestSelectTier(t *testing.T) {
	tests := []struct {
		name        string
		isComplex   bool
		description string
		tctx        TierContext
		want        models.ModelTier
	}{
		{
			name:        "t3 keyword",
			description: "Write me a product requirements document",
			want:        models.TierT3,
		},
		{
			name:        "t2 complex keyword",
			description: "Deep competitive analysis",
			want:        models.TierT2,
		},
		{
			name:        "plain task defaults to t1",
			description: "Summarize meeting notes",
			want:        models.TierT1,
		},
		{
			name:        "complex flag forces t2",
			isComplex:   true,
			description: "Simple summary",
			want:        models.TierT2,
		},
		{
			name:        "final step forces t2",
			description: "compile",
			tctx:        TierContext{IsFinalStep: true},
			want:        models.TierT2,
		},
		{
			name:        "complex flag beats t3 keyword",
			isComplex:   true,
			description: "executive report on spending",
			want:        models.TierT2,
		},
		{
			name:        "case insensitive t3 keyword",
			description: "Draft the INVESTMENT MEMO for the board",
			want:        models.TierT3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectTier(tt.isComplex, tt.description, tt.tctx))
		})
	}
}

func TestSelectTierDeterministic(t *testing.T) {
	first := SelectTier(false, "evaluate the architecture trade-off", TierContext{})
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, SelectTier(false, "evaluate the architecture trade-off", TierContext{}))
	}
}
