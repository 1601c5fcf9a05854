package llm

import (
	"strings"

	"github.com/voxyz/agentworld/pkg/models"
)

// TierContext carries call-site hints into tier selection.
type TierContext struct {
	// IsFinalStep marks the last step of a chained mission; final
	// deliverables get at least tier 2.
	IsFinalStep bool
}

// t3Keywords force tier 3 for high-stakes deliverables.
var t3Keywords = []string{
	"product requirements",
	"product specification",
	"design document",
	"final deliverable",
	"executive report",
	"project plan",
	"product roadmap",
	"business case",
	"investment memo",
}

// t2Keywords mark complex-reasoning tasks.
var t2Keywords = []string{
	"deep",
	"comprehensive",
	"detailed analysis",
	"competitive analysis",
	"architecture",
	"evaluate",
	"compare",
	"synthesize",
	"multi-step",
	"trade-off",
}

// SelectTier is a pure function of its inputs: equal inputs always produce
// equal outputs. Rules apply in order: complex → t2; final step → t2;
// t3 keyword → t3; t2 keyword → t2; default t1.
func SelectTier(isComplex bool, description string, tctx TierContext) models.ModelTier {
	if isComplex {
		return models.TierT2
	}
	if tctx.IsFinalStep {
		return models.TierT2
	}

	lower := strings.ToLower(description)
	for _, kw := range t3Keywords {
		if strings.Contains(lower, kw) {
			return models.TierT3
		}
	}
	for _, kw := range t2Keywords {
		if strings.Contains(lower, kw) {
			return models.TierT2
		}
	}
	return models.TierT1
}
