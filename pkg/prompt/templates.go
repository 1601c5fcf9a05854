package prompt

import "strings"

// outputTemplate pairs a keyword set with a fixed markdown structure. The
// highest-scoring template wins; all-zero scores fall back to the default.
type outputTemplate struct {
	key      string
	keywords []string
	body     string
}

// templateTable is scored in order; ties resolve to the earlier entry.
var templateTable = []outputTemplate{
	{
		key:      "research",
		keywords: []string{"research", "analyze", "investigate", "competitive", "market"},
		body: `OUTPUT TEMPLATE (follow this structure):
# <Title>
## Key Findings
- Finding with evidence
## Detailed Analysis
## Sources & Confidence
## What's Missing`,
	},
	{
		key:      "strategy",
		keywords: []string{"strategy", "roadmap", "plan", "business case"},
		body: `OUTPUT TEMPLATE (follow this structure):
# <Title>
## Recommendation
## Rationale & Trade-offs
## Risks & Mitigations
## Next Steps
## What's Missing`,
	},
	{
		key:      "content",
		keywords: []string{"write", "blog", "article", "post", "copy"},
		body: `OUTPUT TEMPLATE (follow this structure):
# <Headline>
<The complete piece, publication-ready>
---
## Distribution Notes
## What's Missing`,
	},
	{
		key:      "engineering",
		keywords: []string{"code", "build", "implement", "api", "integration"},
		body: `OUTPUT TEMPLATE (follow this structure):
# <Title>
## Approach
## Implementation
## Verification
## What's Missing`,
	},
	{
		key:      "requirements",
		keywords: []string{"requirements", "specification", "prd"},
		body: `OUTPUT TEMPLATE (follow this structure):
# <Product / Feature Name>
## Problem & Goals
## Requirements (numbered, testable)
## Out of Scope
## Open Questions
## What's Missing`,
	},
}

const defaultTemplate = `OUTPUT TEMPLATE (follow this structure):
# <Title>
## Summary
## Details
## What's Missing`

// TemplateForTask selects the output template by keyword scoring against
// the task description.
func TemplateForTask(description string) string {
	lower := strings.ToLower(description)

	best := ""
	bestScore := 0
	for _, t := range templateTable {
		score := 0
		for _, kw := range t.keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			best = t.body
			bestScore = score
		}
	}
	if best == "" {
		return defaultTemplate
	}
	return best
}
