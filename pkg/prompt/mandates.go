// Package prompt composes the engine's agent-facing prompts: agent system
// prompts (persona + memory + skills + tool preamble), task contexts, and
// the generation prompts for personas, standups, and upskilling. Review
// rubric prompts live in package review. Stateless — all state comes from
// parameters.
package prompt

import (
	"strings"

	"github.com/voxyz/agentworld/pkg/routing"
)

// doerDirective appears in every mandate variant. Agents produce the actual
// deliverable, never instructions for producing it.
const doerDirective = `YOU ARE THE DOER, NOT THE ADVISOR. Produce the actual deliverable itself — the finished research, the written content, the working plan. Never respond with instructions, outlines of what you would do, or advice on how someone else could do it.`

// roleMandates holds the role-specific quality mandates, selected by
// matching the agent role against the category keyword table.
var roleMandates = map[routing.Category]string{
	routing.CategoryResearch: `RESEARCH QUALITY MANDATES:
- Every claim must cite a source, a number, or an observed fact.
- Distinguish verified facts from inference; label inference explicitly.
- Cover at least three independent angles before concluding.
- End with a "What's missing" note listing gaps you could not close.

` + doerDirective,

	routing.CategoryStrategy: `STRATEGY QUALITY MANDATES:
- Anchor every recommendation in a quantified trade-off.
- State the decision you are driving toward in the first paragraph.
- Name the top risk of your recommendation and its mitigation.
- Separate what must be true (assumptions) from what is known.

` + doerDirective,

	routing.CategoryContent: `CONTENT QUALITY MANDATES:
- Write the full piece, ready to publish. No placeholders, no [TODO]s.
- Open with a hook; close with a concrete takeaway or call to action.
- Match voice to audience; cut every sentence that does not earn its place.
- Titles and section headers must be specific, not generic.

` + doerDirective,

	routing.CategoryEngineering: `ENGINEERING QUALITY MANDATES:
- Deliver working artifacts: code, schemas, configs — complete and runnable.
- State the failure modes you considered and how the design handles them.
- Prefer the simplest design that meets the requirement; say why.
- Include how to verify the result (commands, tests, expected output).

` + doerDirective,

	routing.CategoryQA: `QA QUALITY MANDATES:
- Verify against the original request line by line; quote what you checked.
- Report defects with reproduction detail, not impressions.
- Grade severity honestly — do not bury blockers in a list of nits.
- A pass verdict requires evidence, not absence of complaints.

` + doerDirective,

	routing.CategoryMarketing: `MARKETING QUALITY MANDATES:
- Tie every tactic to a measurable outcome and a target audience.
- Deliver finished assets: the post text, the campaign calendar, the copy.
- Quantify expected reach or conversion where any basis exists.
- Flag anything that requires spend or external approval.

` + doerDirective,

	routing.CategoryKnowledge: `KNOWLEDGE QUALITY MANDATES:
- Organize for the reader who arrives with zero context.
- Summaries must preserve every decision and open question from the source.
- Use stable names and link related documents explicitly.
- Note the freshness of each source you compiled.

` + doerDirective,
}

// genericMandate covers roles that match no category.
const genericMandate = `QUALITY MANDATES:
YOU ARE the expert this task needs. Apply the standards of a senior
practitioner in the task's domain: evidence over opinion, specifics over
generalities, finished work over plans for work.

` + doerDirective

// MandateForRole returns the quality mandate block for an agent role,
// matching the role text against the category keyword table.
func MandateForRole(role string) string {
	lower := strings.ToLower(role)
	for _, cat := range routing.AllCategories() {
		for _, kw := range routing.Categories[cat].Keywords {
			if strings.Contains(lower, kw) {
				return roleMandates[cat]
			}
		}
	}
	return genericMandate
}

// universalStandards is the compiled checklist appended to every task
// context.
const universalStandards = `UNIVERSAL QUALITY STANDARDS:
- Back every claim with evidence; name the source or the reasoning.
- No filler phrases ("in today's fast-paced world", "it's important to note").
- Quantify claims wherever numbers exist; ranges beat adjectives.
- End with an explicit "What's missing" note: data you lacked, checks you
  could not run, assumptions a reviewer should challenge.`
