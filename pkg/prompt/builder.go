package prompt

import (
	"fmt"
	"strings"

	"github.com/voxyz/agentworld/pkg/models"
)

// rule is the horizontal rule between system-prompt sections.
const rule = "\n\n---\n\n"

// toolPreamble describes the tool-use marker mini-language to the agent.
const toolPreamble = `## Tools
You can use live tools by embedding markers in your response:
- [WEB_SEARCH:your query] — search the web; results are returned to you.
- [WEB_FETCH:https://example.com/page] — fetch a page; its text is returned to you.
- [SOCIAL_POST:text to post] — queue a social media post.
Use at most three WEB_FETCH markers per response. After tool results come
back you will be asked to produce the final answer without further markers.`

// memoryReminder closes every system prompt.
const memoryReminder = `Remember: you have persistent memory. Experiences from this task will be
saved and carried into your future work, so decisions you record now will
follow you.`

// genericPersona keeps an agent serviceable when no persona row exists.
const genericPersona = `You are a capable, reliable operator on an autonomous team. You deliver
finished work, state your confidence honestly, and flag what you could not
verify.`

// BuildAgentPrompt composes the system-prompt side of a task call:
// persona full text, memory block, skills block (when any), tool preamble,
// and the persistent-memory reminder, separated by horizontal rules.
func BuildAgentPrompt(persona *models.Persona, bundle *models.MemoryBundle, skills []*models.Skill) string {
	personaText := genericPersona
	if persona != nil && persona.SystemText != "" {
		personaText = persona.SystemText
	}

	sections := []string{personaText, RenderMemoryBlock(bundle)}
	if block := RenderSkillsBlock(skills); block != "" {
		sections = append(sections, block)
	}
	sections = append(sections, toolPreamble, memoryReminder)

	return strings.Join(sections, rule)
}

// TaskContextInput carries everything BuildTaskContext composes.
type TaskContextInput struct {
	// OriginatingRequest is the raw human message from the mission's source
	// proposal, empty when the mission was machine-generated.
	OriginatingRequest string
	// AgentRole selects the quality mandate variant.
	AgentRole string
	// Description is the step's task description.
	Description string
	// PreviousPhaseOutput chains a predecessor step's result into this one.
	PreviousPhaseOutput string
	// PreviousPhaseAgent names who produced the previous phase output.
	PreviousPhaseAgent string
}

// BuildTaskContext composes the user-message side of the prompt as five
// ordered blocks: originating request, role mandates, task description,
// output template, universal quality standards.
func BuildTaskContext(in TaskContextInput) string {
	var blocks []string

	if in.OriginatingRequest != "" {
		blocks = append(blocks, "ZERO'S ORIGINAL REQUEST:\n"+in.OriginatingRequest)
	}

	blocks = append(blocks, MandateForRole(in.AgentRole))

	task := "YOUR TASK:\n" + in.Description
	if in.PreviousPhaseOutput != "" {
		task += fmt.Sprintf("\n\nPREVIOUS PHASE OUTPUT (from %s):\n%s", in.PreviousPhaseAgent, in.PreviousPhaseOutput)
	}
	blocks = append(blocks, task)

	blocks = append(blocks, TemplateForTask(in.Description))
	blocks = append(blocks, universalStandards)

	return strings.Join(blocks, "\n\n")
}

// BuildStandupPrompt asks one agent for its daily standup.
func BuildStandupPrompt(agentName, role string) string {
	return fmt.Sprintf(`Good morning, %s. You are the team's %s.
Give your daily standup in three short sections:
1. What you accomplished recently (from your memory above).
2. What you are focused on next.
3. Anything blocking you or worth the founder's attention.
Keep it under 150 words.`, agentName, role)
}
