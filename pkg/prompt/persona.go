package prompt

import (
	"fmt"
	"regexp"
	"strings"
)

// Persona section delimiters. The generation prompt asks for exactly these
// four headers; parsing is tolerant of casing and trailing whitespace, but
// each header must start its own line.
const (
	sectionIdentity    = "IDENTITY"
	sectionPersonality = "PERSONALITY"
	sectionSkills      = "SKILLS"
	sectionBackground  = "BACKGROUND"
)

// BuildPersonaGenerationPrompt asks the model for a four-section persona for
// a freshly hired agent.
func BuildPersonaGenerationPrompt(displayName, role, teamName string) string {
	return fmt.Sprintf(`Create a working persona for a new autonomous agent.

Name: %s
Role: %s
Team: %s

Respond with exactly four sections, each starting with the header on its
own line:

IDENTITY:
<one paragraph: who this agent is, in second person>

PERSONALITY:
<one paragraph: working style, communication habits>

SKILLS:
<a short list of concrete capabilities>

BACKGROUND:
<one paragraph: invented but plausible professional history>

Write in second person ("You are..."). No preamble, no closing remarks.`, displayName, role, teamName)
}

var personaSectionRe = regexp.MustCompile(`(?mi)^(IDENTITY|PERSONALITY|SKILLS|BACKGROUND):\s*$`)

// PersonaSections is the parsed result of a persona generation response.
type PersonaSections struct {
	Identity    string
	Personality string
	Skills      string
	Background  string
}

// ParsePersonaSections splits a generation response by its section headers.
// Missing sections come back empty; the caller substitutes role-derived
// defaults.
func ParsePersonaSections(text string) PersonaSections {
	locs := personaSectionRe.FindAllStringSubmatchIndex(text, -1)
	out := PersonaSections{}

	for i, loc := range locs {
		header := strings.ToUpper(text[loc[2]:loc[3]])
		start := loc[1]
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := strings.TrimSpace(text[start:end])

		switch header {
		case sectionIdentity:
			out.Identity = body
		case sectionPersonality:
			out.Personality = body
		case sectionSkills:
			out.Skills = body
		case sectionBackground:
			out.Background = body
		}
	}

	return out
}

// DefaultPersonaSections derives fallback sections from the agent's role,
// used when generation fails or returns partial output.
func DefaultPersonaSections(displayName, role string) PersonaSections {
	return PersonaSections{
		Identity:    fmt.Sprintf("You are %s, the team's %s. You own your domain end to end and deliver finished work.", displayName, role),
		Personality: "You are direct, thorough, and calm under pressure. You say what you verified and what you assumed.",
		Skills:      fmt.Sprintf("Core competencies of a working %s.", role),
		Background:  fmt.Sprintf("You have years of hands-on experience as a %s across early-stage companies.", role),
	}
}

// ComposePersonaSystemText renders the four sections into the persona's
// full system-prompt text.
func ComposePersonaSystemText(s PersonaSections) string {
	return strings.Join([]string{
		s.Identity,
		"Personality: " + s.Personality,
		"Skills: " + s.Skills,
		"Background: " + s.Background,
	}, "\n\n")
}

// AppendLearnedExpertise produces the system text of an upskilled persona
// version: the prior text plus a Learned Expertise block.
func AppendLearnedExpertise(systemText, expertise string) string {
	return systemText + "\n\n## Learned Expertise\n" + expertise
}

// BuildUpskillAnalysisPrompt asks a tier-1 model to analyze chronic
// rejection feedback and name the missing expertise.
func BuildUpskillAnalysisPrompt(role string, rejectionFeedback []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `An agent working as "%s" has had the same deliverable rejected five times.
Here is every rejection, oldest first:

`, role)
	for i, fb := range rejectionFeedback {
		fmt.Fprintf(&b, "REJECTION %d:\n%s\n\n", i+1, fb)
	}
	b.WriteString(`Analyze the pattern and respond with a single JSON object, nothing else:
{"skillGap": "<one sentence naming the missing skill>", "expertiseAddition": "<2-4 sentences of concrete expertise, written in second person, that would close the gap>"}`)
	return b.String()
}

// BuildDynamicRolesPrompt asks a tier-1 model which roles a project needs.
func BuildDynamicRolesPrompt(projectDescription string, validCategories []string) string {
	return fmt.Sprintf(`A new project needs staffing.

PROJECT:
%s

Respond with a JSON array of 2-5 roles, nothing else. Each element:
{"title": "<role title>", "category": "<one of: %s>", "reason": "<one sentence>"}`,
		projectDescription, strings.Join(validCategories, ", "))
}
