package prompt

import (
	"fmt"
	"strings"

	"github.com/voxyz/agentworld/pkg/models"
)

// RenderMemoryBlock renders the fixed-shape memory bundle as markdown with
// three sections: recent, topic-matched, lessons.
func RenderMemoryBlock(bundle *models.MemoryBundle) string {
	var b strings.Builder

	b.WriteString("## Recent Experiences\n")
	if len(bundle.Recent) == 0 {
		b.WriteString("(none yet)\n")
	}
	for _, m := range bundle.Recent {
		fmt.Fprintf(&b, "- [%s] %s\n", m.MemoryType, memoryLine(m))
	}

	b.WriteString("\n## Relevant To This Task\n")
	if len(bundle.TopicMatched) == 0 {
		b.WriteString("(nothing matched)\n")
	}
	for _, m := range bundle.TopicMatched {
		fmt.Fprintf(&b, "- [%s, importance %d] %s\n", m.MemoryType, m.Importance, memoryLine(m))
	}

	b.WriteString("\n## Lessons Learned\n")
	if len(bundle.Lessons) == 0 {
		b.WriteString("(none yet)\n")
	}
	for _, l := range bundle.Lessons {
		fmt.Fprintf(&b, "- (%s, importance %d, applied %dx) %s\n", l.Category, l.Importance, l.AppliedCount, l.Text)
	}

	return b.String()
}

func memoryLine(m models.AgentMemory) string {
	if m.Summary != "" {
		return m.Summary
	}
	return m.Content
}

// RenderSkillsBlock lists each skill with a 10-cell proficiency bar and
// usage count.
func RenderSkillsBlock(skills []*models.Skill) string {
	if len(skills) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Your Skills\n")
	for _, sk := range skills {
		fmt.Fprintf(&b, "- %s %s %d/10 (used %dx)\n", sk.Name, proficiencyBar(sk.Proficiency), sk.Proficiency, sk.UsageCount)
	}
	return b.String()
}

func proficiencyBar(level int) string {
	if level < 0 {
		level = 0
	}
	if level > 10 {
		level = 10
	}
	return strings.Repeat("█", level) + strings.Repeat("░", 10-level)
}
