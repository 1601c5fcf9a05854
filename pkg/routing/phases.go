package routing

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/voxyz/agentworld/pkg/models"
)

// Phase is one parsed entry of an embedded [PHASES] block.
type Phase struct {
	Description string
	Role        Category
	Tier        models.ModelTier
}

var (
	phasesBlockRe = regexp.MustCompile(`(?s)\[PHASES\](.*?)\[/PHASES\]`)
	phaseLineRe   = regexp.MustCompile(`(?i)^PHASE\s+\d+:\s*(.+?)\s*\|\s*ROLE:\s*(\S+)\s*\|\s*TIER:\s*(\S+)\s*$`)
)

// tierAliases maps the wire spellings used in phase lines to model tiers.
var tierAliases = map[string]models.ModelTier{
	"tier1": models.TierT1,
	"tier2": models.TierT2,
	"tier3": models.TierT3,
	"t1":    models.TierT1,
	"t2":    models.TierT2,
	"t3":    models.TierT3,
}

// tierWire is the canonical spelling RenderPhases emits.
var tierWire = map[models.ModelTier]string{
	models.TierT1: "tier1",
	models.TierT2: "tier2",
	models.TierT3: "tier3",
}

// ParsePhases extracts the ordered phase list from a mission description.
// A missing [PHASES] block yields an empty list (single-step behavior).
// Malformed lines are silently dropped.
func ParsePhases(text string) []Phase {
	m := phasesBlockRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	var phases []Phase
	for _, line := range strings.Split(m[1], "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lm := phaseLineRe.FindStringSubmatch(line)
		if lm == nil {
			continue
		}

		role := Category(strings.ToLower(lm[2]))
		if !IsValidCategory(string(role)) {
			continue
		}
		tier, ok := tierAliases[strings.ToLower(lm[3])]
		if !ok {
			continue
		}

		phases = append(phases, Phase{
			Description: lm[1],
			Role:        role,
			Tier:        tier,
		})
	}
	return phases
}

// RenderPhases renders a phase list back into the wire form ParsePhases
// reads. Round-trips for well-formed lists.
func RenderPhases(phases []Phase) string {
	if len(phases) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("[PHASES]\n")
	for i, p := range phases {
		fmt.Fprintf(&b, "PHASE %d: %s | ROLE: %s | TIER: %s\n", i+1, p.Description, p.Role, tierWire[p.Tier])
	}
	b.WriteString("[/PHASES]")
	return b.String()
}
