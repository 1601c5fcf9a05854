// Package routing maps task descriptions to role categories and standing
// teams, and parses multi-phase mission descriptions.
package routing

// Category is a role category key.
type Category string

// The seven standing role categories.
const (
	CategoryResearch    Category = "research"
	CategoryStrategy    Category = "strategy"
	CategoryContent     Category = "content"
	CategoryEngineering Category = "engineering"
	CategoryQA          Category = "qa"
	CategoryMarketing   Category = "marketing"
	CategoryKnowledge   Category = "knowledge"
)

// CategoryInfo is the compiled routing table entry for one category.
type CategoryInfo struct {
	// Keywords scored against task descriptions (case-insensitive substring).
	Keywords []string
	// Title is the canned role title used when auto-hiring for this category.
	Title string
	// StandingTeamID is the team a new hire for this category lands on.
	StandingTeamID string
	// InitialSkills seeds a new hire's skill rows at proficiency 1.
	InitialSkills []string
}

// categoryOrder fixes tie-breaking: the first category in enumeration order
// wins when scores are equal.
var categoryOrder = []Category{
	CategoryResearch,
	CategoryStrategy,
	CategoryContent,
	CategoryEngineering,
	CategoryQA,
	CategoryMarketing,
	CategoryKnowledge,
}

// Categories is the compiled category table. Immutable — callers must not
// mutate the slices.
var Categories = map[Category]CategoryInfo{
	CategoryResearch: {
		Keywords:       []string{"research", "analyze", "analysis", "investigate", "competitive", "market", "study", "survey", "benchmark", "trends"},
		Title:          "Research Analyst",
		StandingTeamID: "team-research",
		InitialSkills:  []string{"market research", "data analysis", "report writing"},
	},
	CategoryStrategy: {
		Keywords:       []string{"strategy", "strategic", "roadmap", "plan", "planning", "vision", "business case", "prioritize", "positioning"},
		Title:          "Strategy Lead",
		StandingTeamID: "team-strategy",
		InitialSkills:  []string{"strategic planning", "business analysis", "prioritization"},
	},
	CategoryContent: {
		Keywords:       []string{"write", "blog", "article", "content", "copy", "post", "newsletter", "draft", "edit", "script"},
		Title:          "Content Creator",
		StandingTeamID: "team-execution",
		InitialSkills:  []string{"copywriting", "editing", "storytelling"},
	},
	CategoryEngineering: {
		Keywords:       []string{"code", "build", "implement", "api", "engineer", "bug", "deploy", "database", "integration", "script", "automate"},
		Title:          "Software Engineer",
		StandingTeamID: "team-engineering",
		InitialSkills:  []string{"software design", "debugging", "automation"},
	},
	CategoryQA: {
		Keywords:       []string{"test", "qa", "quality", "review", "verify", "validate", "audit", "check"},
		Title:          "QA Specialist",
		StandingTeamID: "team-engineering",
		InitialSkills:  []string{"test design", "quality review", "defect reporting"},
	},
	CategoryMarketing: {
		Keywords:       []string{"marketing", "campaign", "social", "audience", "brand", "growth", "seo", "launch", "promotion"},
		Title:          "Marketing Specialist",
		StandingTeamID: "team-execution",
		InitialSkills:  []string{"campaign planning", "social media", "brand messaging"},
	},
	CategoryKnowledge: {
		Keywords:       []string{"document", "documentation", "wiki", "knowledge", "organize", "summarize", "catalog", "archive", "notes"},
		Title:          "Knowledge Manager",
		StandingTeamID: "team-operations",
		InitialSkills:  []string{"documentation", "information architecture", "summarization"},
	},
}

// AllCategories returns the categories in enumeration order.
func AllCategories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// IsValidCategory reports whether s names one of the standing categories.
func IsValidCategory(s string) bool {
	_, ok := Categories[Category(s)]
	return ok
}
