// Package review implements the rubric-based approval chain: the review
// prompt, score parsing with the auto-rejection rule, and reviewer
// selection.
package review

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Criteria are the five rubric dimensions, each scored 1-5.
var Criteria = []string{"completeness", "accuracy", "quality", "depth", "domain_specificity"}

// defaultScore substitutes for any criterion the reviewer failed to score.
const defaultScore = 3

// autoRejectBelow forces a reject verdict when the average score falls
// under this bound, regardless of the stated verdict.
const autoRejectBelow = 3.0

// BuildReviewSystemPrompt frames the reviewer role.
func BuildReviewSystemPrompt(reviewerRole string) string {
	return fmt.Sprintf(`You are a rigorous reviewer acting as the team's %s.
You judge deliverables against the original task, not against effort.
You reject work that is incomplete, inaccurate, shallow, or generic.`, reviewerRole)
}

// BuildReviewUserPrompt presents the task and deliverable with the fixed
// scoring rubric.
func BuildReviewUserPrompt(taskDescription, deliverable string) string {
	return fmt.Sprintf(`TASK:
%s

DELIVERABLE:
%s

Score the deliverable on each criterion from 1 (unacceptable) to 5
(excellent), then give a verdict and feedback. Use exactly this format:

completeness: <1-5>
accuracy: <1-5>
quality: <1-5>
depth: <1-5>
domain_specificity: <1-5>
verdict: <approve|reject>
feedback: <2-5 sentences: what is wrong or what is strong; if rejecting,
say specifically what must change>`, taskDescription, deliverable)
}

// Result is a parsed review.
type Result struct {
	Scores   map[string]int
	Average  float64
	Approved bool
	// AutoRejected is set when the average forced a reject over a stated
	// approve verdict.
	AutoRejected bool
	Feedback     string
}

var (
	scoreLineRe   = regexp.MustCompile(`(?mi)^\s*(completeness|accuracy|quality|depth|domain_specificity)\s*:\s*([1-5])\b`)
	verdictRe     = regexp.MustCompile(`(?mi)^\s*verdict\s*:\s*(approve|reject)`)
	feedbackRe    = regexp.MustCompile(`(?msi)^\s*feedback\s*:\s*(.+)\z`)
)

// ParseReview extracts scores, verdict, and feedback from a reviewer
// response. Missing criteria score 3. An average below 3 forces reject.
func ParseReview(text string) Result {
	scores := make(map[string]int, len(Criteria))
	for _, m := range scoreLineRe.FindAllStringSubmatch(text, -1) {
		name := strings.ToLower(m[1])
		if _, seen := scores[name]; seen {
			continue
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		scores[name] = n
	}
	for _, c := range Criteria {
		if _, ok := scores[c]; !ok {
			scores[c] = defaultScore
		}
	}

	sum := 0
	for _, c := range Criteria {
		sum += scores[c]
	}
	avg := float64(sum) / float64(len(Criteria))

	approved := false
	if m := verdictRe.FindStringSubmatch(text); m != nil {
		approved = strings.EqualFold(m[1], "approve")
	}

	autoRejected := false
	if avg < autoRejectBelow && approved {
		approved = false
		autoRejected = true
	}

	feedback := ""
	if m := feedbackRe.FindStringSubmatch(text); m != nil {
		feedback = strings.TrimSpace(m[1])
	}
	if feedback == "" {
		feedback = strings.TrimSpace(text)
	}

	return Result{
		Scores:       scores,
		Average:      avg,
		Approved:     approved,
		AutoRejected: autoRejected,
		Feedback:     feedback,
	}
}
