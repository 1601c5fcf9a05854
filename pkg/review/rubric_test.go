package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseReviewFullResponse(t *testing.T) {
	text := `completeness: 4
accuracy: 5
quality: 4
depth: 3
domain_specificity: 4
verdict: approve
feedback: Solid work with verified numbers throughout.`

	result := ParseReview(text)
	assert.True(t, result.Approved)
	assert.False(t, result.AutoRejected)
	assert.Equal(t, 4, result.Scores["completeness"])
	assert.Equal(t, 5, result.Scores["accuracy"])
	assert.InDelta(t, 4.0, result.Average, 0.001)
	assert.Equal(t, "Solid work with verified numbers throughout.", result.Feedback)
}

func TestParseReviewMissingCriteriaDefaultToThree(t *testing.T) {
	text := `completeness: 5
verdict: approve
feedback: fine`

	result := ParseReview(text)
	assert.Equal(t, 5, result.Scores["completeness"])
	assert.Equal(t, 3, result.Scores["accuracy"])
	assert.Equal(t, 3, result.Scores["depth"])
	assert.InDelta(t, (5+3+3+3+3)/5.0, result.Average, 0.001)
	assert.True(t, result.Approved)
}

func TestParseReviewAutoRejection(t *testing.T) {
	// Stated approve, but the average is below 3 — the auto-rejection rule
	// forces a reject.
	text := `completeness: 1
accuracy: 2
quality: 2
depth: 1
domain_specificity: 2
verdict: approve
feedback: honestly this is weak`

	result := ParseReview(text)
	assert.False(t, result.Approved)
	assert.True(t, result.AutoRejected)
	assert.InDelta(t, 1.6, result.Average, 0.001)
}

func TestParseReviewRejectVerdict(t *testing.T) {
	text := `completeness: 4
accuracy: 4
quality: 4
depth: 4
domain_specificity: 4
verdict: reject
feedback: Good numbers but it answers the wrong question.`

	result := ParseReview(text)
	assert.False(t, result.Approved)
	assert.False(t, result.AutoRejected)
}

func TestParseReviewNoVerdictDefaultsToReject(t *testing.T) {
	result := ParseReview("some rambling with no structure at all")
	assert.False(t, result.Approved)
	// Feedback falls back to the whole text so the author sees something.
	assert.NotEmpty(t, result.Feedback)
}

func TestParseReviewDuplicateScoresKeepFirst(t *testing.T) {
	text := `quality: 5
quality: 1
verdict: approve
feedback: ok`

	result := ParseReview(text)
	assert.Equal(t, 5, result.Scores["quality"])
}
