package tools

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMarkers(t *testing.T) {
	content := `Let me look this up.
[WEB_SEARCH:best AI SaaS 2025]
[WEB_FETCH:https://example.com/report]
[SOCIAL_POST:We just shipped something big!]
Done.`

	m := ParseMarkers(content)
	require.Len(t, m.Searches, 1)
	assert.Equal(t, "best AI SaaS 2025", m.Searches[0])
	require.Len(t, m.Fetches, 1)
	assert.Equal(t, "https://example.com/report", m.Fetches[0])
	require.Len(t, m.SocialPosts, 1)
	assert.Equal(t, "We just shipped something big!", m.SocialPosts[0])
	assert.True(t, m.HasWebMarkers())
}

func TestParseMarkersFetchCap(t *testing.T) {
	content := ""
	for i := 0; i < 6; i++ {
		content += fmt.Sprintf("[WEB_FETCH:https://example.com/page%d]\n", i)
	}

	m := ParseMarkers(content)
	assert.Len(t, m.Fetches, 3, "fetches must be capped at three per response")
}

func TestParseMarkersIgnoresNonHTTPFetch(t *testing.T) {
	m := ParseMarkers("[WEB_FETCH:ftp://example.com/x] [WEB_FETCH:javascript:alert(1)]")
	assert.Empty(t, m.Fetches)
}

func TestParseMarkersNone(t *testing.T) {
	m := ParseMarkers("a perfectly ordinary answer")
	assert.False(t, m.HasWebMarkers())
	assert.Empty(t, m.SocialPosts)
}

func TestStripMarkers(t *testing.T) {
	content := "Answer text [WEB_SEARCH:leftover query] more text [SOCIAL_POST:x]"
	stripped := StripMarkers(content)
	assert.NotContains(t, stripped, "WEB_SEARCH")
	assert.NotContains(t, stripped, "SOCIAL_POST")
	assert.Contains(t, stripped, "Answer text")
	assert.Contains(t, stripped, "more text")
}

func TestExtractURLs(t *testing.T) {
	text := `Check https://example.com/a and https://example.com/b.
Also https://example.com/a again, plus https://example.com/c and https://example.com/d`

	urls := ExtractURLs(text, 3)
	assert.Equal(t, []string{
		"https://example.com/a",
		"https://example.com/b",
		"https://example.com/c",
	}, urls)
}

func TestExtractURLsNone(t *testing.T) {
	assert.Empty(t, ExtractURLs("no links here", 3))
}
