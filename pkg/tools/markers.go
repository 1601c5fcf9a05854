// Package tools parses and executes the tool-use markers an agent embeds in
// its responses: web search, web fetch, and social posting. Marker content
// is an untrusted mini-language — parsed with explicit regexes, capped, and
// stripped before anything is persisted.
package tools

import (
	"regexp"
	"strings"
)

// maxFetchesPerResponse caps WEB_FETCH markers honored per response.
const maxFetchesPerResponse = 3

var (
	searchMarkerRe = regexp.MustCompile(`\[WEB_SEARCH:([^\[\]]+)\]`)
	fetchMarkerRe  = regexp.MustCompile(`\[WEB_FETCH:(https?://[^\[\]\s]+)\]`)
	socialMarkerRe = regexp.MustCompile(`\[SOCIAL_POST:([^\[\]]+)\]`)
	anyMarkerRe    = regexp.MustCompile(`\[(?:WEB_SEARCH|WEB_FETCH|SOCIAL_POST):[^\[\]]*\]`)

	// urlRe finds plain URLs in task descriptions for pre-fetching.
	urlRe = regexp.MustCompile(`https?://[^\s\)\]\>"']+`)
)

// Markers is the parsed tool-use content of one model response.
type Markers struct {
	Searches    []string
	Fetches     []string
	SocialPosts []string
}

// HasWebMarkers reports whether a follow-up model call is needed.
func (m Markers) HasWebMarkers() bool {
	return len(m.Searches) > 0 || len(m.Fetches) > 0
}

// ParseMarkers extracts tool-use markers from a model response. Fetches are
// capped at three per response; extra markers are dropped.
func ParseMarkers(content string) Markers {
	var m Markers

	for _, match := range searchMarkerRe.FindAllStringSubmatch(content, -1) {
		if q := strings.TrimSpace(match[1]); q != "" {
			m.Searches = append(m.Searches, q)
		}
	}
	for _, match := range fetchMarkerRe.FindAllStringSubmatch(content, -1) {
		if len(m.Fetches) >= maxFetchesPerResponse {
			break
		}
		m.Fetches = append(m.Fetches, strings.TrimSpace(match[1]))
	}
	for _, match := range socialMarkerRe.FindAllStringSubmatch(content, -1) {
		if t := strings.TrimSpace(match[1]); t != "" {
			m.SocialPosts = append(m.SocialPosts, t)
		}
	}

	return m
}

// StripMarkers removes any remaining tool-use markers from content before
// it is persisted as a final answer.
func StripMarkers(content string) string {
	stripped := anyMarkerRe.ReplaceAllString(content, "")
	return strings.TrimSpace(stripped)
}

// ExtractURLs finds up to max plain URLs in a task description for eager
// pre-fetching.
func ExtractURLs(text string, max int) []string {
	matches := urlRe.FindAllString(text, -1)
	var out []string
	seen := make(map[string]bool)
	for _, u := range matches {
		u = strings.TrimRight(u, ".,;")
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
		if len(out) >= max {
			break
		}
	}
	return out
}
