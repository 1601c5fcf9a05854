package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/voxyz/agentworld/pkg/models"
)

// maxPrefetchURLs bounds eager pre-fetching of URLs found in a task
// description.
const maxPrefetchURLs = 3

// CallFunc re-invokes the model at the same tier with a follow-up user
// message. Supplied by the executor so the resolver stays transport-free.
type CallFunc func(ctx context.Context, userMessage string, tier models.ModelTier) (string, error)

// Resolver executes tool-use markers found in model responses.
type Resolver struct {
	searcher *Searcher
	fetcher  *Fetcher
	social   *SocialQueue
	logger   *slog.Logger
}

// NewResolver creates a tool resolver. social may be nil (posting disabled).
func NewResolver(searcher *Searcher, fetcher *Fetcher, social *SocialQueue) *Resolver {
	return &Resolver{
		searcher: searcher,
		fetcher:  fetcher,
		social:   social,
		logger:   slog.Default().With("component", "tool-resolver"),
	}
}

// Resolve scans a model response for tool markers, executes them, and — when
// any web marker occurred — re-invokes the model at the same tier with the
// live results. The returned content has all residual markers stripped.
func (r *Resolver) Resolve(ctx context.Context, content, taskDescription string, tier models.ModelTier, call CallFunc) (string, error) {
	markers := ParseMarkers(content)

	// Social posts execute fire-and-forget; failures never block the task.
	for _, post := range markers.SocialPosts {
		if r.social == nil {
			r.logger.Warn("Social post requested but queue not configured")
			continue
		}
		if err := r.social.Enqueue(ctx, post); err != nil {
			r.logger.Error("Social post failed", "error", err)
		}
	}

	if !markers.HasWebMarkers() {
		return StripMarkers(content), nil
	}

	webData := r.executeWebMarkers(ctx, markers)

	followUp := fmt.Sprintf(`TASK:
%s

LIVE WEB DATA:
%s

Using the live web data above, produce your final answer to the task.
Do not emit any further [WEB_SEARCH:...], [WEB_FETCH:...], or
[SOCIAL_POST:...] markers.`, taskDescription, webData)

	final, err := call(ctx, followUp, tier)
	if err != nil {
		return "", fmt.Errorf("follow-up call after tool use failed: %w", err)
	}

	return StripMarkers(final), nil
}

// executeWebMarkers runs searches and fetches, concatenating results into
// one block. Individual tool failures are recorded inline so the model
// knows what it did not get.
func (r *Resolver) executeWebMarkers(ctx context.Context, markers Markers) string {
	var b strings.Builder

	for _, query := range markers.Searches {
		fmt.Fprintf(&b, "### Search: %s\n", query)
		results, err := r.searcher.Search(ctx, query)
		if err != nil {
			fmt.Fprintf(&b, "(search failed: %v)\n\n", err)
			continue
		}
		if len(results) == 0 {
			b.WriteString("(no results)\n\n")
			continue
		}
		for _, res := range results {
			fmt.Fprintf(&b, "- %s — %s\n  %s\n", res.Title, res.URL, res.Snippet)
		}
		b.WriteString("\n")
	}

	for _, u := range markers.Fetches {
		fmt.Fprintf(&b, "### Fetched: %s\n", u)
		res, err := r.fetcher.Fetch(ctx, u)
		if err != nil {
			fmt.Fprintf(&b, "(fetch failed: %v)\n\n", err)
			continue
		}
		if res.Title != "" {
			fmt.Fprintf(&b, "Title: %s\n", res.Title)
		}
		b.WriteString(res.Content + "\n\n")
	}

	return strings.TrimSpace(b.String())
}

// Prefetch eagerly fetches up to three URLs present in a task description
// and returns a "PRE-FETCHED URL CONTENT" appendix, so the first model call
// already has the page content. Returns "" when the description has no URLs.
func (r *Resolver) Prefetch(ctx context.Context, taskDescription string) string {
	urls := ExtractURLs(taskDescription, maxPrefetchURLs)
	if len(urls) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("PRE-FETCHED URL CONTENT:\n")
	for _, u := range urls {
		res, err := r.fetcher.Fetch(ctx, u)
		if err != nil {
			r.logger.Warn("Prefetch failed", "url", u, "error", err)
			fmt.Fprintf(&b, "### %s\n(fetch failed: %v)\n\n", u, err)
			continue
		}
		fmt.Fprintf(&b, "### %s\n", u)
		if res.Title != "" {
			fmt.Fprintf(&b, "Title: %s\n", res.Title)
		}
		b.WriteString(res.Content + "\n\n")
	}

	return strings.TrimSpace(b.String())
}
