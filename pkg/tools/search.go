package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// maxSearchResults bounds how many hits are returned per query.
const maxSearchResults = 5

// SearchResult is one web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher queries a search API, falling back to an HTML scrape of a public
// search endpoint when no API key is configured or the API call fails.
type Searcher struct {
	httpClient *http.Client
	apiKey     string
	logger     *slog.Logger
}

// NewSearcher creates a web searcher. apiKey may be empty (scrape-only).
func NewSearcher(apiKey string, timeout time.Duration) *Searcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Searcher{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     apiKey,
		logger:     slog.Default().With("component", "web-search"),
	}
}

// Search runs one query: API first, HTML scrape fallback.
func (s *Searcher) Search(ctx context.Context, query string) ([]SearchResult, error) {
	if s.apiKey != "" {
		results, err := s.searchAPI(ctx, query)
		if err == nil {
			return results, nil
		}
		s.logger.Warn("Search API failed, falling back to scrape", "query", query, "error", err)
	}
	return s.searchScrape(ctx, query)
}

// searchAPI queries the Brave search API.
func (s *Searcher) searchAPI(ctx context.Context, query string) ([]SearchResult, error) {
	endpoint := "https://api.search.brave.com/res/v1/web/search?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Subscription-Token", s.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	var payload struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	var out []SearchResult
	for _, r := range payload.Web.Results {
		out = append(out, SearchResult{Title: r.Title, URL: r.URL, Snippet: r.Description})
		if len(out) >= maxSearchResults {
			break
		}
	}
	return out, nil
}

var scrapeResultRe = regexp.MustCompile(
	`(?s)<a[^>]+class="result__a"[^>]+href="([^"]+)"[^>]*>(.*?)</a>.*?<a[^>]+class="result__snippet"[^>]*>(.*?)</a>`)

// searchScrape scrapes the DuckDuckGo HTML endpoint.
func (s *Searcher) searchScrape(ctx context.Context, query string) ([]SearchResult, error) {
	endpoint := "https://html.duckduckgo.com/html/?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; agentworld/1.0)")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search scrape failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search scrape returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read scrape response: %w", err)
	}

	var out []SearchResult
	for _, m := range scrapeResultRe.FindAllStringSubmatch(string(body), -1) {
		out = append(out, SearchResult{
			Title:   strings.TrimSpace(html.UnescapeString(tagRe.ReplaceAllString(m[2], ""))),
			URL:     html.UnescapeString(m[1]),
			Snippet: strings.TrimSpace(html.UnescapeString(tagRe.ReplaceAllString(m[3], ""))),
		})
		if len(out) >= maxSearchResults {
			break
		}
	}
	return out, nil
}
