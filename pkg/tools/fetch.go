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

// fetchByteCap bounds how much page text is returned per fetch.
const fetchByteCap = 20_000

// FetchResult is the cleaned text of one fetched page.
type FetchResult struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Fetcher retrieves web pages, strips markup, and applies host-specific
// rewrites for hosts that block plain scrapes.
type Fetcher struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFetcher creates a web fetcher.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		logger:     slog.Default().With("component", "web-fetch"),
	}
}

var (
	scriptRe  = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe   = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	tagRe     = regexp.MustCompile(`(?s)<[^>]+>`)
	spaceRe   = regexp.MustCompile(`[ \t]+`)
	newlineRe = regexp.MustCompile(`\n{3,}`)
	titleRe   = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
)

// Fetch GETs a URL and returns its cleaned text, truncated to the byte cap.
// X/Twitter URLs are rewritten to a JSON compatibility endpoint; YouTube
// URLs go through the video path that also extracts metadata.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	switch host {
	case "x.com", "twitter.com":
		return f.fetchTweet(ctx, u)
	case "youtube.com", "m.youtube.com", "youtu.be":
		return f.fetchVideo(ctx, u)
	}

	body, err := f.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	title := ""
	if m := titleRe.FindSubmatch(body); m != nil {
		title = strings.TrimSpace(html.UnescapeString(string(m[1])))
	}

	return &FetchResult{
		Title:   title,
		Content: cleanHTML(body),
	}, nil
}

// fetchTweet rewrites an X/Twitter status URL to the fxtwitter JSON
// compatibility endpoint, which serves post content without authentication.
func (f *Fetcher) fetchTweet(ctx context.Context, u *url.URL) (*FetchResult, error) {
	rewritten := "https://api.fxtwitter.com" + u.Path

	body, err := f.get(ctx, rewritten)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Tweet struct {
			Text   string `json:"text"`
			Author struct {
				Name       string `json:"name"`
				ScreenName string `json:"screen_name"`
			} `json:"author"`
		} `json:"tweet"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		// Fall back to whatever text came back.
		return &FetchResult{Content: truncateBytes(string(body), fetchByteCap)}, nil
	}

	return &FetchResult{
		Title:   fmt.Sprintf("Post by %s (@%s)", payload.Tweet.Author.Name, payload.Tweet.Author.ScreenName),
		Content: truncateBytes(payload.Tweet.Text, fetchByteCap),
	}, nil
}

var (
	videoTitleRe   = regexp.MustCompile(`(?is)<meta\s+name="title"\s+content="([^"]*)"`)
	videoChannelRe = regexp.MustCompile(`(?is)"ownerChannelName"\s*:\s*"([^"]*)"`)
	videoDescRe    = regexp.MustCompile(`(?is)"shortDescription"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	captionsRe     = regexp.MustCompile(`"baseUrl"\s*:\s*"([^"]*timedtext[^"]*)"`)
	cueTextRe      = regexp.MustCompile(`(?s)<text[^>]*>(.*?)</text>`)
)

// fetchVideo pulls a video watch page and best-effort extracts title,
// channel, description, and transcript.
func (f *Fetcher) fetchVideo(ctx context.Context, u *url.URL) (*FetchResult, error) {
	body, err := f.get(ctx, u.String())
	if err != nil {
		return nil, err
	}
	page := string(body)

	title := ""
	if m := videoTitleRe.FindStringSubmatch(page); m != nil {
		title = html.UnescapeString(m[1])
	}
	channel := ""
	if m := videoChannelRe.FindStringSubmatch(page); m != nil {
		channel = m[1]
	}
	description := ""
	if m := videoDescRe.FindStringSubmatch(page); m != nil {
		description = strings.ReplaceAll(strings.ReplaceAll(m[1], `\n`, "\n"), `\"`, `"`)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Video: %s\nChannel: %s\n\nDescription:\n%s\n", title, channel, description)

	// Transcript is best-effort: the caption track URL is embedded in the
	// player config and may be absent entirely.
	if m := captionsRe.FindStringSubmatch(page); m != nil {
		captionURL := strings.ReplaceAll(m[1], `\u0026`, "&")
		if captions, err := f.get(ctx, captionURL); err == nil {
			var transcript []string
			for _, cue := range cueTextRe.FindAllStringSubmatch(string(captions), -1) {
				transcript = append(transcript, html.UnescapeString(cue[1]))
			}
			if len(transcript) > 0 {
				b.WriteString("\nTranscript:\n" + strings.Join(transcript, " "))
			}
		} else {
			f.logger.Debug("Transcript fetch failed", "url", u.String(), "error", err)
		}
	}

	return &FetchResult{
		Title:   title,
		Content: truncateBytes(b.String(), fetchByteCap),
	}, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; agentworld/1.0)")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s returned HTTP %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4*fetchByteCap))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}

// cleanHTML strips scripts, styles, and tags, collapses entities and
// whitespace, and truncates to the byte cap.
func cleanHTML(body []byte) string {
	text := scriptRe.ReplaceAllString(string(body), " ")
	text = styleRe.ReplaceAllString(text, " ")
	text = tagRe.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)
	text = spaceRe.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = newlineRe.ReplaceAllString(text, "\n\n")
	text = strings.TrimSpace(text)

	return truncateBytes(text, fetchByteCap)
}

func truncateBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
