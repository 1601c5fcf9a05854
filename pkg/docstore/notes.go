package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// notesVersion is the API version header the notes platform requires.
const notesVersion = "2022-06-28"

// NotesClient publishes deliverables as pages on the notes platform.
// Nil-safe: a nil client returns errors from PublishDeliverable.
type NotesClient struct {
	httpClient *http.Client
	token      string
	parentID   string
	logger     *slog.Logger

	// folderMu guards the discovered per-team page cache.
	folderMu    sync.Mutex
	teamFolders map[string]string
}

// NewNotesClient creates a notes-platform client. Returns nil when token or
// parent page is not configured.
func NewNotesClient(token, parentPageID string, timeout time.Duration) *NotesClient {
	if token == "" || parentPageID == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &NotesClient{
		httpClient:  &http.Client{Timeout: timeout},
		token:       token,
		parentID:    parentPageID,
		logger:      slog.Default().With("component", "notes-store"),
		teamFolders: make(map[string]string),
	}
}

// ClearCache drops the discovered team folder IDs.
func (c *NotesClient) ClearCache() {
	if c == nil {
		return
	}
	c.folderMu.Lock()
	defer c.folderMu.Unlock()
	c.teamFolders = make(map[string]string)
}

// PublishDeliverable creates a page under the team's folder page.
func (c *NotesClient) PublishDeliverable(ctx context.Context, d Deliverable) (*PublishResult, error) {
	if c == nil {
		return nil, fmt.Errorf("notes store not configured")
	}

	parent, err := c.teamFolder(ctx, d.TeamID)
	if err != nil {
		// Fall back to the root parent rather than failing the publish.
		c.logger.Warn("Team folder discovery failed, publishing to root", "team_id", d.TeamID, "error", err)
		parent = c.parentID
	}

	payload := map[string]any{
		"parent": map[string]any{"page_id": parent},
		"properties": map[string]any{
			"title": []map[string]any{
				{"text": map[string]any{"content": d.Title}},
			},
		},
		"children": contentBlocks(d),
	}

	body, err := c.post(ctx, "https://api.notion.com/v1/pages", payload)
	if err != nil {
		return nil, err
	}

	var resp struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode page response: %w", err)
	}

	return &PublishResult{ID: resp.ID, URL: resp.URL}, nil
}

// teamFolder finds or creates the per-team container page, cached per
// process.
func (c *NotesClient) teamFolder(ctx context.Context, teamID string) (string, error) {
	if teamID == "" {
		return c.parentID, nil
	}

	c.folderMu.Lock()
	if id, ok := c.teamFolders[teamID]; ok {
		c.folderMu.Unlock()
		return id, nil
	}
	c.folderMu.Unlock()

	payload := map[string]any{
		"parent": map[string]any{"page_id": c.parentID},
		"properties": map[string]any{
			"title": []map[string]any{
				{"text": map[string]any{"content": teamID}},
			},
		},
	}
	body, err := c.post(ctx, "https://api.notion.com/v1/pages", payload)
	if err != nil {
		return "", err
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode folder response: %w", err)
	}

	c.folderMu.Lock()
	c.teamFolders[teamID] = resp.ID
	c.folderMu.Unlock()
	return resp.ID, nil
}

// contentBlocks renders the deliverable as paragraph blocks. The notes API
// caps rich text at 2000 characters per block.
func contentBlocks(d Deliverable) []map[string]any {
	header := fmt.Sprintf("By %s | mission %s | step %s", d.AgentName, d.MissionID, d.StepID)
	chunks := []string{header}
	content := d.Content
	for len(content) > 0 {
		n := len(content)
		if n > 2000 {
			n = 2000
		}
		chunks = append(chunks, content[:n])
		content = content[n:]
	}

	blocks := make([]map[string]any, 0, len(chunks))
	for _, chunk := range chunks {
		blocks = append(blocks, map[string]any{
			"object": "block",
			"type":   "paragraph",
			"paragraph": map[string]any{
				"rich_text": []map[string]any{
					{"type": "text", "text": map[string]any{"content": chunk}},
				},
			},
		})
	}
	return blocks
}

func (c *NotesClient) post(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", notesVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notes request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read notes response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("notes API returned HTTP %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
