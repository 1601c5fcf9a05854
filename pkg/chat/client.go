// Package chat wraps the Slack SDK as the engine's notification channel and
// command surface. Posting splits long text on line boundaries; reading
// polls channel history so no socket connection is required.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	goslack "github.com/slack-go/slack"
)

// maxMessageBytes is the split threshold for outbound posts.
const maxMessageBytes = 1900

// Client is a thin wrapper around the slack-go SDK.
type Client struct {
	api    *goslack.Client
	logger *slog.Logger

	// channelMu guards the name → ID cache.
	channelMu  sync.Mutex
	channelIDs map[string]string
}

// NewClient creates a Slack client. Returns nil when the token is empty;
// all methods are nil-safe no-ops that return errors.
func NewClient(token string) *Client {
	if token == "" {
		return nil
	}
	return &Client{
		api:        goslack.New(token),
		logger:     slog.Default().With("component", "chat-client"),
		channelIDs: make(map[string]string),
	}
}

// NewClientWithAPIURL creates a client that targets a custom API URL.
// Useful for testing with a mock server.
func NewClientWithAPIURL(token, apiURL string) *Client {
	return &Client{
		api:        goslack.New(token, goslack.OptionAPIURL(apiURL)),
		logger:     slog.Default().With("component", "chat-client"),
		channelIDs: make(map[string]string),
	}
}

// ClearCache drops the resolved channel IDs.
func (c *Client) ClearCache() {
	if c == nil {
		return
	}
	c.channelMu.Lock()
	defer c.channelMu.Unlock()
	c.channelIDs = make(map[string]string)
}

// PostToChannel posts text to a named channel, splitting on line boundaries
// when it exceeds 1900 bytes.
func (c *Client) PostToChannel(ctx context.Context, channelName, text string) error {
	if c == nil {
		return fmt.Errorf("chat client not configured")
	}

	channelID, err := c.resolveChannel(ctx, channelName)
	if err != nil {
		return err
	}

	for _, chunk := range SplitMessage(text, maxMessageBytes) {
		_, _, err := c.api.PostMessageContext(ctx, channelID, goslack.MsgOptionText(chunk, false))
		if err != nil {
			return fmt.Errorf("chat.postMessage failed: %w", err)
		}
	}
	return nil
}

// Message is one inbound channel message.
type Message struct {
	UserID    string
	Text      string
	Timestamp string
}

// History returns channel messages newer than oldest (a Slack ts string),
// oldest first.
func (c *Client) History(ctx context.Context, channelName, oldest string) ([]Message, error) {
	if c == nil {
		return nil, fmt.Errorf("chat client not configured")
	}

	channelID, err := c.resolveChannel(ctx, channelName)
	if err != nil {
		return nil, err
	}

	params := &goslack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Oldest:    oldest,
		Limit:     100,
	}
	history, err := c.api.GetConversationHistoryContext(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("conversations.history failed: %w", err)
	}

	// Slack returns newest first; reverse for in-order processing.
	var out []Message
	for i := len(history.Messages) - 1; i >= 0; i-- {
		msg := history.Messages[i]
		if msg.SubType != "" || msg.User == "" {
			continue
		}
		out = append(out, Message{
			UserID:    msg.User,
			Text:      msg.Text,
			Timestamp: msg.Timestamp,
		})
	}
	return out, nil
}

// resolveChannel maps a channel name to its ID, cached per process.
func (c *Client) resolveChannel(ctx context.Context, name string) (string, error) {
	name = strings.TrimPrefix(name, "#")

	c.channelMu.Lock()
	if id, ok := c.channelIDs[name]; ok {
		c.channelMu.Unlock()
		return id, nil
	}
	c.channelMu.Unlock()

	params := &goslack.GetConversationsParameters{
		ExcludeArchived: true,
		Limit:           200,
		Types:           []string{"public_channel", "private_channel"},
	}
	for {
		channels, cursor, err := c.api.GetConversationsContext(ctx, params)
		if err != nil {
			return "", fmt.Errorf("conversations.list failed: %w", err)
		}
		for _, ch := range channels {
			c.channelMu.Lock()
			c.channelIDs[ch.Name] = ch.ID
			c.channelMu.Unlock()
			if ch.Name == name {
				return ch.ID, nil
			}
		}
		if cursor == "" {
			break
		}
		params.Cursor = cursor
	}

	return "", fmt.Errorf("channel %q not found", name)
}

// LatestTimestamp returns the newest message ts in a channel, used to skip
// history that predates process startup.
func (c *Client) LatestTimestamp(ctx context.Context, channelName string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("chat client not configured")
	}

	channelID, err := c.resolveChannel(ctx, channelName)
	if err != nil {
		return "", err
	}

	history, err := c.api.GetConversationHistoryContext(ctx, &goslack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Limit:     1,
	})
	if err != nil {
		return "", fmt.Errorf("conversations.history failed: %w", err)
	}
	if len(history.Messages) == 0 {
		return fmt.Sprintf("%d.000000", time.Now().Unix()), nil
	}
	return history.Messages[0].Timestamp, nil
}

// SplitMessage splits text into chunks of at most limit bytes, preferring
// line boundaries.
func SplitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	remaining := text
	for len(remaining) > limit {
		cut := strings.LastIndex(remaining[:limit], "\n")
		if cut <= 0 {
			cut = limit
		}
		chunks = append(chunks, strings.TrimRight(remaining[:cut], "\n"))
		remaining = strings.TrimLeft(remaining[cut:], "\n")
	}
	if remaining != "" {
		chunks = append(chunks, remaining)
	}
	return chunks
}
