package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/voxyz/agentworld/pkg/models"
	"github.com/voxyz/agentworld/pkg/services"
)

// t1RetryDelay is the pause before the single tier-1 retry.
const t1RetryDelay = 5 * time.Second

// Response is the result of a successful routed call.
type Response struct {
	Content      string
	Model        string
	Tier         models.ModelTier
	InputTokens  int
	OutputTokens int
}

// Router performs tiered chat-completion calls with retry and fallback.
// Every physical call — success or failure — writes one model_usage row.
type Router struct {
	cfg     Config
	clients map[models.ModelTier]*openai.Client
	usage   *services.UsageService
	logger  *slog.Logger

	// sleep is swappable in tests.
	sleep func(context.Context, time.Duration) error
}

// NewRouter creates a router with one OpenAI-compatible client per tier.
func NewRouter(cfg Config, usage *services.UsageService) *Router {
	clients := make(map[models.ModelTier]*openai.Client, len(cfg.Tiers))
	for tier, tc := range cfg.Tiers {
		clientCfg := openai.DefaultConfig(tc.APIKey)
		clientCfg.BaseURL = tc.BaseURL
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.RequestTimeout}
		clients[tier] = openai.NewClientWithConfig(clientCfg)
	}
	return &Router{
		cfg:     cfg,
		clients: clients,
		usage:   usage,
		logger:  slog.Default().With("component", "llm-router"),
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Call routes one system+user exchange to the requested tier, applying the
// fallback ladder:
//
//	t1: one retry after 5 seconds, then surface the error.
//	t2: fall back to t1 (single attempt), logged with fallbackFrom=t2.
//	t3: fall back to t2, then t1, each fallback logged.
func (r *Router) Call(ctx context.Context, systemPrompt, userMessage string, tier models.ModelTier, agentID, stepID string) (*Response, error) {
	switch tier {
	case models.TierT1:
		resp, err := r.attempt(ctx, systemPrompt, userMessage, models.TierT1, agentID, stepID, "")
		if err == nil {
			return resp, nil
		}
		r.logger.Warn("Tier-1 call failed, retrying once", "agent_id", agentID, "error", err)
		if serr := r.sleep(ctx, t1RetryDelay); serr != nil {
			return nil, serr
		}
		return r.attempt(ctx, systemPrompt, userMessage, models.TierT1, agentID, stepID, "")

	case models.TierT2:
		resp, err := r.attempt(ctx, systemPrompt, userMessage, models.TierT2, agentID, stepID, "")
		if err == nil {
			return resp, nil
		}
		r.logger.Warn("Tier-2 call failed, falling back to tier 1", "agent_id", agentID, "error", err)
		return r.attempt(ctx, systemPrompt, userMessage, models.TierT1, agentID, stepID, "t2")

	case models.TierT3:
		resp, err := r.attempt(ctx, systemPrompt, userMessage, models.TierT3, agentID, stepID, "")
		if err == nil {
			return resp, nil
		}
		r.logger.Warn("Tier-3 call failed, falling back to tier 2", "agent_id", agentID, "error", err)
		resp, err = r.attempt(ctx, systemPrompt, userMessage, models.TierT2, agentID, stepID, "t3")
		if err == nil {
			return resp, nil
		}
		r.logger.Warn("Tier-2 fallback failed, falling back to tier 1", "agent_id", agentID, "error", err)
		return r.attempt(ctx, systemPrompt, userMessage, models.TierT1, agentID, stepID, "t3_via_t2")

	default:
		return nil, fmt.Errorf("unknown model tier %q", tier)
	}
}

// attempt performs one physical call against one tier and records usage.
func (r *Router) attempt(ctx context.Context, systemPrompt, userMessage string, tier models.ModelTier, agentID, stepID, fallbackFrom string) (*Response, error) {
	tc, ok := r.cfg.Tiers[tier]
	if !ok {
		return nil, fmt.Errorf("tier %q not configured", tier)
	}
	client := r.clients[tier]

	req := openai.ChatCompletionRequest{
		Model:       tc.Model,
		MaxTokens:   tc.MaxTokens,
		Temperature: tc.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
	}

	metadata := ""
	if fallbackFrom != "" {
		metadata = fmt.Sprintf(`{"fallbackFrom":%q}`, fallbackFrom)
	}

	start := time.Now()
	resp, err := client.CreateChatCompletion(ctx, req)
	latency := time.Since(start)

	if err != nil {
		r.recordUsage(models.ModelUsage{
			AgentID:   agentID,
			StepID:    stepID,
			ModelName: tc.Model,
			Tier:      tier,
			LatencyMS: latency.Milliseconds(),
			Success:   false,
			Error:     err.Error(),
			Metadata:  metadata,
		})
		return nil, fmt.Errorf("chat completion failed on %s: %w", tier, err)
	}

	if len(resp.Choices) == 0 {
		r.recordUsage(models.ModelUsage{
			AgentID:   agentID,
			StepID:    stepID,
			ModelName: tc.Model,
			Tier:      tier,
			LatencyMS: latency.Milliseconds(),
			Success:   false,
			Error:     "empty choices in response",
			Metadata:  metadata,
		})
		return nil, fmt.Errorf("chat completion on %s returned no choices", tier)
	}

	r.recordUsage(models.ModelUsage{
		AgentID:       agentID,
		StepID:        stepID,
		ModelName:     tc.Model,
		Tier:          tier,
		InputTokens:   resp.Usage.PromptTokens,
		OutputTokens:  resp.Usage.CompletionTokens,
		EstimatedCost: tc.EstimateCost(resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
		LatencyMS:     latency.Milliseconds(),
		Success:       true,
		Metadata:      metadata,
	})

	return &Response{
		Content:      resp.Choices[0].Message.Content,
		Model:        tc.Model,
		Tier:         tier,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

// recordUsage writes the accounting row. Accounting failures are logged,
// never propagated — they must not fail the call itself.
func (r *Router) recordUsage(u models.ModelUsage) {
	if r.usage == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.usage.RecordUsage(ctx, u); err != nil {
		r.logger.Error("Failed to record model usage", "tier", u.Tier, "error", err)
	}
}

// ValidateKey performs a cheap provider call to confirm the tier-1 API key
// works. Used by the periodic health checks.
func (r *Router) ValidateKey(ctx context.Context) error {
	client, ok := r.clients[models.TierT1]
	if !ok {
		return fmt.Errorf("tier t1 not configured")
	}
	_, err := client.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("model provider key validation failed: %w", err)
	}
	return nil
}
