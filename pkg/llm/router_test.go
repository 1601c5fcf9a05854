package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voxyz/agentworld/pkg/models"
)

// newTierServer returns an httptest server speaking just enough of the
// chat-completions protocol, failing the first failCount requests with 500.
func newTierServer(t *testing.T, content string, failCount int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if int(n) <= failCount {
			http.Error(w, "upstream exploded", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 20},
		})
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func testConfig(t1URL, t2URL, t3URL string) Config {
	tier := func(model, url string) TierConfig {
		return TierConfig{
			Model:          model,
			BaseURL:        url + "/v1",
			APIKey:         "test-key",
			MaxTokens:      100,
			Temperature:    0.7,
			InputUSDPer1K:  0.001,
			OutputUSDPer1K: 0.002,
		}
	}
	return Config{
		RequestTimeout: 10 * time.Second,
		Tiers: map[models.ModelTier]TierConfig{
			models.TierT1: tier("tiny", t1URL),
			models.TierT2: tier("mid", t2URL),
			models.TierT3: tier("big", t3URL),
		},
	}
}

func newTestRouter(cfg Config) *Router {
	r := NewRouter(cfg, nil)
	r.sleep = func(context.Context, time.Duration) error { return nil }
	return r
}

func TestCallTier1Success(t *testing.T) {
	t1, calls := newTierServer(t, "hello from t1", 0)
	r := newTestRouter(testConfig(t1.URL, t1.URL, t1.URL))

	resp, err := r.Call(context.Background(), "sys", "user", models.TierT1, "agent", "step")
	require.NoError(t, err)
	assert.Equal(t, "hello from t1", resp.Content)
	assert.Equal(t, models.TierT1, resp.Tier)
	assert.Equal(t, 10, resp.InputTokens)
	assert.Equal(t, 20, resp.OutputTokens)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCallTier1RetriesOnce(t *testing.T) {
	t1, calls := newTierServer(t, "second time lucky", 1)
	r := newTestRouter(testConfig(t1.URL, t1.URL, t1.URL))

	resp, err := r.Call(context.Background(), "sys", "user", models.TierT1, "agent", "step")
	require.NoError(t, err)
	assert.Equal(t, "second time lucky", resp.Content)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCallTier1SurfacesSecondFailure(t *testing.T) {
	t1, calls := newTierServer(t, "never", 99)
	r := newTestRouter(testConfig(t1.URL, t1.URL, t1.URL))

	_, err := r.Call(context.Background(), "sys", "user", models.TierT1, "agent", "step")
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCallTier2FallsBackToTier1(t *testing.T) {
	t2, t2calls := newTierServer(t, "never", 99)
	t1, t1calls := newTierServer(t, "t1 saves the day", 0)
	r := newTestRouter(testConfig(t1.URL, t2.URL, t2.URL))

	resp, err := r.Call(context.Background(), "sys", "user", models.TierT2, "agent", "step")
	require.NoError(t, err)
	assert.Equal(t, "t1 saves the day", resp.Content)
	assert.Equal(t, models.TierT1, resp.Tier)
	assert.Equal(t, int32(1), t2calls.Load())
	assert.Equal(t, int32(1), t1calls.Load())
}

func TestCallTier3FallbackChain(t *testing.T) {
	t3, _ := newTierServer(t, "never", 99)
	t2, _ := newTierServer(t, "never", 99)
	t1, _ := newTierServer(t, "bottom of the ladder", 0)
	r := newTestRouter(testConfig(t1.URL, t2.URL, t3.URL))

	resp, err := r.Call(context.Background(), "sys", "user", models.TierT3, "agent", "step")
	require.NoError(t, err)
	assert.Equal(t, "bottom of the ladder", resp.Content)
	assert.Equal(t, models.TierT1, resp.Tier)
}

func TestCallTier3StopsAtTier2(t *testing.T) {
	t3, _ := newTierServer(t, "never", 99)
	t2, _ := newTierServer(t, "t2 handles it", 0)
	t1, t1calls := newTierServer(t, "unused", 0)
	r := newTestRouter(testConfig(t1.URL, t2.URL, t3.URL))

	resp, err := r.Call(context.Background(), "sys", "user", models.TierT3, "agent", "step")
	require.NoError(t, err)
	assert.Equal(t, "t2 handles it", resp.Content)
	assert.Equal(t, models.TierT2, resp.Tier)
	assert.Equal(t, int32(0), t1calls.Load())
}

func TestCallUnknownTier(t *testing.T) {
	t1, _ := newTierServer(t, "x", 0)
	r := newTestRouter(testConfig(t1.URL, t1.URL, t1.URL))

	_, err := r.Call(context.Background(), "sys", "user", models.ModelTier("t9"), "agent", "step")
	require.Error(t, err)
}

func TestEstimateCost(t *testing.T) {
	tc := TierConfig{InputUSDPer1K: 0.001, OutputUSDPer1K: 0.002}
	assert.InDelta(t, 0.001*2+0.002*3, tc.EstimateCost(2000, 3000), 1e-9)
	assert.Zero(t, tc.EstimateCost(0, 0))
}
