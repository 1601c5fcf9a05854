package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voxyz/agentworld/pkg/models"
)

func TestFetchStripsMarkup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Test &amp; Page</title>
<script>alert("nope")</script><style>body{color:red}</style></head>
<body><h1>Heading</h1><p>Real   content here.</p></body></html>`))
	}))
	defer server.Close()

	f := NewFetcher(0)
	res, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, "Test & Page", res.Title)
	assert.Contains(t, res.Content, "Heading")
	assert.Contains(t, res.Content, "Real content here.")
	assert.NotContains(t, res.Content, "alert")
	assert.NotContains(t, res.Content, "color:red")
	assert.NotContains(t, res.Content, "<p>")
}

func TestFetchNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	f := NewFetcher(0)
	_, err := f.Fetch(context.Background(), server.URL)
	require.Error(t, err)
}

func TestResolveWithoutWebMarkersSkipsFollowUp(t *testing.T) {
	r := NewResolver(NewSearcher("", 0), NewFetcher(0), nil)

	called := false
	call := func(ctx context.Context, msg string, tier models.ModelTier) (string, error) {
		called = true
		return "", nil
	}

	out, err := r.Resolve(context.Background(), "plain answer [SOCIAL_POST:hi]", "task", models.TierT1, call)
	require.NoError(t, err)
	assert.False(t, called, "no web markers means no follow-up call")
	assert.Equal(t, "plain answer", out)
}

func TestResolveFollowUpCarriesLiveWebData(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>live page body</body></html>"))
	}))
	defer page.Close()

	r := NewResolver(NewSearcher("", 0), NewFetcher(0), nil)

	var followUpMessage string
	var followUpTier models.ModelTier
	call := func(ctx context.Context, msg string, tier models.ModelTier) (string, error) {
		followUpMessage = msg
		followUpTier = tier
		return "final answer [WEB_SEARCH:should be stripped]", nil
	}

	out, err := r.Resolve(context.Background(),
		"[WEB_FETCH:"+page.URL+"]", "the task", models.TierT2, call)
	require.NoError(t, err)

	assert.Contains(t, followUpMessage, "LIVE WEB DATA")
	assert.Contains(t, followUpMessage, "live page body")
	assert.Contains(t, followUpMessage, "the task")
	assert.Equal(t, models.TierT2, followUpTier, "follow-up must reuse the same tier")
	assert.Equal(t, "final answer", out, "residual markers must be stripped")
}

func TestPrefetch(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>prefetched body</body></html>"))
	}))
	defer page.Close()

	r := NewResolver(NewSearcher("", 0), NewFetcher(0), nil)

	out := r.Prefetch(context.Background(), "Summarize "+page.URL+" for me")
	assert.Contains(t, out, "PRE-FETCHED URL CONTENT")
	assert.Contains(t, out, "prefetched body")
}

func TestPrefetchNoURLs(t *testing.T) {
	r := NewResolver(NewSearcher("", 0), NewFetcher(0), nil)
	assert.Empty(t, r.Prefetch(context.Background(), "nothing to fetch"))
}
