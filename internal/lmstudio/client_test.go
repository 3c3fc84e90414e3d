package lmstudio

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algorithm-audits/audits/internal/audit"
)

// fakeServer answers chat completions with reply and records the last request.
func fakeServer(t *testing.T, reply string, last *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case apiPathModels:
			_, _ = w.Write([]byte(`{"data":[{"id":"google/gemma-3n-e4b"},{"id":"other"}]}`))
		case apiPathCompletions:
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			var req chatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			if last != nil {
				*last = req
			}
			resp := map[string]any{
				"choices": []any{map[string]any{"message": map[string]string{"role": "assistant", "content": reply}}},
			}
			_ = json.NewEncoder(w).Encode(resp)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient()
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, DefaultModel, c.ModelName())
	assert.Equal(t, DefaultTimeout, c.client.Timeout)
	assert.Equal(t, DefaultAbstractMax, c.abstractMax)
	assert.Nil(t, c.limiter)
}

func TestNewClient_WithOptions(t *testing.T) {
	c := NewClient(
		WithBaseURL("http://host:9999/"),
		WithModel("m"),
		WithTimeout(5*time.Second),
		WithRateLimit(2),
		WithAbstractMax(10),
	)
	assert.Equal(t, "http://host:9999", c.baseURL)
	assert.Equal(t, "m", c.model)
	assert.Equal(t, 5*time.Second, c.client.Timeout)
	require.NotNil(t, c.limiter)
	assert.Equal(t, 10, c.abstractMax)

	assert.Nil(t, NewClient(WithRateLimit(0)).limiter)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		reply string
		want  bool
	}{
		{"yes", true},
		{"Yes.", true},
		{"  YES, it is", true},
		{"no", false},
		{"maybe yes", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			var req chatRequest
			srv := fakeServer(t, tt.reply, &req)
			c := NewClient(WithBaseURL(srv.URL))

			got, err := c.Classify(context.Background(), audit.Study{Title: "T"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, classifyMaxTokens, req.MaxTokens)
			assert.Equal(t, DefaultModel, req.Model)
			assert.Zero(t, req.Temperature)
			require.Len(t, req.Messages, 1)
			assert.Equal(t, "user", req.Messages[0].Role)
		})
	}
}

func TestExtract(t *testing.T) {
	var req chatRequest
	reply := "Sure!\n```json\n{\"method\": [\"Direct scrape\", \"Sock puppets\"], \"domain\": \"Search\", \"organization\": null, \"behavior\": \"Distortion\"}\n```"
	srv := fakeServer(t, reply, &req)
	c := NewClient(WithBaseURL(srv.URL))

	got, err := c.Extract(context.Background(), audit.Study{Title: "T", Abstract: "A"})
	require.NoError(t, err)
	assert.Equal(t, audit.Extraction{
		Method:   "Direct scrape\nSock puppets",
		Domain:   "Search",
		Behavior: "Distortion",
	}, got)
	assert.Equal(t, extractMaxTokens, req.MaxTokens)
	assert.Contains(t, req.Messages[0].Content, "Respond in EXACTLY this JSON format")
}

func TestExtract_NoJSON(t *testing.T) {
	srv := fakeServer(t, "I cannot help with that.", nil)
	c := NewClient(WithBaseURL(srv.URL))

	_, err := c.Extract(context.Background(), audit.Study{Title: "T"})
	assert.True(t, errors.Is(err, ErrNoJSON))
}

func TestComplete_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).Complete(context.Background(), "hi", 5)
	require.Error(t, err)
	assert.True(t, IsModelNotLoaded(err))
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestComplete_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).Complete(context.Background(), "hi", 5)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestComplete_ContextCanceled(t *testing.T) {
	srv := fakeServer(t, "yes", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(WithBaseURL(srv.URL)).Complete(ctx, "hi", 5)
	assert.Error(t, err)
}

func TestComplete_RateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"no"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(20))
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.Complete(context.Background(), "hi", 1)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), calls.Load())
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestIsAvailableAndHasModel(t *testing.T) {
	srv := fakeServer(t, "", nil)

	c := NewClient(WithBaseURL(srv.URL))
	require.NoError(t, c.IsAvailable(context.Background()))

	ok, err := c.HasModel(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = NewClient(WithBaseURL(srv.URL), WithModel("missing")).HasModel(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsAvailable_ServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewClient(WithBaseURL(url), WithTimeout(time.Second)).IsAvailable(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not running"))
}
