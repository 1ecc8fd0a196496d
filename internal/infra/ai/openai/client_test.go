package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/unitecon/internal/config"
	"github.com/bryanwahyu/unitecon/internal/domain/analysis"
)

const testKey = "sk-or-v1-secret-test-key"

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(config.AI{
		APIKey:   testKey,
		BaseURL:  srv.URL + "/",
		Model:    "test/model",
		Referer:  "https://example.test",
		AppTitle: "Test App",
	})
	return c, &calls
}

func completion(content string) map[string]any {
	return map[string]any{
		"id":     "cmpl-1",
		"object": "chat.completion",
		"model":  "test/model",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
	}
}

func TestSend_RequestShape(t *testing.T) {
	var body map[string]any
	var header http.Header
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Clone()
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion(`{"ok":true}`))
	})

	out, err := c.Send(context.Background(), "sys", "usr")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
	assert.EqualValues(t, 1, calls.Load())

	assert.Equal(t, "Bearer "+testKey, header.Get("Authorization"))
	assert.Equal(t, "https://example.test", header.Get("HTTP-Referer"))
	assert.Equal(t, "Test App", header.Get("X-Title"))

	assert.Equal(t, "test/model", body["model"])
	assert.EqualValues(t, 2500, body["max_tokens"])
	assert.InDelta(t, 0.3, body["temperature"], 1e-6)
	assert.InDelta(t, 0.9, body["top_p"], 1e-6)
	assert.InDelta(t, 0.1, body["frequency_penalty"], 1e-6)
	assert.InDelta(t, 0.1, body["presence_penalty"], 1e-6)

	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "sys", msgs[0].(map[string]any)["content"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
	assert.Equal(t, "usr", msgs[1].(map[string]any)["content"])
}

func TestSend_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, analysis.ErrUpstreamUnauthorized},
		{http.StatusForbidden, analysis.ErrUpstreamUnauthorized},
		{http.StatusTooManyRequests, analysis.ErrUpstreamRateLimited},
		{http.StatusServiceUnavailable, analysis.ErrUpstreamUnavailable},
		{http.StatusBadGateway, analysis.ErrUpstreamUnavailable},
		{http.StatusBadRequest, analysis.ErrUpstreamBadRequest},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"upstream says no","type":"err"}}`))
			})
			_, err := c.Send(context.Background(), "s", "u")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.NotContains(t, err.Error(), testKey)
			assert.EqualValues(t, 1, calls.Load(), "no retry")
		})
	}
}

func TestSend_UnparseableErrorBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	})
	_, err := c.Send(context.Background(), "s", "u")
	assert.ErrorIs(t, err, analysis.ErrUpstreamRateLimited)
}

func TestSend_UnknownStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte(`{"error":{"message":"teapot"}}`))
	})
	_, err := c.Send(context.Background(), "s", "u")

	var unknown *analysis.UpstreamUnknownError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, http.StatusTeapot, unknown.Status)
}

func TestSend_EmptyChoices(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	})
	_, err := c.Send(context.Background(), "s", "u")
	assert.ErrorIs(t, err, analysis.ErrMalformedUpstreamResponse)
}

func TestSend_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(config.AI{APIKey: testKey, BaseURL: url, Model: "m"})
	_, err := c.Send(context.Background(), "s", "u")
	assert.ErrorIs(t, err, analysis.ErrUpstreamUnavailable)
	assert.NotContains(t, err.Error(), testKey)
}

func TestSend_MissingKeyChecksBeforeCall(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := NewClient(config.AI{APIKey: "your_api_key_here", BaseURL: srv.URL, Model: "m"})
	_, err := c.Send(context.Background(), "s", "u")
	assert.ErrorIs(t, err, analysis.ErrConfigurationMissing)
	assert.Zero(t, calls.Load())
}
