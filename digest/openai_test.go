package digest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newOpenAIServer(t *testing.T, handler http.HandlerFunc) *OpenAISummarizer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAISummarizer(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"}, zap.NewNop())
}

func TestOpenAISummarize(t *testing.T) {
	var req struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		Messages  []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	s := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-3.5-turbo",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "*Alpha*: news"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13}
		}`))
	})

	out, err := s.Summarize(context.Background(), []SourceMessage{
		{ChannelTitle: "Alpha", Content: "post", Link: "https://t.me/alpha/1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "*Alpha*: news", out)

	assert.Equal(t, "gpt-3.5-turbo", req.Model)
	assert.Equal(t, 1000, req.MaxTokens)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "**Alpha:**\n- [post](https://t.me/alpha/1)\n", req.Messages[1].Content)
}

func TestOpenAISummarizeEmpty(t *testing.T) {
	s := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unexpected request")
	})
	out, err := s.Summarize(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestOpenAISummarizeErrors(t *testing.T) {
	msgs := []SourceMessage{{ChannelTitle: "A", Content: "x"}}
	for _, tc := range []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "Unauthorized",
			status: http.StatusUnauthorized,
			body:   `{"error":{"message":"Incorrect API key","type":"invalid_request_error"}}`,
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrUnauthorized) },
		},
		{
			name:   "RateLimited",
			status: http.StatusTooManyRequests,
			body:   `{"error":{"message":"slow down","type":"requests"}}`,
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrRateLimited) },
		},
		{
			name:   "ServerError",
			status: http.StatusBadGateway,
			body:   `bad gateway`,
			check: func(t *testing.T, err error) {
				var httpErr *HTTPError
				require.ErrorAs(t, err, &httpErr)
				assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
				assert.True(t, httpErr.Is5xx())
			},
		},
		{
			name:   "NoChoices",
			status: http.StatusOK,
			body:   `{"id":"x","object":"chat.completion","choices":[]}`,
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrEmptyResponse) },
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := s.Summarize(context.Background(), msgs)
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestHTTPErrorIs5xx(t *testing.T) {
	assert.False(t, (&HTTPError{StatusCode: 404}).Is5xx())
	assert.True(t, (&HTTPError{StatusCode: 500}).Is5xx())
	assert.False(t, (&HTTPError{StatusCode: 600}).Is5xx())
}
