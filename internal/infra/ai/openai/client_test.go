package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/newsgate/internal/domain/faults"
)

func completionServer(t *testing.T, status int, content string, seen *openai.ChatCompletionRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"upstream exploded","type":"server_error"}}`))
			return
		}
		resp := openai.ChatCompletionResponse{
			ID:     "chatcmpl-1",
			Object: "chat.completion",
			Model:  "gpt-4o-mini",
			Choices: []openai.ChatCompletionChoice{{
				Index:        0,
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
				FinishReason: openai.FinishReasonStop,
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClassify_Success(t *testing.T) {
	var seen openai.ChatCompletionRequest
	srv := completionServer(t, http.StatusOK,
		`{"label":"FAKE","confidence":0.8,"probs":[0.8,0.2],"explanation":{"summary":"s","method":"llm_rationale_v1","highlights":[{"span":"shocking","score":0.9}]}}`,
		&seen)
	c := NewClient("sk-test", "gpt-4o-mini", srv.URL+"/v1")

	a, err := c.Classify(context.Background(), "A shocking claim")

	require.NoError(t, err)
	assert.Equal(t, "FAKE", a.Label)
	assert.Equal(t, []float64{0.8, 0.2}, a.Probs)
	require.NotNil(t, a.Explanation)
	assert.Equal(t, "llm_rationale_v1", a.Explanation.Method)

	require.Len(t, seen.Messages, 2)
	assert.True(t, strings.HasSuffix(seen.Messages[1].Content, "A shocking claim"))
	assert.Equal(t, 1024, seen.MaxTokens)
}

func TestClassify_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		content string
		want    error
	}{
		{"server error", http.StatusInternalServerError, "", faults.ErrServiceUnavailable},
		{"rate limited", http.StatusTooManyRequests, "", faults.ErrServiceUnavailable},
		{"empty content", http.StatusOK, "", faults.ErrInvalidUpstream},
		{"not json", http.StatusOK, "I think it is fake.", faults.ErrInvalidUpstream},
		{"unknown label", http.StatusOK, `{"label":"SATIRE","confidence":0.7,"probs":[0.3,0.7]}`, faults.ErrInvalidUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := completionServer(t, tt.status, tt.content, nil)
			c := NewClient("sk-test", "", srv.URL+"/v1")

			_, err := c.Classify(context.Background(), "x")

			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClassify_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient("sk-test", "", url+"/v1")
	_, err := c.Classify(context.Background(), "x")

	assert.ErrorIs(t, err, faults.ErrServiceUnavailable)
}
