package openai

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/newsgate/internal/domain/analyses"
	"github.com/bryanwahyu/newsgate/internal/domain/faults"
	"github.com/bryanwahyu/newsgate/internal/infra/ai"
	"github.com/bryanwahyu/newsgate/internal/infra/ai/prompt"
)

const (
	maxTokens    = 1024
	defaultModel = "gpt-4o-mini"
)

// DefaultLabels match the labels of the HTTP analysis service.
var DefaultLabels = []string{"FAKE", "REAL"}

type Client struct {
	*openai.Client
	Model  string
	Labels []string
}

// NewClient builds a client; baseURL may be empty for the public API.
func NewClient(apiKey, model, baseURL string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model}
}

func (c *Client) Classify(ctx context.Context, text string) (*analyses.Analysis, error) {
	const op = "openai.Classify"

	model := c.Model
	if model == "" {
		model = defaultModel
	}
	labels := c.Labels
	if len(labels) == 0 {
		labels = DefaultLabels
	}
	req := openai.ChatCompletionRequest{
		Model: model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt(labels)},
			{Role: openai.ChatMessageRoleUser, Content: prompt.GetUserPrompt(text)},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			err = fmt.Errorf("openai status %d: %w", apiErr.HTTPStatusCode, err)
		}
		return nil, faults.ServiceUnavailable(op, err)
	}
	if len(resp.Choices) == 0 {
		return nil, faults.InvalidUpstream(op, "analysis service returned an empty response", nil)
	}

	a, err := ai.DecodeResponse(op, []byte(resp.Choices[0].Message.Content))
	if err != nil {
		return nil, err
	}
	if !slices.Contains(labels, a.Label) {
		return nil, faults.InvalidUpstream(op, "analysis service returned an unknown label",
			fmt.Errorf("label %q", a.Label))
	}
	return a, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.ListModels(ctx); err != nil {
		return fmt.Errorf("openai not reachable: %w", err)
	}
	return nil
}
