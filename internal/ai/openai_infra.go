package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Vovarama1992/kisan_voice/internal/remote"
	openai "github.com/sashabaranov/go-openai"
)

type OpenAIClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIClient(apiKey, baseURL, model string, httpClient *http.Client) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, system, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", OpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// OpenAIError lifts the HTTP status out of go-openai errors so the retry
// classifier sees it.
func OpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return fmt.Errorf("openai: %w", &remote.StatusError{Code: apiErr.HTTPStatusCode, Body: apiErr.Message})
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return fmt.Errorf("openai: %w", &remote.StatusError{Code: reqErr.HTTPStatusCode, Body: reqErr.Error()})
	}
	return fmt.Errorf("openai: %w", err)
}
