package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Vovarama1992/kisan_voice/internal/remote"
	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient talks to the Gemini API. baseURL is only set in tests.
func NewGeminiClient(ctx context.Context, apiKey, model, baseURL string, httpClient *http.Client) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: api key is empty")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, system, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), c.config(system))
	if err != nil {
		return "", geminiError(err)
	}
	return resp.Text(), nil
}

func (c *GeminiClient) GenerateFromAudio(ctx context.Context, system, prompt string, audio []byte, mimeType string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(audio, mimeType),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, c.config(system))
	if err != nil {
		return "", geminiError(err)
	}
	return resp.Text(), nil
}

func (c *GeminiClient) config(system string) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}
}

func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code != 0 {
		return fmt.Errorf("gemini %s: %w", apiErr.Status, &remote.StatusError{Code: apiErr.Code, Body: apiErr.Message})
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr.Code != 0 {
		return fmt.Errorf("gemini %s: %w", apiErrPtr.Status, &remote.StatusError{Code: apiErrPtr.Code, Body: apiErrPtr.Message})
	}
	return fmt.Errorf("gemini: %w", err)
}
