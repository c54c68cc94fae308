package speech

import (
	"context"
	"net/http"

	"github.com/Vovarama1992/kisan_voice/internal/ai"
	"github.com/Vovarama1992/kisan_voice/internal/audio"
	"github.com/Vovarama1992/kisan_voice/internal/lang"
	openai "github.com/sashabaranov/go-openai"
)

type WhisperClient struct {
	client *openai.Client
}

func NewWhisperClient(apiKey, baseURL string, httpClient *http.Client) *WhisperClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &WhisperClient{client: openai.NewClientWithConfig(cfg)}
}

// Transcribe asks for verbose JSON so the detected language comes back with the text.
func (c *WhisperClient) Transcribe(ctx context.Context, in *audio.File) (Transcript, error) {
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: in.Path,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return Transcript{}, ai.OpenAIError(err)
	}
	return Transcript{Text: resp.Text, Language: lang.Code(resp.Language)}, nil
}
