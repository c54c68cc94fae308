package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Vovarama1992/kisan_voice/internal/audio"
	"github.com/Vovarama1992/kisan_voice/internal/remote"
)

const (
	DefaultElevenLabsURL   = "https://api.elevenlabs.io"
	DefaultElevenLabsVoice = "JBFqnCBsd6RMkjVDRZzb"
	ElevenLabsModel        = "eleven_multilingual_v2"
)

type ElevenLabsClient struct {
	apiKey  string
	voiceID string
	baseURL string
	httpCli *http.Client
}

func NewElevenLabsClient(apiKey, voiceID, baseURL string, httpCli *http.Client) (*ElevenLabsClient, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: api key is empty")
	}
	if voiceID == "" {
		voiceID = DefaultElevenLabsVoice
	}
	if baseURL == "" {
		baseURL = DefaultElevenLabsURL
	}
	if httpCli == nil {
		httpCli = http.DefaultClient
	}
	return &ElevenLabsClient{
		apiKey:  apiKey,
		voiceID: voiceID,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpCli: httpCli,
	}, nil
}

// TEXT → SPEECH
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text string, out *audio.File) error {
	url := fmt.Sprintf("%s/v1/text-to-speech/%s", c.baseURL, c.voiceID)

	payload, err := json.Marshal(map[string]string{
		"text":     text,
		"model_id": ElevenLabsModel,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("elevenlabs: %w", &remote.StatusError{Code: resp.StatusCode, Body: string(b)})
	}

	if _, err := out.Fill(resp.Body); err != nil {
		return fmt.Errorf("elevenlabs audio: %w", err)
	}
	return nil
}
