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
	"github.com/Vovarama1992/kisan_voice/internal/lang"
	"github.com/Vovarama1992/kisan_voice/internal/remote"
)

const DefaultDeepgramURL = "https://api.deepgram.com"

type DeepgramClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewDeepgramClient(apiKey, baseURL string, client *http.Client) (*DeepgramClient, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: api key is empty")
	}
	if baseURL == "" {
		baseURL = DefaultDeepgramURL
	}
	if client == nil {
		client = &http.Client{}
	}
	return &DeepgramClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}, nil
}

func (c *DeepgramClient) Transcribe(ctx context.Context, in *audio.File) (Transcript, error) {
	data, err := in.Bytes()
	if err != nil {
		return Transcript{}, fmt.Errorf("read audio file: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/v1/listen?model=nova-2&smart_format=true&detect_language=true",
		bytes.NewReader(data),
	)
	if err != nil {
		return Transcript{}, err
	}

	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Content-Type", in.MediaType)

	resp, err := c.client.Do(req)
	if err != nil {
		return Transcript{}, fmt.Errorf("deepgram request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return Transcript{}, fmt.Errorf("deepgram: %w", &remote.StatusError{Code: resp.StatusCode, Body: string(body)})
	}

	var parsed struct {
		Results struct {
			Channels []struct {
				DetectedLanguage string `json:"detected_language"`
				Alternatives     []struct {
					Transcript string `json:"transcript"`
				} `json:"alternatives"`
			} `json:"channels"`
		} `json:"results"`
	}

	if err := json.Unmarshal(body, &parsed); err != nil {
		return Transcript{}, fmt.Errorf("decode deepgram: %w", err)
	}

	if len(parsed.Results.Channels) == 0 ||
		len(parsed.Results.Channels[0].Alternatives) == 0 {
		return Transcript{}, remote.ErrEmptyResponse
	}

	ch := parsed.Results.Channels[0]
	return Transcript{
		Text:     ch.Alternatives[0].Transcript,
		Language: lang.Code(ch.DetectedLanguage),
	}, nil
}
