package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Vovarama1992/kisan_voice/internal/audio"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxDownload is the Bot API limit for getFile downloads.
const maxDownload = 20 << 20

type Downloader struct {
	client *http.Client
}

// NewDownloader uses an instrumented client when client is nil.
func NewDownloader(client *http.Client) *Downloader {
	if client == nil {
		client = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   60 * time.Second,
		}
	}
	return &Downloader{client: client}
}

func (d *Downloader) Download(ctx context.Context, url string, dst *audio.File) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download: unexpected status %d", resp.StatusCode)
	}

	if _, err := dst.Fill(io.LimitReader(resp.Body, maxDownload)); err != nil {
		return fmt.Errorf("download: %w", err)
	}
	return nil
}
