package telegram

import (
	"context"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	DefaultAPIEndpoint  = "https://api.telegram.org/bot%s/%s"
	DefaultFileEndpoint = "https://api.telegram.org/file/bot%s/%s"
)

// Messenger is the part of the Bot API the relay uses.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendVoice(ctx context.Context, chatID int64, path string) error
	FileURL(ctx context.Context, fileID string) (string, error)
}

type ClientConfig struct {
	Token        string
	APIEndpoint  string
	FileEndpoint string
	HTTPClient   *http.Client
}

type BotClient struct {
	bot          *tgbotapi.BotAPI
	fileEndpoint string
}

// NewBotClient calls getMe, so it fails fast on a bad token.
func NewBotClient(cfg ClientConfig) (*BotClient, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram: bot token is empty")
	}
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = DefaultAPIEndpoint
	}
	if cfg.FileEndpoint == "" {
		cfg.FileEndpoint = DefaultFileEndpoint
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, cfg.APIEndpoint, cfg.HTTPClient)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}
	return &BotClient{bot: bot, fileEndpoint: cfg.FileEndpoint}, nil
}

func (c *BotClient) UserName() string { return c.bot.Self.UserName }

func (c *BotClient) SendText(_ context.Context, chatID int64, text string) error {
	if _, err := c.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("sendMessage: %w", err)
	}
	return nil
}

func (c *BotClient) SendVoice(_ context.Context, chatID int64, path string) error {
	if _, err := c.bot.Send(tgbotapi.NewVoice(chatID, tgbotapi.FilePath(path))); err != nil {
		return fmt.Errorf("sendVoice: %w", err)
	}
	return nil
}

// FileURL resolves a file id into a one-off download link.
func (c *BotClient) FileURL(_ context.Context, fileID string) (string, error) {
	file, err := c.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return "", fmt.Errorf("getFile: %w", err)
	}
	if file.FilePath == "" {
		return "", fmt.Errorf("getFile: no file_path for %s", fileID)
	}
	return fmt.Sprintf(c.fileEndpoint, c.bot.Token, file.FilePath), nil
}

// SetWebhook registers url with Telegram. secret, when set, comes back in
// the X-Telegram-Bot-Api-Secret-Token header of every delivery.
func (c *BotClient) SetWebhook(url, secret string) error {
	params := tgbotapi.Params{"url": url}
	if secret != "" {
		params["secret_token"] = secret
	}
	if _, err := c.bot.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("setWebhook: %w", err)
	}
	return nil
}

func (c *BotClient) DeleteWebhook() error {
	if _, err := c.bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("deleteWebhook: %w", err)
	}
	return nil
}
