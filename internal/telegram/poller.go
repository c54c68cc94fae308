package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Poll feeds long-polled updates into intake until ctx ends. Used when no
// public webhook URL is available.
func (c *BotClient) Poll(ctx context.Context, intake *Intake, logger *zap.Logger) {
	if err := c.DeleteWebhook(); err != nil {
		logger.Warn("delete webhook before polling", zap.Error(err))
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := c.bot.GetUpdatesChan(u)
	defer c.bot.StopReceivingUpdates()
	logger.Info("polling started", zap.String("bot", c.bot.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			logger.Info("polling stopped")
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			if status := intake.Accept(ctx, upd); status == StatusError {
				logger.Warn("polled update dropped", zap.Int("update_id", upd.UpdateID))
			}
		}
	}
}
