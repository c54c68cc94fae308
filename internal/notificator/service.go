package notificator

import (
	"context"

	"go.uber.org/zap"
)

// Service logs delivery problems; callers may ignore the returned error.
type Service struct {
	infra  Notificator
	logger *zap.Logger
}

func NewService(infra Notificator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{infra: infra, logger: logger.With(zap.String("component", "notificator"))}
}

func (s *Service) Notify(ctx context.Context, err error, details string) error {
	if sendErr := s.infra.Notify(ctx, err, details); sendErr != nil {
		s.logger.Warn("admin notify failed", zap.Error(sendErr))
		return sendErr
	}
	return nil
}

func (s *Service) UserNotify(ctx context.Context, chatID int64, text string) error {
	if err := s.infra.UserNotify(ctx, chatID, text); err != nil {
		s.logger.Warn("user notify failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return err
	}
	return nil
}
