package telegram

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/Vovarama1992/kisan_voice/internal/audio"
	"github.com/Vovarama1992/kisan_voice/internal/pipeline"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const SourceName = "telegram"

const (
	HintText           = "🎙 Please send a voice message. I will reply in voice."
	DownloadFailedText = "Audio file process nahi ho paayi. Please dubara bhejein."
	errorTextFormat    = "❌ Sorry, there was an error processing your message: %s"
)

// Notifier reports failures to the user and to the admins.
type Notifier interface {
	Notify(ctx context.Context, err error, details string) error
	UserNotify(ctx context.Context, chatID int64, text string) error
}

// Relay answers one Telegram message.
type Relay struct {
	orch     *pipeline.Orchestrator
	msgr     Messenger
	dl       *Downloader
	ws       *audio.Workspace
	notifier Notifier
	logger   *zap.Logger
}

func NewRelay(
	orch *pipeline.Orchestrator,
	msgr Messenger,
	dl *Downloader,
	ws *audio.Workspace,
	notifier Notifier,
	logger *zap.Logger,
) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{
		orch:     orch,
		msgr:     msgr,
		dl:       dl,
		ws:       ws,
		notifier: notifier,
		logger:   logger.With(zap.String("component", "relay")),
	}
}

// Handle runs msg to completion. Failures are reported to the chat, never returned.
func (r *Relay) Handle(ctx context.Context, msg *tgbotapi.Message) *pipeline.Run {
	if msg == nil || msg.Chat == nil {
		return nil
	}
	chatID := msg.Chat.ID

	fileID, ext := voiceFile(msg)
	if fileID == "" {
		run, err := r.orch.Reply(ctx, SourceName, pipeline.UnsupportedContent, func(ctx context.Context) error {
			return r.msgr.SendText(ctx, chatID, HintText)
		})
		if err != nil {
			r.logger.Warn("hint not sent", zap.Int64("chat_id", chatID), zap.Error(err))
		}
		return run
	}

	r.logger.Info("voice received", zap.Int64("chat_id", chatID), zap.String("file_id", fileID))

	src := &VoiceSource{msgr: r.msgr, dl: r.dl, ws: r.ws, fileID: fileID, ext: ext}
	run, err := r.orch.Run(ctx, src, &VoiceSink{msgr: r.msgr, chatID: chatID})
	if err != nil {
		r.reportFailure(ctx, run, chatID, err)
	}
	return run
}

func (r *Relay) reportFailure(ctx context.Context, run *pipeline.Run, chatID int64, err error) {
	if errors.Is(ctx.Err(), context.Canceled) {
		r.logger.Warn("run cancelled during shutdown, user not notified",
			zap.String("run_id", run.ID), zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}

	var se *pipeline.StageError
	if errors.As(err, &se) && se.Kind == pipeline.DownloadFailed {
		_ = r.notifier.UserNotify(ctx, chatID, DownloadFailedText)
		return
	}

	_ = r.notifier.UserNotify(ctx, chatID, fmt.Sprintf(errorTextFormat, err.Error()))

	details := fmt.Sprintf("run=%s chat=%d", run.ID, chatID)
	if se != nil {
		details = fmt.Sprintf("%s stage=%s kind=%s", details, se.Stage, se.Kind)
	}
	_ = r.notifier.Notify(ctx, err, details)
}

// voiceFile picks the audio attachment of msg, if any.
func voiceFile(msg *tgbotapi.Message) (fileID, ext string) {
	switch {
	case msg.Voice != nil:
		return msg.Voice.FileID, ".ogg"
	case msg.Audio != nil:
		ext = filepath.Ext(msg.Audio.FileName)
		if ext == "" {
			ext = ".ogg"
		}
		return msg.Audio.FileID, ext
	}
	return "", ""
}

// VoiceSource downloads a Telegram voice file into the workspace.
type VoiceSource struct {
	msgr   Messenger
	dl     *Downloader
	ws     *audio.Workspace
	fileID string
	ext    string
}

func (s *VoiceSource) Name() string { return SourceName }

func (s *VoiceSource) Fetch(ctx context.Context) (*audio.File, error) {
	url, err := s.msgr.FileURL(ctx, s.fileID)
	if err != nil {
		return nil, err
	}
	f := s.ws.NewFile("telegram_input", s.ext)
	if err := s.dl.Download(ctx, url, f); err != nil {
		f.Release()
		return nil, err
	}
	return f, nil
}

// VoiceSink sends the reply as a Telegram voice message.
type VoiceSink struct {
	msgr   Messenger
	chatID int64
}

func (s *VoiceSink) Deliver(ctx context.Context, _ *pipeline.Run, reply *audio.File) error {
	return s.msgr.SendVoice(ctx, s.chatID, reply.Path)
}
