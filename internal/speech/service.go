package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Vovarama1992/kisan_voice/internal/audio"
	"github.com/Vovarama1992/kisan_voice/internal/lang"
	"github.com/Vovarama1992/kisan_voice/internal/remote"
	"go.uber.org/zap"
)

const PurposeTranscription = "Speech To Text"

// === Transcription stage ===

type Transcription struct {
	stt    Transcriber
	caller *remote.Caller
	logger *zap.Logger
}

func NewTranscription(stt Transcriber, caller *remote.Caller, logger *zap.Logger) *Transcription {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transcription{
		stt:    stt,
		caller: caller,
		logger: logger.With(zap.String("component", "transcription")),
	}
}

// Transcribe retries empty transcripts like any other failure.
func (s *Transcription) Transcribe(ctx context.Context, in *audio.File) (Transcript, error) {
	start := time.Now()

	t, err := remote.Call(ctx, s.caller, PurposeTranscription,
		func(ctx context.Context) (Transcript, error) { return s.stt.Transcribe(ctx, in) },
		func(t Transcript) bool { return strings.TrimSpace(t.Text) == "" },
	)
	if err != nil {
		return Transcript{}, err
	}

	t.Text = strings.TrimSpace(t.Text)
	if !lang.Known(t.Language) {
		t.Language = lang.Default
	}

	s.logger.Info("transcribed",
		zap.String("language", t.Language),
		zap.Int("chars", len([]rune(t.Text))),
		zap.Duration("took", time.Since(start)),
	)
	return t, nil
}

// === Synthesis stage ===

type Synthesis struct {
	tts       Synthesizer
	workspace *audio.Workspace
	logger    *zap.Logger
}

func NewSynthesis(tts Synthesizer, workspace *audio.Workspace, logger *zap.Logger) *Synthesis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesis{
		tts:       tts,
		workspace: workspace,
		logger:    logger.With(zap.String("component", "synthesis")),
	}
}

// Synthesize makes one attempt. The returned file belongs to the caller.
func (s *Synthesis) Synthesize(ctx context.Context, text string) (*audio.File, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("synthesis: empty text")
	}

	start := time.Now()
	out := s.workspace.NewFile("eleven", ".mp3")
	if err := s.tts.Synthesize(ctx, text, out); err != nil {
		out.Release()
		return nil, fmt.Errorf("synthesis: %w", err)
	}

	s.logger.Info("synthesized", zap.Duration("took", time.Since(start)))
	return out, nil
}
