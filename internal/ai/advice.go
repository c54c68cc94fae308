package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/Vovarama1992/kisan_voice/internal/lang"
	"github.com/Vovarama1992/kisan_voice/internal/remote"
	"go.uber.org/zap"
)

const PurposeAdvice = "Agricultural Advisor"

// Advisor asks the text model for a short agricultural reply in the farmer's language.
type Advisor struct {
	gen    TextGenerator
	caller *remote.Caller
	logger *zap.Logger
}

func NewAdvisor(gen TextGenerator, caller *remote.Caller, logger *zap.Logger) *Advisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Advisor{
		gen:    gen,
		caller: caller,
		logger: logger.With(zap.String("component", "advisor")),
	}
}

func (a *Advisor) Advise(ctx context.Context, query, language string) (string, error) {
	start := time.Now()
	system := AdvisorPrompt(language)

	reply, err := a.caller.Text(ctx, PurposeAdvice, func(ctx context.Context) (string, error) {
		return a.gen.Generate(ctx, system, query)
	})
	if err != nil {
		return "", err
	}

	a.logger.Info("advice ready",
		zap.String("language", language),
		zap.Int("chars", len([]rune(reply))),
		zap.Duration("took", time.Since(start)),
	)
	return reply, nil
}

// AdvisorPrompt is the system instruction for a reply in the given language code.
func AdvisorPrompt(language string) string {
	name := lang.Name(language, "the user's language")
	return fmt.Sprintf(
		"You are an agricultural advisor for Indian farmers.\nRespond in %s. %s\nKeep answers SHORT (2-3 sentences) for voice output.",
		name, styleNote(language, name),
	)
}

func styleNote(code, name string) string {
	switch {
	case code == lang.Default:
		return "Use casual Hinglish."
	case lang.IsDevanagari(code):
		return "Respond naturally in " + name + "."
	default:
		return "Use natural " + name + "."
	}
}
