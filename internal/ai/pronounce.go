package ai

import (
	"context"
	"fmt"

	"github.com/Vovarama1992/kisan_voice/internal/lang"
	"github.com/Vovarama1992/kisan_voice/internal/remote"
	"github.com/Vovarama1992/kisan_voice/internal/script"
	"go.uber.org/zap"
)

const PurposeRomanizer = "TTS Romanizer"

// minTransliteratedASCII is the share of ASCII a romanized reply must reach to be used.
const minTransliteratedASCII = 0.8

type Outcome string

const (
	AlreadyRomanized       Outcome = "already_romanized"
	NativeScript           Outcome = "native_script"
	Transliterated         Outcome = "transliterated"
	TransliterationSkipped Outcome = "transliteration_skipped"
)

// Prepared is the text handed to the synthesizer.
type Prepared struct {
	Text    string
	Outcome Outcome
	Reason  string
}

// Pronouncer rewrites scripts the synthesizer cannot voice into Latin letters.
type Pronouncer struct {
	gen    TextGenerator
	caller *remote.Caller
	logger *zap.Logger
}

func NewPronouncer(gen TextGenerator, caller *remote.Caller, logger *zap.Logger) *Pronouncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pronouncer{
		gen:    gen,
		caller: caller,
		logger: logger.With(zap.String("component", "pronouncer")),
	}
}

// Prepare never fails: any problem falls back to the original text.
func (p *Pronouncer) Prepare(ctx context.Context, text, language string) Prepared {
	switch script.Classify(text, language) {
	case script.AlreadyRomanized:
		return Prepared{Text: text, Outcome: AlreadyRomanized}
	case script.NativeScriptOk:
		return Prepared{Text: text, Outcome: NativeScript}
	}

	system := RomanizerPrompt(language)
	romanized, err := p.caller.Text(ctx, PurposeRomanizer, func(ctx context.Context) (string, error) {
		return p.gen.Generate(ctx, system, "Romanize: "+text)
	})
	if err != nil {
		p.logger.Warn("romanization failed, keeping original", zap.String("language", language), zap.Error(err))
		return Prepared{Text: text, Outcome: TransliterationSkipped, Reason: err.Error()}
	}

	if ratio := script.ASCIIRatio(romanized); ratio <= minTransliteratedASCII {
		p.logger.Warn("romanized text still not latin, keeping original",
			zap.String("language", language),
			zap.Float64("ascii_ratio", ratio),
		)
		return Prepared{
			Text:    text,
			Outcome: TransliterationSkipped,
			Reason:  fmt.Sprintf("romanized text is only %.0f%% ASCII", ratio*100),
		}
	}

	return Prepared{Text: romanized, Outcome: Transliterated}
}

func RomanizerPrompt(language string) string {
	return fmt.Sprintf(
		"Convert %s to romanized pronunciation.\nDo NOT translate. Write phonetically in English letters.\nOutput ONLY the romanized text.",
		lang.Name(language, language),
	)
}
