package speech

import (
	"context"

	"github.com/Vovarama1992/kisan_voice/internal/audio"
)

// === Interfaces ===

// Transcript is what a recognizer heard and the language code it settled on.
type Transcript struct {
	Text     string
	Language string
}

type Transcriber interface {
	Transcribe(ctx context.Context, in *audio.File) (Transcript, error)
}

// Synthesizer voices text into out, which it creates.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, out *audio.File) error
}
