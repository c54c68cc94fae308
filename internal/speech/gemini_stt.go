package speech

import (
	"context"
	"fmt"
	"strings"

	"github.com/Vovarama1992/kisan_voice/internal/ai"
	"github.com/Vovarama1992/kisan_voice/internal/audio"
	"github.com/Vovarama1992/kisan_voice/internal/lang"
)

const geminiTranscriberPrompt = `You are an expert audio transcriber for Indian languages.

Your task:
1. Listen to the audio carefully
2. Transcribe EXACTLY what is spoken
3. Detect the language AND dialect

Output format:
LANGUAGE: [language name]
TEXT: [transcribed text]

Rules:
- Transcribe in the ORIGINAL script
- Do NOT translate to English
- For Hindi/Hinglish, keep English words as-is
- Distinguish between Hindi, Urdu, and Punjabi carefully
- Preserve the exact dialect spoken (e.g., Bhojpuri vs Hindi, Haryanvi vs Hindi)`

type GeminiTranscriber struct {
	gen ai.AudioGenerator
}

func NewGeminiTranscriber(gen ai.AudioGenerator) *GeminiTranscriber {
	return &GeminiTranscriber{gen: gen}
}

func (t *GeminiTranscriber) Transcribe(ctx context.Context, in *audio.File) (Transcript, error) {
	data, err := in.Bytes()
	if err != nil {
		return Transcript{}, fmt.Errorf("read audio file: %w", err)
	}

	reply, err := t.gen.GenerateFromAudio(ctx, geminiTranscriberPrompt, "Transcribe this audio.", data, in.MediaType)
	if err != nil {
		return Transcript{}, err
	}
	return ParseLabelled(reply), nil
}

// ParseLabelled reads a "LANGUAGE: ... / TEXT: ..." reply. Without both labels the
// whole reply is the text and the language is the default.
func ParseLabelled(reply string) Transcript {
	reply = strings.TrimSpace(reply)
	out := Transcript{Text: reply, Language: lang.Default}
	if !strings.Contains(reply, "LANGUAGE:") || !strings.Contains(reply, "TEXT:") {
		return out
	}
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "LANGUAGE:"):
			out.Language = lang.Code(strings.TrimPrefix(line, "LANGUAGE:"))
		case strings.HasPrefix(line, "TEXT:"):
			out.Text = strings.TrimSpace(strings.TrimPrefix(line, "TEXT:"))
		}
	}
	return out
}
