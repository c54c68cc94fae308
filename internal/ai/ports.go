package ai

import "context"

// TextGenerator is one call to a hosted text-generation model.
type TextGenerator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// AudioGenerator is a model that also accepts an audio part in the prompt.
type AudioGenerator interface {
	GenerateFromAudio(ctx context.Context, system, prompt string, audio []byte, mimeType string) (string, error)
}
