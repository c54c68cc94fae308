package pipeline

import (
	"context"

	"github.com/Vovarama1992/kisan_voice/internal/ai"
	"github.com/Vovarama1992/kisan_voice/internal/audio"
	"github.com/Vovarama1992/kisan_voice/internal/speech"
)

type Transcriber interface {
	Transcribe(ctx context.Context, in *audio.File) (speech.Transcript, error)
}

type Advisor interface {
	Advise(ctx context.Context, query, language string) (string, error)
}

type Pronouncer interface {
	Prepare(ctx context.Context, text, language string) ai.Prepared
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*audio.File, error)
}

// Source produces the input audio of a run. The returned file is released by the orchestrator.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (*audio.File, error)
}

// Sink hands the synthesized reply back to whoever asked.
type Sink interface {
	Deliver(ctx context.Context, run *Run, reply *audio.File) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, run *Run, reply *audio.File) error

func (f SinkFunc) Deliver(ctx context.Context, run *Run, reply *audio.File) error {
	return f(ctx, run, reply)
}

// Recorder observes runs. It must not block for long and cannot fail a run.
type Recorder interface {
	StageDone(run *Run, report StageReport)
	RunDone(run *Run)
}

// Archiver keeps a copy of synthesized replies.
type Archiver interface {
	Archive(ctx context.Context, run *Run, reply *audio.File) error
}
