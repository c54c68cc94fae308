package pipeline

import (
	"fmt"
	"time"

	"github.com/Vovarama1992/kisan_voice/internal/ai"
	"github.com/Vovarama1992/kisan_voice/internal/remote"
	"github.com/Vovarama1992/kisan_voice/internal/speech"
)

// State is how far a run has progressed.
type State string

const (
	Received              State = "received"
	Downloaded            State = "downloaded"
	Transcribed           State = "transcribed"
	Advised               State = "advised"
	PronunciationPrepared State = "pronunciation_prepared"
	Synthesized           State = "synthesized"
	Delivered             State = "delivered"
	Failed                State = "failed"
)

// Failure kinds raised by the pipeline itself rather than a remote call.
const (
	DownloadFailed     remote.Kind = "download_failed"
	UpstreamRejected   remote.Kind = "upstream_rejected"
	UnsupportedContent remote.Kind = "unsupported_content"
)

// StageError is a run that stopped at Stage.
type StageError struct {
	Stage State
	Kind  remote.Kind
	Err   error
}

// Error is the user-facing message of the cause.
func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s failed (%s)", e.Stage, e.Kind)
	}
	return e.Err.Error()
}

func (e *StageError) Unwrap() error { return e.Err }

// StageReport is one stage attempt as seen by a Recorder.
type StageReport struct {
	Stage    State
	Duration time.Duration
	Kind     remote.Kind
	Err      error
}

func (r StageReport) OK() bool { return r.Err == nil }

// Run is the record of one inbound voice message going through the stages.
type Run struct {
	ID         string
	Source     string
	State      State
	StartedAt  time.Time
	FinishedAt time.Time

	Stages     []StageReport
	Transcript speech.Transcript
	Advice     string
	Prepared   ai.Prepared
	Failure    *StageError

	// Skipped is set when the stages were bypassed and only a reply was sent.
	Skipped remote.Kind
}

func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Language is the transcribed language, empty before transcription.
func (r *Run) Language() string { return r.Transcript.Language }

func (r *Run) fail(stage State, kind remote.Kind, err error) {
	r.State = Failed
	r.Failure = &StageError{Stage: stage, Kind: kind, Err: err}
}
