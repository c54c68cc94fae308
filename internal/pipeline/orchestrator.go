// Package pipeline drives one voice message through download, transcription,
// advice, pronunciation, synthesis and delivery.
package pipeline

import (
	"context"
	"time"

	"github.com/Vovarama1992/kisan_voice/internal/audio"
	"github.com/Vovarama1992/kisan_voice/internal/remote"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Stages are the four processing steps between download and delivery.
type Stages struct {
	Transcriber Transcriber
	Advisor     Advisor
	Pronouncer  Pronouncer
	Synthesizer Synthesizer
}

type Orchestrator struct {
	stages   Stages
	recorder Recorder
	archiver Archiver
	tracer   trace.Tracer
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Orchestrator)

func WithRecorders(rs ...Recorder) Option {
	return func(o *Orchestrator) { o.recorder = NewRecorders(o.logger, rs...) }
}

func WithArchiver(a Archiver) Option {
	return func(o *Orchestrator) { o.archiver = a }
}

func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

func New(stages Stages, logger *zap.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		stages: stages,
		tracer: tracer,
		logger: logger.With(zap.String("component", "orchestrator")),
		now:    time.Now,
	}
	o.recorder = NewRecorders(o.logger)
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run processes one message. The returned Run is never nil; on failure the
// error is the run's *StageError. Input and reply files are gone when Run returns.
func (o *Orchestrator) Run(ctx context.Context, src Source, sink Sink) (*Run, error) {
	run := o.begin(src.Name())
	ctx, span := o.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run.id", run.ID),
		attribute.String("run.source", run.Source),
	))
	defer span.End()
	defer o.end(run, span)

	var input, reply *audio.File
	defer func() {
		input.Release()
		reply.Release()
	}()

	if err := o.step(ctx, run, Downloaded, DownloadFailed, func(ctx context.Context) error {
		f, err := src.Fetch(ctx)
		input = f
		return err
	}); err != nil {
		return run, err
	}

	if err := o.step(ctx, run, Transcribed, "", func(ctx context.Context) error {
		t, err := o.stages.Transcriber.Transcribe(ctx, input)
		run.Transcript = t
		return err
	}); err != nil {
		return run, err
	}
	span.SetAttributes(attribute.String("run.language", run.Transcript.Language))

	if err := o.step(ctx, run, Advised, "", func(ctx context.Context) error {
		advice, err := o.stages.Advisor.Advise(ctx, run.Transcript.Text, run.Transcript.Language)
		run.Advice = advice
		return err
	}); err != nil {
		return run, err
	}

	_ = o.step(ctx, run, PronunciationPrepared, "", func(ctx context.Context) error {
		run.Prepared = o.stages.Pronouncer.Prepare(ctx, run.Advice, run.Transcript.Language)
		return nil
	})

	if err := o.step(ctx, run, Synthesized, "", func(ctx context.Context) error {
		f, err := o.stages.Synthesizer.Synthesize(ctx, run.Prepared.Text)
		reply = f
		return err
	}); err != nil {
		return run, err
	}

	o.archive(ctx, run, reply)

	if err := o.step(ctx, run, Delivered, UpstreamRejected, func(ctx context.Context) error {
		return sink.Deliver(ctx, run, reply)
	}); err != nil {
		return run, err
	}
	return run, nil
}

// Reply records a run that skips the stages for reason and only delivers, e.g.
// a hint sent back for a message without audio.
func (o *Orchestrator) Reply(ctx context.Context, source string, reason remote.Kind, deliver func(context.Context) error) (*Run, error) {
	run := o.begin(source)
	run.Skipped = reason
	ctx, span := o.tracer.Start(ctx, "pipeline.reply", trace.WithAttributes(
		attribute.String("run.id", run.ID),
		attribute.String("run.source", run.Source),
	))
	defer span.End()
	defer o.end(run, span)

	if err := o.step(ctx, run, Delivered, UpstreamRejected, deliver); err != nil {
		return run, err
	}
	return run, nil
}

func (o *Orchestrator) begin(source string) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Source:    source,
		State:     Received,
		StartedAt: o.now(),
	}
}

func (o *Orchestrator) end(run *Run, span trace.Span) {
	run.FinishedAt = o.now()
	span.SetAttributes(attribute.String("run.state", string(run.State)))
	if run.Failure != nil {
		span.SetStatus(codes.Error, string(run.Failure.Kind))
	}
	o.recorder.RunDone(run)
}

// step runs one stage. kind overrides the classified failure kind when set.
func (o *Orchestrator) step(ctx context.Context, run *Run, stage State, kind remote.Kind, fn func(context.Context) error) error {
	ctx, span := o.tracer.Start(ctx, "pipeline."+string(stage))
	defer span.End()

	start := o.now()
	err := fn(ctx)
	report := StageReport{Stage: stage, Duration: o.now().Sub(start)}

	if err != nil {
		if kind == "" {
			kind = remote.KindOf(err)
		}
		report.Kind, report.Err = kind, err
		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))
		run.fail(stage, kind, err)
	} else {
		run.State = stage
	}

	run.Stages = append(run.Stages, report)
	o.recorder.StageDone(run, report)

	if err != nil {
		return run.Failure
	}
	return nil
}

func (o *Orchestrator) archive(ctx context.Context, run *Run, reply *audio.File) {
	if o.archiver == nil {
		return
	}
	if err := o.archiver.Archive(ctx, run, reply); err != nil {
		o.logger.Warn("archive failed", zap.String("run_id", run.ID), zap.Error(err))
	}
}
