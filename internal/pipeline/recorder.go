package pipeline

import (
	"go.uber.org/zap"
)

// Recorders fans out to several recorders. A panicking recorder is logged and skipped.
type Recorders struct {
	list   []Recorder
	logger *zap.Logger
}

func NewRecorders(logger *zap.Logger, rs ...Recorder) *Recorders {
	if logger == nil {
		logger = zap.NewNop()
	}
	out := &Recorders{logger: logger.With(zap.String("component", "recorder"))}
	for _, r := range rs {
		if r != nil {
			out.list = append(out.list, r)
		}
	}
	return out
}

func (m *Recorders) StageDone(run *Run, report StageReport) {
	for _, r := range m.list {
		m.guard(run, func() { r.StageDone(run, report) })
	}
}

func (m *Recorders) RunDone(run *Run) {
	for _, r := range m.list {
		m.guard(run, func() { r.RunDone(run) })
	}
}

func (m *Recorders) guard(run *Run, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			m.logger.Error("recorder panicked", zap.String("run_id", run.ID), zap.Any("panic", p))
		}
	}()
	fn()
}

// LogRecorder writes one line per stage and per finished run.
type LogRecorder struct {
	logger *zap.Logger
}

func NewLogRecorder(logger *zap.Logger) *LogRecorder {
	return &LogRecorder{logger: logger.With(zap.String("component", "pipeline"))}
}

func (l *LogRecorder) StageDone(run *Run, r StageReport) {
	fields := []zap.Field{
		zap.String("run_id", run.ID),
		zap.String("stage", string(r.Stage)),
		zap.Duration("took", r.Duration),
	}
	if r.Err != nil {
		l.logger.Warn("stage failed", append(fields, zap.String("kind", string(r.Kind)), zap.Error(r.Err))...)
		return
	}
	l.logger.Debug("stage done", fields...)
}

func (l *LogRecorder) RunDone(run *Run) {
	fields := []zap.Field{
		zap.String("run_id", run.ID),
		zap.String("source", run.Source),
		zap.String("state", string(run.State)),
		zap.String("language", run.Language()),
		zap.Duration("took", run.Duration()),
	}
	if run.Failure != nil {
		l.logger.Warn("run failed", append(fields,
			zap.String("stage", string(run.Failure.Stage)),
			zap.String("kind", string(run.Failure.Kind)),
		)...)
		return
	}
	l.logger.Info("run delivered", fields...)
}
