package pipeline

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/Vovarama1992/kisan_voice/internal/ai"
	"github.com/Vovarama1992/kisan_voice/internal/audio"
	"github.com/Vovarama1992/kisan_voice/internal/remote"
	"github.com/Vovarama1992/kisan_voice/internal/speech"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	ws   *audio.Workspace
	err  error
	file *audio.File
}

func (s *fakeSource) Name() string { return "test" }

func (s *fakeSource) Fetch(context.Context) (*audio.File, error) {
	if s.err != nil {
		return nil, s.err
	}
	f := s.ws.NewFile("input", ".ogg")
	if _, err := f.Fill(strings.NewReader("voice")); err != nil {
		return nil, err
	}
	s.file = f
	return f, nil
}

type fakeStages struct {
	ws *audio.Workspace

	sttErr, adviceErr, ttsErr error
	prepared                  ai.Prepared
	reply                     *audio.File
	calls                     []string
}

func (f *fakeStages) Transcribe(context.Context, *audio.File) (speech.Transcript, error) {
	f.calls = append(f.calls, "transcribe")
	if f.sttErr != nil {
		return speech.Transcript{}, f.sttErr
	}
	return speech.Transcript{Text: "fasal kab boyein", Language: "hi"}, nil
}

func (f *fakeStages) Advise(_ context.Context, query, language string) (string, error) {
	f.calls = append(f.calls, "advise:"+query+":"+language)
	if f.adviceErr != nil {
		return "", f.adviceErr
	}
	return "June mein boyein.", nil
}

func (f *fakeStages) Prepare(_ context.Context, text, _ string) ai.Prepared {
	f.calls = append(f.calls, "prepare:"+text)
	if f.prepared.Outcome != "" {
		return f.prepared
	}
	return ai.Prepared{Text: text, Outcome: ai.AlreadyRomanized}
}

func (f *fakeStages) Synthesize(_ context.Context, text string) (*audio.File, error) {
	f.calls = append(f.calls, "synthesize:"+text)
	if f.ttsErr != nil {
		return nil, f.ttsErr
	}
	out := f.ws.NewFile("reply", ".mp3")
	if _, err := out.Fill(strings.NewReader("mp3")); err != nil {
		return nil, err
	}
	f.reply = out
	return out, nil
}

func (f *fakeStages) stages() Stages {
	return Stages{Transcriber: f, Advisor: f, Pronouncer: f, Synthesizer: f}
}

type memRecorder struct {
	mu     sync.Mutex
	stages []StageReport
	runs   []*Run
}

func (m *memRecorder) StageDone(_ *Run, r StageReport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages = append(m.stages, r)
}

func (m *memRecorder) RunDone(run *Run) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
}

type panicRecorder struct{}

func (panicRecorder) StageDone(*Run, StageReport) { panic("boom") }
func (panicRecorder) RunDone(*Run)                { panic("boom") }

type fakeArchiver struct{ err error }

func (a fakeArchiver) Archive(context.Context, *Run, *audio.File) error { return a.err }

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func setup(t *testing.T) (*audio.Workspace, *fakeSource, *fakeStages) {
	t.Helper()
	ws, err := audio.NewWorkspace(t.TempDir())
	require.NoError(t, err)
	return ws, &fakeSource{ws: ws}, &fakeStages{ws: ws}
}

func TestRun_HappyPath(t *testing.T) {
	_, src, st := setup(t)
	rec := &memRecorder{}
	o := New(st.stages(), zap.NewNop(), WithRecorders(rec, panicRecorder{}), WithArchiver(fakeArchiver{err: errors.New("s3 down")}))

	var delivered string
	sink := SinkFunc(func(_ context.Context, run *Run, reply *audio.File) error {
		b, err := reply.Bytes()
		delivered = string(b)
		return err
	})

	run, err := o.Run(context.Background(), src, sink)

	require.NoError(t, err)
	assert.Equal(t, Delivered, run.State)
	assert.Nil(t, run.Failure)
	assert.Equal(t, "mp3", delivered)
	assert.Equal(t, []string{
		"transcribe",
		"advise:fasal kab boyein:hi",
		"prepare:June mein boyein.",
		"synthesize:June mein boyein.",
	}, st.calls)

	var order []State
	for _, r := range rec.stages {
		order = append(order, r.Stage)
		assert.True(t, r.OK())
	}
	assert.Equal(t, []State{Downloaded, Transcribed, Advised, PronunciationPrepared, Synthesized, Delivered}, order)
	require.Len(t, rec.runs, 1)
	assert.NotEmpty(t, run.ID)
	assert.False(t, exists(src.file.Path))
	assert.False(t, exists(st.reply.Path))
}

func TestRun_Failures(t *testing.T) {
	quota := &remote.CallError{Purpose: "x", Kind: remote.RateLimited, Attempts: 4, Err: errors.New("429")}

	tests := []struct {
		name      string
		arrange   func(src *fakeSource, st *fakeStages)
		sinkErr   error
		wantStage State
		wantKind  remote.Kind
		wantCalls int
	}{
		{
			name:      "download",
			arrange:   func(src *fakeSource, _ *fakeStages) { src.err = errors.New("telegram 404") },
			wantStage: Downloaded,
			wantKind:  DownloadFailed,
			wantCalls: 0,
		},
		{
			name:      "transcription",
			arrange:   func(_ *fakeSource, st *fakeStages) { st.sttErr = quota },
			wantStage: Transcribed,
			wantKind:  remote.RateLimited,
			wantCalls: 1,
		},
		{
			name: "advice",
			arrange: func(_ *fakeSource, st *fakeStages) {
				st.adviceErr = &remote.CallError{Kind: remote.ServiceOverloaded, Err: errors.New("503")}
			},
			wantStage: Advised,
			wantKind:  remote.ServiceOverloaded,
			wantCalls: 2,
		},
		{
			name:      "synthesis",
			arrange:   func(_ *fakeSource, st *fakeStages) { st.ttsErr = &remote.StatusError{Code: 401} },
			wantStage: Synthesized,
			wantKind:  remote.InvalidCredentials,
			wantCalls: 4,
		},
		{
			name:      "delivery",
			arrange:   func(*fakeSource, *fakeStages) {},
			sinkErr:   errors.New("chat not found"),
			wantStage: Delivered,
			wantKind:  UpstreamRejected,
			wantCalls: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, src, st := setup(t)
			tt.arrange(src, st)
			o := New(st.stages(), zap.NewNop())
			sink := SinkFunc(func(context.Context, *Run, *audio.File) error { return tt.sinkErr })

			run, err := o.Run(context.Background(), src, sink)

			var se *StageError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.wantStage, se.Stage)
			assert.Equal(t, tt.wantKind, se.Kind)
			assert.Equal(t, Failed, run.State)
			assert.Same(t, se, run.Failure)
			assert.Len(t, st.calls, tt.wantCalls)
			if src.file != nil {
				assert.False(t, exists(src.file.Path))
			}
			if st.reply != nil {
				assert.False(t, exists(st.reply.Path))
			}
		})
	}
}

func TestRun_StageErrorMessageIsCause(t *testing.T) {
	_, src, st := setup(t)
	st.sttErr = &remote.CallError{Kind: remote.RateLimited, Err: errors.New("429")}

	_, err := New(st.stages(), nil).Run(context.Background(), src, SinkFunc(func(context.Context, *Run, *audio.File) error { return nil }))

	assert.Equal(t, remote.Message(remote.RateLimited, nil), err.Error())
}

func TestRun_SkippedTransliterationStillDelivers(t *testing.T) {
	_, src, st := setup(t)
	st.prepared = ai.Prepared{Text: "original", Outcome: ai.TransliterationSkipped, Reason: "low ascii"}

	run, err := New(st.stages(), nil).Run(context.Background(), src, SinkFunc(func(context.Context, *Run, *audio.File) error { return nil }))

	require.NoError(t, err)
	assert.Equal(t, ai.TransliterationSkipped, run.Prepared.Outcome)
	assert.Contains(t, st.calls, "synthesize:original")
}

func TestReply(t *testing.T) {
	rec := &memRecorder{}
	o := New(Stages{}, nil, WithRecorders(rec))

	run, err := o.Reply(context.Background(), "telegram", UnsupportedContent, func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, Delivered, run.State)
	assert.Equal(t, UnsupportedContent, run.Skipped)
	require.Len(t, rec.stages, 1)

	run, err = o.Reply(context.Background(), "telegram", UnsupportedContent, func(context.Context) error { return errors.New("blocked") })
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, UpstreamRejected, se.Kind)
	assert.Equal(t, Failed, run.State)
}
