package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/kisan_voice/internal/ai"
	"github.com/Vovarama1992/kisan_voice/internal/audio"
	"github.com/Vovarama1992/kisan_voice/internal/journal"
	"github.com/Vovarama1992/kisan_voice/internal/metrics"
	"github.com/Vovarama1992/kisan_voice/internal/pipeline"
	"github.com/Vovarama1992/kisan_voice/internal/speech"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStages struct {
	ws         *audio.Workspace
	transcript speech.Transcript
	advice     string
	prepared   string
	adviseErr  error
	lastQuery  string
	lastLang   string
}

func (f *fakeStages) Transcribe(_ context.Context, in *audio.File) (speech.Transcript, error) {
	if _, err := in.Bytes(); err != nil {
		return speech.Transcript{}, err
	}
	return f.transcript, nil
}

func (f *fakeStages) Advise(_ context.Context, query, language string) (string, error) {
	f.lastQuery, f.lastLang = query, language
	return f.advice, f.adviseErr
}

func (f *fakeStages) Prepare(_ context.Context, text, _ string) ai.Prepared {
	if f.prepared != "" {
		return ai.Prepared{Text: f.prepared, Outcome: ai.Transliterated}
	}
	return ai.Prepared{Text: text, Outcome: ai.NativeScript}
}

func (f *fakeStages) Synthesize(_ context.Context, text string) (*audio.File, error) {
	out := f.ws.NewFile("eleven", ".mp3")
	if _, err := out.Fill(strings.NewReader("mp3:" + text)); err != nil {
		return nil, err
	}
	return out, nil
}

type fakeRuns struct {
	entries []journal.Entry
	err     error
	limit   int
}

func (f *fakeRuns) Recent(_ context.Context, limit int) ([]journal.Entry, error) {
	f.limit = limit
	return f.entries, f.err
}

type env struct {
	stages *fakeStages
	runs   *fakeRuns
	router http.Handler
	reg    *prometheus.Registry
}

func newEnv(t *testing.T, perMinute int) *env {
	t.Helper()
	ws, err := audio.NewWorkspace(t.TempDir())
	require.NoError(t, err)

	st := &fakeStages{
		ws:         ws,
		transcript: speech.Transcript{Text: "गेहूं में कीड़े लगे हैं", Language: "hi"},
		advice:     "नीम का तेल छिड़कें।",
	}
	stages := pipeline.Stages{Transcriber: st, Advisor: st, Pronouncer: st, Synthesizer: st}
	log := logger.NewZapLogger(zap.NewNop().Sugar())
	reg := prometheus.NewRegistry()
	runs := &fakeRuns{}

	router := NewRouter(Routes{
		Voice:               NewVoiceHandler(pipeline.New(stages, zap.NewNop()), stages, ws, 0, log),
		Webhook:             http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte(`{"status":"ok"}`)) }),
		Runs:                NewRunsHandler(runs, log),
		Metrics:             metrics.NewCollector(reg),
		UploadRatePerMinute: perMinute,
	})
	return &env{stages: st, runs: runs, router: router, reg: reg}
}

func multipartAudio(t *testing.T, field, filename string, body []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(body)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func (e *env) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestProcessVoice_StreamsReplyWithHeaders(t *testing.T) {
	e := newEnv(t, 100)
	e.stages.prepared = "neem ka tel chhidken."

	for _, path := range []string{"/process-voice", "/api/v2/process-voice"} {
		t.Run(path, func(t *testing.T) {
			body, ct := multipartAudio(t, "audio", "voice.ogg", []byte("OggS-data"))
			req := httptest.NewRequest(http.MethodPost, path, body)
			req.Header.Set("Content-Type", ct)

			rec := e.do(req)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
			assert.Equal(t, "mp3:neem ka tel chhidken.", rec.Body.String())
			assert.Equal(t, "hi", rec.Header().Get("X-Language"))
			assert.NotEmpty(t, rec.Header().Get("X-Run-Id"))
			assert.Equal(t, "neem%20ka%20tel%20chhidken.", rec.Header().Get("X-TTS-Text"))

			got, err := url.QueryUnescape(rec.Header().Get("X-Transcription"))
			require.NoError(t, err)
			assert.Equal(t, "गेहूं में कीड़े लगे हैं", got)
		})
	}
}

func TestProcessVoice_StageFailureIs500Detail(t *testing.T) {
	e := newEnv(t, 100)
	e.stages.adviseErr = errors.New("Gemini quota exceeded. Please try again later.")

	body, ct := multipartAudio(t, "audio", "voice.ogg", []byte("OggS"))
	req := httptest.NewRequest(http.MethodPost, "/api/v2/process-voice", body)
	req.Header.Set("Content-Type", ct)

	rec := e.do(req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Gemini quota exceeded. Please try again later.", resp["detail"])
}

func TestProcessVoice_MissingAudio(t *testing.T) {
	e := newEnv(t, 100)
	body, ct := multipartAudio(t, "file", "voice.ogg", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/v2/process-voice", body)
	req.Header.Set("Content-Type", ct)

	assert.Equal(t, http.StatusBadRequest, e.do(req).Code)
}

func TestProcessVoice_RateLimitedPerIP(t *testing.T) {
	e := newEnv(t, 1)

	send := func() int {
		body, ct := multipartAudio(t, "audio", "voice.ogg", []byte("OggS"))
		req := httptest.NewRequest(http.MethodPost, "/api/v2/process-voice", body)
		req.Header.Set("Content-Type", ct)
		req.RemoteAddr = "10.0.0.1:1234"
		return e.do(req).Code
	}

	assert.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}

func TestTestAdvice(t *testing.T) {
	e := newEnv(t, 100)

	form := url.Values{"query": {"what to sow in rabi"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v2/test/advice", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := e.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "नीम का तेल छिड़कें।", resp["response"])
	assert.Equal(t, "hi", resp["language"])
	assert.Equal(t, "hi", e.stages.lastLang)
}

func TestTestSynthesis(t *testing.T) {
	e := newEnv(t, 100)
	e.stages.prepared = "vanakkam"

	form := url.Values{"text": {"வணக்கம்"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v2/test/synthesis", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := e.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "mp3:vanakkam", rec.Body.String())
	assert.Equal(t, "vanakkam", rec.Header().Get("X-Optimized-Text"))
	orig, err := url.QueryUnescape(rec.Header().Get("X-Original-Text"))
	require.NoError(t, err)
	assert.Equal(t, "வணக்கம்", orig)
}

func TestTestTranscription(t *testing.T) {
	e := newEnv(t, 100)
	body, ct := multipartAudio(t, "audio", "q.mp3", []byte("ID3"))
	req := httptest.NewRequest(http.MethodPost, "/api/v2/test/transcription", body)
	req.Header.Set("Content-Type", ct)

	rec := e.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "hi", resp["language"])
	assert.Equal(t, "गेहूं में कीड़े लगे हैं", resp["text"])
}

func TestInfoRoutes(t *testing.T) {
	e := newEnv(t, 100)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"name":"Kisan Voice Bot API","version":"2.0.0","status":"running","docs":"/docs"}`, rec.Body.String())

	rec = e.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = e.do(httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, "pong", rec.Body.String())

	for _, path := range []string{"/webhook", "/api/webhook/telegram"} {
		rec = e.do(httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`)))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec = e.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "kisan_voice_http_requests_total")
}

func TestRuns(t *testing.T) {
	e := newEnv(t, 100)
	e.runs.entries = []journal.Entry{{ID: "r1", Source: "telegram", State: "delivered", StartedAt: time.Unix(0, 0).UTC()}}

	rec := e.do(httptest.NewRequest(http.MethodGet, "/api/v2/runs?limit=5", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, e.runs.limit)
	var got []journal.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].ID)

	e.runs.err = errors.New("connection refused")
	rec = e.do(httptest.NewRequest(http.MethodGet, "/api/v2/runs", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHeaderText(t *testing.T) {
	assert.Equal(t, "a%20b%2Bc%26d", headerText("a b+c&d"))

	long := strings.Repeat("क", 250)
	decoded, err := url.QueryUnescape(headerText(long))
	require.NoError(t, err)
	assert.Equal(t, 200, len([]rune(decoded)))
}

// missingReplyRunner delivers a reply whose file is already gone.
type missingReplyRunner struct{}

func (missingReplyRunner) Run(ctx context.Context, src pipeline.Source, sink pipeline.Sink) (*pipeline.Run, error) {
	run := &pipeline.Run{ID: "r-missing", Source: src.Name()}
	reply := &audio.File{Path: filepath.Join(os.TempDir(), "kisan_missing", "reply.mp3"), MediaType: "audio/mpeg"}
	if err := sink.Deliver(ctx, run, reply); err != nil {
		return run, &pipeline.StageError{Stage: pipeline.Delivered, Kind: pipeline.UpstreamRejected, Err: err}
	}
	return run, nil
}

func TestProcessVoice_UnreadableReplyIs500Detail(t *testing.T) {
	ws, err := audio.NewWorkspace(t.TempDir())
	require.NoError(t, err)
	log := logger.NewZapLogger(zap.NewNop().Sugar())
	router := NewRouter(Routes{
		Voice:               NewVoiceHandler(missingReplyRunner{}, pipeline.Stages{}, ws, 0, log),
		UploadRatePerMinute: 100,
	})

	body, ct := multipartAudio(t, "audio", "voice.ogg", []byte("OggS"))
	req := httptest.NewRequest(http.MethodPost, "/api/v2/process-voice", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Get("X-Run-Id"))
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["detail"], "open reply")
}
