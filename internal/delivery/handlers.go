package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/kisan_voice/internal/audio"
	"github.com/Vovarama1992/kisan_voice/internal/lang"
	"github.com/Vovarama1992/kisan_voice/internal/pipeline"
)

const headerTextLimit = 200

// Runner is the part of the orchestrator the HTTP API needs.
type Runner interface {
	Run(ctx context.Context, src pipeline.Source, sink pipeline.Sink) (*pipeline.Run, error)
}

type VoiceHandler struct {
	runner    Runner
	stages    pipeline.Stages
	workspace *audio.Workspace
	maxUpload int64
	log       *logger.ZapLogger
}

func NewVoiceHandler(runner Runner, stages pipeline.Stages, ws *audio.Workspace, maxUpload int64, log *logger.ZapLogger) *VoiceHandler {
	if maxUpload <= 0 {
		maxUpload = 25 << 20
	}
	return &VoiceHandler{
		runner:    runner,
		stages:    stages,
		workspace: ws,
		maxUpload: maxUpload,
		log:       log,
	}
}

// POST /api/v2/process-voice
func (h *VoiceHandler) ProcessVoice(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	file, header, err := r.FormFile("audio")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "missing audio file: " + err.Error()})
		return
	}
	defer file.Close()

	stamp := time.Now().Format("20060102_150405")
	src := NewUploadSource(h.workspace, file, header.Filename)

	written := false
	sink := pipeline.SinkFunc(func(_ context.Context, run *pipeline.Run, reply *audio.File) error {
		sent, err := writeAudio(w, reply, "v2_response_"+stamp+".mp3", map[string]string{
			"X-Transcription": headerText(run.Transcript.Text),
			"X-Raw-Response":  headerText(run.Advice),
			"X-TTS-Text":      headerText(run.Prepared.Text),
			"X-Language":      run.Language(),
			"X-Run-Id":        run.ID,
		})
		written = sent
		return err
	})

	run, err := h.runner.Run(r.Context(), src, sink)
	if err != nil {
		h.log.Log(logger.LogEntry{Level: "error", Message: "voice pipeline failed: run " + run.ID, Error: err})
		if !written {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"detail": err.Error()})
		}
	}
}

// POST /api/v2/test/advice
func (h *VoiceHandler) TestAdvice(w http.ResponseWriter, r *http.Request) {
	query := r.FormValue("query")
	if strings.TrimSpace(query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "query is required"})
		return
	}
	language := r.FormValue("language")
	if language == "" {
		language = lang.Default
	}

	advice, err := h.stages.Advisor.Advise(r.Context(), query, language)
	if err != nil {
		h.log.Log(logger.LogEntry{Level: "error", Message: "test advice failed", Error: err})
		writeJSON(w, http.StatusInternalServerError, map[string]any{"detail": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":    query,
		"response": advice,
		"language": language,
	})
}

// POST /api/v2/test/synthesis
func (h *VoiceHandler) TestSynthesis(w http.ResponseWriter, r *http.Request) {
	text := r.FormValue("text")
	if strings.TrimSpace(text) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "text is required"})
		return
	}

	prepared := h.stages.Pronouncer.Prepare(r.Context(), text, lang.Default)
	reply, err := h.stages.Synthesizer.Synthesize(r.Context(), prepared.Text)
	if err != nil {
		h.log.Log(logger.LogEntry{Level: "error", Message: "test synthesis failed", Error: err})
		writeJSON(w, http.StatusInternalServerError, map[string]any{"detail": err.Error()})
		return
	}
	defer reply.Release()

	sent, err := writeAudio(w, reply, "test_elevenlabs.mp3", map[string]string{
		"X-Original-Text":  headerText(text),
		"X-Optimized-Text": headerText(prepared.Text),
	})
	if err != nil {
		h.log.Log(logger.LogEntry{Level: "warn", Message: "stream test synthesis", Error: err})
		if !sent {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"detail": err.Error()})
		}
	}
}

// POST /api/v2/test/transcription
func (h *VoiceHandler) TestTranscription(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	file, header, err := r.FormFile("audio")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "missing audio file: " + err.Error()})
		return
	}
	defer file.Close()

	in, err := NewUploadSource(h.workspace, file, header.Filename).Fetch(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": err.Error()})
		return
	}
	defer in.Release()

	t, err := h.stages.Transcriber.Transcribe(r.Context(), in)
	if err != nil {
		h.log.Log(logger.LogEntry{Level: "error", Message: "test transcription failed", Error: err})
		writeJSON(w, http.StatusInternalServerError, map[string]any{"detail": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"text": t.Text, "language": t.Language})
}

// writeAudio streams f as an attachment. sent reports whether the status line
// went out, after which no error body can be written.
func writeAudio(w http.ResponseWriter, f *audio.File, filename string, headers map[string]string) (sent bool, err error) {
	src, err := f.Open()
	if err != nil {
		return false, fmt.Errorf("open reply: %w", err)
	}
	defer src.Close()

	h := w.Header()
	for k, v := range headers {
		h.Set(k, v)
	}
	h.Set("Content-Type", "audio/mpeg")
	h.Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, src); err != nil && !errors.Is(err, context.Canceled) {
		return true, fmt.Errorf("stream reply: %w", err)
	}
	return true, nil
}

// headerText truncates to 200 characters and percent-encodes so non-ASCII
// text survives in a header.
func headerText(s string) string {
	if r := []rune(s); len(r) > headerTextLimit {
		s = string(r[:headerTextLimit])
	}
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
