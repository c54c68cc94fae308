package delivery

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/kisan_voice/internal/journal"
)

const (
	ServiceName    = "Kisan Voice Bot API"
	ServiceVersion = "2.0.0"
)

// GET /
func Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    ServiceName,
		"version": ServiceVersion,
		"status":  "running",
		"docs":    "/docs",
	})
}

// GET /health
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type RunLister interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

type RunsHandler struct {
	runs RunLister
	log  *logger.ZapLogger
}

func NewRunsHandler(runs RunLister, log *logger.ZapLogger) *RunsHandler {
	return &RunsHandler{runs: runs, log: log}
}

// GET /api/v2/runs?limit=20
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.runs.Recent(r.Context(), limit)
	if err != nil {
		h.log.Log(logger.LogEntry{Level: "error", Message: "list runs", Error: err})
		writeJSON(w, http.StatusInternalServerError, map[string]any{"detail": "db error: " + err.Error()})
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
