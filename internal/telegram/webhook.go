package telegram

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/Vovarama1992/go-utils/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookHandler is the HTTP side of Intake.
type WebhookHandler struct {
	intake *Intake
	secret string
	log    *logger.ZapLogger
}

func NewWebhookHandler(intake *Intake, secret string, log *logger.ZapLogger) *WebhookHandler {
	return &WebhookHandler{intake: intake, secret: secret, log: log}
}

// POST /webhook
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(SecretHeader)), []byte(h.secret)) != 1 {
		h.log.Log(logger.LogEntry{Level: "warn", Message: "webhook secret mismatch"})
		writeStatus(w, http.StatusUnauthorized, map[string]string{"status": string(StatusError), "message": "invalid secret token"})
		return
	}

	var upd tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		h.log.Log(logger.LogEntry{Level: "warn", Message: "invalid webhook payload", Error: err})
		writeStatus(w, http.StatusOK, map[string]string{"status": string(StatusError), "message": "Invalid JSON payload"})
		return
	}

	status := h.intake.Accept(r.Context(), upd)
	code := http.StatusOK
	if status == StatusError {
		code = http.StatusServiceUnavailable
	}
	writeStatus(w, code, map[string]string{"status": string(status)})
}

func writeStatus(w http.ResponseWriter, code int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
