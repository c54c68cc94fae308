package delivery

import (
	"net/http"
	"time"

	"github.com/Vovarama1992/go-utils/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// Routes holds the handlers to mount. Nil Webhook, Runs or Metrics leave
// their routes out.
type Routes struct {
	Voice   *VoiceHandler
	Webhook http.Handler
	Runs    *RunsHandler
	Metrics interface {
		Middleware(http.Handler) http.Handler
		Handler() http.Handler
	}
	UploadRatePerMinute int
}

func NewRouter(rt Routes) chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Telegram-Bot-Api-Secret-Token"},
		ExposedHeaders: []string{
			"X-Transcription", "X-Raw-Response", "X-TTS-Text", "X-Language", "X-Run-Id",
			"X-Original-Text", "X-Optimized-Text",
		},
	}))
	if rt.Metrics != nil {
		r.Use(rt.Metrics.Middleware)
	}
	RegisterRoutes(r, rt)
	return r
}

func RegisterRoutes(r chi.Router, rt Routes) {
	r.With(httputil.RecoverMiddleware).Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("pong"))
	})
	r.With(httputil.RecoverMiddleware).Get("/", Root)
	r.With(httputil.RecoverMiddleware).Get("/health", Health)
	if rt.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.Metrics.Handler())
	}

	// --- telegram ---
	if rt.Webhook != nil {
		r.With(httputil.RecoverMiddleware).Post("/webhook", rt.Webhook.ServeHTTP)
		r.With(httputil.RecoverMiddleware).Post("/api/webhook/telegram", rt.Webhook.ServeHTTP)
	}

	// --- voice ---
	perMinute := rt.UploadRatePerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	limit := httprate.LimitByIP(perMinute, time.Minute)
	r.With(httputil.RecoverMiddleware, limit).Post("/process-voice", rt.Voice.ProcessVoice)

	r.Route("/api/v2", func(pr chi.Router) {
		pr.Use(httputil.RecoverMiddleware)

		pr.With(limit).Post("/process-voice", rt.Voice.ProcessVoice)
		pr.With(limit).Post("/test/transcription", rt.Voice.TestTranscription)

		pr.Post("/test/advice", rt.Voice.TestAdvice)
		pr.Post("/test-gemini", rt.Voice.TestAdvice)
		pr.Post("/test/synthesis", rt.Voice.TestSynthesis)
		pr.Post("/test-elevenlabs", rt.Voice.TestSynthesis)

		if rt.Runs != nil {
			pr.Get("/runs", rt.Runs.List)
		}
	})
}
