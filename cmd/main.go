package main

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Vovarama1992/go-utils/logger"

	"github.com/Vovarama1992/kisan_voice/internal/ai"
	"github.com/Vovarama1992/kisan_voice/internal/archive"
	"github.com/Vovarama1992/kisan_voice/internal/audio"
	"github.com/Vovarama1992/kisan_voice/internal/config"
	"github.com/Vovarama1992/kisan_voice/internal/dedup"
	"github.com/Vovarama1992/kisan_voice/internal/delivery"
	"github.com/Vovarama1992/kisan_voice/internal/journal"
	"github.com/Vovarama1992/kisan_voice/internal/metrics"
	"github.com/Vovarama1992/kisan_voice/internal/notificator"
	"github.com/Vovarama1992/kisan_voice/internal/pipeline"
	"github.com/Vovarama1992/kisan_voice/internal/remote"
	"github.com/Vovarama1992/kisan_voice/internal/speech"
	"github.com/Vovarama1992/kisan_voice/internal/telegram"
	"github.com/Vovarama1992/kisan_voice/internal/worker"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {

	// =========================================================================
	// ENV / CONFIG
	// =========================================================================

	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	zapCfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(cfg.LogLevel); err == nil {
		zapCfg.Level = lvl
	}
	baseLogger, err := zapCfg.Build()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer baseLogger.Sync()
	zl := logger.NewZapLogger(baseLogger.Sugar())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// =========================================================================
	// INFRASTRUCTURE
	// =========================================================================

	workspace, err := audio.NewWorkspace(cfg.TempDir)
	if err != nil {
		log.Fatalf("failed to init temp dir: %v", err)
	}

	httpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   2 * time.Minute,
	}

	collector := metrics.NewCollector(prometheus.NewRegistry())
	recorders := []pipeline.Recorder{pipeline.NewLogRecorder(baseLogger), collector}

	var runJournal *journal.Journal
	if cfg.Database.URL != "" {
		db, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer db.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err != nil {
			log.Fatalf("db ping failed: %v", err)
		}

		runJournal = journal.New(db, baseLogger)
		if err := runJournal.Migrate(ctx); err != nil {
			log.Fatalf("journal migration failed: %v", err)
		}
		recorders = append(recorders, runJournal)
	}

	var archiver pipeline.Archiver
	if cfg.S3.Endpoint != "" {
		a, err := archive.New(ctx, archive.Config{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Insecure:  cfg.S3.Insecure,
		}, baseLogger)
		if err != nil {
			log.Fatalf("failed to init s3 archive: %v", err)
		}
		archiver = a
	}

	guard, err := dedup.New(ctx, dedup.Config{
		Backend:  cfg.Dedup.Backend,
		Capacity: cfg.Dedup.Capacity,
		TTL:      cfg.Dedup.TTL,
		RedisURL: cfg.Dedup.RedisURL,
	}, baseLogger)
	if err != nil {
		log.Fatalf("failed to init dedup guard: %v", err)
	}
	if c, ok := guard.(io.Closer); ok {
		defer c.Close()
	}

	// =========================================================================
	// CLIENTS (LLM / STT / TTS)
	// =========================================================================

	var callerOpts []remote.Option
	if cfg.Retry.RatePerSecond > 0 {
		callerOpts = append(callerOpts, remote.WithLimiter(rate.NewLimiter(rate.Limit(cfg.Retry.RatePerSecond), max(cfg.Retry.Burst, 1))))
	}
	caller := remote.NewCaller(cfg.RetryPolicy(), baseLogger, callerOpts...)

	var gemini *ai.GeminiClient
	if cfg.Gemini.APIKey != "" {
		gemini, err = ai.NewGeminiClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, "", httpClient)
		if err != nil {
			log.Fatalf("failed to init gemini: %v", err)
		}
	}

	var textGen ai.TextGenerator = gemini
	if cfg.LLMProvider == "openai" {
		textGen = ai.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, httpClient)
	}

	var stt speech.Transcriber
	switch cfg.STTProvider {
	case "whisper":
		stt = speech.NewWhisperClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, httpClient)
	case "deepgram":
		stt, err = speech.NewDeepgramClient(cfg.Deepgram.APIKey, "", httpClient)
		if err != nil {
			log.Fatalf("failed to init deepgram: %v", err)
		}
	default:
		stt = speech.NewGeminiTranscriber(gemini)
	}

	tts, err := speech.NewElevenLabsClient(cfg.ElevenLabs.APIKey, cfg.ElevenLabs.VoiceID, cfg.ElevenLabs.BaseURL, httpClient)
	if err != nil {
		log.Fatalf("failed to init elevenlabs: %v", err)
	}

	// =========================================================================
	// DOMAIN SERVICES
	// =========================================================================

	stages := pipeline.Stages{
		Transcriber: speech.NewTranscription(stt, caller, baseLogger),
		Advisor:     ai.NewAdvisor(textGen, caller, baseLogger),
		Pronouncer:  ai.NewPronouncer(textGen, caller, baseLogger),
		Synthesizer: speech.NewSynthesis(tts, workspace, baseLogger),
	}

	orchOpts := []pipeline.Option{pipeline.WithRecorders(recorders...)}
	if archiver != nil {
		orchOpts = append(orchOpts, pipeline.WithArchiver(archiver))
	}
	orch := pipeline.New(stages, baseLogger, orchOpts...)

	pool := worker.New(cfg.Worker.Count, cfg.Worker.QueueSize, cfg.Worker.JobTimeout, baseLogger)
	collector.QueueGauges(pool.Depth, pool.Capacity)

	// =========================================================================
	// TELEGRAM BOT
	// =========================================================================

	var webhook http.Handler
	if cfg.Telegram.Token != "" {
		bot, err := telegram.NewBotClient(telegram.ClientConfig{Token: cfg.Telegram.Token, HTTPClient: httpClient})
		if err != nil {
			log.Fatalf("failed to init telegram bot: %v", err)
		}

		notifier := notificator.NewService(notificator.NewInfra(bot, cfg.Telegram.AdminChatIDs), baseLogger)
		relay := telegram.NewRelay(orch, bot, telegram.NewDownloader(httpClient), workspace, notifier, baseLogger)
		intake := telegram.NewIntake(guard, pool, relay, collector, baseLogger)

		switch cfg.Telegram.Mode {
		case "polling":
			go bot.Poll(ctx, intake, baseLogger.With(zap.String("component", "poller")))
		default:
			webhook = telegram.NewWebhookHandler(intake, cfg.Telegram.WebhookSecret, zl)
			if cfg.Telegram.WebhookURL != "" {
				if err := bot.SetWebhook(cfg.Telegram.WebhookURL, cfg.Telegram.WebhookSecret); err != nil {
					log.Fatalf("failed to set telegram webhook: %v", err)
				}
			}
		}

		zl.Log(logger.LogEntry{
			Level:   "info",
			Message: "telegram bot @" + bot.UserName() + " started in " + cfg.Telegram.Mode + " mode",
			Service: "kisan_voice",
		})
	}

	// =========================================================================
	// HTTP ROUTER
	// =========================================================================

	routes := delivery.Routes{
		Voice:               delivery.NewVoiceHandler(orch, stages, workspace, cfg.HTTP.MaxUploadBytes, zl),
		Webhook:             webhook,
		Metrics:             collector,
		UploadRatePerMinute: cfg.HTTP.UploadRatePerMinute,
	}
	if runJournal != nil {
		routes.Runs = delivery.NewRunsHandler(runJournal, zl)
	}
	r := delivery.NewRouter(routes)

	// =========================================================================
	// BACKGROUND JOBS
	// =========================================================================

	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := workspace.Sweep(time.Now().Add(-time.Hour))
				if err != nil {
					baseLogger.Warn("[temp-sweep] error", zap.Error(err))
				} else if n > 0 {
					baseLogger.Info("[temp-sweep] removed stale audio files", zap.Int("count", n))
				}
			}
		}
	}()

	// =========================================================================
	// START SERVER
	// =========================================================================

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Log(logger.LogEntry{
			Level:   "info",
			Message: "listening at " + addr,
			Service: "kisan_voice",
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Log(logger.LogEntry{Level: "error", Message: "http shutdown", Service: "kisan_voice", Error: err})
	}
	if err := pool.Shutdown(shutdownCtx); err != nil {
		zl.Log(logger.LogEntry{Level: "error", Message: "worker shutdown", Service: "kisan_voice", Error: err})
	}
	zl.Log(logger.LogEntry{Level: "info", Message: "stopped", Service: "kisan_voice"})
}
