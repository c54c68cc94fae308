// Package config loads settings from defaults, an optional YAML file and the
// environment, in that order of precedence (environment wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Vovarama1992/kisan_voice/internal/remote"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port            string        `yaml:"port"`
	LogLevel        string        `yaml:"log_level"`
	TempDir         string        `yaml:"temp_dir"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	STTProvider string `yaml:"stt_provider"` // gemini | whisper | deepgram
	LLMProvider string `yaml:"llm_provider"` // gemini | openai

	Retry      RetryConfig      `yaml:"retry"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Deepgram   DeepgramConfig   `yaml:"deepgram"`
	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Dedup      DedupConfig      `yaml:"dedup"`
	Worker     WorkerConfig     `yaml:"worker"`
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	S3         S3Config         `yaml:"s3"`
}

type RetryConfig struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	BackoffScheduleMS []int   `yaml:"backoff_schedule_ms"`
	RatePerSecond     float64 `yaml:"rate_per_second"` // 0 disables the limiter
	Burst             int     `yaml:"burst"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type DeepgramConfig struct {
	APIKey string `yaml:"api_key"`
}

type ElevenLabsConfig struct {
	APIKey  string `yaml:"api_key"`
	VoiceID string `yaml:"voice_id"`
	BaseURL string `yaml:"base_url"`
}

type TelegramConfig struct {
	Token         string  `yaml:"token"`
	Mode          string  `yaml:"mode"` // webhook | polling
	WebhookURL    string  `yaml:"webhook_url"`
	WebhookSecret string  `yaml:"webhook_secret"`
	AdminChatIDs  []int64 `yaml:"admin_chat_ids"`
}

type DedupConfig struct {
	Backend  string        `yaml:"backend"` // memory | redis
	Capacity int           `yaml:"capacity"`
	TTL      time.Duration `yaml:"ttl"`
	RedisURL string        `yaml:"redis_url"`
}

type WorkerConfig struct {
	Count      int           `yaml:"count"`
	QueueSize  int           `yaml:"queue_size"`
	JobTimeout time.Duration `yaml:"job_timeout"`
}

type HTTPConfig struct {
	UploadRatePerMinute int   `yaml:"upload_rate_per_minute"`
	MaxUploadBytes      int64 `yaml:"max_upload_bytes"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"` // empty disables the run journal
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"` // empty disables the reply archive
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Insecure  bool   `yaml:"insecure"`
}

func Default() Config {
	return Config{
		Port:            "8000",
		LogLevel:        "info",
		ShutdownTimeout: 30 * time.Second,
		STTProvider:     "gemini",
		LLMProvider:     "gemini",
		Retry: RetryConfig{
			MaxAttempts:       4,
			BackoffScheduleMS: []int{5000, 10000, 15000},
			Burst:             1,
		},
		Gemini:   GeminiConfig{Model: "gemini-2.5-flash"},
		OpenAI:   OpenAIConfig{Model: "gpt-4o-mini"},
		Telegram: TelegramConfig{Mode: "webhook"},
		Dedup: DedupConfig{
			Backend:  "memory",
			Capacity: 10000,
			TTL:      24 * time.Hour,
		},
		Worker: WorkerConfig{
			Count:      4,
			QueueSize:  64,
			JobTimeout: 5 * time.Minute,
		},
		HTTP: HTTPConfig{
			UploadRatePerMinute: 30,
			MaxUploadBytes:      25 << 20,
		},
	}
}

// Load applies the YAML file at path (if non-empty) and then the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(c *Config) error {
	var errs []error
	str := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(dst *int, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(dst *time.Duration, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	flt := func(dst *float64, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}

	str(&c.Port, "PORT")
	str(&c.LogLevel, "LOG_LEVEL")
	str(&c.TempDir, "TEMP_DIR")
	dur(&c.ShutdownTimeout, "SHUTDOWN_TIMEOUT")
	str(&c.STTProvider, "STT_PROVIDER")
	str(&c.LLMProvider, "LLM_PROVIDER")

	num(&c.Retry.MaxAttempts, "RETRY_MAX_ATTEMPTS")
	flt(&c.Retry.RatePerSecond, "REMOTE_RATE_PER_SECOND")
	num(&c.Retry.Burst, "REMOTE_BURST")
	if v := os.Getenv("RETRY_BACKOFF_MS"); v != "" {
		schedule, err := parseInts(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("RETRY_BACKOFF_MS: %w", err))
		} else {
			c.Retry.BackoffScheduleMS = schedule
		}
	}

	str(&c.Gemini.APIKey, "GOOGLE_API_KEY") // legacy name, GEMINI_API_KEY wins
	str(&c.Gemini.APIKey, "GEMINI_API_KEY")
	str(&c.Gemini.Model, "GEMINI_MODEL")
	str(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	str(&c.OpenAI.BaseURL, "OPENAI_BASE_URL")
	str(&c.OpenAI.Model, "OPENAI_MODEL")
	str(&c.Deepgram.APIKey, "DEEPGRAM_API_KEY")
	str(&c.ElevenLabs.APIKey, "ELEVEN_LABS_API_KEY")
	str(&c.ElevenLabs.VoiceID, "ELEVEN_LABS_INDIAN_VOICE_ID")

	str(&c.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	str(&c.Telegram.Mode, "TELEGRAM_MODE")
	str(&c.Telegram.WebhookURL, "TELEGRAM_WEBHOOK_URL")
	str(&c.Telegram.WebhookSecret, "TELEGRAM_WEBHOOK_SECRET")
	if v := os.Getenv("ADMIN_CHAT_ID"); v != "" {
		ids, err := parseInt64s(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("ADMIN_CHAT_ID: %w", err))
		} else {
			c.Telegram.AdminChatIDs = ids
		}
	}

	str(&c.Dedup.Backend, "DEDUP_BACKEND")
	num(&c.Dedup.Capacity, "DEDUP_CAPACITY")
	dur(&c.Dedup.TTL, "DEDUP_TTL")
	str(&c.Dedup.RedisURL, "REDIS_URL")

	num(&c.Worker.Count, "WORKER_COUNT")
	num(&c.Worker.QueueSize, "WORKER_QUEUE_SIZE")
	dur(&c.Worker.JobTimeout, "WORKER_JOB_TIMEOUT")

	num(&c.HTTP.UploadRatePerMinute, "UPLOAD_RATE_PER_MINUTE")

	str(&c.Database.URL, "DATABASE_URL")

	str(&c.S3.Endpoint, "S3_ENDPOINT")
	str(&c.S3.AccessKey, "S3_ACCESS_KEY")
	str(&c.S3.SecretKey, "S3_SECRET_KEY")
	str(&c.S3.Bucket, "S3_BUCKET")
	str(&c.S3.Region, "S3_REGION")
	if v := os.Getenv("S3_INSECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("S3_INSECURE: %w", err))
		} else {
			c.S3.Insecure = b
		}
	}

	return errors.Join(errs...)
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	var errs []error

	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry.max_attempts must be at least 1"))
	}
	for _, ms := range c.Retry.BackoffScheduleMS {
		if ms < 0 {
			errs = append(errs, errors.New("retry.backoff_schedule_ms must not be negative"))
			break
		}
	}
	if c.Worker.Count < 1 {
		errs = append(errs, errors.New("worker.count must be at least 1"))
	}
	if c.Worker.QueueSize < 1 {
		errs = append(errs, errors.New("worker.queue_size must be at least 1"))
	}
	if c.Dedup.Capacity < 1 {
		errs = append(errs, errors.New("dedup.capacity must be at least 1"))
	}

	switch c.STTProvider {
	case "gemini":
		if c.Gemini.APIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for gemini transcription"))
		}
	case "whisper":
		if c.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for whisper transcription"))
		}
	case "deepgram":
		if c.Deepgram.APIKey == "" {
			errs = append(errs, errors.New("DEEPGRAM_API_KEY is required for deepgram transcription"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown stt_provider %q", c.STTProvider))
	}

	switch c.LLMProvider {
	case "gemini":
		if c.Gemini.APIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for the gemini text model"))
		}
	case "openai":
		if c.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai text model"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown llm_provider %q", c.LLMProvider))
	}

	if c.ElevenLabs.APIKey == "" {
		errs = append(errs, errors.New("ELEVEN_LABS_API_KEY is required"))
	}

	switch c.Telegram.Mode {
	case "webhook", "polling":
	default:
		errs = append(errs, fmt.Errorf("unknown telegram.mode %q", c.Telegram.Mode))
	}
	if c.Telegram.Mode == "polling" && c.Telegram.Token == "" {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN is required for polling"))
	}

	switch c.Dedup.Backend {
	case "memory":
	case "redis":
		if c.Dedup.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis dedup backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown dedup.backend %q", c.Dedup.Backend))
	}

	if c.S3.Endpoint != "" && c.S3.Bucket == "" {
		errs = append(errs, errors.New("S3_BUCKET is required when S3_ENDPOINT is set"))
	}

	return errors.Join(errs...)
}

// RetryPolicy converts the retry section for the remote caller.
func (c Config) RetryPolicy() remote.Policy {
	p := remote.Policy{MaxAttempts: c.Retry.MaxAttempts}
	for _, ms := range c.Retry.BackoffScheduleMS {
		p.Backoff = append(p.Backoff, time.Duration(ms)*time.Millisecond)
	}
	return p
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func parseInt64s(s string) ([]int64, error) {
	var out []int64
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
