package config

import (
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv        = "VIDEOSUMMARY_CONFIG"
	openRouterKeyEnv     = "OPENROUTER_API_KEY"
	openRouterURLEnv     = "OPENROUTER_API_URL"
	geminiKeyEnv         = "GEMINI_API_KEY"
	databaseDSNEnv       = "DATABASE_DSN"
	redisAddrEnv         = "REDIS_ADDR"
	progressWebhookEnv   = "PROGRESS_WEBHOOK_URL"
	defaultOpenRouterURL = "https://openrouter.ai/api/v1/chat/completions"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	AI         AIConfig         `yaml:"ai"`
	Processing ProcessingConfig `yaml:"processing"`
	Cache      CacheConfig      `yaml:"cache"`
	Subtitles  SubtitleConfig   `yaml:"subtitles"`
	Database   DatabaseConfig   `yaml:"database"`
	Notify     NotifyConfig     `yaml:"notify"`
}

// LoggingConfig selects log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// AIConfig wires providers, per-task model cascades, and call budgets.
type AIConfig struct {
	OpenRouter     OpenRouterConfig  `yaml:"openrouter"`
	Gemini         GeminiConfig      `yaml:"gemini"`
	Cascades       CascadeConfig     `yaml:"cascades"`
	MaxTokens      TokenConfig       `yaml:"max_tokens"`
	Temperature    TemperatureConfig `yaml:"temperature"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
	RetryAttempts  int               `yaml:"retry_attempts"`
}

// OpenRouterConfig describes the OpenAI-compatible chat completions API.
type OpenRouterConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
}

// GeminiConfig wires the Google Gemini provider.
type GeminiConfig struct {
	APIKey string `yaml:"apiKey"`
}

// CascadeConfig lists the ordered fallback models per task type.
type CascadeConfig struct {
	Chunk []string `yaml:"chunk"`
	Final []string `yaml:"final"`
	QA    []string `yaml:"qa"`
}

// TokenConfig bounds response length per task type.
type TokenConfig struct {
	ChunkSummary int `yaml:"chunk_summary"`
	FinalSummary int `yaml:"final_summary"`
	QAResponse   int `yaml:"qa_response"`
}

// TemperatureConfig sets sampling temperature per task family.
type TemperatureConfig struct {
	Summarization float64 `yaml:"summarization"`
	QA            float64 `yaml:"qa"`
}

// ProcessingConfig controls transcript splitting and Q&A bounds.
type ProcessingConfig struct {
	ChunkSize             int `yaml:"chunk_size"`
	ChunkOverlap          int `yaml:"chunk_overlap"`
	MaxChunks             int `yaml:"max_chunks"`
	MaxQATranscriptLength int `yaml:"max_qa_transcript_length"`
	ChunkConcurrency      int `yaml:"chunk_concurrency"`
}

// CacheConfig controls the per-room video cache.
type CacheConfig struct {
	Backend      string `yaml:"backend"`
	MaxPerRoom   int    `yaml:"max_per_room"`
	ExpiryHours  int    `yaml:"expiry_hours"`
	RedisAddr    string `yaml:"redisAddr"`
	SweepMinutes int    `yaml:"sweep_minutes"`
}

// SubtitleConfig controls transcript extraction.
type SubtitleConfig struct {
	Languages      []string `yaml:"languages"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	YTDLPPath      string   `yaml:"ytdlpPath"`
}

// DatabaseConfig describes optional Postgres history storage.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// NotifyConfig describes the optional progress webhook.
type NotifyConfig struct {
	WebhookURL string `yaml:"webhookUrl"`
}

// TTL returns the cache entry time-to-live.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.ExpiryHours) * time.Hour
}

// Timeout returns the per-attempt AI call timeout.
func (a AIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// Timeout returns the extraction deadline.
func (s SubtitleConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Load reads YAML configuration (if present) and applies environment
// overrides. The file is unmarshalled over the defaults, so only keys
// present in the file override them — explicit zero values (overlap 0,
// temperature 0) are honored.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			cfg = defaultConfig()
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(openRouterKeyEnv); v != "" {
		c.AI.OpenRouter.APIKey = v
	}
	if v := os.Getenv(openRouterURLEnv); v != "" {
		c.AI.OpenRouter.Endpoint = v
	}
	if v := os.Getenv(geminiKeyEnv); v != "" {
		c.AI.Gemini.APIKey = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv(progressWebhookEnv); v != "" {
		c.Notify.WebhookURL = v
	}
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		AI: AIConfig{
			OpenRouter: OpenRouterConfig{Endpoint: defaultOpenRouterURL},
			Cascades: CascadeConfig{
				Chunk: []string{
					"mistralai/mistral-small-3.2-24b-instruct:free",
					"cognitivecomputations/dolphin3.0-mistral-24b:free",
				},
				Final: []string{
					"mistralai/mistral-small-3.2-24b-instruct:free",
					"cognitivecomputations/dolphin3.0-mistral-24b:free",
				},
				QA: []string{
					"mistralai/mistral-small-3.2-24b-instruct:free",
					"cognitivecomputations/dolphin3.0-mistral-24b:free",
				},
			},
			MaxTokens:      TokenConfig{ChunkSummary: 800, FinalSummary: 5000, QAResponse: 5000},
			Temperature:    TemperatureConfig{Summarization: 0.7, QA: 0.7},
			TimeoutSeconds: 60,
			RetryAttempts:  3,
		},
		Processing: ProcessingConfig{
			ChunkSize:             12000,
			ChunkOverlap:          1000,
			MaxChunks:             20,
			MaxQATranscriptLength: 25000,
			ChunkConcurrency:      3,
		},
		Cache: CacheConfig{
			Backend:      "memory",
			MaxPerRoom:   5,
			ExpiryHours:  24,
			SweepMinutes: 60,
		},
		Subtitles: SubtitleConfig{
			Languages:      []string{"en", "en-US", "en-GB"},
			TimeoutSeconds: 60,
			YTDLPPath:      "yt-dlp",
		},
	}
}

// Normalize trims whitespace from cascade model identifiers in place.
func (c *Config) Normalize() {
	for _, list := range [][]string{c.AI.Cascades.Chunk, c.AI.Cascades.Final, c.AI.Cascades.QA} {
		for i := range list {
			list[i] = strings.TrimSpace(list[i])
		}
	}
}
