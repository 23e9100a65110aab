package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv = "TISKY_CONFIG"

	logLevelEnv     = "LOG_LEVEL"
	baseURLEnv      = "PSP_BASE_URL"
	requestDelayEnv = "PSP_REQUEST_DELAY"
	httpTimeoutEnv  = "PSP_HTTP_TIMEOUT"
	dataDirEnv      = "DATA_DIR"
	storeBackendEnv = "STORE_BACKEND"
	sqlitePathEnv   = "SQLITE_PATH"
	indexPathEnv    = "PRINT_INDEX_PATH"

	llmProviderEnv    = "LLM_PROVIDER"
	ollamaURLEnv      = "OLLAMA_URL"
	ollamaModelEnv    = "OLLAMA_MODEL"
	ollamaAPIKeyEnv   = "OLLAMA_API_KEY"
	openAIBaseURLEnv  = "OPENAI_BASE_URL"
	openAIModelEnv    = "OPENAI_MODEL"
	openAIAPIKeyEnv   = "OPENAI_API_KEY"
	anthropicKeyEnv   = "ANTHROPIC_API_KEY"
	anthropicModelEnv = "ANTHROPIC_MODEL"
	verbatimCharsEnv  = "LLM_VERBATIM_CHARS"
	maxCharsEnv       = "LLM_MAX_CHARS"

	refreshEnabledEnv = "DAILY_REFRESH_ENABLED"
	refreshHourEnv    = "DAILY_REFRESH_HOUR"
	refreshOffsetEnv  = "DAILY_REFRESH_UTC_OFFSET"

	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Store   StoreConfig   `yaml:"store"`
	Source  SourceConfig  `yaml:"source"`
	LLM     LLMConfig     `yaml:"llm"`
	Refresh RefreshConfig `yaml:"refresh"`
	Index   IndexConfig   `yaml:"index"`
	Notify  NotifyConfig  `yaml:"notify"`
}

// NotifyConfig wires the optional Telegram run notifications.
type NotifyConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// StoreConfig selects the artifact store backend and its location.
type StoreConfig struct {
	Backend    string `yaml:"backend"`
	DataDir    string `yaml:"dataDir"`
	SQLitePath string `yaml:"sqlitePath"`
}

// SourceConfig describes how to reach the parliament site.
type SourceConfig struct {
	BaseURL      string  `yaml:"baseUrl"`
	RequestDelay float64 `yaml:"requestDelay"`
	HTTPTimeout  int     `yaml:"httpTimeout"`
}

// Delay converts the politeness delay to a duration.
func (s SourceConfig) Delay() time.Duration {
	return time.Duration(s.RequestDelay * float64(time.Second))
}

// Timeout converts the HTTP timeout to a duration.
func (s SourceConfig) Timeout() time.Duration {
	return time.Duration(s.HTTPTimeout) * time.Second
}

// LLMConfig selects the generation provider and its text budget.
type LLMConfig struct {
	Provider      string          `yaml:"provider"`
	Ollama        OllamaConfig    `yaml:"ollama"`
	OpenAI        OpenAIConfig    `yaml:"openai"`
	Anthropic     AnthropicConfig `yaml:"anthropic"`
	VerbatimChars int             `yaml:"verbatimChars"`
	MaxChars      int             `yaml:"maxChars"`
}

// OllamaConfig wires the local Ollama server.
type OllamaConfig struct {
	URL     string `yaml:"url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"apiKey"`
	Timeout int    `yaml:"timeout"`
}

// OpenAIConfig wires any OpenAI-compatible chat completion endpoint.
type OpenAIConfig struct {
	BaseURL string `yaml:"baseUrl"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"apiKey"`
}

// AnthropicConfig wires the Anthropic API.
type AnthropicConfig struct {
	Model  string `yaml:"model"`
	APIKey string `yaml:"apiKey"`
}

// RefreshConfig defines the daily refresh job.
type RefreshConfig struct {
	Enabled   bool `yaml:"enabled"`
	Hour      int  `yaml:"hour"`
	UTCOffset int  `yaml:"utcOffset"`
}

// Location resolves the refresh offset to a fixed zone. DST is deliberately
// ignored; a one-hour shift is acceptable for a night-time maintenance job.
func (r RefreshConfig) Location() *time.Location {
	name := fmt.Sprintf("UTC%+d", r.UTCOffset)
	if r.UTCOffset == 1 {
		name = "CET"
	}
	return time.FixedZone(name, r.UTCOffset*3600)
}

// IndexConfig points at the print-number index file.
type IndexConfig struct {
	Path string `yaml:"path"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(baseURLEnv); v != "" {
		c.Source.BaseURL = v
	}
	if v := os.Getenv(requestDelayEnv); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			c.Source.RequestDelay = f
		} else {
			log.Printf("config: invalid %s=%q, keeping %.2f", requestDelayEnv, v, c.Source.RequestDelay)
		}
	}
	if v := os.Getenv(httpTimeoutEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Source.HTTPTimeout = n
		}
	}

	if v := os.Getenv(dataDirEnv); v != "" {
		c.Store.DataDir = v
	}
	if v := os.Getenv(storeBackendEnv); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv(sqlitePathEnv); v != "" {
		c.Store.SQLitePath = v
	}
	if v := os.Getenv(indexPathEnv); v != "" {
		c.Index.Path = v
	}

	if v := os.Getenv(llmProviderEnv); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv(ollamaURLEnv); v != "" {
		c.LLM.Ollama.URL = v
	}
	if v := os.Getenv(ollamaModelEnv); v != "" {
		c.LLM.Ollama.Model = v
	}
	if v := os.Getenv(ollamaAPIKeyEnv); v != "" {
		c.LLM.Ollama.APIKey = v
	}
	if v := os.Getenv(openAIBaseURLEnv); v != "" {
		c.LLM.OpenAI.BaseURL = v
	}
	if v := os.Getenv(openAIModelEnv); v != "" {
		c.LLM.OpenAI.Model = v
	}
	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.LLM.OpenAI.APIKey = v
	}
	if v := os.Getenv(anthropicKeyEnv); v != "" {
		c.LLM.Anthropic.APIKey = v
	}
	if v := os.Getenv(anthropicModelEnv); v != "" {
		c.LLM.Anthropic.Model = v
	}
	if v := os.Getenv(verbatimCharsEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.LLM.VerbatimChars = n
		}
	}
	if v := os.Getenv(maxCharsEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.LLM.MaxChars = n
		}
	}

	if v := os.Getenv(refreshEnabledEnv); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Refresh.Enabled = b
		}
	}
	if v := os.Getenv(refreshHourEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 23 {
			c.Refresh.Hour = n
		} else {
			log.Printf("config: invalid %s=%q, keeping %d", refreshHourEnv, v, c.Refresh.Hour)
		}
	}
	if v := os.Getenv(refreshOffsetEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Refresh.UTCOffset = n
		}
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notify.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notify.ChatID = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Store.Backend != "" {
		base.Store.Backend = override.Store.Backend
	}
	if override.Store.DataDir != "" {
		base.Store.DataDir = override.Store.DataDir
	}
	if override.Store.SQLitePath != "" {
		base.Store.SQLitePath = override.Store.SQLitePath
	}

	if override.Source.BaseURL != "" {
		base.Source.BaseURL = override.Source.BaseURL
	}
	if override.Source.RequestDelay > 0 {
		base.Source.RequestDelay = override.Source.RequestDelay
	}
	if override.Source.HTTPTimeout > 0 {
		base.Source.HTTPTimeout = override.Source.HTTPTimeout
	}

	if override.LLM.Provider != "" {
		base.LLM.Provider = override.LLM.Provider
	}
	if override.LLM.Ollama.URL != "" {
		base.LLM.Ollama.URL = override.LLM.Ollama.URL
	}
	if override.LLM.Ollama.Model != "" {
		base.LLM.Ollama.Model = override.LLM.Ollama.Model
	}
	if override.LLM.Ollama.APIKey != "" {
		base.LLM.Ollama.APIKey = override.LLM.Ollama.APIKey
	}
	if override.LLM.Ollama.Timeout > 0 {
		base.LLM.Ollama.Timeout = override.LLM.Ollama.Timeout
	}
	if override.LLM.OpenAI.BaseURL != "" {
		base.LLM.OpenAI.BaseURL = override.LLM.OpenAI.BaseURL
	}
	if override.LLM.OpenAI.Model != "" {
		base.LLM.OpenAI.Model = override.LLM.OpenAI.Model
	}
	if override.LLM.OpenAI.APIKey != "" {
		base.LLM.OpenAI.APIKey = override.LLM.OpenAI.APIKey
	}
	if override.LLM.Anthropic.Model != "" {
		base.LLM.Anthropic.Model = override.LLM.Anthropic.Model
	}
	if override.LLM.Anthropic.APIKey != "" {
		base.LLM.Anthropic.APIKey = override.LLM.Anthropic.APIKey
	}
	if override.LLM.VerbatimChars > 0 {
		base.LLM.VerbatimChars = override.LLM.VerbatimChars
	}
	if override.LLM.MaxChars > 0 {
		base.LLM.MaxChars = override.LLM.MaxChars
	}

	if override.Refresh.Enabled {
		base.Refresh.Enabled = true
	}
	if override.Refresh.Hour > 0 {
		base.Refresh.Hour = override.Refresh.Hour
	}
	if override.Refresh.UTCOffset != 0 {
		base.Refresh.UTCOffset = override.Refresh.UTCOffset
	}

	if override.Index.Path != "" {
		base.Index.Path = override.Index.Path
	}

	if override.Notify.BotToken != "" {
		base.Notify.BotToken = override.Notify.BotToken
	}
	if override.Notify.ChatID != "" {
		base.Notify.ChatID = override.Notify.ChatID
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Store: StoreConfig{
			Backend:    "fs",
			DataDir:    "data",
			SQLitePath: "data/tisky.db",
		},
		Source: SourceConfig{
			BaseURL:      "https://www.psp.cz",
			RequestDelay: 1.0,
			HTTPTimeout:  30,
		},
		LLM: LLMConfig{
			Provider: "ollama",
			Ollama: OllamaConfig{
				URL:     "http://localhost:11434",
				Model:   "qwen3:8b",
				Timeout: 120,
			},
			OpenAI: OpenAIConfig{
				BaseURL: "https://api.openai.com/v1",
				Model:   "gpt-4o-mini",
			},
			Anthropic: AnthropicConfig{
				Model: "claude-sonnet-4-20250514",
			},
			VerbatimChars: 8000,
			MaxChars:      12000,
		},
		Refresh: RefreshConfig{
			Enabled:   false,
			Hour:      3,
			UTCOffset: 1,
		},
		Index: IndexConfig{Path: "data/print_index.json"},
	}
}
