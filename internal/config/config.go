// Package config provides configuration for the chat backend.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LLM provider names.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
)

// Config holds the server configuration.
// Values come from defaults, an optional config file and environment variables.
type Config struct {
	// Server settings
	HTTPPort       int      `mapstructure:"http_port"`
	RoutePrefix    string   `mapstructure:"route_prefix"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	// Storage
	StoreBackend  string `mapstructure:"store_backend"`
	DatabaseURL   string `mapstructure:"database_url"`
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`

	// Language model
	LLMProvider     string        `mapstructure:"llm_provider"`
	OpenAIAPIKey    string        `mapstructure:"openai_api_key"`
	OpenAIBaseURL   string        `mapstructure:"openai_base_url"`
	OpenAIModel     string        `mapstructure:"openai_model"`
	OpenAIMaxTokens int           `mapstructure:"openai_max_tokens"`
	GeminiAPIKey    string        `mapstructure:"gemini_api_key"`
	GeminiBaseURL   string        `mapstructure:"gemini_base_url"`
	GeminiModel     string        `mapstructure:"gemini_model"`
	GeminiMaxTokens int           `mapstructure:"gemini_max_tokens"`
	Temperature     float32       `mapstructure:"temperature"`
	TopP            float32       `mapstructure:"top_p"`
	TopK            int           `mapstructure:"top_k"`
	LLMTimeout      time.Duration `mapstructure:"llm_timeout"`

	// Prompt
	WindowSize   int    `mapstructure:"window_size"`
	SystemPrompt string `mapstructure:"system_prompt"`

	// Policy
	MaxMessageLength int `mapstructure:"max_message_length"`

	// WebSocket settings
	WSPingInterval   time.Duration `mapstructure:"ws_ping_interval"`
	WSReadTimeout    time.Duration `mapstructure:"ws_read_timeout"`
	WSWriteTimeout   time.Duration `mapstructure:"ws_write_timeout"`
	WSMaxMessageSize int64         `mapstructure:"ws_max_message_size"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_port", 5000)
	v.SetDefault("route_prefix", "/api/chat")
	v.SetDefault("allowed_origins", []string{"http://localhost:5173"})

	v.SetDefault("store_backend", StoreSQLite)
	// Appends open IMMEDIATE transactions regardless of _txlock.
	v.SetDefault("database_url", "file:chat.db?mode=rwc&_busy_timeout=5000")
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_database", "chat")

	v.SetDefault("llm_provider", ProviderGemini)
	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_base_url", "")
	v.SetDefault("openai_model", "gpt-3.5-turbo")
	v.SetDefault("openai_max_tokens", 500)
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("gemini_base_url", "")
	v.SetDefault("gemini_model", "gemini-2.5-flash")
	v.SetDefault("gemini_max_tokens", 5000)
	v.SetDefault("temperature", 0.7)
	v.SetDefault("top_p", 0.95)
	v.SetDefault("top_k", 40)
	v.SetDefault("llm_timeout", "0s")

	v.SetDefault("window_size", 10)
	v.SetDefault("system_prompt", "")

	v.SetDefault("max_message_length", 8000)

	v.SetDefault("ws_ping_interval", "30s")
	v.SetDefault("ws_read_timeout", "60s")
	v.SetDefault("ws_write_timeout", "10s")
	v.SetDefault("ws_max_message_size", 65536)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
}

// Load reads configuration. configPath may name a yaml or .env file; when
// empty, a "config" file in the working directory is used if present.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))

	return &cfg, nil
}

// APIKey returns the credential for the selected provider. An empty
// provider selects Gemini.
func (c *Config) APIKey() string {
	switch c.LLMProvider {
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	case ProviderGemini, "":
		return c.GeminiAPIKey
	}
	return ""
}

// CredentialEnv names the environment variable holding the selected
// provider's credential, or "" for providers that need none.
func (c *Config) CredentialEnv() string {
	switch c.LLMProvider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGemini, "":
		return "GEMINI_API_KEY"
	}
	return ""
}

// MaxOutputTokens returns the output limit for the selected provider.
func (c *Config) MaxOutputTokens() int {
	if c.LLMProvider == ProviderOpenAI {
		return c.OpenAIMaxTokens
	}
	return c.GeminiMaxTokens
}
