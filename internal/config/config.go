package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed prompts/instructions.txt
var defaultInstructions string

//go:embed prompts/knowledge.txt
var defaultKnowledge string

// Session store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// ProviderOpenAI is the only completion provider the gateway speaks to.
const ProviderOpenAI = "openai"

// Config holds the application configuration
type Config struct {
	LLM       LLMConfig
	Server    ServerConfig
	Session   SessionConfig
	Logs      LogsConfig
	Assistant AssistantConfig
	Log       LogConfig
}

// LLMConfig holds the LLM configuration
type LLMConfig struct {
	Provider        string        `mapstructure:"provider"`
	BaseURL         string        `mapstructure:"base_url"`
	APIKey          string        `mapstructure:"api_key"`
	APIKeyParameter string        `mapstructure:"api_key_parameter"`
	Model           string        `mapstructure:"model"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// SessionConfig controls the visitor session cookie and where transcripts live.
type SessionConfig struct {
	Backend    string        `mapstructure:"backend"`
	Secret     string        `mapstructure:"secret"`
	CookieName string        `mapstructure:"cookie_name"`
	TTL        time.Duration `mapstructure:"ttl"`
	MaxTurns   int           `mapstructure:"max_turns"`
	SQLitePath string        `mapstructure:"sqlite_path"`
	RedisURL   string        `mapstructure:"redis_url"`
}

// LogsConfig locates the per-visitor transcript logs.
type LogsConfig struct {
	Dir string `mapstructure:"dir"`
}

// AssistantConfig is what the visitor sees and what seeds every transcript.
type AssistantConfig struct {
	Name         string `mapstructure:"name"`
	Description  string `mapstructure:"description"`
	Instructions string `mapstructure:"instructions"`
	Knowledge    string `mapstructure:"knowledge"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", ProviderOpenAI)
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.api_key_parameter", "")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.timeout", time.Duration(0))

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")

	v.SetDefault("session.backend", BackendMemory)
	v.SetDefault("session.secret", "")
	v.SetDefault("session.cookie_name", "salesdesk_session")
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.max_turns", 20)
	v.SetDefault("session.sqlite_path", "sessions.db")
	v.SetDefault("session.redis_url", "")

	v.SetDefault("logs.dir", "logs")

	v.SetDefault("assistant.name", "FA Controls Sales GPT")
	v.SetDefault("assistant.description", "A GPT designed to assist FA Controls's website visitors by answering inquiries about our products, "+
		"offering expert advice. GPT can make mistakes; please verify important info.")
	v.SetDefault("assistant.instructions", defaultInstructions)
	v.SetDefault("assistant.knowledge", defaultKnowledge)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads defaults, then config.yaml (or the file named by CONFIG_PATH),
// then the environment. A missing config.yaml is not an error; a missing
// CONFIG_PATH file is.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SALESDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("llm.api_key", "OPENAI_API_KEY"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

// ErrMissingAPIKey is returned by Validate when no upstream credential is set.
var ErrMissingAPIKey = errors.New("config: OpenAI API key not found in environment variables")

// Validate checks the settings the process cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if c.LLM.Model == "" {
		return errors.New("config: llm.model must not be empty")
	}
	switch c.LLM.Provider {
	case "", ProviderOpenAI:
	default:
		return fmt.Errorf("config: unsupported llm.provider %q", c.LLM.Provider)
	}
	switch c.Session.Backend {
	case BackendMemory, BackendSQLite:
	case BackendRedis:
		if c.Session.RedisURL == "" {
			return errors.New("config: session.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("config: unsupported session backend %q", c.Session.Backend)
	}
	if c.Session.MaxTurns < 0 {
		return errors.New("config: session.max_turns must not be negative")
	}
	if c.Session.CookieName == "" {
		return errors.New("config: session.cookie_name must not be empty")
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}
