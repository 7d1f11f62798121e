package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the loader reads,
// e.g. LEXICARD_LLM_GEMINI_MODELS.
const EnvPrefix = "LEXICARD"

// Default model lists, most capable first. Rotation starts at index 0.
var (
	DefaultGeminiModels    = []string{"gemini-2.0-flash", "gemini-2.0-flash-lite", "gemini-1.5-flash"}
	DefaultAnthropicModels = []string{"claude-3-5-haiku-latest", "claude-3-5-sonnet-latest"}
)

// Keys that have no default but must still be visible to Unmarshal when
// they only come from the environment.
var envOnlyKeys = []string{
	"database.url",
	"auth.jwt_secret",
	"llm.gemini_api_key",
	"llm.anthropic_api_key",
}

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from the config file,
// which take precedence over defaults.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom behaves like Load but reads the given config file instead of
// searching for config.yaml in the working directory. An empty path keeps
// the search behaviour.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envOnlyKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	normalizeLists(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks struct tags plus the cross-field rule that at least one
// provider named in the priority list is usable.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	for _, name := range cfg.LLM.ProviderPriority {
		if cfg.LLM.ProviderConfigured(name) {
			return nil
		}
	}
	return fmt.Errorf(
		"config validation failed: none of the providers %v has an API key and models",
		cfg.LLM.ProviderPriority,
	)
}

// ProviderConfigured reports whether the named provider has both a key and
// at least one model.
func (c LLMConfig) ProviderConfigured(name string) bool {
	switch name {
	case ProviderGemini:
		return c.GeminiAPIKey != "" && len(c.GeminiModels) > 0
	case ProviderAnthropic:
		return c.AnthropicAPIKey != "" && len(c.AnthropicModels) > 0
	default:
		return false
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("llm.gemini_models", DefaultGeminiModels)
	v.SetDefault("llm.anthropic_models", DefaultAnthropicModels)
	v.SetDefault("llm.anthropic_max_tokens", 2048)
	v.SetDefault("llm.provider_priority", []string{ProviderGemini, ProviderAnthropic})
	v.SetDefault("llm.call_timeout", 60*time.Second)
	v.SetDefault("llm.lock_rotation", true)
	v.SetDefault("llm.embedding_model", "text-embedding-004")

	v.SetDefault("enrichment.cache_ttl", 24*time.Hour)
	v.SetDefault("enrichment.cache_capacity", 5000)
	v.SetDefault("enrichment.batch_chunk_size", 10)
	v.SetDefault("enrichment.synonym_limit", 12)
	v.SetDefault("enrichment.synonym_concurrency", 4)
	v.SetDefault("enrichment.suggest_card_limit", 30)
	v.SetDefault("enrichment.cluster_mode", "symmetric")

	v.SetDefault("task.worker_count", 2)
	v.SetDefault("task.queue_size", 100)
}

// normalizeLists trims list entries coming from comma-separated env values
// and drops empty ones.
func normalizeLists(cfg *Config) {
	cfg.LLM.GeminiModels = compact(cfg.LLM.GeminiModels)
	cfg.LLM.AnthropicModels = compact(cfg.LLM.AnthropicModels)
	cfg.LLM.ProviderPriority = compact(cfg.LLM.ProviderPriority)
	for i, p := range cfg.LLM.ProviderPriority {
		cfg.LLM.ProviderPriority[i] = strings.ToLower(p)
	}
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
