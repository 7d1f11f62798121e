package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"   validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth"       validate:"required"`
	LLM        LLMConfig        `mapstructure:"llm"        validate:"required"`
	Enrichment EnrichmentConfig `mapstructure:"enrichment" validate:"required"`
	Task       TaskConfig       `mapstructure:"task"       validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains the settings needed to validate access tokens.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// Provider names accepted in LLMConfig.ProviderPriority.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// LLMConfig contains the provider credentials, the ordered model lists the
// rotation cycles through, and the order in which providers are tried.
//
// A provider without an API key or without models is treated as not
// configured; requests that reach it fail with generation.ErrNotConfigured.
type LLMConfig struct {
	GeminiAPIKey       string        `mapstructure:"gemini_api_key"`
	GeminiModels       []string      `mapstructure:"gemini_models"        validate:"dive,required"`
	AnthropicAPIKey    string        `mapstructure:"anthropic_api_key"`
	AnthropicModels    []string      `mapstructure:"anthropic_models"     validate:"dive,required"`
	AnthropicMaxTokens int64         `mapstructure:"anthropic_max_tokens" validate:"gt=0"`
	ProviderPriority   []string      `mapstructure:"provider_priority"    validate:"required,min=1,unique,dive,oneof=gemini anthropic"`
	CallTimeout        time.Duration `mapstructure:"call_timeout"         validate:"gt=0"`
	LockRotation       bool          `mapstructure:"lock_rotation"`
	EmbeddingModel     string        `mapstructure:"embedding_model"`
}

// EnrichmentConfig controls the enrichment cache, batching and the synonym
// clustering behaviour.
type EnrichmentConfig struct {
	CacheTTL           time.Duration `mapstructure:"cache_ttl"           validate:"gt=0"`
	CacheCapacity      int           `mapstructure:"cache_capacity"      validate:"gt=0"`
	BatchChunkSize     int           `mapstructure:"batch_chunk_size"    validate:"gt=0,lte=50"`
	SynonymLimit       int           `mapstructure:"synonym_limit"       validate:"gt=0,lte=50"`
	SynonymConcurrency int           `mapstructure:"synonym_concurrency" validate:"gt=0"`
	SuggestCardLimit   int           `mapstructure:"suggest_card_limit"  validate:"gt=0"`
	ClusterMode        string        `mapstructure:"cluster_mode"        validate:"oneof=directed symmetric"`
}

// TaskConfig sizes the background worker pool.
type TaskConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"gt=0"`
	QueueSize   int `mapstructure:"queue_size"   validate:"gt=0"`
}
