package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth" validate:"required"`
	LLM       LLMConfig       `mapstructure:"llm" validate:"required"`
	ImageHost ImageHostConfig `mapstructure:"image_host" validate:"required"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig selects and configures the entry store backend.
type DatabaseConfig struct {
	// Driver is one of postgres, mongo or memory.
	Driver string `mapstructure:"driver" validate:"required,oneof=postgres mongo memory"`
	URL    string `mapstructure:"url" validate:"required_unless=Driver memory,omitempty,url"`
	// MongoDatabase names the database used when Driver is mongo.
	MongoDatabase string `mapstructure:"mongo_database"`
	MaxOpenConns  int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns  int    `mapstructure:"max_idle_conns" validate:"gte=0"`
}

// RedisConfig configures the notification transport.
// When URL is empty, notifications are delivered through an in-process broker.
type RedisConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"gt=0"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey       string        `mapstructure:"gemini_api_key" validate:"required"`
	AnalysisModel      string        `mapstructure:"analysis_model" validate:"required"`
	ImageModel         string        `mapstructure:"image_model" validate:"required"`
	PromptTemplatePath string        `mapstructure:"prompt_template_path"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
}

// ImageHostConfig configures the image hosting and transformation service.
type ImageHostConfig struct {
	CloudName   string `mapstructure:"cloud_name" validate:"required"`
	APIKey      string `mapstructure:"api_key" validate:"required"`
	APISecret   string `mapstructure:"api_secret" validate:"required"`
	Folder      string `mapstructure:"folder"`
	BrandMarkID string `mapstructure:"brand_mark_id"`
	PanelID     string `mapstructure:"panel_id"`
}

// PipelineConfig tunes the background job pipeline.
type PipelineConfig struct {
	AnalysisConcurrency int           `mapstructure:"analysis_concurrency" validate:"gte=1"`
	ImageConcurrency    int           `mapstructure:"image_concurrency" validate:"gte=1"`
	AnalysisMaxAttempts int           `mapstructure:"analysis_max_attempts" validate:"gte=1"`
	ImageMaxAttempts    int           `mapstructure:"image_max_attempts" validate:"gte=1"`
	RetryDelay          time.Duration `mapstructure:"retry_delay" validate:"gte=0"`
	ManualRetryLimit    int           `mapstructure:"manual_retry_limit" validate:"gte=0"`
	RecoveryStaleAfter  time.Duration `mapstructure:"recovery_stale_after" validate:"gte=0"`
	RecoveryInterval    time.Duration `mapstructure:"recovery_interval" validate:"gte=0"`
	AutoImage           bool          `mapstructure:"auto_image"`
	BrandText           string        `mapstructure:"brand_text"`
}
