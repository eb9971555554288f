package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "REVERIE"

// configFileEnv names the environment variable that points at an optional config file.
const configFileEnv = EnvPrefix + "_CONFIG_FILE"

// setDefaults registers every known key. Keys without a sensible default are
// registered with their zero value so that environment variables bound through
// AutomaticEnv are visible to Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", "")
	v.SetDefault("database.mongo_database", "reverie")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("redis.url", "")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.analysis_model", "gemini-2.0-flash")
	v.SetDefault("llm.image_model", "imagen-3.0-generate-002")
	v.SetDefault("llm.prompt_template_path", "")
	v.SetDefault("llm.request_timeout", "60s")

	v.SetDefault("image_host.cloud_name", "")
	v.SetDefault("image_host.api_key", "")
	v.SetDefault("image_host.api_secret", "")
	v.SetDefault("image_host.folder", "reverie")
	v.SetDefault("image_host.brand_mark_id", "reverie:brand-mark")
	v.SetDefault("image_host.panel_id", "reverie:panel")

	v.SetDefault("pipeline.analysis_concurrency", 3)
	v.SetDefault("pipeline.image_concurrency", 2)
	v.SetDefault("pipeline.analysis_max_attempts", 1)
	v.SetDefault("pipeline.image_max_attempts", 3)
	v.SetDefault("pipeline.retry_delay", "10s")
	v.SetDefault("pipeline.manual_retry_limit", 3)
	v.SetDefault("pipeline.recovery_stale_after", "5m")
	v.SetDefault("pipeline.recovery_interval", "1m")
	v.SetDefault("pipeline.auto_image", true)
	v.SetDefault("pipeline.brand_text", "reverie")
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// A .env file in the working directory is loaded first if present.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path := os.Getenv(configFileEnv); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
