package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Cache    CacheConfig    `mapstructure:"cache"    validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	Storage  StorageConfig  `mapstructure:"storage"  validate:"required"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"             validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level"        validate:"required,oneof=debug info warn error"`
	LogFormat       string        `mapstructure:"log_format"       validate:"required,oneof=auto json text"`
	MaxUploadMB     int64         `mapstructure:"max_upload_mb"    validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig selects the durable task record store. When URL is empty the
// embedded SQLite database at SQLitePath is used instead of Postgres.
type DatabaseConfig struct {
	URL          string `mapstructure:"url"            validate:"omitempty,url"`
	SQLitePath   string `mapstructure:"sqlite_path"    validate:"required_without=URL"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=0"`
}

// UsesPostgres reports whether a Postgres connection string is configured.
func (c DatabaseConfig) UsesPostgres() bool {
	return c.URL != ""
}

// CacheConfig selects the volatile task record cache.
type CacheConfig struct {
	Backend       string `mapstructure:"backend"        validate:"required,oneof=memory redis"`
	RedisAddr     string `mapstructure:"redis_addr"     validate:"required_if=Backend redis"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"       validate:"gte=0"`
	KeyPrefix     string `mapstructure:"key_prefix"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey       string        `mapstructure:"gemini_api_key"`
	ModelName          string        `mapstructure:"model_name"           validate:"required"`
	MaxRetries         int           `mapstructure:"max_retries"          validate:"gte=0,lte=10"`
	RetryDelay         time.Duration `mapstructure:"retry_delay"          validate:"gte=0"`
	PromptTemplatePath string        `mapstructure:"prompt_template_path"`
}

// StorageConfig names the directories for uploaded inputs and rendered outputs.
type StorageConfig struct {
	UploadDir string `mapstructure:"upload_dir" validate:"required"`
	OutputDir string `mapstructure:"output_dir" validate:"required"`
}

// PipelineConfig tunes background execution. MaxConcurrent of 0 leaves the
// number of simultaneously running pipelines unbounded.
type PipelineConfig struct {
	MaxConcurrent int `mapstructure:"max_concurrent" validate:"gte=0"`
}
