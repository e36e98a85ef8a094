package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Gmail     GmailConfig     `mapstructure:"gmail"`
	IMAP      IMAPConfig      `mapstructure:"imap"`
	HelpScout HelpScoutConfig `mapstructure:"helpscout"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"`
}

// GmailConfig holds the OAuth client used by every Gmail connection
type GmailConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
	PubSubTopic  string `mapstructure:"pubsub_topic"`
}

// IMAPConfig holds the server used by IMAP connections
type IMAPConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	DraftsMailbox string `mapstructure:"drafts_mailbox"`
}

// HelpScoutConfig holds Help Scout API configuration
type HelpScoutConfig struct {
	AppID             string `mapstructure:"app_id"`
	AppSecret         string `mapstructure:"app_secret"`
	BaseURL           string `mapstructure:"base_url"`
	WebhookSecret     string `mapstructure:"webhook_secret"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
}

// LLMConfig selects and configures the language model provider
type LLMConfig struct {
	Provider          string        `mapstructure:"provider"`
	AnthropicAPIKey   string        `mapstructure:"anthropic_api_key"`
	OpenAIAPIKey      string        `mapstructure:"openai_api_key"`
	Model             string        `mapstructure:"model"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

// PipelineConfig holds ingestion tuning knobs
type PipelineConfig struct {
	MatchCandidateLimit int           `mapstructure:"match_candidate_limit"`
	DraftQueueSize      int           `mapstructure:"draft_queue_size"`
	DraftWorkers        int           `mapstructure:"draft_workers"`
	DraftTimeout        time.Duration `mapstructure:"draft_timeout"`
	BackfillLimit       int           `mapstructure:"backfill_limit"`
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	IntervalMinutes  int    `mapstructure:"interval_minutes"`
	WatchRenewalSpec string `mapstructure:"watch_renewal_spec"`
}

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// LoadConfig loads configuration from environment variables and config file
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Environment variables override config file
	viper.AutomaticEnv()
	bindEnvVars()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "120s")

	viper.SetDefault("database.driver", DriverMySQL)
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 3306)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.path", "feedback-relay.db")

	viper.SetDefault("imap.port", 993)
	viper.SetDefault("imap.drafts_mailbox", "Drafts")

	viper.SetDefault("helpscout.base_url", "https://api.helpscout.net/v2")
	viper.SetDefault("helpscout.requests_per_minute", 200)

	viper.SetDefault("llm.provider", ProviderAnthropic)
	viper.SetDefault("llm.model", "claude-sonnet-4-5")
	viper.SetDefault("llm.timeout", "60s")
	viper.SetDefault("llm.requests_per_second", 2)

	viper.SetDefault("pipeline.match_candidate_limit", 50)
	viper.SetDefault("pipeline.draft_queue_size", 100)
	viper.SetDefault("pipeline.draft_workers", 2)
	viper.SetDefault("pipeline.draft_timeout", "90s")
	viper.SetDefault("pipeline.backfill_limit", 10)

	viper.SetDefault("scheduler.enabled", false)
	viper.SetDefault("scheduler.interval_minutes", 15)
	viper.SetDefault("scheduler.watch_renewal_spec", "0 0 3 * * *")
}

func bindEnvVars() {
	// Server
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	// Database
	viper.BindEnv("database.driver", "DB_DRIVER")
	viper.BindEnv("database.host", "DB_HOST")
	viper.BindEnv("database.port", "DB_PORT")
	viper.BindEnv("database.user", "DB_USER")
	viper.BindEnv("database.password", "DB_PASSWORD")
	viper.BindEnv("database.dbname", "DB_NAME")
	viper.BindEnv("database.sslmode", "DB_SSLMODE")
	viper.BindEnv("database.path", "DB_PATH")

	// Gmail
	viper.BindEnv("gmail.client_id", "GMAIL_CLIENT_ID")
	viper.BindEnv("gmail.client_secret", "GMAIL_CLIENT_SECRET")
	viper.BindEnv("gmail.redirect_url", "GMAIL_REDIRECT_URL")
	viper.BindEnv("gmail.pubsub_topic", "GMAIL_PUBSUB_TOPIC")

	// IMAP
	viper.BindEnv("imap.host", "IMAP_HOST")
	viper.BindEnv("imap.port", "IMAP_PORT")
	viper.BindEnv("imap.drafts_mailbox", "IMAP_DRAFTS_MAILBOX")

	// Help Scout
	viper.BindEnv("helpscout.app_id", "HELPSCOUT_APP_ID")
	viper.BindEnv("helpscout.app_secret", "HELPSCOUT_APP_SECRET")
	viper.BindEnv("helpscout.base_url", "HELPSCOUT_BASE_URL")
	viper.BindEnv("helpscout.webhook_secret", "HELPSCOUT_WEBHOOK_SECRET")
	viper.BindEnv("helpscout.requests_per_minute", "HELPSCOUT_REQUESTS_PER_MINUTE")

	// LLM
	viper.BindEnv("llm.provider", "LLM_PROVIDER")
	viper.BindEnv("llm.anthropic_api_key", "ANTHROPIC_API_KEY")
	viper.BindEnv("llm.openai_api_key", "OPENAI_API_KEY")
	viper.BindEnv("llm.model", "LLM_MODEL")
	viper.BindEnv("llm.timeout", "LLM_TIMEOUT")
	viper.BindEnv("llm.requests_per_second", "LLM_REQUESTS_PER_SECOND")

	// Pipeline
	viper.BindEnv("pipeline.match_candidate_limit", "PIPELINE_MATCH_CANDIDATE_LIMIT")
	viper.BindEnv("pipeline.draft_queue_size", "PIPELINE_DRAFT_QUEUE_SIZE")
	viper.BindEnv("pipeline.draft_workers", "PIPELINE_DRAFT_WORKERS")
	viper.BindEnv("pipeline.draft_timeout", "PIPELINE_DRAFT_TIMEOUT")
	viper.BindEnv("pipeline.backfill_limit", "PIPELINE_BACKFILL_LIMIT")

	// Scheduler
	viper.BindEnv("scheduler.enabled", "SCHEDULER_ENABLED")
	viper.BindEnv("scheduler.interval_minutes", "SCHEDULER_INTERVAL_MINUTES")
	viper.BindEnv("scheduler.watch_renewal_spec", "SCHEDULER_WATCH_RENEWAL_SPEC")
}

// GetDSN returns the connection string for the configured driver
func (c *DatabaseConfig) GetDSN() string {
	switch c.Driver {
	case DriverPostgres:
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
			c.Host, c.User, c.Password, c.DBName, c.Port, c.SSLMode)
	case DriverSQLite:
		return c.Path
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.User, c.Password, c.Host, c.Port, c.DBName)
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	switch c.Database.Driver {
	case DriverMySQL, DriverPostgres:
		if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
			return fmt.Errorf("database host, user, and dbname are required")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	switch c.LLM.Provider {
	case ProviderAnthropic:
		if c.LLM.AnthropicAPIKey == "" {
			return fmt.Errorf("anthropic api key is required")
		}
	case ProviderOpenAI:
		if c.LLM.OpenAIAPIKey == "" {
			return fmt.Errorf("openai api key is required")
		}
	default:
		return fmt.Errorf("unsupported llm provider %q", c.LLM.Provider)
	}

	if c.Pipeline.MatchCandidateLimit <= 0 {
		return fmt.Errorf("match candidate limit must be greater than 0")
	}
	if c.Pipeline.DraftWorkers <= 0 || c.Pipeline.DraftQueueSize <= 0 {
		return fmt.Errorf("draft workers and queue size must be greater than 0")
	}

	if c.Scheduler.Enabled && c.Scheduler.IntervalMinutes <= 0 {
		return fmt.Errorf("scheduler interval must be greater than 0")
	}

	return nil
}
