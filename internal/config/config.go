// Package config provides configuration management for the summary bot.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot         BotConfig      `mapstructure:"bot"`
	Pipeline    PipelineConfig `mapstructure:"pipeline"`
	Schedule    ScheduleConfig `mapstructure:"schedule"`
	Credentials Credentials    `mapstructure:"-"` // Loaded separately
}

// BotConfig holds bot behavior configuration.
type BotConfig struct {
	Password    string  `mapstructure:"password"`
	AdminIDs    []int64 `mapstructure:"admin_ids"`
	EVMAddress  string  `mapstructure:"evm_address"`
	WebhookHost string  `mapstructure:"webhook_host"` // empty means long-poll mode
	Port        int     `mapstructure:"port"`
	DBPath      string  `mapstructure:"db_path"`
}

// PipelineConfig holds summary pipeline tuning.
type PipelineConfig struct {
	MaxNewsResults    int `mapstructure:"max_news_results"`
	MaxSocialResults  int `mapstructure:"max_social_results"`
	MaxWhaleResults   int `mapstructure:"max_whale_results"`
	SearchConcurrency int `mapstructure:"search_concurrency"`
}

// ScheduleConfig holds the scheduled-broadcast configuration.
type ScheduleConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Timezone string   `mapstructure:"timezone"`
	Crons    []string `mapstructure:"crons"`
}

// Credentials holds API credentials.
type Credentials struct {
	Telegram   TelegramCredentials   `mapstructure:"telegram"`
	MarketData MarketDataCredentials `mapstructure:"market_data"`
	OpenRouter OpenRouterCredentials `mapstructure:"openrouter"`
}

// TelegramCredentials holds the Telegram bot token.
type TelegramCredentials struct {
	BotToken string `mapstructure:"bot_token"`
}

// MarketDataCredentials holds the quotes provider API key.
type MarketDataCredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// OpenRouterCredentials holds the completion provider credential and model.
type OpenRouterCredentials struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/crypto-summary-bot"
	}
	return filepath.Join(home, ".config", "crypto-summary-bot")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir string, target *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("bot.port", 8080)
	v.SetDefault("pipeline.max_news_results", 10)
	v.SetDefault("pipeline.max_social_results", 6)
	v.SetDefault("pipeline.max_whale_results", 5)
	v.SetDefault("pipeline.search_concurrency", 4)
	v.SetDefault("schedule.enabled", true)
	v.SetDefault("schedule.timezone", "Europe/Moscow")
	v.SetDefault("schedule.crons", []string{"0 8 * * *", "0 23 * * *"})

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if err := createTemplateConfig(configDir); err != nil {
				return err
			}
			// Fall through so the defaults above still apply on first run.
			return v.Unmarshal(target)
		}
		return err
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("openrouter.model", "openai/gpt-4o-mini")
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if err := createTemplateCredentials(configDir); err != nil {
				return err
			}
			return v.Unmarshal(creds)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Credentials.Telegram.BotToken = v
	}
	if v := os.Getenv("CMC_API_KEY"); v != "" {
		cfg.Credentials.MarketData.APIKey = v
	}
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		cfg.Credentials.OpenRouter.APIKey = v
	}
	if v := os.Getenv("AI_MODEL"); v != "" {
		cfg.Credentials.OpenRouter.Model = v
	}
	if v := os.Getenv("BOT_PASSWORD"); v != "" {
		cfg.Bot.Password = v
	}
	if v := os.Getenv("WEBHOOK_HOST"); v != "" {
		cfg.Bot.WebhookHost = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Bot.Port = port
		}
	}
	if v := os.Getenv("ADMIN_IDS"); v != "" {
		var ids []int64
		for _, part := range strings.Split(v, ",") {
			if id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
				ids = append(ids, id)
			}
		}
		if len(ids) > 0 {
			cfg.Bot.AdminIDs = ids
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Bot.DBPath == "" {
		cfg.Bot.DBPath = filepath.Join(DefaultConfigDir(), "bot.db")
	}
	if cfg.Credentials.OpenRouter.Model == "" {
		cfg.Credentials.OpenRouter.Model = "openai/gpt-4o-mini"
	}
	if cfg.Credentials.OpenRouter.BaseURL == "" {
		cfg.Credentials.OpenRouter.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.Pipeline.SearchConcurrency <= 0 {
		cfg.Pipeline.SearchConcurrency = 4
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Bot.Port <= 0 || c.Bot.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if c.Pipeline.MaxNewsResults < 0 || c.Pipeline.MaxSocialResults < 0 || c.Pipeline.MaxWhaleResults < 0 {
		return fmt.Errorf("pipeline result limits must be non-negative")
	}
	if c.Schedule.Enabled {
		if _, err := timezoneCheck(c.Schedule.Timezone); err != nil {
			return fmt.Errorf("invalid schedule timezone %q: %w", c.Schedule.Timezone, err)
		}
	}
	return nil
}

// HasAI reports whether a completion provider credential is configured.
// This is a valid steady state, not an error: without it the pipeline uses
// the deterministic formatter.
func (c *Config) HasAI() bool {
	return c.Credentials.OpenRouter.APIKey != ""
}

// IsAdmin reports whether the given Telegram ID is a configured admin.
func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.Bot.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}
