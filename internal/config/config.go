// Package config provides configuration management for the trading application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Trading     TradingConfig    `mapstructure:"trading"`
	MarketData  MarketDataConfig `mapstructure:"market_data"`
	UI          UIConfig         `mapstructure:"ui"`
	Credentials Credentials      `mapstructure:"-"` // Loaded separately
}

// TradingConfig holds trading-related configuration.
type TradingConfig struct {
	Mode           string  `mapstructure:"mode"`            // "live", "paper"
	PortfolioValue float64 `mapstructure:"portfolio_value"` // starting value for a fresh state
	MonthlyGoal    float64 `mapstructure:"monthly_goal"`
}

// MarketDataConfig holds market data provider configuration.
type MarketDataConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
	TimeFormat   string `mapstructure:"time_format"`
}

// Credentials holds API credentials.
type Credentials struct {
	Phemex PhemexCredentials `mapstructure:"phemex"`
}

// PhemexCredentials holds Phemex API credentials.
type PhemexCredentials struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	BaseURL   string `mapstructure:"base_url"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/conviction-trader"
	}
	return filepath.Join(home, ".config", "conviction-trader")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
// A missing config file creates a template and falls back to defaults.
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

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("trading.mode", "live")
	v.SetDefault("trading.portfolio_value", 14766.0)
	v.SetDefault("trading.monthly_goal", 2000.0)
	v.SetDefault("market_data.base_url", "")
	v.SetDefault("market_data.refresh_interval", time.Minute)
	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.date_format", "02-Jan-2006")
	v.SetDefault("ui.time_format", "15:04:05")
}

func loadConfigFile(configDir string, target *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// First run: write a template and continue with defaults.
			if werr := createTemplateConfig(configDir); werr != nil {
				return werr
			}
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

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PHEMEX_API_KEY"); v != "" {
		cfg.Credentials.Phemex.APIKey = v
	}
	if v := os.Getenv("PHEMEX_API_SECRET"); v != "" {
		cfg.Credentials.Phemex.APISecret = v
	}
	if v := os.Getenv("TRADING_MODE"); v != "" {
		cfg.Trading.Mode = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Trading.Mode != "" && c.Trading.Mode != "live" && c.Trading.Mode != "paper" {
		return fmt.Errorf("invalid trading mode: %s (must be 'live' or 'paper')", c.Trading.Mode)
	}
	if c.Trading.PortfolioValue < 0 {
		return fmt.Errorf("portfolio_value must be non-negative")
	}
	if c.Trading.MonthlyGoal < 0 {
		return fmt.Errorf("monthly_goal must be non-negative")
	}
	if c.MarketData.RefreshInterval != 0 && c.MarketData.RefreshInterval < 10*time.Second {
		return fmt.Errorf("refresh_interval must be at least 10s")
	}
	return nil
}

// IsPaperMode returns true if paper trading mode is enabled.
func (c *Config) IsPaperMode() bool {
	return c.Trading.Mode == "paper"
}
