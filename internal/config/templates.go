package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Conviction Trader Configuration

[trading]
# Trading mode: "live" or "paper"
mode = "live"
# Starting portfolio value for a fresh state
portfolio_value = 14766.0
# Monthly profit goal used for progress readouts
monthly_goal = 2000.0

[market_data]
# Market data API base URL (empty = public CoinGecko)
base_url = ""
# Price refresh interval for the watch command
refresh_interval = "1m"

[ui]
# Enable colored output
color_enabled = true
# Date format
date_format = "02-Jan-2006"
# Time format
time_format = "15:04:05"
`

const credentialsTemplate = `# Conviction Trader Credentials
# WARNING: Keep this file secure! Do not commit to version control.

[phemex]
api_key = ""
api_secret = ""
# Override for testnet, e.g. "https://testnet-api.phemex.com"
base_url = ""
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	// Use restricted permissions for credentials file
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}

	return nil
}
