package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"conviction-trader/internal/config"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("Configuration is valid")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "edit",
		Short: "Open configuration file in editor",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			configPath := filepath.Join(config.DefaultConfigDir(), "config.toml")
			output.Info("Configuration file: %s", configPath)
			output.Println("Edit this file to change settings.")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Trading Configuration")
	output.Printf("  Mode:             %s\n", cfg.Trading.Mode)
	output.Printf("  Portfolio Value:  %.2f\n", cfg.Trading.PortfolioValue)
	output.Printf("  Monthly Goal:     %.2f\n", cfg.Trading.MonthlyGoal)
	output.Println()

	output.Bold("Market Data")
	output.Printf("  Base URL:         %s\n", cfg.MarketData.BaseURL)
	output.Printf("  Refresh Interval: %s\n", cfg.MarketData.RefreshInterval)
	output.Println()

	output.Bold("Credentials")
	configured := cfg.Credentials.Phemex.APIKey != ""
	output.Printf("  Phemex:           configured=%v\n", configured)
	output.Printf("  Phemex URL:       %s\n", cfg.Credentials.Phemex.BaseURL)
}
