package cli

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"conviction-trader/internal/broker"
	"conviction-trader/internal/config"
	"conviction-trader/internal/logging"
	"conviction-trader/internal/marketdata"
	"conviction-trader/internal/store"
	"conviction-trader/internal/trading"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Engine  *trading.Engine
	Store   store.Store
	Market  *marketdata.Client
	Gateway broker.Gateway
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Initialize the snapshot store
	dbPath := filepath.Join(config.DefaultConfigDir(), "trader.db")
	dataStore, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, state will not persist")
	} else {
		app.Store = dataStore
		logger.Debug().Str("path", dbPath).Msg("SQLite store initialized")
	}

	// The engine owns the state tree; it loads the last snapshot here and
	// falls back to an empty default state if the snapshot is unreadable.
	app.Engine = trading.NewEngine(context.Background(), app.Store, logger)

	// Market data provider
	app.Market = marketdata.NewClient(cfg.MarketData.BaseURL, logger)

	// Exchange gateway: paper mode gets a simulated gateway, live mode the
	// Phemex gateway when credentials are present.
	if cfg.IsPaperMode() {
		app.Gateway = broker.NewPaperGateway(cfg.Trading.PortfolioValue)
		logger.Debug().Msg("Paper gateway initialized")
	} else if cfg.Credentials.Phemex.APIKey != "" {
		app.Gateway = broker.NewPhemexGateway(broker.PhemexConfig{
			BaseURL:   cfg.Credentials.Phemex.BaseURL,
			APIKey:    cfg.Credentials.Phemex.APIKey,
			APISecret: cfg.Credentials.Phemex.APISecret,
		}, logger)
		logger.Debug().Msg("Phemex gateway initialized")
	} else {
		app.Gateway = broker.NewPaperGateway(cfg.Trading.PortfolioValue)
		logger.Warn().Msg("Live mode without Phemex credentials, using paper gateway")
	}

	rootCmd := &cobra.Command{
		Use:   "conviction",
		Short: "Conviction Trader - factor-scored trade planning and portfolio ledger",
		Long: `Conviction Trader quantifies conviction in prospective trades, plans
multi-tranche DCA entries and exits, and tracks the resulting positions in a
portfolio ledger.

Setups are scored by counting corroborating qualitative factors; executed DCA
entries open ledger positions, and exchange positions can be reconciled into
the same ledger without duplicates.

Use 'conviction help <command>' for more information about a command.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	addSetupCommands(rootCmd, app)
	addPortfolioCommands(rootCmd, app)
	addPriceCommands(rootCmd, app)
	addSyncCommands(rootCmd, app)
	rootCmd.AddCommand(newConfigCmd(app))

	return rootCmd
}
