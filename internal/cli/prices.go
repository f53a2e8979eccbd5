package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"conviction-trader/internal/logging"
	"conviction-trader/internal/models"
	"conviction-trader/pkg/utils"
)

// addPriceCommands adds the market data commands.
func addPriceCommands(rootCmd *cobra.Command, app *App) {
	pricesCmd := &cobra.Command{
		Use:   "prices",
		Short: "Refresh market prices",
	}
	pricesCmd.AddCommand(newPricesRefreshCmd(app))
	pricesCmd.AddCommand(newPricesWatchCmd(app))

	rootCmd.AddCommand(pricesCmd)
}

func newPricesRefreshCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch current prices and update setups and open positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			prices, err := refreshPrices(ctx, app)
			if err != nil {
				output.Error("Price refresh failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(prices)
			}
			displayPrices(output, prices)
			return nil
		},
	}
}

func newPricesWatchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Refresh prices on a schedule until interrupted",
		Long: `Refresh prices on a fixed schedule. The interval comes from the
market_data.refresh_interval config key unless overridden with --interval.
Press Ctrl+C to stop.`,
		Example: `  conviction prices watch
  conviction prices watch --interval 1m`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			interval, _ := cmd.Flags().GetDuration("interval")
			if interval == 0 {
				interval = app.Config.MarketData.RefreshInterval
			}
			if interval < 10*time.Second {
				interval = 10 * time.Second
			}

			refresh := func() {
				ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
				defer cancel()
				prices, err := refreshPrices(ctx, app)
				if err != nil {
					output.Warning("Refresh failed: %v", err)
					return
				}
				output.Printf("%s\n", time.Now().Format("15:04:05"))
				displayPrices(output, prices)
			}

			scheduler := cron.New()
			if _, err := scheduler.AddFunc(fmt.Sprintf("@every %s", interval), refresh); err != nil {
				output.Error("Failed to schedule refresh: %v", err)
				return err
			}

			output.Info("Watching prices every %s (Ctrl+C to stop)", interval)
			refresh()
			scheduler.Start()

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig

			schedCtx := scheduler.Stop()
			<-schedCtx.Done()
			output.Println()
			output.Info("Stopped")
			return nil
		},
	}
	cmd.Flags().Duration("interval", 0, "Refresh interval (overrides config)")
	return cmd
}

// refreshPrices fetches prices for every symbol in the ledger and applies
// them to setups and open positions.
func refreshPrices(ctx context.Context, app *App) (map[string]models.PriceData, error) {
	symbols := app.Engine.Symbols()
	if len(symbols) == 0 {
		return map[string]models.PriceData{}, nil
	}
	prices, err := app.Market.FetchPrices(ctx, symbols)
	if err != nil {
		logging.LogPriceRefresh(app.Logger, len(symbols), 0, err)
		return nil, err
	}
	app.Engine.ApplyMarketSnapshot(ctx, prices)
	return prices, nil
}

func displayPrices(output *Output, prices map[string]models.PriceData) {
	if len(prices) == 0 {
		output.Info("No symbols to refresh.")
		return
	}
	color.Cyan("Prices (%d)", len(prices))
	for symbol, data := range prices {
		change := utils.FormatPercent(data.Change24h)
		if data.Change24h >= 0 {
			change = output.Green(change)
		} else {
			change = output.Red(change)
		}
		output.Printf("  %-8s %s  %s\n", symbol, utils.FormatPrice(data.Price), change)
	}
}
