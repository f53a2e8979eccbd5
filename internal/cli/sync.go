package cli

import (
	"context"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"conviction-trader/internal/models"
	"conviction-trader/pkg/utils"
)

// addSyncCommands adds the broker reconciliation commands.
func addSyncCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newSyncCmd(app))
	rootCmd.AddCommand(newAccountCmd(app))
}

func newSyncCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Import open broker positions into the ledger",
		Long: `Fetch open positions from the exchange and import any that are not
already tracked. Existing positions for the same symbol and direction are
left alone. A broker failure degrades to importing nothing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			brokerPositions, err := app.Gateway.GetPositions(ctx)
			if err != nil {
				output.Warning("Broker unavailable, nothing imported: %v", err)
				brokerPositions = nil
			}

			imported := app.Engine.ImportBrokerPositions(ctx, brokerPositions)

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"brokerPositions": len(brokerPositions),
					"imported":        imported,
				})
			}

			output.Success("Sync complete: %d broker positions, %d imported", len(brokerPositions), len(imported))
			for i := range imported {
				displayPositionRow(output, &imported[i])
			}
			return nil
		},
	}
}

func newAccountCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "account",
		Short: "Show the broker account summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			account, err := app.Gateway.GetAccount(ctx)
			if err != nil {
				output.Error("Failed to fetch account: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(account)
			}
			displayAccount(output, account)
			return nil
		},
	}
}

func displayAccount(output *Output, account *models.Account) {
	color.Cyan("Account %d (%s)", account.AccountID, account.Currency)
	output.Printf("  Total Equity:      %s\n", utils.FormatCurrency(account.TotalEquity))
	output.Printf("  Available Balance: %s\n", utils.FormatCurrency(account.AvailableBalance))
	pnl := account.UnrealisedPnL
	output.Printf("  Unrealized P&L:    %s\n", output.PnLString(utils.FormatPnL(pnl), pnl))
}
