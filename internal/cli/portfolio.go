package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"conviction-trader/internal/models"
	"conviction-trader/internal/trading"
	"conviction-trader/pkg/utils"
)

// addPortfolioCommands adds the ledger commands.
func addPortfolioCommands(rootCmd *cobra.Command, app *App) {
	portfolioCmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Manage the position ledger",
	}
	portfolioCmd.AddCommand(newPositionsCmd(app))
	portfolioCmd.AddCommand(newCloseCmd(app))
	portfolioCmd.AddCommand(newPositionPriceCmd(app))
	portfolioCmd.AddCommand(newValueCmd(app))
	portfolioCmd.AddCommand(newExportCmd(app))

	rootCmd.AddCommand(portfolioCmd)
}

func newPositionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "positions",
		Short: "List positions with unrealized P&L",
		Example: `  conviction portfolio positions
  conviction portfolio positions --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			all, _ := cmd.Flags().GetBool("all")

			positions := app.Engine.Positions()
			if !all {
				positions = trading.OpenPositions(positions)
			}

			if output.IsJSON() {
				return output.JSON(positions)
			}
			if len(positions) == 0 {
				output.Info("No positions in the ledger.")
				return nil
			}

			color.Cyan("Positions (%d)", len(positions))
			for i := range positions {
				displayPositionRow(output, &positions[i])
			}
			output.Println()
			total := app.Engine.TotalPnL()
			output.Printf("  Open P&L: %s   Portfolio: %s   Monthly Goal: %.1f%%\n",
				output.PnLString(utils.FormatPnL(total), total),
				utils.FormatCurrency(app.Engine.PortfolioValue()),
				total/models.MonthlyGoal*100)
			return nil
		},
	}
	cmd.Flags().Bool("all", false, "Include closed positions")
	return cmd
}

func newCloseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "close <position-id> <exit-price>",
		Short: "Close a position at an exit price",
		Long:  "Close an open position. Closing is final: a closed position never reopens.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			exitPrice, err := strconv.ParseFloat(args[1], 64)
			if err != nil || exitPrice <= 0 {
				output.Error("Invalid exit price: %s", args[1])
				return fmt.Errorf("invalid exit price %q", args[1])
			}

			if err := app.Engine.ClosePosition(ctx, args[0], exitPrice); err != nil {
				output.Error("Failed to close position: %v", err)
				return err
			}

			pos, err := app.Engine.PositionByID(args[0])
			if err != nil {
				return err
			}
			pnl := trading.PositionPnL(&pos)
			output.Success("Closed %s %s at %s", pos.Symbol, pos.Direction, utils.FormatPrice(exitPrice))
			output.Printf("  Realized P&L: %s\n", output.PnLString(utils.FormatPnL(pnl), pnl))
			return nil
		},
	}
}

func newPositionPriceCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "price <position-id> <price>",
		Short: "Set a position's current price manually",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			price, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				output.Error("Invalid price: %s", args[1])
				return err
			}

			if err := app.Engine.UpdatePositionPrice(ctx, args[0], price); err != nil {
				output.Error("Failed to update price: %v", err)
				return err
			}

			pos, err := app.Engine.PositionByID(args[0])
			if err != nil {
				return err
			}
			pnl := trading.PositionPnL(&pos)
			output.Success("%s marked at %s, P&L %s", pos.Symbol,
				utils.FormatPrice(price), output.PnLString(utils.FormatPnL(pnl), pnl))
			return nil
		},
	}
}

func newValueCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "value [amount]",
		Short: "Show or set the portfolio value",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if len(args) == 0 {
				value := app.Engine.PortfolioValue()
				if output.IsJSON() {
					return output.JSON(map[string]float64{"portfolioValue": value})
				}
				output.Printf("Portfolio value: %s\n", utils.FormatCurrency(value))
				return nil
			}

			value, err := strconv.ParseFloat(args[0], 64)
			if err != nil || value <= 0 {
				output.Error("Invalid portfolio value: %s", args[0])
				return fmt.Errorf("invalid portfolio value %q", args[0])
			}
			app.Engine.SetPortfolioValue(ctx, value)
			output.Success("Portfolio value set to %s", utils.FormatCurrency(value))
			return nil
		},
	}
}

func newExportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export positions to CSV",
		Example: `  conviction portfolio export --file positions.csv
  conviction portfolio export`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			file, _ := cmd.Flags().GetString("file")

			positions := app.Engine.Positions()
			rows := make([]models.PositionCSV, 0, len(positions))
			for i := range positions {
				rows = append(rows, positionCSVRow(&positions[i]))
			}

			if file == "" {
				return gocsv.Marshal(&rows, cmd.OutOrStdout())
			}
			f, err := os.Create(file)
			if err != nil {
				output.Error("Failed to create %s: %v", file, err)
				return err
			}
			defer f.Close()
			if err := gocsv.Marshal(&rows, f); err != nil {
				output.Error("Failed to write CSV: %v", err)
				return err
			}
			output.Success("Exported %d positions to %s", len(rows), file)
			return nil
		},
	}
	cmd.Flags().String("file", "", "Output file (default stdout)")
	return cmd
}

func positionCSVRow(p *models.Position) models.PositionCSV {
	closeDate := ""
	if !p.CloseDate.IsZero() {
		closeDate = p.CloseDate.Format(time.RFC3339)
	}
	return models.PositionCSV{
		ID:           p.ID,
		SetupID:      p.SetupID,
		Symbol:       p.Symbol,
		Direction:    string(p.Direction),
		Source:       string(p.Source),
		EntryPrice:   p.EntryPrice,
		CurrentPrice: p.CurrentPrice,
		TargetPrice:  p.TargetPrice,
		StopPrice:    p.StopPrice,
		Size:         p.Size,
		Status:       string(p.Status),
		OpenDate:     p.OpenDate.Format(time.RFC3339),
		CloseDate:    closeDate,
		ExitPrice:    p.ExitPrice,
		PnL:          trading.PositionPnL(p),
	}
}

func displayPositionRow(output *Output, p *models.Position) {
	pnl := trading.PositionPnL(p)
	pct := trading.PositionPnLPercent(p)
	output.Printf("  %-14s %-5s %s  entry %s  now %s  %s (%s)  %s [%s]\n",
		p.Symbol, p.Direction, output.SourceTag(string(p.Source)),
		utils.FormatPrice(p.EntryPrice), utils.FormatPrice(p.CurrentPrice),
		output.PnLString(utils.FormatPnL(pnl), pnl),
		utils.FormatPercent(pct),
		p.Status, p.ID)
}
