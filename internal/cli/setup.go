package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"conviction-trader/internal/models"
	"conviction-trader/internal/trading"
	"conviction-trader/pkg/utils"
)

// addSetupCommands adds the setup lifecycle commands.
func addSetupCommands(rootCmd *cobra.Command, app *App) {
	setupCmd := &cobra.Command{
		Use:   "setup",
		Short: "Manage trade setups",
		Long:  "Create, score, list and delete trade setups.",
	}
	setupCmd.AddCommand(newSetupSaveCmd(app))
	setupCmd.AddCommand(newSetupListCmd(app))
	setupCmd.AddCommand(newSetupShowCmd(app))
	setupCmd.AddCommand(newSetupDeleteCmd(app))

	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(newFactorsCmd(app))
	rootCmd.AddCommand(newWhatIfCmd(app))
}

func newSetupSaveCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save <symbol>",
		Short: "Create or update a setup",
		Long: `Create or update a trade setup.

Probability and factor count are recomputed from the factor selection on
every save. Entries with status "executed" deploy capital; saving a setup
with deployed capital opens (or replaces) its ledger position.

Entry format:  price:amount[:executed]
Exit format:   price:percentage[:executed]`,
		Example: `  conviction setup save BTC --direction LONG --target 75000 --stop 58000
  conviction setup save ETH --direction SHORT --target 2800 --stop 3600 \
      --factor major-level --factor rsi-divergence --factor volume-spike \
      --entry 3400:500:executed --entry 3300:500
  conviction setup save BTC --id 8f4e... --status active`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			id, _ := cmd.Flags().GetString("id")
			name, _ := cmd.Flags().GetString("name")
			direction, _ := cmd.Flags().GetString("direction")
			target, _ := cmd.Flags().GetFloat64("target")
			stop, _ := cmd.Flags().GetFloat64("stop")
			alloc, _ := cmd.Flags().GetFloat64("alloc")
			priority, _ := cmd.Flags().GetString("priority")
			status, _ := cmd.Flags().GetString("status")
			tags, _ := cmd.Flags().GetString("tags")
			factors, _ := cmd.Flags().GetStringArray("factor")
			entrySpecs, _ := cmd.Flags().GetStringArray("entry")
			exitSpecs, _ := cmd.Flags().GetStringArray("exit")

			var setup *models.Setup
			if id != "" {
				existing, err := app.Engine.SetupByID(id)
				if err != nil {
					output.Error("Setup not found: %s", id)
					return err
				}
				setup = &existing
				setup.Symbol = args[0]
			} else {
				setup = models.NewSetup(uuid.NewString(), args[0], models.Direction(strings.ToUpper(direction)))
			}

			if cmd.Flags().Changed("direction") {
				setup.Direction = models.Direction(strings.ToUpper(direction))
			}
			if cmd.Flags().Changed("name") {
				setup.Name = name
			}
			if cmd.Flags().Changed("target") {
				setup.TargetPrice = target
			}
			if cmd.Flags().Changed("stop") {
				setup.StopPrice = stop
			}
			if cmd.Flags().Changed("alloc") {
				setup.TotalAllocation = alloc
			}
			if cmd.Flags().Changed("priority") {
				setup.Priority = models.Priority(priority)
			}
			if cmd.Flags().Changed("status") {
				setup.Status = models.SetupStatus(status)
			}
			if cmd.Flags().Changed("tags") {
				setup.Tags = models.ParseTags(tags)
			}
			if cmd.Flags().Changed("factor") {
				setup.Factors = factors
			}
			if cmd.Flags().Changed("entry") {
				entries, err := parseEntrySpecs(entrySpecs)
				if err != nil {
					output.Error("Invalid entry: %v", err)
					return err
				}
				setup.DCAEntries = entries
			}
			if cmd.Flags().Changed("exit") {
				exits, err := parseExitSpecs(exitSpecs)
				if err != nil {
					output.Error("Invalid exit: %v", err)
					return err
				}
				setup.DCAExits = exits
			}

			if !app.Engine.CanSave(setup) {
				output.Error("Cannot save: symbol, target price and stop price are required")
				return trading.ErrCannotSave
			}

			calc, err := app.Engine.SaveSetup(ctx, setup)
			if err != nil {
				output.Error("Failed to save setup: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"setup":       setup,
					"calculation": calc,
				})
			}

			output.Success("Setup saved: %s (%s)", setup.Name, setup.ID)
			displayCalculation(output, calc)
			if calc.TotalDeployed > 0 {
				output.Info("Executed entries added to portfolio as position pos_%s", setup.ID)
			}
			return nil
		},
	}

	cmd.Flags().String("id", "", "Existing setup id to update")
	cmd.Flags().String("name", "", "Setup name (default: \"SYMBOL DIRECTION\")")
	cmd.Flags().String("direction", "LONG", "Trade direction: LONG or SHORT")
	cmd.Flags().Float64("target", 0, "Target price")
	cmd.Flags().Float64("stop", 0, "Stop price")
	cmd.Flags().Float64("alloc", 0, "Total planned allocation")
	cmd.Flags().String("priority", "medium", "Priority: high, medium, low")
	cmd.Flags().String("status", "monitoring", "Status: monitoring, active, executed, cancelled")
	cmd.Flags().String("tags", "", "Comma-separated tags")
	cmd.Flags().StringArray("factor", nil, "Factor id (repeatable, see 'conviction factors')")
	cmd.Flags().StringArray("entry", nil, "DCA entry price:amount[:executed] (repeatable)")
	cmd.Flags().StringArray("exit", nil, "DCA exit price:percentage[:executed] (repeatable)")

	return cmd
}

func newSetupListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all setups",
		Example: `  conviction setup list
  conviction setup list --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			setups := app.Engine.Setups()
			if output.IsJSON() {
				return output.JSON(setups)
			}
			if len(setups) == 0 {
				output.Info("No setups. Create one with 'conviction setup save'.")
				return nil
			}

			color.Cyan("Setups (%d)", len(setups))
			for i := range setups {
				displaySetupRow(output, &setups[i])
			}
			return nil
		},
	}
}

func newSetupShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a setup with its live analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			setup, err := app.Engine.SetupByID(args[0])
			if err != nil {
				output.Error("Setup not found: %s", args[0])
				return err
			}

			calc := trading.Calculate(&setup)
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"setup":       setup,
					"calculation": calc,
				})
			}

			displaySetupDetail(output, &setup, calc, app.Engine.PortfolioValue())
			return nil
		},
	}
}

func newSetupDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a setup and its ledger position",
		Long:  "Delete a setup. Any position opened from this setup is removed from the ledger as well.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := app.Engine.DeleteSetup(ctx, args[0]); err != nil {
				output.Error("Failed to delete setup: %v", err)
				return err
			}
			output.Success("Setup deleted: %s", args[0])
			return nil
		},
	}
}

func newFactorsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "factors",
		Short: "List the factor catalog",
		Long:  "Display the qualitative factor catalog used to score setups.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if output.IsJSON() {
				return output.JSON(trading.AllFactors())
			}

			sections := []struct {
				title   string
				factors []trading.Factor
			}{
				{"Factor 1: Pattern Recognition", trading.PatternFactors},
				{"Factor 2: Support/Resistance", trading.SupportFactors},
				{"Factor 3+: Confluence", trading.ConfluenceFactors},
			}
			for _, s := range sections {
				color.Cyan(s.title)
				for _, f := range s.factors {
					output.Printf("  %-22s %s\n", f.ID, f.Label)
				}
				output.Println()
			}
			output.Dim("Minimum %d factors for an actionable trade", trading.MinActionableFactors)
			return nil
		},
	}
}

func newWhatIfCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whatif <setup-id> <entries>",
		Short: "Project deployment over the first N entries",
		Long: `Project average entry, deployed capital and risk/reward as if only the
first N DCA entries of a setup were filled. The setup is not modified.`,
		Example: `  conviction whatif 8f4e... 2`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			setup, err := app.Engine.SetupByID(args[0])
			if err != nil {
				output.Error("Setup not found: %s", args[0])
				return err
			}

			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 || n > len(setup.DCAEntries) {
				output.Error("Invalid entry count: %s (1-%d)", args[1], len(setup.DCAEntries))
				return fmt.Errorf("invalid entry count")
			}

			dep := trading.ComputeDeploymentFirst(setup.DCAEntries, n)
			rr := trading.ComputeRiskReward(setup.Direction, dep.AverageEntry,
				setup.TargetPrice, setup.StopPrice, dep.TotalDeployed)

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"entries":    n,
					"deployment": dep,
					"riskReward": rr,
				})
			}

			color.Cyan("What-if: first %d of %d entries (%s)", n, len(setup.DCAEntries), setup.Symbol)
			output.Printf("  Average Entry:    %s\n", utils.FormatPrice(dep.AverageEntry))
			output.Printf("  Total Deployed:   %s\n", utils.FormatCurrency(dep.TotalDeployed))
			output.Printf("  Remaining Alloc:  %s\n", utils.FormatCurrency(dep.RemainingAllocation))
			output.Printf("  Potential Profit: %s\n", output.Green(utils.FormatCurrency(rr.PotentialProfit)))
			output.Printf("  Potential Loss:   %s\n", output.Red(utils.FormatCurrency(rr.PotentialLoss)))
			output.Printf("  Risk/Reward:      %s\n", utils.FormatRatio(rr.Ratio))
			return nil
		},
	}
}

// parseEntrySpecs parses repeated price:amount[:executed] flags into a full
// tranche sequence.
func parseEntrySpecs(specs []string) ([]models.DCAEntry, error) {
	entries := make([]models.DCAEntry, 0, models.DefaultTranches)
	for _, spec := range specs {
		price, amount, executed, err := parseTrancheSpec(spec)
		if err != nil {
			return nil, err
		}
		status := models.TranchePlanned
		if executed {
			status = models.TrancheExecuted
		}
		entries = append(entries, models.DCAEntry{Price: price, Amount: amount, Status: status})
	}
	for len(entries) < models.DefaultTranches {
		entries = append(entries, models.DCAEntry{Status: models.TranchePlanned})
	}
	return entries, nil
}

// parseExitSpecs parses repeated price:percentage[:executed] flags.
func parseExitSpecs(specs []string) ([]models.DCAExit, error) {
	exits := make([]models.DCAExit, 0, models.DefaultTranches)
	for _, spec := range specs {
		price, pct, executed, err := parseTrancheSpec(spec)
		if err != nil {
			return nil, err
		}
		status := models.TranchePlanned
		if executed {
			status = models.TrancheExecuted
		}
		exits = append(exits, models.DCAExit{Price: price, Percentage: pct, Status: status})
	}
	for len(exits) < models.DefaultTranches {
		exits = append(exits, models.DCAExit{Status: models.TranchePlanned})
	}
	return exits, nil
}

func parseTrancheSpec(spec string) (float64, float64, bool, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, false, fmt.Errorf("%q: want price:value[:executed]", spec)
	}
	price, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, false, fmt.Errorf("%q: bad price", spec)
	}
	value, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, false, fmt.Errorf("%q: bad value", spec)
	}
	executed := len(parts) == 3 && strings.EqualFold(parts[2], "executed")
	if len(parts) == 3 && !executed && !strings.EqualFold(parts[2], "planned") {
		return 0, 0, false, fmt.Errorf("%q: status must be planned or executed", spec)
	}
	return price, value, executed, nil
}

func displaySetupRow(output *Output, setup *models.Setup) {
	marketNote := ""
	if setup.MarketPrice > 0 {
		marketNote = fmt.Sprintf("  mkt %s (%s)", utils.FormatPrice(setup.MarketPrice),
			utils.FormatPercent(setup.PriceChange24h))
	}
	output.Printf("  %-14s %-5s %-6s p=%d%% f=%d  [%s/%s]%s\n",
		setup.Symbol, setup.Direction, setup.Priority,
		setup.Probability, setup.TotalFactors,
		setup.Status, setup.ID[:minInt(8, len(setup.ID))], marketNote)
}

func displaySetupDetail(output *Output, setup *models.Setup, calc trading.Calculation, portfolioValue float64) {
	color.Cyan("%s - %s %s", setup.Name, setup.Symbol, setup.Direction)
	output.Printf("  ID:         %s\n", setup.ID)
	output.Printf("  Status:     %s (%s priority)\n", setup.Status, setup.Priority)
	output.Printf("  Target:     %s   Stop: %s\n",
		utils.FormatPrice(setup.TargetPrice), utils.FormatPrice(setup.StopPrice))
	output.Printf("  Allocation: %s\n", utils.FormatCurrency(setup.TotalAllocation))
	if len(setup.Tags) > 0 {
		output.Printf("  Tags:       %s\n", strings.Join(setup.Tags, ", "))
	}
	if setup.MarketPrice > 0 {
		output.Printf("  Market:     %s (%s, %s)\n", utils.FormatPrice(setup.MarketPrice),
			utils.FormatPercent(setup.PriceChange24h),
			setup.LastPriceUpdate.Format("15:04:05"))
	}
	output.Println()

	color.Cyan("DCA Entries")
	for i, e := range setup.DCAEntries {
		if e.Price == 0 && e.Amount == 0 {
			continue
		}
		share := trading.EntryShare(e, portfolioValue)
		output.Printf("  %d. %s x %s  [%s]  portfolio %.1f%%\n", i+1,
			utils.FormatPrice(e.Price), utils.FormatCurrency(e.Amount), e.Status, share)
	}
	exits := trading.ComputeExits(setup.DCAExits)
	headerShown := false
	for i, e := range setup.DCAExits {
		if e.Price == 0 && e.Percentage == 0 {
			continue
		}
		if !headerShown {
			color.Cyan("DCA Exits")
			headerShown = true
		}
		output.Printf("  %d. %s for %.0f%%  [%s]\n", i+1,
			utils.FormatPrice(e.Price), e.Percentage, e.Status)
	}
	if exits.PlannedPercent > 0 {
		output.Printf("  planned %.0f%%, executed %d, remaining %.0f%%\n",
			exits.PlannedPercent, exits.ExecutedCount, exits.RemainingPercent)
	}
	output.Println()

	displayCalculation(output, calc)
}

func displayCalculation(output *Output, calc trading.Calculation) {
	score := trading.FactorScore{Probability: calc.Probability, TotalFactors: calc.TotalFactors}
	conviction := string(score.Conviction())

	color.Cyan("Live Analysis")
	output.Printf("  Probability:      %d%%\n", calc.Probability)
	output.Printf("  Total Factors:    %d\n", calc.TotalFactors)
	switch score.Conviction() {
	case trading.ConvictionHigh:
		output.Printf("  Conviction:       %s\n", output.Green(conviction))
	case trading.ConvictionMedium:
		output.Printf("  Conviction:       %s\n", output.Yellow(conviction))
	default:
		output.Printf("  Conviction:       %s\n", output.Red(conviction))
	}
	output.Printf("  Average Entry:    %s\n", utils.FormatPrice(calc.AverageEntry))
	output.Printf("  Total Deployed:   %s\n", utils.FormatCurrency(calc.TotalDeployed))
	output.Printf("  Potential Profit: %s\n", output.Green(utils.FormatCurrency(calc.PotentialProfit)))
	output.Printf("  Potential Loss:   %s\n", output.Red(utils.FormatCurrency(calc.PotentialLoss)))
	output.Printf("  Risk/Reward:      %s\n", utils.FormatRatio(calc.RiskReward))
	output.Printf("  Monthly Goal:     %.1f%%\n", calc.MonthlyGoalImpact())

	if calc.TotalFactors < trading.MinActionableFactors {
		output.Warning("  Need minimum %d factors for any trade", trading.MinActionableFactors)
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
