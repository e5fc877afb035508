package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// addCoinCommands adds tracked-coin management commands.
func addCoinCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "coins",
		Short: "Manage tracked coins",
		Long:  "List, add and remove the coins included in generated summaries.",
	}

	cmd.AddCommand(newCoinsListCmd(app))
	cmd.AddCommand(newCoinsAddCmd(app))
	cmd.AddCommand(newCoinsRemoveCmd(app))
	rootCmd.AddCommand(cmd)
}

func newCoinsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tracked coins",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				output.Error("Store unavailable.")
				return fmt.Errorf("store required")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			coins, err := app.Store.GetActiveCoins(ctx)
			if err != nil {
				output.Error("Failed to load coins: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(coins)
			}
			if len(coins) == 0 {
				output.Warning("No coins are being tracked.")
				return nil
			}
			output.Bold("Tracked Coins")
			for _, c := range coins {
				line := fmt.Sprintf("  %-8s %s", c.Symbol, c.Name)
				if c.Slug != "" {
					line += fmt.Sprintf(" (slug: %s)", c.Slug)
				}
				output.Println(line)
			}
			return nil
		},
	}
}

func newCoinsAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <symbol> <name>",
		Short: "Add a coin to the tracked list",
		Example: `  summarybot coins add BTC Bitcoin
  summarybot coins add TON Toncoin --slug toncoin`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				output.Error("Store unavailable.")
				return fmt.Errorf("store required")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			symbol := strings.ToUpper(args[0])
			name := strings.Join(args[1:], " ")
			slug, _ := cmd.Flags().GetString("slug")

			if err := app.Store.AddCoin(ctx, symbol, name, slug); err != nil {
				output.Error("Failed to add coin: %v", err)
				return err
			}
			output.Success("Coin %s (%s) added", symbol, name)
			return nil
		},
	}
	cmd.Flags().String("slug", "", "CoinMarketCap slug for symbol-collision disambiguation")
	return cmd
}

func newCoinsRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <symbol>",
		Short:   "Remove a coin from the tracked list",
		Example: `  summarybot coins remove DOGE`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				output.Error("Store unavailable.")
				return fmt.Errorf("store required")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			symbol := strings.ToUpper(args[0])
			if err := app.Store.RemoveCoin(ctx, symbol); err != nil {
				output.Error("Failed to remove coin: %v", err)
				return err
			}
			output.Success("Coin %s removed", symbol)
			return nil
		},
	}
}
