package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"crypto-summary-bot/internal/bot"
)

// addSummaryCommand adds the one-off pipeline run command.
func addSummaryCommand(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Generate a summary now",
		Long: `Run the summary pipeline once and print the result.

With --broadcast the summary is delivered to all authenticated bot users
instead of being printed.`,
		Example: `  summarybot summary
  summarybot summary --broadcast`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Orchestrator == nil {
				output.Error("Store unavailable, cannot run the pipeline.")
				return fmt.Errorf("store required")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			broadcast, _ := cmd.Flags().GetBool("broadcast")

			doc := app.Orchestrator.BuildSummary(ctx)

			if broadcast {
				if app.Config.Credentials.Telegram.BotToken == "" {
					output.Error("Telegram bot token not set.")
					return fmt.Errorf("bot token required")
				}
				client := bot.NewClient(app.Config.Credentials.Telegram.BotToken, app.Logger)
				broadcaster := bot.NewBroadcaster(app.Store, client, app.Logger)
				sent, failed := broadcaster.Broadcast(ctx, doc.Text())
				if output.IsJSON() {
					return output.JSON(map[string]int{"sent": sent, "failed": failed})
				}
				output.Success("Summary sent to %d users (%d failed)", sent, failed)
				return nil
			}

			if output.IsJSON() {
				return output.JSON(map[string]string{
					"generated_at": doc.GeneratedAt.UTC().Format(time.RFC3339),
					"text":         doc.Text(),
				})
			}
			output.Println(doc.Text())
			return nil
		},
	}
	cmd.Flags().Bool("broadcast", false, "deliver to all authenticated users")
	rootCmd.AddCommand(cmd)
}
