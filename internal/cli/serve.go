package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"crypto-summary-bot/internal/bot"
	"crypto-summary-bot/internal/scheduler"
)

// addServeCommand adds the long-running bot command.
func addServeCommand(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newServeCmd(app))
}

func newServeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot",
		Long: `Run the Telegram bot until interrupted.

The bot long-polls by default. When a webhook host is configured it
registers the webhook and serves updates over HTTP instead. An HTTP
endpoint for manual summary triggering is exposed in both modes.`,
		Example: `  summarybot serve
  WEBHOOK_HOST=bot.example.com summarybot serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if app.Config.Credentials.Telegram.BotToken == "" {
				output.Error("Telegram bot token not set. Set TELEGRAM_BOT_TOKEN or credentials.toml.")
				return fmt.Errorf("bot token required")
			}
			if app.Store == nil {
				output.Error("Store unavailable, cannot run the bot.")
				return fmt.Errorf("store required")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client := bot.NewClient(app.Config.Credentials.Telegram.BotToken, app.Logger)
			handler := bot.NewHandler(app.Config, app.Store, client, app.Orchestrator, app.Generator, app.Logger)
			broadcaster := bot.NewBroadcaster(app.Store, client, app.Logger)

			sched, err := scheduler.New(app.Config.Schedule, app.Orchestrator, broadcaster, app.Logger)
			if err != nil {
				output.Error("Scheduler setup failed: %v", err)
				return err
			}
			if err := sched.Start(); err != nil {
				output.Error("Scheduler start failed: %v", err)
				return err
			}
			defer sched.Stop()

			server := bot.NewServer(app.Config.Bot.Port, handler, app.Orchestrator, broadcaster, app.Logger)

			if app.Config.Bot.WebhookHost != "" {
				url := fmt.Sprintf("https://%s/webhook", app.Config.Bot.WebhookHost)
				if err := client.SetWebhook(ctx, url); err != nil {
					output.Error("Webhook registration failed: %v", err)
					return err
				}
				app.Logger.Info().Str("url", url).Msg("webhook registered")
				output.Info("Bot running in webhook mode on port %d", app.Config.Bot.Port)
				return ignoreCancel(server.Run(ctx))
			}

			// Long-poll mode still serves HTTP for /trigger and health checks.
			go func() {
				if err := server.Run(ctx); err != nil && ctx.Err() == nil {
					app.Logger.Error().Err(err).Msg("HTTP server failed")
				}
			}()

			output.Info("Bot running in long-poll mode")
			poller := bot.NewPoller(client, handler, app.Logger)
			return ignoreCancel(poller.Run(ctx))
		},
	}
}

// ignoreCancel maps a clean shutdown to a zero exit status.
func ignoreCancel(err error) error {
	if err == context.Canceled {
		return nil
	}
	return err
}
