// Package cli provides the command-line interface for the summary bot.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"crypto-summary-bot/internal/config"
	"crypto-summary-bot/internal/logging"
	"crypto-summary-bot/internal/market"
	"crypto-summary-bot/internal/search"
	"crypto-summary-bot/internal/store"
	"crypto-summary-bot/internal/summary"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-01-01"
)

// App holds the application dependencies.
type App struct {
	Config       *config.Config
	Logger       zerolog.Logger
	Store        store.DataStore
	Market       *market.Client
	Search       *search.Client
	Generator    *summary.Generator
	Orchestrator *summary.Orchestrator
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Initialize SQLite store
	dataStore, err := store.NewSQLiteStore(cfg.Bot.DBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, some features may be unavailable")
	} else {
		app.Store = dataStore
		logger.Debug().Str("path", cfg.Bot.DBPath).Msg("SQLite store initialized")
	}

	app.Market = market.NewClient(cfg.Credentials.MarketData.APIKey, logger)
	if !app.Market.Configured() {
		logger.Warn().Msg("Market data API key not set, quotes will be unavailable")
	}
	app.Search = search.NewClient(logger)

	app.Generator = summary.NewGenerator(
		cfg.Credentials.OpenRouter.APIKey,
		cfg.Credentials.OpenRouter.Model,
		cfg.Credentials.OpenRouter.BaseURL,
		logger,
	)
	if app.Generator.Configured() {
		logger.Debug().Str("model", cfg.Credentials.OpenRouter.Model).Msg("AI generator initialized")
	}

	if app.Store != nil {
		app.Orchestrator = summary.NewOrchestrator(
			app.Store, app.Market, app.Search, app.Generator,
			limitsFromConfig(cfg.Pipeline), logger,
		)
	}

	rootCmd := &cobra.Command{
		Use:   "summarybot",
		Short: "Crypto Summary Bot - AI-powered crypto digests over Telegram",
		Long: `Crypto Summary Bot delivers scheduled crypto market digests over Telegram.

It combines CoinMarketCap quotes, DuckDuckGo news and social mentions, and an
AI analyst into a single formatted summary for a curated list of coins.

Use 'summarybot serve' to run the bot, or 'summarybot summary' for a one-off run.`,
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

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/crypto-summary-bot)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addServeCommand(rootCmd, app)
	addSummaryCommand(rootCmd, app)
	addCoinCommands(rootCmd, app)

	return rootCmd
}

// limitsFromConfig maps pipeline config onto orchestrator limits.
func limitsFromConfig(p config.PipelineConfig) summary.Limits {
	limits := summary.DefaultLimits()
	if p.MaxNewsResults > 0 {
		limits.News = p.MaxNewsResults
	}
	if p.MaxSocialResults > 0 {
		limits.Social = p.MaxSocialResults
	}
	if p.MaxWhaleResults > 0 {
		limits.Whale = p.MaxWhaleResults
	}
	if p.SearchConcurrency > 0 {
		limits.Concurrency = p.SearchConcurrency
	}
	return limits
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Crypto Summary Bot v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

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
			return showConfig(output, app.Config)
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
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Bot Configuration")
	output.Printf("  Admins:          %d configured\n", len(cfg.Bot.AdminIDs))
	output.Printf("  Database:        %s\n", cfg.Bot.DBPath)
	if cfg.Bot.WebhookHost != "" {
		output.Printf("  Mode:            webhook (%s)\n", cfg.Bot.WebhookHost)
	} else {
		output.Printf("  Mode:            long-poll\n")
	}
	output.Printf("  HTTP Port:       %d\n", cfg.Bot.Port)
	output.Println()

	output.Bold("Pipeline Configuration")
	output.Printf("  News results:    %d\n", cfg.Pipeline.MaxNewsResults)
	output.Printf("  Social results:  %d\n", cfg.Pipeline.MaxSocialResults)
	output.Printf("  Whale results:   %d\n", cfg.Pipeline.MaxWhaleResults)
	output.Printf("  Concurrency:     %d\n", cfg.Pipeline.SearchConcurrency)
	output.Println()

	output.Bold("Schedule")
	output.Printf("  Enabled:         %v\n", cfg.Schedule.Enabled)
	output.Printf("  Timezone:        %s\n", cfg.Schedule.Timezone)
	for _, c := range cfg.Schedule.Crons {
		output.Printf("  Cron:            %s\n", c)
	}
	output.Println()

	output.Bold("AI")
	output.Printf("  Configured:      %v\n", cfg.HasAI())
	output.Printf("  Model:           %s\n", cfg.Credentials.OpenRouter.Model)

	return nil
}
