package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"newsbot/internal/config"
	"newsbot/internal/logging"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
	envFile    string
)

func main() {
	logger = logging.New("info", "text")

	root := &cobra.Command{
		Use:   "newsbot",
		Short: "newsbot: summarize linked articles when a message gets a newspaper reaction",
		Long: "newsbot receives Slack and Discord events, and when a message is reacted to with the\n" +
			"trigger emoji it fetches every linked article, summarizes it with an LLM and replies in thread.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (default: $"+config.ConfigPathEnv+", else environment only)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is read")

	root.AddCommand(serveCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(historyCmd())
	root.AddCommand(configCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config, then
// NEWSBOT_CONFIG. Empty means environment-only configuration.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return os.Getenv(config.ConfigPathEnv)
}

// loadConfig reads .env, the config file and the environment, and switches
// the process logger to the configured level and format.
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, err
	}
	logger = logging.New(cfg.General.LogLevel, cfg.General.LogFormat)
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the event server",
		Long:  "Serves the Slack/Discord event endpoints (and the Discord gateway listener when enabled). Press Ctrl+C to stop.",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	healthCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := a.provider.Healthy(healthCtx); err != nil {
		logger.Warn("llm provider unhealthy at startup", "provider", a.provider.Name(), "err", err)
	} else {
		logger.Info("llm provider healthy", "provider", a.provider.Name())
	}
	cancel()

	if a.slack != nil {
		probeSlack(ctx, a)
	}

	if a.discord != nil && cfg.Platforms.Discord.Gateway {
		go func() {
			if err := a.discord.Listen(ctx, cfg.Platforms.Discord.Token, a.dispatcher.Route); err != nil {
				logger.Error("discord gateway error", "err", err)
			}
		}()
		logger.Info("discord gateway listener enabled")
	}

	logger.Info("newsbot started. Press Ctrl+C to stop.",
		"version", version,
		"platforms", cfg.EnabledPlatforms(),
		"trigger", a.dispatcher.TriggerEmoji(),
	)
	return a.server.Start(ctx)
}

// probeSlack logs an auth.test result for every configured workspace.
func probeSlack(ctx context.Context, a *app) {
	for _, ws := range a.slack.Workspaces() {
		pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		user, team, err := a.slack.AuthTest(pctx, ws)
		cancel()
		if err != nil {
			logger.Warn("slack authentication failed", "workspace", ws, "err", err)
			continue
		}
		logger.Info("slack authentication successful", "workspace", ws, "bot_user", user, "team", team)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("newsbot", version)
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
		Long:  "Shows configuration after the file, .env and environment overrides are merged. Secrets are masked.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. llm.provider)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(cfg, args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			for _, line := range config.ListPaths(cfg) {
				fmt.Println(line)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write a default config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ExpandPath(args[0])
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := config.Save(path, config.Defaults()); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("default config written", "file", path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			if p := resolveConfigPath(); p != "" {
				fmt.Println(p)
				return
			}
			fmt.Println("(none: environment only)")
		},
	})

	return cmd
}
