package main

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"newsbot/internal/audit"
	"newsbot/internal/summarize"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your newsbot installation",
		Long: `Verifies that newsbot's configuration, platform credentials, LLM provider,
prompt template and run journal are correctly set up. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("newsbot doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed, failed, warned := 0, 0, 0

			// 1. Config loads and validates
			cfg, err := loadConfig()
			if err != nil {
				printFail("Config", err.Error())
				fmt.Printf("\nSet SLACK_BOT_USER_OAUTH_TOKENS or DISCORD_BOT_TOKEN (and an LLM key) in .env.\n")
				return fmt.Errorf("configuration invalid")
			}
			source := resolveConfigPath()
			if source == "" {
				source = "environment only"
			}
			printPass("Config", source)
			passed++

			ctx := context.Background()

			// 2. Prompt template
			if _, err := summarize.LoadTemplate(cfg.LLM.PromptsDir, cfg.LLM.PromptName); err != nil {
				printFail("Prompt template", err.Error())
				failed++
			} else {
				printPass("Prompt template", cfg.LLM.PromptName)
				passed++
			}

			// 3. App wiring and provider health
			a, err := buildApp(cfg, logger)
			if err != nil {
				printFail("Startup", err.Error())
				failed++
				return summarizeDoctor(passed, warned, failed)
			}
			defer a.close()

			hctx, cancel := context.WithTimeout(ctx, 15*time.Second)
			if err := a.provider.Healthy(hctx); err != nil {
				printFail("LLM provider", fmt.Sprintf("%s: %v", a.provider.Name(), err))
				failed++
			} else {
				printPass("LLM provider", a.provider.Name())
				passed++
			}
			cancel()

			// 4. Slack workspaces
			if a.slack != nil {
				for _, ws := range a.slack.Workspaces() {
					actx, cancel := context.WithTimeout(ctx, 10*time.Second)
					user, team, err := a.slack.AuthTest(actx, ws)
					cancel()
					if err != nil {
						printFail("Slack "+ws, err.Error())
						failed++
						continue
					}
					printPass("Slack "+ws, fmt.Sprintf("bot %s in %s", user, team))
					passed++
				}
				if cfg.Platforms.Slack.SigningSecret == "" {
					printWarn("Slack signing", "no signing secret; requests are not verified")
					warned++
				}
			}

			// 5. Discord
			if a.discord != nil {
				dc := cfg.Platforms.Discord
				detail := fmt.Sprintf("%d guild token(s)", len(dc.GuildTokens))
				if dc.Token != "" {
					detail = "default token + " + detail
				}
				printPass("Discord", detail)
				passed++
				if len(dc.AllowedUsers) == 0 {
					printWarn("Discord trigger group", "empty; every user may trigger summaries")
					warned++
				}
			}

			// 6. Run journal
			if cfg.Audit.Enabled {
				if err := checkJournal(ctx, cfg.Audit.DBPath); err != nil {
					printFail("Run journal", err.Error())
					failed++
				} else {
					printPass("Run journal", cfg.Audit.DBPath)
					passed++
				}
			}

			// 7. Server port
			if err := checkPort(cfg.Server.Host, cfg.Server.Port); err != nil {
				printWarn("Server port", fmt.Sprintf("port %d may be in use: %v", cfg.Server.Port, err))
				warned++
			} else {
				printPass("Server port", fmt.Sprintf(":%d available", cfg.Server.Port))
				passed++
			}

			return summarizeDoctor(passed, warned, failed)
		},
	}
}

func summarizeDoctor(passed, warned, failed int) error {
	fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
	if failed > 0 {
		fmt.Printf("\nPlease fix the failed checks before running newsbot.\n")
		return fmt.Errorf("%d check(s) failed", failed)
	}
	if warned > 0 {
		fmt.Printf("\nnewsbot should work but consider fixing the warnings.\n")
	} else {
		fmt.Printf("\nAll checks passed! newsbot is ready to run.\n")
	}
	return nil
}

// checkJournal opens the journal and round-trips a read.
func checkJournal(ctx context.Context, path string) error {
	j, err := audit.Open(path, logger)
	if err != nil {
		return err
	}
	defer j.Close()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := j.Ping(ctx); err != nil {
		return fmt.Errorf("cannot ping: %w", err)
	}
	if _, err := j.Recent(ctx, 1); err != nil {
		return fmt.Errorf("cannot read: %w", err)
	}
	return nil
}

func checkPort(host string, port int) error {
	ln, err := net.Listen("tcp", net.JoinHostPort(strings.TrimSpace(host), strconv.Itoa(port)))
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-22s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-22s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-22s %s\n", check, detail)
}
