package main

import (
	"fmt"
	"log/slog"
	"time"

	"newsbot/internal/article"
	"newsbot/internal/audit"
	"newsbot/internal/channel"
	"newsbot/internal/config"
	"newsbot/internal/dedup"
	"newsbot/internal/domain"
	"newsbot/internal/gateway"
	"newsbot/internal/httpx"
	"newsbot/internal/provider"
	"newsbot/internal/summarize"
)

// app holds the wired components of a running bot.
type app struct {
	cfg        *config.Config
	provider   domain.Provider
	dispatcher *gateway.Dispatcher
	server     *gateway.Server
	slack      *channel.Slack
	discord    *channel.Discord
	journal    *audit.Journal
}

func buildApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg}

	prov, err := provider.New(cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	a.provider = prov

	tmpl, err := summarize.LoadTemplate(cfg.LLM.PromptsDir, cfg.LLM.PromptName)
	if err != nil {
		return nil, fmt.Errorf("prompt template: %w", err)
	}
	var limiter *summarize.RateLimiter
	if cfg.LLM.RateLimitPerMinute > 0 {
		limiter = summarize.NewRateLimiter(0, float64(cfg.LLM.RateLimitPerMinute))
	}
	summarizer, err := summarize.New(summarize.Config{
		Provider:      prov,
		Template:      tmpl,
		MaxInputChars: cfg.LLM.MaxInputChars,
		MaxTokens:     cfg.LLM.MaxTokens,
		Temperature:   cfg.LLM.Temperature,
		Limiter:       limiter,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	pcfg := channel.PipelineConfig{
		Claims:     dedup.New(),
		Fetcher:    newRetriever(cfg.Article, logger),
		Summarizer: summarizer,
		Logger:     logger,
	}
	if cfg.Audit.Enabled {
		j, err := audit.Open(cfg.Audit.DBPath, logger)
		if err != nil {
			return nil, fmt.Errorf("run journal: %w", err)
		}
		a.journal = j
		pcfg.Journal = j
	}
	pipeline := channel.NewPipeline(pcfg)

	var platforms []domain.Platform
	if sc := cfg.Platforms.Slack; sc.Enabled {
		a.slack = channel.NewSlack(channel.SlackConfig{
			Tokens:       sc.Tokens,
			AllowedUsers: sc.AllowedUsers,
			Pipeline:     pipeline,
			Logger:       logger,
		})
		platforms = append(platforms, a.slack)
	}
	if dc := cfg.Platforms.Discord; dc.Enabled {
		a.discord = channel.NewDiscord(channel.DiscordConfig{
			Token:        dc.Token,
			GuildTokens:  dc.GuildTokens,
			AllowedUsers: dc.AllowedUsers,
			Pipeline:     pipeline,
			Logger:       logger,
		})
		platforms = append(platforms, a.discord)
	}

	a.dispatcher = gateway.NewDispatcher(gateway.DispatcherConfig{
		Platforms:    platforms,
		TriggerEmoji: cfg.Trigger.Emoji,
		Logger:       logger,
	})

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	a.server = gateway.NewServer(gateway.ServerConfig{
		Host:               cfg.Server.Host,
		Port:               cfg.Server.Port,
		ReadTimeout:        time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:       time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		Dispatcher:         a.dispatcher,
		SlackSigningSecret: cfg.Platforms.Slack.SigningSecret,
		WebhookSecret:      cfg.Server.WebhookSecret,
		MetricsPath:        metricsPath,
		Logger:             logger,
	})
	return a, nil
}

// newRetriever builds the article retriever: plain HTTP first, headless
// Chrome as a fallback when enabled.
func newRetriever(cfg config.ArticleConfig, logger *slog.Logger) *article.Retriever {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	extractors := []article.Extractor{
		article.NewHTMLExtractor(article.HTMLExtractorConfig{
			Client:    httpx.NewClient(timeout),
			Retry:     httpx.RetryPolicy{MaxRetries: cfg.MaxRetries, BaseDelay: httpx.DefaultRetryPolicy.BaseDelay},
			UserAgent: cfg.UserAgent,
			Logger:    logger,
		}),
	}
	if cfg.Browser.Enabled {
		extractors = append(extractors, article.NewBrowserExtractor(article.BrowserExtractorConfig{
			Timeout:   time.Duration(cfg.Browser.TimeoutSeconds) * time.Second,
			UserAgent: cfg.UserAgent,
			Logger:    logger,
		}))
	}
	return article.NewRetriever(article.RetrieverConfig{
		Extractors: extractors,
		MinChars:   cfg.MinChars,
		Logger:     logger,
	})
}

func (a *app) close() {
	if a.journal != nil {
		a.journal.Close()
	}
}
