package article

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

// BrowserExtractor renders a page in headless Chrome before extraction, for
// sites that build their content with JavaScript.
type BrowserExtractor struct {
	timeout   time.Duration
	userAgent string
	logger    *slog.Logger
}

type BrowserExtractorConfig struct {
	Timeout   time.Duration
	UserAgent string
	Logger    *slog.Logger
}

func NewBrowserExtractor(cfg BrowserExtractorConfig) *BrowserExtractor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	}
	return &BrowserExtractor{
		timeout:   cfg.Timeout,
		userAgent: cfg.UserAgent,
		logger:    cfg.Logger,
	}
}

func (b *BrowserExtractor) Name() string { return "browser" }

func (b *BrowserExtractor) Extract(ctx context.Context, url string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Headless,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(b.userAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, b.timeout)
	defer cancel()

	var page string
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &page),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}
	b.logger.Debug("page rendered", "url", url, "bytes", len(page))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parse rendered html: %w", err)
	}
	return ExtractText(doc), nil
}
