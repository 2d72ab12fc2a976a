package article

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"newsbot/internal/httpx"

	"github.com/PuerkitoBio/goquery"
)

// ErrUnsupportedContent is returned for responses that are neither HTML nor
// plain text.
var ErrUnsupportedContent = errors.New("unsupported content type")

const defaultMaxBodyBytes = 5 << 20

// HTMLExtractor downloads a page over HTTP and extracts its readable text.
type HTMLExtractor struct {
	client    *http.Client
	retry     httpx.RetryPolicy
	userAgent string
	maxBytes  int64
	logger    *slog.Logger
}

type HTMLExtractorConfig struct {
	Client    *http.Client
	Retry     httpx.RetryPolicy
	UserAgent string
	MaxBytes  int64
	Logger    *slog.Logger
}

func NewHTMLExtractor(cfg HTMLExtractorConfig) *HTMLExtractor {
	if cfg.Client == nil {
		cfg.Client = httpx.NewClient(0)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = httpx.DefaultUserAgent
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxBodyBytes
	}
	return &HTMLExtractor{
		client:    cfg.Client,
		retry:     cfg.Retry,
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBytes,
		logger:    cfg.Logger,
	}
}

func (h *HTMLExtractor) Name() string { return "http" }

func (h *HTMLExtractor) Extract(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	resp, err := httpx.DoWithRetry(ctx, h.client, h.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", h.userAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")
		return req, nil
	}, h.logger)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	body := io.LimitReader(resp.Body, h.maxBytes)
	mediaType := "text/html"
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			mediaType = mt
		}
	}

	switch {
	case mediaType == "text/plain":
		raw, err := io.ReadAll(body)
		if err != nil {
			return "", fmt.Errorf("read body: %w", err)
		}
		return string(raw), nil
	case strings.Contains(mediaType, "html"):
		doc, err := goquery.NewDocumentFromReader(body)
		if err != nil {
			return "", fmt.Errorf("parse html: %w", err)
		}
		return ExtractText(doc), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedContent, mediaType)
	}
}

// ExtractText pulls the title and body paragraphs out of an HTML document.
func ExtractText(doc *goquery.Document) string {
	doc.Find("script, style, noscript, nav, header, footer, aside, form, iframe, svg").Remove()

	title := normalizeSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", ""))
	if title == "" {
		title = normalizeSpace(doc.Find("title").First().Text())
	}

	root := contentRoot(doc)
	var blocks []string
	root.Find("h1, h2, h3, p, blockquote, pre").Each(func(_ int, s *goquery.Selection) {
		if t := normalizeSpace(s.Text()); t != "" {
			blocks = append(blocks, t)
		}
	})
	if len(blocks) == 0 {
		if t := normalizeSpace(root.Text()); t != "" {
			blocks = append(blocks, t)
		}
	}

	if title != "" && (len(blocks) == 0 || blocks[0] != title) {
		blocks = append([]string{title}, blocks...)
	}
	return strings.Join(blocks, "\n\n")
}

func contentRoot(doc *goquery.Document) *goquery.Selection {
	for _, sel := range []string{"article", "main", `[role="main"]`} {
		if s := doc.Find(sel).First(); s.Length() > 0 && normalizeSpace(s.Text()) != "" {
			return s
		}
	}
	return doc.Find("body")
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
