// Package channel holds the chat platform adapters and the reaction pipeline
// they share.
package channel

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"newsbot/internal/article"
	"newsbot/internal/domain"
	"newsbot/internal/metrics"
)

// ErrChannelInfo marks a failed channel probe that ran before the message
// lookup.
var ErrChannelInfo = errors.New("channel info unavailable")

const journalTimeout = 5 * time.Second

// Pipeline runs one reaction trigger through
// claim → credentials → fetch → extract → summarize → reply.
type Pipeline struct {
	claims     domain.ClaimStore
	fetcher    domain.ArticleFetcher
	summarizer domain.Summarizer
	journal    domain.RunJournal
	logger     *slog.Logger
}

type PipelineConfig struct {
	Claims     domain.ClaimStore
	Fetcher    domain.ArticleFetcher
	Summarizer domain.Summarizer
	// Journal is optional.
	Journal domain.RunJournal
	Logger  *slog.Logger
}

func NewPipeline(cfg PipelineConfig) *Pipeline {
	return &Pipeline{
		claims:     cfg.Claims,
		fetcher:    cfg.Fetcher,
		summarizer: cfg.Summarizer,
		journal:    cfg.Journal,
		logger:     cfg.Logger,
	}
}

// run tracks the state of one claimed trigger.
type run struct {
	key       domain.TriggerKey
	channel   string
	started   time.Time
	urls      int
	summaries int
}

// Run handles a reaction event that already matched the trigger emoji.
func (p *Pipeline) Run(ctx context.Context, plat domain.Platform, ev domain.InboundEvent) domain.Response {
	if ev.Reaction == nil {
		return domain.Invalid("reaction payload missing")
	}
	key := ev.Key()
	logger := p.logger.With(
		"platform", string(key.Platform),
		"workspace", key.Workspace,
		"channel", ev.Reaction.TargetChannel,
		"message_id", key.MessageID,
	)

	if !p.claims.MarkIfNew(key) {
		metrics.DedupHits.Inc()
		logger.Info("reaction ignored, message already processed")
		return domain.OK(domain.StatusAlreadyProcessed)
	}

	metrics.InFlightRuns.Inc()
	defer metrics.InFlightRuns.Dec()

	r := &run{key: key, channel: ev.Reaction.TargetChannel, started: time.Now()}

	if err := plat.ResolveWorkspace(key.Workspace); err != nil {
		logger.Error("no credentials for workspace", "err", err)
		return p.finish(ctx, r, domain.Fail(http.StatusInternalServerError, domain.StatusNotConfigured), true)
	}

	msg, err := plat.FetchMessage(ctx, domain.MessageRef{
		Workspace: key.Workspace,
		Channel:   ev.Reaction.TargetChannel,
		MessageID: key.MessageID,
	})
	switch {
	case errors.Is(err, domain.ErrMessageNotFound):
		logger.Info("reacted message not found")
		return p.finish(ctx, r, domain.Fail(http.StatusNotFound, domain.StatusNoMessages), false)
	case errors.Is(err, ErrChannelInfo):
		logger.Error("channel probe failed", "err", err)
		return p.finish(ctx, r, domain.Fail(http.StatusInternalServerError, domain.StatusChannelInfoFailed), true)
	case err != nil:
		logger.Error("message lookup failed", "err", err)
		return p.finish(ctx, r, domain.Fail(http.StatusInternalServerError, domain.StatusFetchFailed), true)
	}

	if msg.AuthorIsBot {
		logger.Info("ignoring bot-authored message")
		return p.finish(ctx, r, domain.OK(domain.StatusIgnoredBotMessage), false)
	}

	urls := article.ExtractURLs(msg.Text)
	r.urls = len(urls)
	if len(urls) == 0 {
		logger.Info("no URLs in message")
		return p.finish(ctx, r, domain.OK(domain.StatusNoURLs), false)
	}

	reply := domain.MessageRef{
		Workspace: key.Workspace,
		Channel:   msg.Channel,
		MessageID: msg.ReplyAnchor(),
	}
	if reply.Channel == "" {
		reply.Channel = ev.Reaction.TargetChannel
	}

	// first is the first summary posted in full; cut is the first one that
	// only partly reached the thread.
	var first, cut string
	posted := 0
	for _, u := range urls {
		summary, ok := p.summarizeURL(ctx, logger, u)
		if !ok {
			continue
		}
		r.summaries++

		err := plat.SendMessage(ctx, reply, summary)
		var partial *domain.PartialPostError
		switch {
		case err == nil:
			metrics.Posts(string(key.Platform), "ok").Inc()
			posted++
			if first == "" {
				first = summary
			}
			logger.Info("summary posted", "url", u, "thread", reply.MessageID)
		case errors.As(err, &partial):
			// Part of the reply is visible, so the run counts as delivered
			// and the claim is kept.
			metrics.Posts(string(key.Platform), "partial").Inc()
			posted++
			if cut == "" {
				cut = summary
			}
			logger.Error("summary only partly posted", "url", u, "sent", partial.Sent, "total", partial.Total, "err", err)
		default:
			metrics.Posts(string(key.Platform), "failed").Inc()
			logger.Error("posting summary failed", "url", u, "err", err)
		}
	}
	if first == "" {
		first = cut
	}

	if r.summaries == 0 {
		return p.finish(ctx, r, domain.Fail(http.StatusInternalServerError, domain.StatusNoSummaries), true)
	}
	if posted == 0 {
		return p.finish(ctx, r, domain.Fail(http.StatusInternalServerError, domain.StatusPostFailed), true)
	}

	resp := domain.OK(domain.StatusSummarized)
	resp.Summary = first
	resp.Posted = posted
	return p.finish(ctx, r, resp, false)
}

// summarizeURL fetches and summarizes one article. Failures are logged and
// reported as ok=false so the caller moves on to the next URL.
func (p *Pipeline) summarizeURL(ctx context.Context, logger *slog.Logger, url string) (string, bool) {
	start := time.Now()
	text, ok := p.fetcher.Fetch(ctx, url)
	metrics.ArticleFetchLatency.Observe(time.Since(start).Seconds())
	if !ok {
		metrics.ArticleOutcome("failed").Inc()
		logger.Warn("article could not be retrieved, skipping", "url", url)
		return "", false
	}
	metrics.ArticleOutcome("ok").Inc()

	start = time.Now()
	summary, err := p.summarizer.Summarize(ctx, text)
	metrics.SummarizeLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		logger.Error("summarization failed, skipping", "url", url, "err", err)
		return "", false
	}
	return summary, true
}

// finish records the outcome and, for infrastructure failures, releases the
// claim so a fresh reaction can retry.
func (p *Pipeline) finish(ctx context.Context, r *run, resp domain.Response, release bool) domain.Response {
	if release {
		p.claims.Release(r.key)
	}
	metrics.RunOutcome(string(r.key.Platform), resp.Status).Inc()

	if p.journal != nil {
		jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
		defer cancel()
		err := p.journal.Record(jctx, domain.RunRecord{
			Key:        r.key,
			Channel:    r.channel,
			Status:     resp.Status,
			Code:       resp.Code,
			URLs:       r.urls,
			Summaries:  r.summaries,
			StartedAt:  r.started,
			FinishedAt: time.Now(),
		})
		if err != nil {
			p.logger.Warn("run journal write failed", "key", r.key.String(), "err", err)
		}
	}
	return resp
}

// splitMessage splits a message into chunks that fit within the max length,
// trying to split on newlines when possible.
func splitMessage(msg string, maxLen int) []string {
	if len(msg) <= maxLen {
		return []string{msg}
	}

	var chunks []string
	for len(msg) > 0 {
		if len(msg) <= maxLen {
			chunks = append(chunks, msg)
			break
		}

		cut := maxLen
		if idx := strings.LastIndex(msg[:maxLen], "\n"); idx > maxLen/2 {
			cut = idx + 1
		} else {
			for cut > 0 && !utf8.RuneStart(msg[cut]) {
				cut--
			}
			if cut == 0 {
				cut = maxLen
			}
		}

		chunks = append(chunks, msg[:cut])
		msg = msg[cut:]
	}
	return chunks
}
