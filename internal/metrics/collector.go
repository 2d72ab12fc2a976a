// Package metrics keeps in-process counters, gauges and histograms for the
// bot and renders them in the Prometheus text exposition format.
package metrics

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Collector is the process-wide registry.
var Collector = NewRegistry()

type kind string

const (
	kindCounter   kind = "counter"
	kindGauge     kind = "gauge"
	kindHistogram kind = "histogram"
)

// family groups every labelled series sharing one metric name.
type family struct {
	name   string
	help   string
	kind   kind
	series map[string]any // labels -> *Counter | *Gauge | *Histogram
}

// Registry owns metric families keyed by name.
type Registry struct {
	mu       sync.RWMutex
	families map[string]*family
	started  time.Time
}

func NewRegistry() *Registry {
	return &Registry{families: make(map[string]*family), started: time.Now()}
}

// Uptime reports how long the registry has existed.
func (r *Registry) Uptime() time.Duration { return time.Since(r.started) }

type Counter struct{ n atomic.Int64 }

func (c *Counter) Inc()         { c.n.Add(1) }
func (c *Counter) Add(n int64)  { c.n.Add(n) }
func (c *Counter) Value() int64 { return c.n.Load() }

type Gauge struct{ n atomic.Int64 }

func (g *Gauge) Set(v int64)  { g.n.Store(v) }
func (g *Gauge) Inc()         { g.n.Add(1) }
func (g *Gauge) Dec()         { g.n.Add(-1) }
func (g *Gauge) Value() int64 { return g.n.Load() }

// Histogram counts observations into cumulative upper-bound buckets.
type Histogram struct {
	mu     sync.Mutex
	bounds []float64
	counts []int64
	total  int64
	sum    float64
}

func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.total++
	h.sum += v
	for i, le := range h.bounds {
		if v <= le {
			h.counts[i]++
		}
	}
}

// lookup returns the series for name/labels, creating the family and the
// series with mk when missing. Registering a name twice with different
// kinds is a programming error.
func (r *Registry) lookup(name, help string, k kind, labels string, mk func() any) any {
	r.mu.RLock()
	if f, ok := r.families[name]; ok {
		if s, ok := f.series[labels]; ok {
			r.mu.RUnlock()
			return s
		}
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.families[name]
	if !ok {
		f = &family{name: name, help: help, kind: k, series: make(map[string]any)}
		r.families[name] = f
	}
	if f.kind != k {
		panic(fmt.Sprintf("metrics: %s registered as %s, requested as %s", name, f.kind, k))
	}
	s, ok := f.series[labels]
	if !ok {
		s = mk()
		f.series[labels] = s
	}
	return s
}

func (r *Registry) Counter(name, help, labels string) *Counter {
	return r.lookup(name, help, kindCounter, labels, func() any { return &Counter{} }).(*Counter)
}

func (r *Registry) Gauge(name, help, labels string) *Gauge {
	return r.lookup(name, help, kindGauge, labels, func() any { return &Gauge{} }).(*Gauge)
}

// Histogram returns the series for name/labels. bounds only apply when the
// series is first created.
func (r *Registry) Histogram(name, help, labels string, bounds []float64) *Histogram {
	return r.lookup(name, help, kindHistogram, labels, func() any {
		b := slices.Clone(bounds)
		slices.Sort(b)
		return &Histogram{bounds: b, counts: make([]int64, len(b))}
	}).(*Histogram)
}

func (r *Registry) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		fmt.Fprint(w, r.Render())
	}
}

// Render writes every family sorted by name, series sorted by labels.
func (r *Registry) Render() string {
	var sb strings.Builder
	writeHeader(&sb, "newsbot_uptime_seconds", "Seconds since the process started", kindGauge)
	fmt.Fprintf(&sb, "newsbot_uptime_seconds %d\n", int64(r.Uptime().Seconds()))

	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.families))
	for name := range r.families {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		f := r.families[name]
		writeHeader(&sb, f.name, f.help, f.kind)

		labelSets := make([]string, 0, len(f.series))
		for l := range f.series {
			labelSets = append(labelSets, l)
		}
		slices.Sort(labelSets)

		for _, labels := range labelSets {
			switch m := f.series[labels].(type) {
			case *Counter:
				fmt.Fprintf(&sb, "%s%s %d\n", f.name, braces(labels), m.Value())
			case *Gauge:
				fmt.Fprintf(&sb, "%s%s %d\n", f.name, braces(labels), m.Value())
			case *Histogram:
				writeHistogram(&sb, f.name, labels, m)
			}
		}
	}
	return sb.String()
}

func writeHeader(sb *strings.Builder, name, help string, k kind) {
	fmt.Fprintf(sb, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, k)
}

func writeHistogram(sb *strings.Builder, name, labels string, h *Histogram) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, le := range h.bounds {
		bucket := joinLabels(labels, `le="`+strconv.FormatFloat(le, 'g', -1, 64)+`"`)
		fmt.Fprintf(sb, "%s_bucket{%s} %d\n", name, bucket, h.counts[i])
	}
	fmt.Fprintf(sb, "%s_bucket{%s} %d\n", name, joinLabels(labels, `le="+Inf"`), h.total)
	fmt.Fprintf(sb, "%s_sum%s %g\n", name, braces(labels), h.sum)
	fmt.Fprintf(sb, "%s_count%s %d\n", name, braces(labels), h.total)
}

func braces(labels string) string {
	if labels == "" {
		return ""
	}
	return "{" + labels + "}"
}

func joinLabels(a, b string) string {
	if a == "" {
		return b
	}
	return a + "," + b
}

// Labels renders label pairs ("k1", "v1", "k2", "v2") in exposition syntax.
func Labels(kv ...string) string {
	parts := make([]string, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		parts = append(parts, kv[i]+"="+strconv.Quote(kv[i+1]))
	}
	return strings.Join(parts, ",")
}

var (
	HTTPRequests = Collector.Counter("newsbot_http_requests_total", "Inbound event requests", "")
	DedupHits    = Collector.Counter("newsbot_dedup_hits_total", "Reactions rejected as already processed", "")
	InFlightRuns = Collector.Gauge("newsbot_pipeline_in_flight", "Pipeline runs currently executing", "")

	ArticleFetchLatency = Collector.Histogram("newsbot_article_fetch_seconds", "Article retrieval latency in seconds", "",
		[]float64{0.25, 0.5, 1, 2, 5, 10, 30})
	SummarizeLatency = Collector.Histogram("newsbot_summarize_seconds", "Summarization latency in seconds", "",
		[]float64{0.5, 1, 2, 5, 10, 30, 60, 120})
)

// RunOutcome counts finished pipeline runs by platform and status.
func RunOutcome(platform, status string) *Counter {
	return Collector.Counter("newsbot_pipeline_runs_total", "Reaction pipeline runs by outcome",
		Labels("platform", platform, "status", status))
}

// ArticleOutcome counts article retrievals by result ("ok" or "failed").
func ArticleOutcome(result string) *Counter {
	return Collector.Counter("newsbot_articles_total", "Article retrievals by result", Labels("result", result))
}

func Posts(platform, result string) *Counter {
	return Collector.Counter("newsbot_replies_total", "Threaded replies by result",
		Labels("platform", platform, "result", result))
}

func Responses(route string, code int) *Counter {
	return Collector.Counter("newsbot_http_responses_total", "Inbound event responses by route and code",
		Labels("route", route, "code", strconv.Itoa(code)))
}
