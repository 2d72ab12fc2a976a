package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCounter_SameKeyReturnsSameCounter(t *testing.T) {
	r := NewRegistry()
	a := r.Counter("x_total", "help", Labels("k", "v"))
	b := r.Counter("x_total", "help", Labels("k", "v"))
	a.Inc()
	b.Add(2)
	if a != b || a.Value() != 3 {
		t.Fatalf("expected shared counter with value 3, got %d", a.Value())
	}
	if other := r.Counter("x_total", "help", Labels("k", "w")); other == a {
		t.Fatal("different labels must yield a different series")
	}
}

func TestRender_StableOrderAndFormat(t *testing.T) {
	r := NewRegistry()
	r.Counter("b_total", "B", "").Inc()
	r.Counter("a_total", "A", Labels("status", "Summarized")).Add(4)
	r.Counter("a_total", "A", Labels("status", "Already processed")).Inc()
	r.Gauge("g", "G", "").Set(7)
	h := r.Histogram("lat_seconds", "L", "", []float64{5, 1})
	h.Observe(0.5)
	h.Observe(3)

	out := r.Render()
	if strings.Index(out, "a_total") > strings.Index(out, "b_total") {
		t.Error("families should be rendered in name order")
	}
	if strings.Count(out, "# TYPE a_total counter") != 1 {
		t.Errorf("family header should appear once:\n%s", out)
	}
	for _, want := range []string{
		`a_total{status="Summarized"} 4`,
		`a_total{status="Already processed"} 1`,
		"b_total 1",
		"# TYPE g gauge",
		"g 7",
		`lat_seconds_bucket{le="1"} 1`,
		`lat_seconds_bucket{le="5"} 2`,
		`lat_seconds_bucket{le="+Inf"} 2`,
		"lat_seconds_sum 3.5",
		"lat_seconds_count 2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if out != r.Render() {
		t.Error("render should be deterministic")
	}
}

func TestHistogram_LabelledBuckets(t *testing.T) {
	r := NewRegistry()
	r.Histogram("d_seconds", "D", Labels("platform", "slack"), []float64{1}).Observe(2)
	out := r.Render()
	for _, want := range []string{
		`d_seconds_bucket{platform="slack",le="1"} 0`,
		`d_seconds_bucket{platform="slack",le="+Inf"} 1`,
		`d_seconds_count{platform="slack"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestRegistry_KindMismatchPanics(t *testing.T) {
	r := NewRegistry()
	r.Counter("m", "M", "")
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when reusing a name with another kind")
		}
	}()
	r.Gauge("m", "M", "")
}

func TestHandler_ContentType(t *testing.T) {
	r := NewRegistry()
	rec := httptest.NewRecorder()
	r.Handler()(rec, httptest.NewRequest("GET", "/metrics", nil))
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "newsbot_uptime_seconds") {
		t.Fatal("uptime missing")
	}
}

func TestLabels(t *testing.T) {
	if got := Labels("platform", "slack", "status", `say "hi"`); got != `platform="slack",status="say \"hi\""` {
		t.Fatalf("got %s", got)
	}
}
