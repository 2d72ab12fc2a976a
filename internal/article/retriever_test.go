package article

import (
	"context"
	"errors"
	"testing"
)

type stubExtractor struct {
	name  string
	text  string
	err   error
	panic bool
	calls int
}

func (s *stubExtractor) Name() string { return s.name }

func (s *stubExtractor) Extract(ctx context.Context, url string) (string, error) {
	s.calls++
	if s.panic {
		panic("boom")
	}
	return s.text, s.err
}

func TestRetriever_FirstSuccessWins(t *testing.T) {
	first := &stubExtractor{name: "http", text: "article body"}
	second := &stubExtractor{name: "browser", text: "rendered"}
	r := NewRetriever(RetrieverConfig{Extractors: []Extractor{first, second}, Logger: testLogger()})

	text, ok := r.Fetch(context.Background(), "https://example.com")
	if !ok || text != "article body" {
		t.Fatalf("got %q, %v", text, ok)
	}
	if second.calls != 0 {
		t.Error("fallback extractor should not run after a success")
	}
}

func TestRetriever_FallsBackOnErrorOrShortText(t *testing.T) {
	tests := []struct {
		name  string
		first *stubExtractor
	}{
		{"error", &stubExtractor{name: "http", err: errors.New("connection refused")}},
		{"too short", &stubExtractor{name: "http", text: "hi"}},
		{"panic", &stubExtractor{name: "http", panic: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			second := &stubExtractor{name: "browser", text: "rendered article text"}
			r := NewRetriever(RetrieverConfig{
				Extractors: []Extractor{tt.first, second},
				MinChars:   10,
				Logger:     testLogger(),
			})
			text, ok := r.Fetch(context.Background(), "https://example.com")
			if !ok || text != "rendered article text" {
				t.Fatalf("got %q, %v", text, ok)
			}
		})
	}
}

func TestRetriever_AllFail(t *testing.T) {
	r := NewRetriever(RetrieverConfig{
		Extractors: []Extractor{&stubExtractor{name: "http", err: errors.New("dns")}},
		Logger:     testLogger(),
	})
	if text, ok := r.Fetch(context.Background(), "https://example.com"); ok || text != "" {
		t.Fatalf("expected failure, got %q, %v", text, ok)
	}
}
