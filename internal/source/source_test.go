package source

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

type stubFetcher struct {
	name  string
	items []RawPosting
	err   error
}

func (f *stubFetcher) Name() string { return f.name }

func (f *stubFetcher) FetchPostings(_ context.Context, _ Query) ([]RawPosting, error) {
	return f.items, f.err
}

func TestCollectAll(t *testing.T) {
	fetchers := []Fetcher{
		&stubFetcher{name: FranceTravail, items: []RawPosting{
			{Source: FranceTravail, Payload: map[string]any{"id": "1"}},
			{Source: FranceTravail, Payload: map[string]any{"id": "2"}},
		}},
		&stubFetcher{name: Indeed, items: []RawPosting{
			{Source: Indeed, Payload: map[string]any{"id": "3"}},
		}},
	}

	raw, failures := CollectAll(context.Background(), fetchers, Query{Terms: "go"}, zap.NewNop())
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %v", failures)
	}
	if len(raw) != 3 {
		t.Fatalf("expected 3 postings, got %d", len(raw))
	}
}

func TestCollectAllIsolatesFailures(t *testing.T) {
	boom := errors.New("connection refused")
	fetchers := []Fetcher{
		&stubFetcher{name: LinkedIn, err: boom},
		&stubFetcher{name: FranceTravail, items: []RawPosting{
			{Source: FranceTravail, Payload: map[string]any{"id": "1"}},
		}},
	}

	raw, failures := CollectAll(context.Background(), fetchers, Query{}, zap.NewNop())
	if len(raw) != 1 {
		t.Fatalf("expected the healthy source to survive, got %d postings", len(raw))
	}
	if len(failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(failures))
	}
	if failures[0].Source != LinkedIn {
		t.Fatalf("unexpected failing source: %s", failures[0].Source)
	}
	if !errors.Is(failures[0], boom) {
		t.Fatal("expected the underlying error to be preserved")
	}
}

func TestCollectAllNoFetchers(t *testing.T) {
	raw, failures := CollectAll(context.Background(), nil, Query{}, zap.NewNop())
	if len(raw) != 0 || len(failures) != 0 {
		t.Fatalf("expected an empty result, got %d postings, %d failures", len(raw), len(failures))
	}
}
