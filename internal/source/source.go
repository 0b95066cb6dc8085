// Package source defines the contract between the engine and whatever
// fetches raw postings (API clients, browser automation), and the
// normalizer that turns raw postings into canonical ones. Fetching
// itself lives outside the engine; only the contract is owned here.
package source

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Source tags for the per-source normalizer variants.
const (
	FranceTravail = "francetravail"
	Indeed        = "indeed"
	LinkedIn      = "linkedin"
)

// RawPosting is a tagged union: a source tag plus the opaque payload the
// source produced. Only the normalizer variant matching the tag may
// interpret the payload.
type RawPosting struct {
	Source  string
	Payload map[string]any
}

// Query is the search request handed to every fetcher for a cycle.
type Query struct {
	Terms    string `mapstructure:"terms"`
	Location string `mapstructure:"location"`
	Limit    int    `mapstructure:"limit"`
}

// Fetcher is implemented by the external collaborators that pull postings
// from one job board. Implementations may block for a long time; the
// engine bounds them with the context.
type Fetcher interface {
	Name() string
	FetchPostings(ctx context.Context, q Query) ([]RawPosting, error)
}

// SourceError wraps a fetcher failure so the cycle report can name the
// source that was skipped.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// CollectAll fetches from every source concurrently. A failing source is
// logged, reported and skipped; the remaining sources proceed.
func CollectAll(ctx context.Context, fetchers []Fetcher, q Query, logger *zap.Logger) ([]RawPosting, []*SourceError) {
	type result struct {
		source string
		items  []RawPosting
		err    error
	}

	results := make(chan result, len(fetchers))
	var wg sync.WaitGroup
	for _, f := range fetchers {
		wg.Add(1)
		go func(f Fetcher) {
			defer wg.Done()
			items, err := f.FetchPostings(ctx, q)
			results <- result{source: f.Name(), items: items, err: err}
		}(f)
	}
	wg.Wait()
	close(results)

	var all []RawPosting
	var failures []*SourceError
	for r := range results {
		if r.err != nil {
			failures = append(failures, &SourceError{Source: r.source, Err: r.err})
			logger.Warn("source failed, skipping for this cycle",
				zap.String("source", r.source),
				zap.Error(r.err),
			)
			continue
		}
		logger.Info("collected postings",
			zap.String("source", r.source),
			zap.Int("count", len(r.items)),
		)
		all = append(all, r.items...)
	}

	return all, failures
}
