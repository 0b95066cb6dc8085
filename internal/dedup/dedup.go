// Package dedup collapses postings that refer to the same real-world
// opening across sources and runs.
package dedup

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/candigo/candigo/internal/application"
	"github.com/candigo/candigo/internal/posting"
	"github.com/candigo/candigo/internal/store"
)

// Key derives the stable dedup key for a posting: lower-cased,
// whitespace-collapsed company|title|location. Cross-source native IDs
// are never comparable, so derived identity is the only option.
//
// Known limitation: this is a heuristic, not an identity. Two distinct
// openings with the same company, title and location collide
// (over-merge), and the same opening reworded across sources may not
// (under-merge). Kept as-is deliberately; see the exact-URL secondary
// signal in Resolve.
func Key(p *posting.Posting) string {
	return canonicalPart(p.Company) + "|" + canonicalPart(p.Title) + "|" + canonicalPart(p.Location)
}

func canonicalPart(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Decision is the outcome of resolving one posting against the store.
type Decision struct {
	// Key is the dedup key the posting belongs to. For URL-matched
	// duplicates this is the existing record's key, not the derived one.
	Key string
	// Existing is nil for novel postings.
	Existing *application.Record
	// ByURL is true when the duplicate was established by the exact-URL
	// secondary signal rather than the derived key.
	ByURL bool
}

// Novel reports whether the posting has never been tracked before.
func (d Decision) Novel() bool { return d.Existing == nil }

// Deduplicator resolves postings against the tracking store.
type Deduplicator struct {
	store  store.Store
	logger *zap.Logger
}

func New(st store.Store, logger *zap.Logger) *Deduplicator {
	return &Deduplicator{store: st, logger: logger}
}

// Resolve computes the posting's key and checks the store for a prior
// record, by key first and then by exact URL. A storage fault is fatal
// for this posting only.
func (d *Deduplicator) Resolve(ctx context.Context, p *posting.Posting) (Decision, error) {
	key := Key(p)

	rec, err := d.store.Get(ctx, key)
	if err == nil {
		return Decision{Key: key, Existing: rec}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return Decision{}, err
	}

	// Same URL seen before means the same posting for certain, even
	// when retitling broke the derived key.
	rec, err = d.store.FindByURL(ctx, p.URL)
	if err == nil {
		d.logger.Debug("posting matched existing record by url",
			zap.String("url", p.URL),
			zap.String("dedup_key", rec.DedupKey),
		)
		return Decision{Key: rec.DedupKey, Existing: rec, ByURL: true}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return Decision{}, err
	}

	return Decision{Key: key}, nil
}
