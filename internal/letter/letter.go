// Package letter defines the cover-letter generation contract and a
// deterministic template fallback. The AI-backed implementation lives in
// the gemini subpackage.
package letter

import (
	"context"
	"errors"

	"github.com/candigo/candigo/internal/posting"
	"github.com/candigo/candigo/internal/profile"
)

// ErrEmptyLetter is returned when a generator produces no usable text.
// The pipeline treats it like any other generation failure.
var ErrEmptyLetter = errors.New("generator returned an empty letter")

// Generator turns a posting and the candidate profile into cover-letter
// text. Implementations may be slow or rate-limited; the pipeline bounds
// every call with the context and applies its retry policy.
type Generator interface {
	GenerateLetter(ctx context.Context, p *posting.Posting, prof *profile.Profile) (string, error)
}
