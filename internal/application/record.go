package application

import (
	"time"

	"github.com/candigo/candigo/internal/posting"
)

// Record tracks one real-world job opening through the pipeline. It is the
// unit of durability: records survive restarts and are the single source
// of truth for "have we already applied to this". DedupKey is unique
// across all records.
type Record struct {
	DedupKey string
	State    State

	// Posting snapshot, kept so SKIPPED and FAILED records stay
	// inspectable after the transient Posting is gone.
	Source      string
	Title       string
	Company     string
	Location    string
	URL         string
	Description string

	Score     float64
	Breakdown map[string]float64

	// Attempts counts externally visible side effects only (letter
	// generation calls, submission calls). Re-scoring never touches it.
	Attempts      int
	LastError     string
	MaterialsPath string

	CreatedAt      time.Time
	StateChangedAt time.Time
}

// Clone returns a deep copy so callers can mutate freely before an upsert.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	if r.Breakdown != nil {
		out.Breakdown = make(map[string]float64, len(r.Breakdown))
		for k, v := range r.Breakdown {
			out.Breakdown[k] = v
		}
	}
	return &out
}

// PostingView rebuilds a posting from the stored snapshot, for
// collaborators that work on postings (letter generation, submission)
// after the original fetch is long gone.
func (r *Record) PostingView() *posting.Posting {
	return &posting.Posting{
		Source:      r.Source,
		Title:       r.Title,
		Company:     r.Company,
		Location:    r.Location,
		URL:         r.URL,
		Description: r.Description,
	}
}

// Advance moves the record to the next state, stamping StateChangedAt.
// It fails when the transition is not allowed by the state machine.
func (r *Record) Advance(to State, now time.Time) error {
	if !IsTransitionAllowed(r.State, to) {
		return &TransitionError{Key: r.DedupKey, From: r.State, To: to}
	}
	r.State = to
	r.StateChangedAt = now
	return nil
}

// TransitionError reports an attempt to move a record against the state
// machine.
type TransitionError struct {
	Key  string
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return "transition " + string(e.From) + " -> " + string(e.To) + " is not allowed for record " + e.Key
}
