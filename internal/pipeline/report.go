package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CycleReport summarizes one batch cycle for the operator and the
// cycle-finished notification.
type CycleReport struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time

	SourcesFailed []string

	Fetched    int // raw postings collected across sources
	Malformed  int // postings dropped by the normalizer
	Duplicates int // postings matched to an existing record
	Scored     int // novel postings scored this cycle

	Eligible       int // cleared the threshold
	Skipped        int // below threshold, terminal
	MaterialsReady int
	Submitted      int
	Sent           int
	RateLimited    int
	Failed         int

	// Distribution buckets novel scores for a quick read of match
	// quality: excellent >= 0.8, good >= 0.6, average >= 0.4, weak below.
	Distribution map[string]int

	Errors []string
}

func newCycleReport(startedAt time.Time) *CycleReport {
	return &CycleReport{
		ID:           uuid.NewString(),
		StartedAt:    startedAt,
		Distribution: make(map[string]int),
	}
}

func (r *CycleReport) observeScore(score float64) {
	switch {
	case score >= 0.8:
		r.Distribution["excellent"]++
	case score >= 0.6:
		r.Distribution["good"]++
	case score >= 0.4:
		r.Distribution["average"]++
	default:
		r.Distribution["weak"]++
	}
}

// Summary renders a short human-readable account of the cycle.
func (r *CycleReport) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cycle %s: fetched=%d malformed=%d duplicates=%d scored=%d\n",
		r.ID, r.Fetched, r.Malformed, r.Duplicates, r.Scored)
	fmt.Fprintf(&b, "eligible=%d skipped=%d materials=%d submitted=%d sent=%d rate_limited=%d failed=%d",
		r.Eligible, r.Skipped, r.MaterialsReady, r.Submitted, r.Sent, r.RateLimited, r.Failed)
	if len(r.SourcesFailed) > 0 {
		fmt.Fprintf(&b, "\nsources failed: %s", strings.Join(r.SourcesFailed, ", "))
	}
	if len(r.Errors) > 0 {
		fmt.Fprintf(&b, "\nerrors: %d", len(r.Errors))
	}
	return b.String()
}
