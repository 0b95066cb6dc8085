// Package submit defines the application-submission contract. The
// browser-automation collaborator that physically fills forms implements
// Submitter; the engine only consumes the tri-state result.
package submit

import (
	"context"
	"fmt"

	"github.com/candigo/candigo/internal/posting"
)

// Result is the tri-state outcome of one submission call.
type Result string

const (
	// ResultSent means the collaborator confirmed delivery.
	ResultSent Result = "SENT"
	// ResultRateLimited is a non-fatal refusal: the site signalled the
	// caller should slow down. The pipeline backs off and retries on a
	// later cycle instead of failing the record.
	ResultRateLimited Result = "RATE_LIMITED"
	// ResultRejected is a definitive refusal (form validation failure,
	// site error). The pipeline fails the record.
	ResultRejected Result = "REJECTED"
)

// MaterialSet is everything the submitter needs beyond the posting.
type MaterialSet struct {
	LetterText string
	// Path is the prepared application folder on disk, when one exists.
	Path   string
	CVPath string
}

// Submission is the collaborator's answer. Detail carries the site's
// human-readable explanation for rate limits and rejections.
type Submission struct {
	Result Result
	Detail string
}

// Submitter sends one application. Calls may block for minutes; the
// engine bounds them with the context.
type Submitter interface {
	SubmitApplication(ctx context.Context, p *posting.Posting, materials MaterialSet) (Submission, error)
}

// RejectedError lets a Submitter report a definitive rejection as an
// error value where that is more natural than a Submission.
type RejectedError struct {
	Detail string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("application rejected: %s", e.Detail)
}
