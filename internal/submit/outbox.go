package submit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/candigo/candigo/internal/posting"
)

// Outbox prepares application folders for the semi-automatic mode: one
// directory per posting holding the letter and everything an operator
// needs to finish the application by hand.
type Outbox struct {
	dir string
	now func() time.Time
}

func NewOutbox(dir string) *Outbox {
	return &Outbox{dir: dir, now: time.Now}
}

// Prepare writes the application folder and returns its path.
func (o *Outbox) Prepare(p *posting.Posting, letterText string) (string, error) {
	company := strings.ReplaceAll(p.Company, " ", "_")
	stamp := o.now().Format("20060102_150405")
	dir := filepath.Join(o.dir, fmt.Sprintf("application_%s_%s", sanitize(company), stamp))

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create application folder: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "letter.txt"), []byte(letterText), 0o644); err != nil {
		return "", fmt.Errorf("write letter: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "posting.md"), []byte(postingSummary(p)), 0o644); err != nil {
		return "", fmt.Errorf("write posting summary: %w", err)
	}

	return dir, nil
}

func postingSummary(p *posting.Posting) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s - %s\n\n", p.Title, p.Company)
	fmt.Fprintf(&b, "- Source: %s\n", p.SourceID)
	fmt.Fprintf(&b, "- Location: %s\n", p.Location)
	if p.ContractType != "" {
		fmt.Fprintf(&b, "- Contract: %s\n", p.ContractType)
	}
	if p.SalaryKnown() {
		fmt.Fprintf(&b, "- Salary: %.0f-%.0f\n", p.Salary.Min, p.Salary.Max)
	}
	fmt.Fprintf(&b, "- URL: %s\n", p.URL)
	if !p.PostedAt.IsZero() {
		fmt.Fprintf(&b, "- Posted: %s\n", p.PostedAt.Format("2006-01-02"))
	}
	if p.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", p.Description)
	}
	return b.String()
}

// sanitize keeps folder names portable.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '-'
		}
	}, s)
}
